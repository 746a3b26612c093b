package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNewAuditRecord(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.FixedZone("CET", 3600))
	rec := NewAuditRecord("Alice", "awaiting_unlock_confirm", "unlocked", "unlock", at)

	if rec.ID == uuid.Nil {
		t.Error("expected a generated ID")
	}
	if rec.Timestamp.Location() != time.UTC || !rec.Timestamp.Equal(at) {
		t.Errorf("Timestamp = %v, want %v in UTC", rec.Timestamp, at)
	}
	if other := NewAuditRecord("Alice", "", "", "", at); other.ID == rec.ID {
		t.Error("expected unique IDs")
	}
}

func TestClampLimit(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, DefaultAuditLimit},
		{-5, DefaultAuditLimit},
		{10, 10},
		{MaxAuditLimit, MaxAuditLimit},
		{MaxAuditLimit + 1, MaxAuditLimit},
	}
	for _, tc := range tests {
		if got := ClampLimit(tc.in); got != tc.want {
			t.Errorf("ClampLimit(%d) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestGroupSamples(t *testing.T) {
	got := GroupSamples([]EnrollmentSample{
		{Identity: "Alice", Embedding: []float32{1, 0}},
		{Identity: "Bob", Embedding: []float32{0, 1}},
		{Identity: "Alice", Embedding: []float32{0.9, 0.1}},
	})

	if len(got) != 2 || len(got["Alice"]) != 2 || len(got["Bob"]) != 1 {
		t.Fatalf("unexpected grouping: %v", got)
	}
	if got["Alice"][1][0] != 0.9 {
		t.Errorf("sample order not preserved: %v", got["Alice"])
	}
}

type recordingWriter struct {
	got []AuditRecord
	err error
}

func (w *recordingWriter) RecordTransition(_ context.Context, rec AuditRecord) error {
	w.got = append(w.got, rec)
	return w.err
}

func TestMultiWriter(t *testing.T) {
	failing := &recordingWriter{err: errors.New("disk full")}
	healthy := &recordingWriter{}

	err := MultiWriter{failing, healthy}.RecordTransition(context.Background(), AuditRecord{Identity: "Alice"})
	if err == nil || err.Error() != "disk full" {
		t.Errorf("expected first writer error, got %v", err)
	}
	if len(healthy.got) != 1 {
		t.Error("expected later writers to still receive the record")
	}
}
