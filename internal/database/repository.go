package database

import (
	"context"
)

// AuditWriter persists confirmed transitions.
type AuditWriter interface {
	// RecordTransition stores one audit record.
	RecordTransition(ctx context.Context, rec AuditRecord) error
}

// AuditReader provides read-only access to the audit trail.
type AuditReader interface {
	// ListTransitions returns the most recent records, newest first.
	ListTransitions(ctx context.Context, limit int) ([]AuditRecord, error)
	// CountTransitions returns the total number of stored records.
	CountTransitions(ctx context.Context) (int, error)
}

// AuditStore is the full audit backend.
type AuditStore interface {
	AuditWriter
	AuditReader
	Close() error
}

// EnrollmentReader provides read-only access to enrolled reference embeddings.
type EnrollmentReader interface {
	// LoadGallery returns every identity with its samples.
	LoadGallery(ctx context.Context) (map[string][][]float32, error)
	// ListIdentities returns enrolled identity names in sorted order.
	ListIdentities(ctx context.Context) ([]string, error)
	// CountSamples returns the total number of stored samples.
	CountSamples(ctx context.Context) (int, error)
}

// EnrollmentWriter provides write access to enrollment data.
type EnrollmentWriter interface {
	EnrollmentReader

	// ReplaceIdentity atomically replaces all samples of an identity.
	ReplaceIdentity(ctx context.Context, identity string, samples [][]float32) error
	// DeleteIdentity removes an identity and its samples.
	DeleteIdentity(ctx context.Context, identity string) error
}
