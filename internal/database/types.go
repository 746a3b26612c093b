package database

import (
	"time"

	"github.com/google/uuid"
)

// AuditRecord is one confirmed lock or unlock transition.
type AuditRecord struct {
	ID            uuid.UUID
	Identity      string // person who confirmed the transition
	PreviousState string
	NewState      string
	Command       string // "lock" or "unlock"
	Timestamp     time.Time
	Error         string // actuator failure, empty on success
}

// NewAuditRecord creates a record with a fresh random ID.
func NewAuditRecord(identity, previous, next, command string, at time.Time) AuditRecord {
	return AuditRecord{
		ID:            uuid.New(),
		Identity:      identity,
		PreviousState: previous,
		NewState:      next,
		Command:       command,
		Timestamp:     at.UTC(),
	}
}

// EnrollmentSample is one reference embedding of an enrolled identity.
type EnrollmentSample struct {
	ID        int64
	Identity  string
	Embedding []float32
	Dim       int
	CreatedAt time.Time
}

// Audit listing limits.
const (
	DefaultAuditLimit = 50
	MaxAuditLimit     = 1000
)

// ClampLimit maps a requested listing size into [1, MaxAuditLimit];
// non-positive values select DefaultAuditLimit.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultAuditLimit
	}
	return min(limit, MaxAuditLimit)
}

// GroupSamples folds samples into the identity -> embeddings mapping that
// gallery.New consumes. Sample order within an identity is preserved.
func GroupSamples(samples []EnrollmentSample) map[string][][]float32 {
	out := make(map[string][][]float32)
	for _, s := range samples {
		out[s.Identity] = append(out[s.Identity], s.Embedding)
	}
	return out
}
