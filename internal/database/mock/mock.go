// Package mock provides mock implementations of database interfaces for testing.
package mock

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/kozaktomas/door-sentry/internal/database"
)

// MockAuditStore is an in-memory database.AuditStore.
type MockAuditStore struct {
	mu      sync.RWMutex
	records []database.AuditRecord

	// Error injection
	RecordError error
	ListError   error
	CountError  error

	closed bool
}

// NewMockAuditStore creates an empty mock audit store.
func NewMockAuditStore() *MockAuditStore {
	return &MockAuditStore{}
}

// RecordTransition appends a record.
func (m *MockAuditStore) RecordTransition(ctx context.Context, rec database.AuditRecord) error {
	if m.RecordError != nil {
		return m.RecordError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}

// ListTransitions returns records newest first.
func (m *MockAuditStore) ListTransitions(ctx context.Context, limit int) ([]database.AuditRecord, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	limit = database.ClampLimit(limit)
	out := make([]database.AuditRecord, 0, min(limit, len(m.records)))
	for i := len(m.records) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.records[i])
	}
	return out, nil
}

// CountTransitions returns the number of records.
func (m *MockAuditStore) CountTransitions(ctx context.Context) (int, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records), nil
}

// Close marks the store closed.
func (m *MockAuditStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Records returns a copy of every record in insertion order.
func (m *MockAuditStore) Records() []database.AuditRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]database.AuditRecord(nil), m.records...)
}

// Closed reports whether Close was called.
func (m *MockAuditStore) Closed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}

// MockEnrollmentStore is an in-memory database.EnrollmentWriter.
type MockEnrollmentStore struct {
	mu         sync.RWMutex
	identities map[string][][]float32

	// Error injection
	LoadError    error
	ReplaceError error
	DeleteError  error
}

// NewMockEnrollmentStore creates an empty mock enrollment store.
func NewMockEnrollmentStore() *MockEnrollmentStore {
	return &MockEnrollmentStore{identities: make(map[string][][]float32)}
}

// LoadGallery returns a copy of the stored mapping.
func (m *MockEnrollmentStore) LoadGallery(ctx context.Context) (map[string][][]float32, error) {
	if m.LoadError != nil {
		return nil, m.LoadError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string][][]float32, len(m.identities))
	for name, samples := range m.identities {
		out[name] = append([][]float32(nil), samples...)
	}
	return out, nil
}

// ListIdentities returns names in sorted order.
func (m *MockEnrollmentStore) ListIdentities(ctx context.Context) ([]string, error) {
	if m.LoadError != nil {
		return nil, m.LoadError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.identities))
	for name := range m.identities {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// CountSamples returns the total number of samples.
func (m *MockEnrollmentStore) CountSamples(ctx context.Context) (int, error) {
	if m.LoadError != nil {
		return 0, m.LoadError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, samples := range m.identities {
		n += len(samples)
	}
	return n, nil
}

// ReplaceIdentity replaces an identity's samples.
func (m *MockEnrollmentStore) ReplaceIdentity(ctx context.Context, identity string, samples [][]float32) error {
	if m.ReplaceError != nil {
		return m.ReplaceError
	}
	if len(samples) == 0 {
		return fmt.Errorf("identity %q has no embeddings", identity)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.identities[identity] = append([][]float32(nil), samples...)
	return nil
}

// DeleteIdentity removes an identity.
func (m *MockEnrollmentStore) DeleteIdentity(ctx context.Context, identity string) error {
	if m.DeleteError != nil {
		return m.DeleteError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.identities, identity)
	return nil
}

// Compile-time interface checks
var (
	_ database.AuditStore       = (*MockAuditStore)(nil)
	_ database.EnrollmentWriter = (*MockEnrollmentStore)(nil)
)
