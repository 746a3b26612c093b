package database

import (
	"context"
	"fmt"
	"sync"
)

var (
	providerMu              sync.RWMutex
	postgresAuditStore      func() AuditStore
	postgresEnrollmentStore func() EnrollmentWriter
	postgresInitialized     bool
)

// RegisterPostgresBackend registers PostgreSQL repository constructors.
// This is called by the postgres package to avoid import cycles.
func RegisterPostgresBackend(audit func() AuditStore, enrollment func() EnrollmentWriter) {
	providerMu.Lock()
	defer providerMu.Unlock()
	postgresAuditStore = audit
	postgresEnrollmentStore = enrollment
	postgresInitialized = true
}

// IsInitialized returns whether the PostgreSQL backend has been initialized.
func IsInitialized() bool {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return postgresInitialized
}

// GetAuditStore returns the PostgreSQL audit store.
func GetAuditStore(ctx context.Context) (AuditStore, error) {
	providerMu.RLock()
	defer providerMu.RUnlock()
	if !postgresInitialized {
		return nil, fmt.Errorf("PostgreSQL backend not initialized: DATABASE_URL is required")
	}
	if postgresAuditStore == nil {
		return nil, fmt.Errorf("PostgreSQL audit store not registered")
	}
	return postgresAuditStore(), nil
}

// GetEnrollmentWriter returns the PostgreSQL enrollment repository.
func GetEnrollmentWriter(ctx context.Context) (EnrollmentWriter, error) {
	providerMu.RLock()
	defer providerMu.RUnlock()
	if !postgresInitialized {
		return nil, fmt.Errorf("PostgreSQL backend not initialized: DATABASE_URL is required")
	}
	if postgresEnrollmentStore == nil {
		return nil, fmt.Errorf("PostgreSQL enrollment repository not registered")
	}
	return postgresEnrollmentStore(), nil
}

// GetEnrollmentReader returns the PostgreSQL enrollment repository as a reader.
func GetEnrollmentReader(ctx context.Context) (EnrollmentReader, error) {
	return GetEnrollmentWriter(ctx)
}

// MultiWriter fans one audit record out to several writers. Every writer is
// attempted; the first error is returned.
type MultiWriter []AuditWriter

func (m MultiWriter) RecordTransition(ctx context.Context, rec AuditRecord) error {
	var first error
	for _, w := range m {
		if err := w.RecordTransition(ctx, rec); err != nil && first == nil {
			first = err
		}
	}
	return first
}
