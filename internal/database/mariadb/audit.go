package mariadb

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/kozaktomas/door-sentry/internal/database"
)

const createAuditTable = `
	CREATE TABLE IF NOT EXISTS audit_transitions (
		id             CHAR(36) PRIMARY KEY,
		identity       VARCHAR(255) NOT NULL,
		previous_state VARCHAR(64) NOT NULL,
		new_state      VARCHAR(64) NOT NULL,
		command        VARCHAR(16) NOT NULL,
		error          TEXT NOT NULL,
		created_at     DATETIME(6) NOT NULL,
		INDEX audit_transitions_created_at_idx (created_at)
	)
`

// AuditRepository stores confirmed transitions in MariaDB.
type AuditRepository struct {
	pool *Pool
}

// NewAuditRepository creates the audit table if needed.
func NewAuditRepository(ctx context.Context, pool *Pool) (*AuditRepository, error) {
	if _, err := pool.db.ExecContext(ctx, createAuditTable); err != nil {
		return nil, fmt.Errorf("create audit table: %w", err)
	}
	return &AuditRepository{pool: pool}, nil
}

// RecordTransition inserts one record. Re-recording the same ID is a no-op.
func (r *AuditRepository) RecordTransition(ctx context.Context, rec database.AuditRecord) error {
	query := `INSERT IGNORE INTO audit_transitions
		(id, identity, previous_state, new_state, command, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := r.pool.db.ExecContext(ctx, query,
		rec.ID.String(), rec.Identity, rec.PreviousState, rec.NewState, rec.Command, rec.Error, rec.Timestamp.UTC())
	if err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}
	return nil
}

// ListTransitions returns the newest records first.
func (r *AuditRepository) ListTransitions(ctx context.Context, limit int) ([]database.AuditRecord, error) {
	rows, err := r.pool.db.QueryContext(ctx, `
		SELECT id, identity, previous_state, new_state, command, error, created_at
		FROM audit_transitions
		ORDER BY created_at DESC, id
		LIMIT ?`, database.ClampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query audit records: %w", err)
	}
	defer rows.Close()

	var out []database.AuditRecord
	for rows.Next() {
		var rec database.AuditRecord
		var id string
		if err := rows.Scan(&id, &rec.Identity, &rec.PreviousState, &rec.NewState,
			&rec.Command, &rec.Error, &rec.Timestamp); err != nil {
			return nil, fmt.Errorf("scan audit record: %w", err)
		}
		if rec.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parse audit record id %q: %w", id, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit records: %w", err)
	}
	return out, nil
}

// CountTransitions returns the number of stored records.
func (r *AuditRepository) CountTransitions(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM audit_transitions").Scan(&count); err != nil {
		return 0, fmt.Errorf("count audit records: %w", err)
	}
	return count, nil
}

// Close closes the underlying pool.
func (r *AuditRepository) Close() error {
	return r.pool.Close()
}
