package postgres

import (
	"context"
	"fmt"

	"github.com/kozaktomas/door-sentry/internal/database"
)

// AuditRepository stores confirmed transitions in audit_transitions.
type AuditRepository struct {
	pool *Pool
}

// NewAuditRepository creates a new PostgreSQL audit repository.
func NewAuditRepository(pool *Pool) *AuditRepository {
	return &AuditRepository{pool: pool}
}

// RecordTransition inserts one record. Re-recording the same ID is a no-op.
func (r *AuditRepository) RecordTransition(ctx context.Context, rec database.AuditRecord) error {
	query := `
		INSERT INTO audit_transitions (id, identity, previous_state, new_state, command, error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := r.pool.Exec(ctx, query,
		rec.ID, rec.Identity, rec.PreviousState, rec.NewState, rec.Command, rec.Error, rec.Timestamp)
	if err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}
	return nil
}

// ListTransitions returns the newest records first.
func (r *AuditRepository) ListTransitions(ctx context.Context, limit int) ([]database.AuditRecord, error) {
	query := `
		SELECT id, identity, previous_state, new_state, command, error, created_at
		FROM audit_transitions
		ORDER BY created_at DESC, id
		LIMIT $1
	`
	rows, err := r.pool.Query(ctx, query, database.ClampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query audit records: %w", err)
	}
	defer rows.Close()

	var out []database.AuditRecord
	for rows.Next() {
		var rec database.AuditRecord
		if err := rows.Scan(&rec.ID, &rec.Identity, &rec.PreviousState, &rec.NewState,
			&rec.Command, &rec.Error, &rec.Timestamp); err != nil {
			return nil, fmt.Errorf("scan audit record: %w", err)
		}
		rec.Timestamp = rec.Timestamp.UTC()
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
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM audit_transitions").Scan(&count); err != nil {
		return 0, fmt.Errorf("count audit records: %w", err)
	}
	return count, nil
}

// Close is a no-op; the pool is owned by whoever called Initialize.
func (r *AuditRepository) Close() error { return nil }
