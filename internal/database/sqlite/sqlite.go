// Package sqlite is the local, file-backed audit sink used when no server
// database is configured.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kozaktomas/door-sentry/internal/database"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// AuditStore keeps audit records in a SQLite file.
type AuditStore struct {
	db *sql.DB
}

// Open creates or opens the audit database at path.
// The database runs in WAL mode with a single writer connection.
func Open(path string) (*AuditStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &AuditStore{db: db}, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *AuditStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// RecordTransition inserts one record. Re-recording the same ID is a no-op.
func (s *AuditStore) RecordTransition(ctx context.Context, rec database.AuditRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO audit_transitions
			(id, identity, previous_state, new_state, command, error, created_at_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID.String(), rec.Identity, rec.PreviousState, rec.NewState, rec.Command, rec.Error,
		rec.Timestamp.UnixNano())
	if err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}
	return nil
}

// ListTransitions returns the newest records first.
func (s *AuditStore) ListTransitions(ctx context.Context, limit int) ([]database.AuditRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, identity, previous_state, new_state, command, error, created_at_ns
		FROM audit_transitions
		ORDER BY created_at_ns DESC, id
		LIMIT ?`, database.ClampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query audit records: %w", err)
	}
	defer rows.Close()

	var out []database.AuditRecord
	for rows.Next() {
		var rec database.AuditRecord
		var id string
		var ns int64
		if err := rows.Scan(&id, &rec.Identity, &rec.PreviousState, &rec.NewState,
			&rec.Command, &rec.Error, &ns); err != nil {
			return nil, fmt.Errorf("scan audit record: %w", err)
		}
		if rec.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parse audit record id %q: %w", id, err)
		}
		rec.Timestamp = time.Unix(0, ns).UTC()
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit records: %w", err)
	}
	return out, nil
}

// CountTransitions returns the number of stored records.
func (s *AuditStore) CountTransitions(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM audit_transitions").Scan(&count); err != nil {
		return 0, fmt.Errorf("count audit records: %w", err)
	}
	return count, nil
}
