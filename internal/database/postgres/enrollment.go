package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/kozaktomas/door-sentry/internal/database"
	"github.com/pgvector/pgvector-go"
)

// EnrollmentRepository stores reference embeddings as pgvector columns.
type EnrollmentRepository struct {
	pool *Pool
}

// NewEnrollmentRepository creates a new PostgreSQL enrollment repository.
func NewEnrollmentRepository(pool *Pool) *EnrollmentRepository {
	return &EnrollmentRepository{pool: pool}
}

// LoadGallery returns every identity with its samples in insertion order.
func (r *EnrollmentRepository) LoadGallery(ctx context.Context) (map[string][][]float32, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, identity, embedding, dim, created_at
		FROM enrollment_samples
		ORDER BY identity, id
	`)
	if err != nil {
		return nil, fmt.Errorf("query enrollment samples: %w", err)
	}
	defer rows.Close()

	var samples []database.EnrollmentSample
	for rows.Next() {
		var s database.EnrollmentSample
		var vec pgvector.Vector
		if err := rows.Scan(&s.ID, &s.Identity, &vec, &s.Dim, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan enrollment sample: %w", err)
		}
		s.Embedding = vec.Slice()
		samples = append(samples, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate enrollment samples: %w", err)
	}
	return database.GroupSamples(samples), nil
}

// ListIdentities returns enrolled identity names in sorted order.
func (r *EnrollmentRepository) ListIdentities(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, "SELECT DISTINCT identity FROM enrollment_samples ORDER BY identity")
	if err != nil {
		return nil, fmt.Errorf("query identities: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan identity: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate identities: %w", err)
	}
	return names, nil
}

// CountSamples returns the number of stored samples.
func (r *EnrollmentRepository) CountSamples(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM enrollment_samples").Scan(&count); err != nil {
		return 0, fmt.Errorf("count enrollment samples: %w", err)
	}
	return count, nil
}

// ReplaceIdentity deletes the identity's samples and inserts the new ones in one transaction.
func (r *EnrollmentRepository) ReplaceIdentity(ctx context.Context, identity string, samples [][]float32) error {
	if identity == "" {
		return errors.New("identity name is required")
	}
	if len(samples) == 0 {
		return fmt.Errorf("identity %q has no embeddings", identity)
	}

	tx, err := r.pool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM enrollment_samples WHERE identity = $1", identity); err != nil {
		return fmt.Errorf("delete samples of %s: %w", identity, err)
	}
	for i, emb := range samples {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO enrollment_samples (identity, embedding, dim) VALUES ($1, $2, $3)",
			identity, pgvector.NewVector(emb), len(emb))
		if err != nil {
			return fmt.Errorf("insert sample %d of %s: %w", i, identity, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit samples of %s: %w", identity, err)
	}
	return nil
}

// DeleteIdentity removes an identity and its samples.
func (r *EnrollmentRepository) DeleteIdentity(ctx context.Context, identity string) error {
	if _, err := r.pool.Exec(ctx, "DELETE FROM enrollment_samples WHERE identity = $1", identity); err != nil {
		return fmt.Errorf("delete identity %s: %w", identity, err)
	}
	return nil
}

// NearestSamples returns the identities of the k samples closest to query by
// L2 distance, with their distances. Used to cross-check the in-memory gallery.
func (r *EnrollmentRepository) NearestSamples(ctx context.Context, query []float32, k int) ([]string, []float64, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT identity, embedding <-> $1 AS distance
		FROM enrollment_samples
		WHERE dim = $2
		ORDER BY distance, identity
		LIMIT $3
	`, pgvector.NewVector(query), len(query), k)
	if err != nil {
		return nil, nil, fmt.Errorf("query nearest samples: %w", err)
	}
	defer rows.Close()

	var names []string
	var distances []float64
	for rows.Next() {
		var name string
		var d float64
		if err := rows.Scan(&name, &d); err != nil {
			return nil, nil, fmt.Errorf("scan nearest sample: %w", err)
		}
		names = append(names, name)
		distances = append(distances, d)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate nearest samples: %w", err)
	}
	return names, distances, nil
}
