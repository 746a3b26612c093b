//go:build integration

package postgres

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/kozaktomas/door-sentry/internal/config"
	"github.com/kozaktomas/door-sentry/internal/database"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestContainer(t *testing.T) (*Pool, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "pgvector/pgvector:pg16",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("Docker not available or container failed to start, skipping integration test: %v", err)
		return nil, func() {}
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	cfg := &config.DatabaseConfig{
		URL:          fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port()),
		MaxOpenConns: 5,
		MaxIdleConns: 2,
	}

	pool, err := Initialize(ctx, cfg)
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("Failed to initialize database: %v", err)
	}

	cleanup := func() {
		pool.Close()
		container.Terminate(ctx)
	}
	return pool, cleanup
}

func TestMigrations(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	versions, err := pool.MigrationsApplied(ctx)
	if err != nil {
		t.Fatalf("MigrationsApplied: %v", err)
	}
	if len(versions) != 2 || versions[0] != "001" || versions[1] != "002" {
		t.Errorf("expected versions [001 002], got %v", versions)
	}

	// A second run must be a no-op.
	if err := pool.Migrate(ctx); err != nil {
		t.Errorf("re-running migrations failed: %v", err)
	}
}

func TestAuditRepository(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	store, err := database.GetAuditStore(ctx)
	if err != nil {
		t.Fatalf("GetAuditStore: %v", err)
	}

	base := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	unlock := database.NewAuditRecord("Alice", "awaiting_unlock_confirm", "unlocked", "unlock", base)
	lock := database.NewAuditRecord("Alice", "awaiting_lock_confirm", "cooldown", "lock", base.Add(time.Minute))
	lock.Error = "bridge offline"

	for _, rec := range []database.AuditRecord{unlock, lock, unlock} {
		if err := store.RecordTransition(ctx, rec); err != nil {
			t.Fatalf("RecordTransition: %v", err)
		}
	}

	count, err := store.CountTransitions(ctx)
	if err != nil {
		t.Fatalf("CountTransitions: %v", err)
	}
	if count != 2 {
		t.Errorf("expected duplicate ID to be ignored, count = %d", count)
	}

	got, err := store.ListTransitions(ctx, 10)
	if err != nil {
		t.Fatalf("ListTransitions: %v", err)
	}
	if len(got) != 2 || got[0].ID != lock.ID || got[1].ID != unlock.ID {
		t.Fatalf("expected newest first, got %+v", got)
	}
	if got[0].Error != "bridge offline" || !got[0].Timestamp.Equal(lock.Timestamp) {
		t.Errorf("round trip mismatch: %+v", got[0])
	}
}

func TestEnrollmentRepository(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	repo := NewEnrollmentRepository(pool)

	t.Run("ReplaceAndLoad", func(t *testing.T) {
		if err := repo.ReplaceIdentity(ctx, "Alice", [][]float32{{1, 0, 0}, {0.9, 0.1, 0}}); err != nil {
			t.Fatalf("ReplaceIdentity: %v", err)
		}
		if err := repo.ReplaceIdentity(ctx, "Bob", [][]float32{{0, 1, 0}}); err != nil {
			t.Fatalf("ReplaceIdentity: %v", err)
		}

		gallery, err := repo.LoadGallery(ctx)
		if err != nil {
			t.Fatalf("LoadGallery: %v", err)
		}
		if len(gallery["Alice"]) != 2 || len(gallery["Bob"]) != 1 {
			t.Errorf("unexpected gallery: %v", gallery)
		}
	})

	t.Run("ReplaceOverwrites", func(t *testing.T) {
		if err := repo.ReplaceIdentity(ctx, "Alice", [][]float32{{1, 0, 0}}); err != nil {
			t.Fatalf("ReplaceIdentity: %v", err)
		}
		count, err := repo.CountSamples(ctx)
		if err != nil {
			t.Fatalf("CountSamples: %v", err)
		}
		if count != 2 {
			t.Errorf("expected 2 samples after replace, got %d", count)
		}
	})

	t.Run("NearestSamples", func(t *testing.T) {
		names, distances, err := repo.NearestSamples(ctx, []float32{0.1, 0.9, 0}, 2)
		if err != nil {
			t.Fatalf("NearestSamples: %v", err)
		}
		if len(names) != 2 || names[0] != "Bob" || distances[0] > distances[1] {
			t.Errorf("unexpected nearest: %v %v", names, distances)
		}
	})

	t.Run("RejectsEmpty", func(t *testing.T) {
		if err := repo.ReplaceIdentity(ctx, "Carol", nil); err == nil {
			t.Error("expected error for identity without samples")
		}
	})

	t.Run("Delete", func(t *testing.T) {
		if err := repo.DeleteIdentity(ctx, "Bob"); err != nil {
			t.Fatalf("DeleteIdentity: %v", err)
		}
		names, err := repo.ListIdentities(ctx)
		if err != nil {
			t.Fatalf("ListIdentities: %v", err)
		}
		if len(names) != 1 || names[0] != "Alice" {
			t.Errorf("ListIdentities() = %v, want [Alice]", names)
		}
	})
}
