//go:build integration

package mariadb

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/kozaktomas/door-sentry/internal/database"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestContainer(t *testing.T) (*Pool, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "mariadb:11",
		ExposedPorts: []string{"3306/tcp"},
		Env: map[string]string{
			"MARIADB_USER":          "test",
			"MARIADB_PASSWORD":      "test",
			"MARIADB_DATABASE":      "door",
			"MARIADB_ROOT_PASSWORD": "root",
		},
		WaitingFor: wait.ForListeningPort("3306/tcp").WithStartupTimeout(90 * time.Second),
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
	port, err := container.MappedPort(ctx, "3306")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	var pool *Pool
	dsn := fmt.Sprintf("test:test@tcp(%s:%s)/door", host, port.Port())
	// The port opens before the server accepts logins.
	for range 30 {
		if pool, err = NewPool(dsn); err == nil {
			break
		}
		time.Sleep(time.Second)
	}
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("Failed to create pool: %v", err)
	}

	return pool, func() {
		pool.Close()
		container.Terminate(ctx)
	}
}

func TestAuditRepository(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	repo, err := NewAuditRepository(ctx, pool)
	if err != nil {
		t.Fatalf("NewAuditRepository: %v", err)
	}

	at := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	first := database.NewAuditRecord("Alice", "awaiting_unlock_confirm", "unlocked", "unlock", at)
	second := database.NewAuditRecord("Bob", "awaiting_lock_confirm", "cooldown", "lock", at.Add(time.Second))

	for _, rec := range []database.AuditRecord{first, second, second} {
		if err := repo.RecordTransition(ctx, rec); err != nil {
			t.Fatalf("RecordTransition: %v", err)
		}
	}

	count, err := repo.CountTransitions(ctx)
	if err != nil || count != 2 {
		t.Fatalf("CountTransitions() = %d, %v; want 2", count, err)
	}

	got, err := repo.ListTransitions(ctx, 1)
	if err != nil {
		t.Fatalf("ListTransitions: %v", err)
	}
	if len(got) != 1 || got[0].ID != second.ID || got[0].Identity != "Bob" {
		t.Errorf("expected newest record, got %+v", got)
	}
}
