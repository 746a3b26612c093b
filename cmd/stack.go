package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/kozaktomas/door-sentry/internal/access"
	"github.com/kozaktomas/door-sentry/internal/config"
	"github.com/kozaktomas/door-sentry/internal/database"
	"github.com/kozaktomas/door-sentry/internal/database/mariadb"
	"github.com/kozaktomas/door-sentry/internal/database/sqlite"
	"github.com/kozaktomas/door-sentry/internal/gallery"
	"github.com/kozaktomas/door-sentry/internal/log"
)

// loadConfig loads and validates the configuration.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func galleryOptions(cfg *config.Config) gallery.Options {
	return gallery.Options{
		Threshold:  cfg.Access.MatchThreshold,
		Dimension:  cfg.Gallery.Dim,
		Centroid:   cfg.Gallery.Centroid,
		Index:      gallery.IndexKind(cfg.Gallery.Index),
		Candidates: cfg.Gallery.Candidates,
	}
}

func accessOptions(cfg *config.Config) access.Options {
	return access.Options{
		StabilityFrames:     cfg.Access.StabilityFramesNeeded,
		ConfirmationTimeout: cfg.Access.ConfirmationTimeout,
		CooldownDuration:    cfg.Access.CooldownDuration,
		CountdownSeconds:    cfg.Access.CountdownSeconds,
	}
}

// loadEnrollment reads enrollment data from PostgreSQL when fromDB is set
// (the backend must already be initialized) and from path otherwise.
func loadEnrollment(ctx context.Context, path string, fromDB bool) (map[string][][]float32, error) {
	if !fromDB {
		return gallery.LoadFile(path)
	}
	reader, err := database.GetEnrollmentReader(ctx)
	if err != nil {
		return nil, err
	}
	enrolled, err := reader.LoadGallery(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading gallery from database: %w", err)
	}
	return enrolled, nil
}

// auditStack is every configured audit sink. Transitions are written to all
// of them; listings come from the first one opened.
type auditStack struct {
	writers database.MultiWriter
	reader  database.AuditReader
	closers []io.Closer
	names   []string
}

func (a *auditStack) add(name string, store database.AuditStore) {
	a.writers = append(a.writers, store)
	a.closers = append(a.closers, store)
	a.names = append(a.names, name)
	if a.reader == nil {
		a.reader = store
	}
}

// Writer returns the fan-out writer, or nil when no sink is configured.
func (a *auditStack) Writer() database.AuditWriter {
	if len(a.writers) == 0 {
		return nil
	}
	return a.writers
}

func (a *auditStack) Close() error {
	var errs []error
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// openAuditStack opens the SQLite, PostgreSQL and MariaDB sinks that are
// configured. PostgreSQL is used only if the backend was initialized.
func openAuditStack(ctx context.Context, cfg *config.Config) (*auditStack, error) {
	stack := &auditStack{}

	if cfg.Audit.SQLitePath != "" {
		store, err := sqlite.Open(cfg.Audit.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite audit store: %w", err)
		}
		stack.add("sqlite", store)
	}

	if database.IsInitialized() {
		store, err := database.GetAuditStore(ctx)
		if err != nil {
			stack.Close()
			return nil, err
		}
		stack.add("postgres", store)
	}

	if cfg.MariaDB.DSN != "" {
		pool, err := mariadb.NewPool(cfg.MariaDB.DSN)
		if err != nil {
			stack.Close()
			return nil, fmt.Errorf("connecting to MariaDB: %w", err)
		}
		store, err := mariadb.NewAuditRepository(ctx, pool)
		if err != nil {
			pool.Close()
			stack.Close()
			return nil, err
		}
		stack.add("mariadb", store)
	}

	if len(stack.names) == 0 {
		log.Warn("no audit store configured, transitions will only be logged")
	} else {
		log.Info("audit stores ready", "stores", stack.names)
	}
	return stack, nil
}
