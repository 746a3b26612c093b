package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/door-sentry/internal/access"
	"github.com/kozaktomas/door-sentry/internal/actuator"
	"github.com/kozaktomas/door-sentry/internal/classifier"
	"github.com/kozaktomas/door-sentry/internal/database/postgres"
	"github.com/kozaktomas/door-sentry/internal/gallery"
	"github.com/kozaktomas/door-sentry/internal/log"
	"github.com/kozaktomas/door-sentry/internal/timer"
	"github.com/kozaktomas/door-sentry/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the access controller and its HTTP API",
	Long: `Run the access controller. Frames are posted to the HTTP API by the
vision pipeline, operators confirm or deny through the same API, and status
notices are streamed over server-sent events.

The gallery is loaded from ENROLLMENT_PATH, or from PostgreSQL with --from-db.

Examples:
  # Dry run with the log actuator
  door-sentry serve

  # Strict profile, serial lock bridge, gallery from PostgreSQL
  DOOR_PROFILE=strict ACTUATOR_KIND=serial ACTUATOR_ADDR=lock-bridge:4000 \
    door-sentry serve --from-db`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "Port to listen on (default from WEB_PORT)")
	serveCmd.Flags().String("host", "", "Host to bind to (default from WEB_HOST)")
	serveCmd.Flags().Bool("from-db", false, "Load the gallery from PostgreSQL instead of ENROLLMENT_PATH")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if port := mustGetInt(cmd, "port"); port != 0 {
		cfg.Web.Port = port
	}
	if host := mustGetString(cmd, "host"); host != "" {
		cfg.Web.Host = host
	}
	fromDB := mustGetBool(cmd, "from-db")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Database.URL != "" {
		fmt.Printf("Connecting to PostgreSQL database...\n")
		pool, err := postgres.Initialize(ctx, &cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to initialize PostgreSQL: %w", err)
		}
		defer pool.Close()
	} else if fromDB {
		return errors.New("--from-db requires DATABASE_URL")
	}

	enrolled, err := loadEnrollment(ctx, cfg.Gallery.EnrollmentPath, fromDB)
	if err != nil {
		return err
	}
	store, err := gallery.New(enrolled, galleryOptions(cfg))
	if err != nil {
		return err
	}
	log.Info("gallery loaded",
		"identities", len(store.Identities()),
		"samples", store.SampleCount(),
		"dimension", store.Dimension(),
		"index", cfg.Gallery.Index,
	)

	gw, err := actuator.New(actuator.Kind(cfg.Actuator.Kind), cfg.Actuator.Addr)
	if err != nil {
		return err
	}
	defer gw.Close()

	audit, err := openAuditStack(ctx, cfg)
	if err != nil {
		return err
	}
	defer audit.Close()

	hub := access.NewHub(access.DefaultListenerBuffer)
	ctrl, err := access.NewController(accessOptions(cfg), access.Deps{
		Classifier: classifier.New(store),
		Scheduler:  timer.NewService(),
		Actuator:   gw,
		Audit:      audit.Writer(),
		Notices:    hub,
	})
	if err != nil {
		return err
	}

	go logNotices(ctx, hub)

	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		ctrl.Run(ctx)
	}()

	server := web.NewServer(cfg, web.Deps{
		Controller: ctrl,
		Notices:    hub,
		Audit:      audit.reader,
		Gallery:    store,
	})

	go func() {
		<-ctx.Done()
		fmt.Println("\nShutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Door Sentry (%s profile) listening on http://%s\n", cfg.Profile, cfg.Web.Addr())
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		stop()
		<-runDone
		return fmt.Errorf("starting server: %w", err)
	}
	<-runDone
	return nil
}

// logNotices writes decision-relevant notices to the structured log.
func logNotices(ctx context.Context, hub *access.Hub) {
	ch := hub.AddListener()
	defer hub.RemoveListener(ch)

	for {
		select {
		case <-ctx.Done():
			return
		case n := <-ch:
			switch n.Kind {
			case access.NoticeProgress, access.NoticePreview, access.NoticeCountdown, access.NoticeCooldownActive:
				log.Debug("notice", "kind", string(n.Kind), "state", n.State, "identity", n.Identity, "remaining", n.Remaining)
			default:
				log.Info("notice", "kind", string(n.Kind), "state", n.State, "identity", n.Identity, "message", n.Message)
			}
		}
	}
}
