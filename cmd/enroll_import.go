package cmd

import (
	"errors"
	"fmt"
	"sort"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/door-sentry/internal/database"
	"github.com/kozaktomas/door-sentry/internal/database/postgres"
	"github.com/kozaktomas/door-sentry/internal/gallery"
)

var enrollImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import an enrollment file into PostgreSQL",
	Long: `Validate an enrollment file and store it in the enrollment_samples table.
Every identity in the file replaces its previous samples. Identities that are
only in the database are kept unless --prune is set.

Requires DATABASE_URL.

Examples:
  door-sentry enroll import embeddings.json
  door-sentry enroll import --prune embeddings.json`,
	Args: cobra.ExactArgs(1),
	RunE: runEnrollImport,
}

func init() {
	enrollCmd.AddCommand(enrollImportCmd)

	enrollImportCmd.Flags().Bool("prune", false, "Delete identities that are not in the file")
}

func runEnrollImport(cmd *cobra.Command, args []string) error {
	prune := mustGetBool(cmd, "prune")
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Database.URL == "" {
		return errors.New("DATABASE_URL environment variable is required")
	}

	enrolled, err := gallery.LoadFile(args[0])
	if err != nil {
		return err
	}
	// Reject anything the controller would refuse to serve.
	if _, err := gallery.New(enrolled, galleryOptions(cfg)); err != nil {
		return err
	}

	fmt.Printf("Connecting to PostgreSQL database...\n")
	pool, err := postgres.Initialize(ctx, &cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	defer pool.Close()

	writer, err := database.GetEnrollmentWriter(ctx)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(enrolled))
	for name := range enrolled {
		names = append(names, name)
	}
	sort.Strings(names)

	bar := progressbar.NewOptions(len(names),
		progressbar.OptionSetDescription("Importing identities"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("identities"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionFullWidth(),
	)
	for _, name := range names {
		if err := writer.ReplaceIdentity(ctx, name, enrolled[name]); err != nil {
			return fmt.Errorf("importing %q: %w", name, err)
		}
		bar.Add(1)
	}
	fmt.Println()

	pruned := 0
	if prune {
		existing, err := writer.ListIdentities(ctx)
		if err != nil {
			return err
		}
		for _, name := range existing {
			if _, ok := enrolled[name]; ok {
				continue
			}
			if err := writer.DeleteIdentity(ctx, name); err != nil {
				return fmt.Errorf("pruning %q: %w", name, err)
			}
			pruned++
		}
	}

	total, err := writer.CountSamples(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Imported %d identities (%d pruned); %d samples stored\n", len(names), pruned, total)
	return nil
}
