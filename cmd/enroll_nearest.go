package cmd

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/door-sentry/internal/database/postgres"
	"github.com/kozaktomas/door-sentry/internal/gallery"
)

var enrollNearestCmd = &cobra.Command{
	Use:   "nearest <file>",
	Short: "Report the closest other identity for each enrolled person",
	Long: `Build an HNSW index over the enrollment file and report, for every
identity, the closest other identity. Pairs closer than the match threshold
can be confused at the door.

With --db the first sample of every identity is also searched in PostgreSQL
(pgvector) to cross-check the stored gallery.

Examples:
  door-sentry enroll nearest embeddings.json
  door-sentry enroll nearest --db --k 5 embeddings.json`,
	Args: cobra.ExactArgs(1),
	RunE: runEnrollNearest,
}

func init() {
	enrollCmd.AddCommand(enrollNearestCmd)

	enrollNearestCmd.Flags().Bool("db", false, "Also query PostgreSQL for the nearest stored samples")
	enrollNearestCmd.Flags().Int("k", 3, "Number of stored samples to return per identity with --db")
}

func runEnrollNearest(cmd *cobra.Command, args []string) error {
	useDB := mustGetBool(cmd, "db")
	k := mustGetInt(cmd, "k")
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	enrolled, err := gallery.LoadFile(args[0])
	if err != nil {
		return err
	}
	opts := galleryOptions(cfg)
	opts.Index = gallery.IndexHNSW
	store, err := gallery.New(enrolled, opts)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "IDENTITY\tNEAREST\tDISTANCE\t")
	collisions := 0
	for _, name := range store.Identities() {
		if name == gallery.UnknownIdentity {
			continue
		}
		res, ok := store.Neighbor(name)
		if !ok {
			fmt.Fprintf(w, "%s\t-\t-\t\n", name)
			continue
		}
		flag := ""
		if res.Distance <= store.Threshold() {
			flag = "within threshold"
			collisions++
		}
		fmt.Fprintf(w, "%s\t%s\t%.4f\t%s\n", name, res.Identity, res.Distance, flag)
	}
	w.Flush()

	if collisions > 0 {
		fmt.Printf("\n%d identities have a neighbour within the match threshold (%.3f)\n", collisions, store.Threshold())
	}

	if !useDB {
		return nil
	}
	if cfg.Database.URL == "" {
		return errors.New("--db requires DATABASE_URL")
	}

	pool, err := postgres.Initialize(ctx, &cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	defer pool.Close()
	repo := postgres.NewEnrollmentRepository(pool)

	fmt.Printf("\nNearest stored samples (PostgreSQL):\n")
	w = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "IDENTITY\tSTORED\tDISTANCE")
	for _, name := range store.Identities() {
		if name == gallery.UnknownIdentity {
			continue
		}
		names, distances, err := repo.NearestSamples(ctx, enrolled[name][0], k)
		if err != nil {
			return err
		}
		for i := range names {
			fmt.Fprintf(w, "%s\t%s\t%.4f\n", name, names[i], distances[i])
		}
	}
	return w.Flush()
}
