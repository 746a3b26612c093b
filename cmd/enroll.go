package cmd

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/door-sentry/internal/gallery"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll",
	Short: "Enrollment data tools",
	Long:  `Validate, extend and import the gallery of enrolled identities.`,
}

var enrollValidateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Validate an enrollment file",
	Long: `Load an enrollment file with the configured dimension, threshold and
index settings and report what would be served.

Examples:
  door-sentry enroll validate embeddings.json
  EMBEDDING_DIM=512 door-sentry enroll validate embeddings.json`,
	Args: cobra.ExactArgs(1),
	RunE: runEnrollValidate,
}

var enrollDecoysCmd = &cobra.Command{
	Use:   "decoys <file>",
	Short: "Add or replace the Unknown decoy set",
	Long: `Generate deterministic decoy embeddings and store them under the
reserved "Unknown" identity. A stranger whose closest reference is a decoy is
rejected even when the distance is under the threshold.

Examples:
  door-sentry enroll decoys embeddings.json
  door-sentry enroll decoys --count 20 --seed 7 --out with-decoys.json embeddings.json`,
	Args: cobra.ExactArgs(1),
	RunE: runEnrollDecoys,
}

func init() {
	rootCmd.AddCommand(enrollCmd)
	enrollCmd.AddCommand(enrollValidateCmd)
	enrollCmd.AddCommand(enrollDecoysCmd)

	enrollDecoysCmd.Flags().Int("count", gallery.DefaultDecoyCount, "Number of decoy embeddings")
	enrollDecoysCmd.Flags().Int64("seed", gallery.DefaultDecoySeed, "Random seed")
	enrollDecoysCmd.Flags().String("out", "", "Output file (default: overwrite the input)")
}

func runEnrollValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	enrolled, err := gallery.LoadFile(args[0])
	if err != nil {
		return err
	}
	store, err := gallery.New(enrolled, galleryOptions(cfg))
	if err != nil {
		return err
	}

	names := make([]string, 0, len(enrolled))
	for name := range enrolled {
		names = append(names, name)
	}
	sort.Strings(names)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "IDENTITY\tSAMPLES")
	for _, name := range names {
		label := name
		if name == gallery.UnknownIdentity {
			label = name + " (decoys)"
		}
		fmt.Fprintf(w, "%s\t%d\n", label, len(enrolled[name]))
	}
	w.Flush()

	fmt.Printf("\n%d identities, %d reference vectors, dimension %d, threshold %.3f\n",
		len(names), store.SampleCount(), store.Dimension(), store.Threshold())
	if _, ok := enrolled[gallery.UnknownIdentity]; !ok {
		fmt.Println("No decoys enrolled; consider `door-sentry enroll decoys`.")
	}
	return nil
}

func runEnrollDecoys(cmd *cobra.Command, args []string) error {
	count := mustGetInt(cmd, "count")
	seed := mustGetInt64(cmd, "seed")
	out := mustGetString(cmd, "out")
	if out == "" {
		out = args[0]
	}
	if count < 1 {
		return fmt.Errorf("--count must be at least 1, got %d", count)
	}

	enrolled, err := gallery.LoadFile(args[0])
	if err != nil {
		return err
	}

	dim := 0
	for name, samples := range enrolled {
		if name != gallery.UnknownIdentity && len(samples) > 0 {
			dim = len(samples[0])
			break
		}
	}
	if dim == 0 {
		return fmt.Errorf("%s has no enrolled identities to size decoys from", args[0])
	}

	updated := gallery.WithDecoys(enrolled, gallery.GenerateDecoys(dim, count, seed))

	f, err := os.Create(out) //nolint:gosec // path from CLI args
	if err != nil {
		return fmt.Errorf("creating %s: %w", out, err)
	}
	if err := gallery.WriteJSON(f, updated); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", out, err)
	}

	fmt.Printf("Wrote %d decoys (dimension %d, seed %d) to %s\n", count, dim, seed, out)
	return nil
}
