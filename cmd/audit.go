package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/door-sentry/internal/database"
	"github.com/kozaktomas/door-sentry/internal/database/postgres"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect the lock/unlock audit log",
}

var auditListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent confirmed transitions",
	Long: `List the newest confirmed lock and unlock transitions from the first
configured audit store (SQLite, then PostgreSQL, then MariaDB).

Examples:
  door-sentry audit list
  door-sentry audit list --limit 200 --json`,
	RunE: runAuditList,
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditListCmd)

	auditListCmd.Flags().Int("limit", database.DefaultAuditLimit, "Maximum number of records")
	auditListCmd.Flags().Bool("json", false, "Output as JSON")
}

func runAuditList(cmd *cobra.Command, args []string) error {
	limit := mustGetInt(cmd, "limit")
	jsonOutput := mustGetBool(cmd, "json")
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if cfg.Database.URL != "" {
		pool, err := postgres.Initialize(ctx, &cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to initialize PostgreSQL: %w", err)
		}
		defer pool.Close()
	}

	stack, err := openAuditStack(ctx, cfg)
	if err != nil {
		return err
	}
	defer stack.Close()
	if stack.reader == nil {
		return errors.New("no audit store configured")
	}

	records, err := stack.reader.ListTransitions(ctx, limit)
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}

	if len(records) == 0 {
		fmt.Println("No transitions recorded")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tCOMMAND\tIDENTITY\tFROM\tTO\tERROR")
	for _, rec := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			rec.Timestamp.Local().Format(time.DateTime), rec.Command, rec.Identity,
			rec.PreviousState, rec.NewState, rec.Error)
	}
	return w.Flush()
}
