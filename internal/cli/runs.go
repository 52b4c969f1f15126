package cli

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"

	sqliteadapter "github.com/ericfisherdev/pyautofix/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/pyautofix/internal/domain/model"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List the most recent processed events",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if runsLimit <= 0 {
			return fmt.Errorf("--limit must be positive, got %d", runsLimit)
		}
		cfg, err := configFor(cmd.Context())
		if err != nil {
			return err
		}

		db, err := sqliteadapter.NewDB(cmd.Context(), cfg.DBPath)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()
		if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
			return err
		}

		records, err := sqliteadapter.NewUsageRepo(db).ListRecent(cmd.Context(), runsLimit)
		if err != nil {
			return err
		}
		return writeRunsTable(cmd.OutOrStdout(), records)
	},
}

func init() {
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 20, "number of records to show")
}

func writeRunsTable(w io.Writer, records []model.UsageRecord) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "No runs recorded yet.")
		return err
	}

	table := tablewriter.NewWriter(w)
	table.Header([]string{"Recorded", "Pull request", "Head", "Action", "Plan", "Outcome", "Fixes", "Duration"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignLeft
	})

	var data [][]string
	for _, r := range records {
		fixes := "-"
		switch {
		case r.AppliedFixes && r.UnsafeFixes:
			fixes = "applied (unsafe)"
		case r.AppliedFixes:
			fixes = "applied"
		}
		data = append(data, []string{
			r.RecordedAt.UTC().Format(time.DateTime),
			r.Repo + "#" + strconv.Itoa(r.PullNumber),
			shortSHA(r.HeadSHA),
			r.Action,
			string(r.Plan),
			string(r.Outcome),
			fixes,
			r.Duration.Round(time.Millisecond).String(),
		})
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

func shortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}
