package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"inatscraper/pkg/ledger"
	"inatscraper/pkg/report"
	"inatscraper/pkg/ui"
)

var (
	reportRunID    string
	reportMarkdown bool
	reportList     bool
	reportLimit    int
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Summarize a recorded run",
	Long: `Summarize a run recorded in the ledger: per species downloads, failures
grouped by kind and bytes written. Without --run the latest run is shown.`,
	Example: `  # Summary of the latest run
  inatscraper report

  # Markdown summary of a specific run
  inatscraper report --run 0190c0de-... --markdown > report.md

  # The ten most recent runs
  inatscraper report --list --limit 10`,
	Args: cobra.NoArgs,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringVar(&reportRunID, "run", "", "run ID to summarize (default: latest)")
	reportCmd.Flags().BoolVar(&reportMarkdown, "markdown", false, "render the summary as Markdown")
	reportCmd.Flags().BoolVar(&reportList, "list", false, "list recent runs instead")
	reportCmd.Flags().IntVar(&reportLimit, "limit", 20, "number of runs listed by --list")
	reportCmd.Flags().StringVar(&ledgerPath, "ledger", "", "ledger database path")
}

func runReport(cmd *cobra.Command, args []string) error {
	extra := map[string]interface{}{}
	if ledgerPath != "" {
		extra["ledger"] = ledgerPath
	}
	cfg, err := setup(extra)
	if err != nil {
		return err
	}

	if _, err := os.Stat(cfg.Ledger.Path); err != nil {
		return fmt.Errorf("no ledger at %s: %w", cfg.Ledger.Path, err)
	}
	led, err := ledger.Open(cfg.Ledger.Path)
	if err != nil {
		return err
	}
	defer led.Close()

	ctx := context.Background()
	if reportList {
		return listRuns(ctx, led)
	}

	runID := reportRunID
	if runID == "" {
		latest, err := led.LatestRun(ctx)
		if errors.Is(err, ledger.ErrRunNotFound) {
			ui.PrintWarning("No runs recorded yet")
			return nil
		}
		if err != nil {
			return err
		}
		runID = latest.ID
	}

	summary, err := led.Summary(ctx, runID)
	if err != nil {
		return err
	}
	return report.New(ui.Output(), reportMarkdown).Write(summary)
}

func listRuns(ctx context.Context, led *ledger.Ledger) error {
	runs, err := led.ListRuns(ctx, reportLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		ui.PrintWarning("No runs recorded yet")
		return nil
	}

	w := tabwriter.NewWriter(ui.Output(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tSTARTED\tSTATUS\tPLACE\tTAXON\tQUOTA")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\n",
			r.ID, r.StartedAt.Local().Format("2006-01-02 15:04"), r.Status, r.PlaceID, r.TaxonID, r.Quota)
	}
	return w.Flush()
}
