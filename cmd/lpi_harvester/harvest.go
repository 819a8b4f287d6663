package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jonathan/lpi-harvester/internal/batch"
	"github.com/jonathan/lpi-harvester/internal/observability"
)

var harvestDetails bool

var harvestCmd = &cobra.Command{
	Use:   "harvest",
	Short: "Harvest stats for every account once",
	Long: `Loads the accounts file, harvests every account in sequential batches of concurrent
browser sessions and replaces the results artifact. When a database is configured the
run is also stored as today's daily report.

Individual account failures are recorded in the results and do not fail the command.`,
	RunE: runHarvest,
}

func init() {
	addHarvestFlags(harvestCmd.Flags())
	harvestCmd.Flags().BoolVar(&harvestDetails, "details", false, "Print a report card for every successful account")
	rootCmd.AddCommand(harvestCmd)
}

func runHarvest(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := newRuntime(ctx, cfg, logger, logProgress(logger))
	if err != nil {
		return err
	}
	defer rt.Close()

	result, err := rt.orchestrator.Run(ctx, rt.source)
	if err != nil {
		return err
	}

	printResult(cmd.OutOrStdout(), result, harvestDetails)
	return nil
}

// printResult prints the run summary and, with details, every account report
func printResult(w io.Writer, result *batch.Result, details bool) {
	p := observability.NewPrinter(w)
	if details {
		for _, r := range result.Reports {
			p.PrintAccountReport(r)
		}
	}
	p.PrintRunSummary(observability.Summarize(result.Reports, result.Elapsed))
}
