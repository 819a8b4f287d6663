package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jonathan/lpi-harvester/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Start an HTTP server that runs a harvest on GET /api/stats and serves the stored
results, per-user streaks and, with a database, the daily reports.`,
	RunE: runServe,
}

func init() {
	addHarvestFlags(serveCmd.Flags())
	serveCmd.Flags().Int(flagPort, 0, "Port to listen on (default 3000, or PORT env var)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
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

	srvCfg := server.Config{
		Port:    cfg.Port,
		Runner:  rt.orchestrator,
		Source:  rt.source,
		Results: rt.results,
		Logger:  logger,
	}
	// A nil *db.DB must not end up inside the interface
	if rt.database != nil {
		srvCfg.Reports = rt.database
	}

	return server.New(srvCfg).Start(ctx)
}
