package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jonathan/lpi-harvester/internal/accounts"
	"github.com/jonathan/lpi-harvester/internal/batch"
	"github.com/jonathan/lpi-harvester/internal/config"
	"github.com/jonathan/lpi-harvester/internal/db"
	"github.com/jonathan/lpi-harvester/internal/harvest"
	"github.com/jonathan/lpi-harvester/internal/storage"
)

// harvestOptions maps the configuration onto the browser engine
func harvestOptions(cfg config.Config, logger *slog.Logger) harvest.Options {
	opts := harvest.DefaultOptions()
	opts.BaseURL = cfg.BaseURL
	opts.Pages = harvest.DefaultPages(cfg.BaseURL)
	opts.Headless = !cfg.ShowBrowser
	opts.ExecPath = cfg.ExecPath
	opts.UserAgent = cfg.UserAgent
	opts.Logger = logger
	return opts
}

// batchOptions maps the configuration onto the orchestrator
func batchOptions(cfg config.Config, writers []batch.ResultsWriter, logger *slog.Logger) batch.Options {
	return batch.Options{
		Concurrency:    cfg.Concurrency,
		AccountTimeout: cfg.AccountTimeout.Std(),
		BatchTimeout:   cfg.BatchTimeout.Std(),
		OverallTimeout: cfg.OverallTimeout.Std(),
		BatchPause:     cfg.BatchPause.Std(),
		StartInterval:  cfg.StartInterval.Std(),
		Writers:        writers,
		Logger:         logger,
	}
}

// runtime holds everything a harvest run needs, built from one configuration
type runtime struct {
	orchestrator *batch.Orchestrator
	source       accounts.FileSource
	results      *storage.FileStore
	// database is nil when no DATABASE_URL is configured
	database *db.DB

	engine *harvest.Engine
	log    *slog.Logger
}

// newRuntime launches the browser and, when configured, connects to the
// database. Close releases both.
func newRuntime(ctx context.Context, cfg config.Config, logger *slog.Logger, onProgress batch.ProgressCallback) (*runtime, error) {
	rt := &runtime{
		source:  accounts.FileSource{Path: cfg.AccountsFile},
		results: storage.NewFileStore(cfg.ResultsFile),
		log:     logger,
	}
	writers := []batch.ResultsWriter{rt.results}

	if cfg.DatabaseURL != "" {
		database, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := database.Migrate(ctx); err != nil {
			database.Close()
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		rt.database = database
		writers = append(writers, db.NewReportWriter(database, logger))
		logger.Info("daily reports enabled")
	}

	hopts := harvestOptions(cfg, logger)
	engine, err := harvest.NewEngine(ctx, hopts)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.engine = engine

	opts := batchOptions(cfg, writers, logger)
	opts.OnProgress = onProgress
	rt.orchestrator = batch.New(harvest.New(engine, hopts), opts)
	return rt, nil
}

// Close shuts the browser down and closes the database pool
func (rt *runtime) Close() {
	if rt.engine != nil {
		if err := rt.engine.Close(); err != nil {
			rt.log.Debug("browser shutdown", "err", err)
		}
	}
	if rt.database != nil {
		rt.database.Close()
	}
}

// logProgress logs each finished account
func logProgress(logger *slog.Logger) batch.ProgressCallback {
	return func(ev batch.ProgressEvent) {
		if ev.Report.OK() {
			logger.Info("account harvested", "account", ev.Report.AccountInfo.Identity, "batch", ev.Batch, "of", ev.Batches)
			return
		}
		logger.Warn("account failed", "account", ev.Report.AccountInfo.Identity, "batch", ev.Batch, "of", ev.Batches, "err", ev.Report.Error)
	}
}
