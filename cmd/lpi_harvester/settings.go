package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/jonathan/lpi-harvester/internal/config"
)

// Flag names shared by the commands that run harvests
const (
	flagAccounts       = "accounts"
	flagResults        = "results"
	flagDatabaseURL    = "db-url"
	flagConcurrency    = "concurrency"
	flagAccountTimeout = "account-timeout"
	flagBatchTimeout   = "batch-timeout"
	flagOverallTimeout = "overall-timeout"
	flagBatchPause     = "batch-pause"
	flagStartInterval  = "start-interval"
	flagShowBrowser    = "show-browser"
	flagChromePath     = "chrome-path"
	flagBaseURL        = "base-url"
	flagUserAgent      = "user-agent"
	flagPort           = "port"
	flagVerbose        = "verbose"
)

// addPathFlags registers the file location flags
func addPathFlags(fs *pflag.FlagSet) {
	fs.String(flagAccounts, "", "Path to the accounts JSON file (default accounts.json)")
	fs.String(flagResults, "", "Path to the results artifact (default results.json)")
}

// addHarvestFlags registers everything a harvest run can be tuned with
func addHarvestFlags(fs *pflag.FlagSet) {
	addPathFlags(fs)
	fs.String(flagDatabaseURL, "", "PostgreSQL connection URL for daily reports (optional, defaults to DATABASE_URL env var)")
	fs.Int(flagConcurrency, 0, "Browser sessions per batch")
	fs.Duration(flagAccountTimeout, 0, "Time allowed for one account")
	fs.Duration(flagBatchTimeout, 0, "Time allowed for one batch slot")
	fs.Duration(flagOverallTimeout, 0, "Time allowed for the whole run")
	fs.Duration(flagBatchPause, 0, "Pause between batches")
	fs.Duration(flagStartInterval, 0, "Minimum gap between session starts")
	fs.Bool(flagShowBrowser, false, "Run Chrome with a visible window")
	fs.String(flagChromePath, "", "Chrome/Chromium binary (defaults to CHROME_PATH or autodetect)")
	fs.String(flagBaseURL, "", "Site root to sign in to")
	fs.String(flagUserAgent, "", "Browser user agent override")
}

// loadSettings resolves the configuration for cmd: defaults, then the
// --config file, then the environment, then explicitly set flags.
func loadSettings(cmd *cobra.Command) (config.Config, error) {
	return resolveConfig(rootConfigPath, os.LookupEnv, cmd.Flags())
}

func resolveConfig(path string, lookup func(string) (string, bool), flags *pflag.FlagSet) (config.Config, error) {
	cfg := config.Default()
	if path != "" {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return config.Config{}, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded.MergeWithDefaults(cfg)
	}

	if err := cfg.ApplyEnv(lookup); err != nil {
		return config.Config{}, err
	}
	if err := applyFlags(&cfg, flags); err != nil {
		return config.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// applyFlags copies every flag the user explicitly set into cfg
func applyFlags(cfg *config.Config, flags *pflag.FlagSet) error {
	strs := map[string]*string{
		flagAccounts:    &cfg.AccountsFile,
		flagResults:     &cfg.ResultsFile,
		flagDatabaseURL: &cfg.DatabaseURL,
		flagChromePath:  &cfg.ExecPath,
		flagBaseURL:     &cfg.BaseURL,
		flagUserAgent:   &cfg.UserAgent,
	}
	for name, field := range strs {
		if !flags.Changed(name) {
			continue
		}
		v, err := flags.GetString(name)
		if err != nil {
			return err
		}
		*field = v
	}

	ints := map[string]*int{
		flagConcurrency: &cfg.Concurrency,
		flagPort:        &cfg.Port,
	}
	for name, field := range ints {
		if !flags.Changed(name) {
			continue
		}
		v, err := flags.GetInt(name)
		if err != nil {
			return err
		}
		*field = v
	}

	durations := map[string]*config.Duration{
		flagAccountTimeout: &cfg.AccountTimeout,
		flagBatchTimeout:   &cfg.BatchTimeout,
		flagOverallTimeout: &cfg.OverallTimeout,
		flagBatchPause:     &cfg.BatchPause,
		flagStartInterval:  &cfg.StartInterval,
	}
	for name, field := range durations {
		if !flags.Changed(name) {
			continue
		}
		v, err := flags.GetDuration(name)
		if err != nil {
			return err
		}
		*field = config.Duration(v)
	}

	bools := map[string]*bool{
		flagShowBrowser: &cfg.ShowBrowser,
		flagVerbose:     &cfg.Verbose,
	}
	for name, field := range bools {
		if !flags.Changed(name) {
			continue
		}
		v, err := flags.GetBool(name)
		if err != nil {
			return err
		}
		*field = v
	}
	return nil
}

// newLogger builds the process logger. text is colored for terminals, json is
// meant for log collectors.
func newLogger(w io.Writer, format string, verbose bool) (*slog.Logger, error) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	switch format {
	case "", "text":
		return slog.New(tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})), nil
	default:
		return nil, fmt.Errorf("unknown log format %q (want text or json)", format)
	}
}

// setup resolves the configuration and installs the logger for cmd
func setup(cmd *cobra.Command) (config.Config, *slog.Logger, error) {
	cfg, err := loadSettings(cmd)
	if err != nil {
		return config.Config{}, nil, err
	}
	logger, err := newLogger(os.Stderr, rootLogFormat, cfg.Verbose)
	if err != nil {
		return config.Config{}, nil, err
	}
	slog.SetDefault(logger)
	if rootConfigPath != "" {
		logger.Debug("loaded config", "path", rootConfigPath)
	}
	return cfg, logger, nil
}
