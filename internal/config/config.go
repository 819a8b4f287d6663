// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Duration is a time.Duration that reads and writes JSON strings such as "90s" or "2m"
type Duration time.Duration

// MarshalJSON writes the duration in time.Duration string form
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON accepts a duration string or a number of nanoseconds
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var n int64
		if nerr := json.Unmarshal(data, &n); nerr != nil {
			return fmt.Errorf("invalid duration %s", data)
		}
		*d = Duration(n)
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a time.Duration
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config represents the harvester configuration that can be loaded from a JSON file.
// All fields are optional; missing values use defaults or are provided via env or CLI flags.
type Config struct {
	// Paths
	AccountsFile string `json:"accounts_file,omitempty"` // Path to the accounts JSON file
	ResultsFile  string `json:"results_file,omitempty"`  // Path to the results artifact
	DatabaseURL  string `json:"database_url,omitempty"`  // PostgreSQL connection URL (optional)

	// Concurrency and timeouts
	Concurrency    int      `json:"concurrency,omitempty"`     // Sessions per batch
	AccountTimeout Duration `json:"account_timeout,omitempty"` // Budget for one account
	BatchTimeout   Duration `json:"batch_timeout,omitempty"`   // Budget for one batch slot
	OverallTimeout Duration `json:"overall_timeout,omitempty"` // Budget for the whole run
	BatchPause     Duration `json:"batch_pause,omitempty"`     // Pause between batches
	StartInterval  Duration `json:"start_interval,omitempty"`  // Minimum gap between session starts

	// Browser
	ShowBrowser bool   `json:"show_browser,omitempty"` // Run Chrome with a visible window
	ExecPath    string `json:"exec_path,omitempty"`    // Chrome/Chromium binary
	BaseURL     string `json:"base_url,omitempty"`     // Site root
	UserAgent   string `json:"user_agent,omitempty"`   // Overrides the browser user agent

	// Server
	Port int `json:"port,omitempty"`

	Verbose bool `json:"verbose,omitempty"` // Debug logging
}

// Default returns the configuration used when nothing else is specified
func Default() Config {
	return Config{
		AccountsFile:   "accounts.json",
		ResultsFile:    "results.json",
		Concurrency:    3,
		AccountTimeout: Duration(120 * time.Second),
		BatchTimeout:   Duration(180 * time.Second),
		OverallTimeout: Duration(12 * time.Minute),
		BatchPause:     Duration(2 * time.Second),
		StartInterval:  Duration(250 * time.Millisecond),
		BaseURL:        "https://app.lumosity.com",
		Port:           3000,
	}
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// Environment variables read by ApplyEnv
const (
	EnvAccountsFile   = "LPI_ACCOUNTS_FILE"
	EnvResultsFile    = "LPI_RESULTS_FILE"
	EnvDatabaseURL    = "DATABASE_URL"
	EnvConcurrency    = "LPI_CONCURRENCY"
	EnvAccountTimeout = "LPI_ACCOUNT_TIMEOUT"
	EnvBatchTimeout   = "LPI_BATCH_TIMEOUT"
	EnvOverallTimeout = "LPI_OVERALL_TIMEOUT"
	EnvBatchPause     = "LPI_BATCH_PAUSE"
	EnvStartInterval  = "LPI_START_INTERVAL"
	EnvShowBrowser    = "LPI_SHOW_BROWSER"
	EnvExecPath       = "CHROME_PATH"
	EnvBaseURL        = "LPI_BASE_URL"
	EnvUserAgent      = "LPI_USER_AGENT"
	EnvPort           = "PORT"
)

// ApplyEnv overrides fields from environment variables that are set and non-empty.
// lookup is usually os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		return v, ok && v != ""
	}

	strs := map[string]*string{
		EnvAccountsFile: &c.AccountsFile,
		EnvResultsFile:  &c.ResultsFile,
		EnvDatabaseURL:  &c.DatabaseURL,
		EnvExecPath:     &c.ExecPath,
		EnvBaseURL:      &c.BaseURL,
		EnvUserAgent:    &c.UserAgent,
	}
	for key, field := range strs {
		if v, ok := get(key); ok {
			*field = v
		}
	}

	ints := map[string]*int{
		EnvConcurrency: &c.Concurrency,
		EnvPort:        &c.Port,
	}
	for key, field := range ints {
		if v, ok := get(key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", key, err)
			}
			*field = n
		}
	}

	durations := map[string]*Duration{
		EnvAccountTimeout: &c.AccountTimeout,
		EnvBatchTimeout:   &c.BatchTimeout,
		EnvOverallTimeout: &c.OverallTimeout,
		EnvBatchPause:     &c.BatchPause,
		EnvStartInterval:  &c.StartInterval,
	}
	for key, field := range durations {
		if v, ok := get(key); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", key, err)
			}
			*field = Duration(d)
		}
	}

	if v, ok := get(EnvShowBrowser); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvShowBrowser, err)
		}
		c.ShowBrowser = b
	}
	return nil
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	if c.Concurrency < 1 {
		return fmt.Errorf("config error: 'concurrency' must be at least 1")
	}
	if c.AccountTimeout <= 0 {
		return fmt.Errorf("config error: 'account_timeout' must be positive")
	}
	if c.BatchTimeout <= 0 {
		return fmt.Errorf("config error: 'batch_timeout' must be positive")
	}
	if c.OverallTimeout <= 0 {
		return fmt.Errorf("config error: 'overall_timeout' must be positive")
	}
	if c.AccountTimeout > c.OverallTimeout {
		return fmt.Errorf("config error: 'account_timeout' (%s) exceeds 'overall_timeout' (%s)",
			c.AccountTimeout.Std(), c.OverallTimeout.Std())
	}
	if c.BatchPause < 0 {
		return fmt.Errorf("config error: 'batch_pause' must be non-negative")
	}
	if c.StartInterval < 0 {
		return fmt.Errorf("config error: 'start_interval' must be non-negative")
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("config error: 'port' out of range: %d", c.Port)
	}

	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("config error: 'base_url' must be an absolute http(s) URL: %q", c.BaseURL)
	}

	if c.ExecPath != "" {
		if _, err := os.Stat(c.ExecPath); os.IsNotExist(err) {
			return fmt.Errorf("config error: chrome binary not found: %s", c.ExecPath)
		}
	}

	return nil
}

// MergeWithDefaults returns a new Config with zero-valued fields filled from defaults.
// This is used to apply config file values as defaults for CLI flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.AccountsFile == "" {
		result.AccountsFile = defaults.AccountsFile
	}
	if result.ResultsFile == "" {
		result.ResultsFile = defaults.ResultsFile
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.ExecPath == "" {
		result.ExecPath = defaults.ExecPath
	}
	if result.BaseURL == "" {
		result.BaseURL = defaults.BaseURL
	}
	if result.UserAgent == "" {
		result.UserAgent = defaults.UserAgent
	}

	// Numeric fields: use default if zero
	if result.Concurrency == 0 {
		result.Concurrency = defaults.Concurrency
	}
	if result.Port == 0 {
		result.Port = defaults.Port
	}
	if result.AccountTimeout == 0 {
		result.AccountTimeout = defaults.AccountTimeout
	}
	if result.BatchTimeout == 0 {
		result.BatchTimeout = defaults.BatchTimeout
	}
	if result.OverallTimeout == 0 {
		result.OverallTimeout = defaults.OverallTimeout
	}
	if result.BatchPause == 0 {
		result.BatchPause = defaults.BatchPause
	}
	if result.StartInterval == 0 {
		result.StartInterval = defaults.StartInterval
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags and env should always win for bools)

	return result
}
