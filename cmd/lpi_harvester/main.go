// Package main provides the entry point for the LPI stats harvester.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	rootConfigPath string
	rootVerbose    bool
	rootLogFormat  string
)

var rootCmd = &cobra.Command{
	Use:   "lpi_harvester",
	Short: "Lumosity LPI stats harvester",
	Long: `Signs in to a list of Lumosity accounts with headless browser sessions, captures the
app's own API responses and turns them into one normalized report per account.

Configuration is read from defaults, then an optional JSON file (--config), then
environment variables, then command-line flags.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootConfigPath, "config", "", "Path to config.json file (values can be overridden by env and flags)")
	rootCmd.PersistentFlags().BoolVarP(&rootVerbose, "verbose", "v", false, "Print debug logs")
	rootCmd.PersistentFlags().StringVar(&rootLogFormat, "log-format", "text", "Log format: text or json")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
