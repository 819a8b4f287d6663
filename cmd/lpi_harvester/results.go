package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jonathan/lpi-harvester/internal/observability"
	"github.com/jonathan/lpi-harvester/internal/storage"
)

var (
	resultsDetails bool
	resultsEmail   string
)

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "Inspect the latest results artifact",
}

var resultsSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Summarize the latest run",
	RunE:  runResultsSummary,
}

var resultsStreaksCmd = &cobra.Command{
	Use:   "streaks",
	Short: "Print one account's streaks as JSON",
	RunE:  runResultsStreaks,
}

func init() {
	addPathFlags(resultsSummaryCmd.Flags())
	resultsSummaryCmd.Flags().BoolVar(&resultsDetails, "details", false, "Print a report card for every successful account")

	addPathFlags(resultsStreaksCmd.Flags())
	resultsStreaksCmd.Flags().StringVar(&resultsEmail, "email", "", "Account identity to look up")
	_ = resultsStreaksCmd.MarkFlagRequired("email")

	resultsCmd.AddCommand(resultsSummaryCmd, resultsStreaksCmd)
	rootCmd.AddCommand(resultsCmd)
}

func runResultsSummary(cmd *cobra.Command, _ []string) error {
	cfg, _, err := setup(cmd)
	if err != nil {
		return err
	}
	return summarizeResults(cmd.OutOrStdout(), storage.NewFileStore(cfg.ResultsFile), resultsDetails)
}

func summarizeResults(w io.Writer, store *storage.FileStore, details bool) error {
	reports, err := store.ReadResults()
	if err != nil {
		if errors.Is(err, storage.ErrNoResults) {
			return fmt.Errorf("%w: run `lpi_harvester harvest` first", err)
		}
		return err
	}

	p := observability.NewPrinter(w)
	if details {
		for _, r := range reports {
			p.PrintAccountReport(r)
		}
	}
	// Elapsed time is not part of the artifact
	p.PrintRunSummary(observability.Summarize(reports, 0))
	return nil
}

func runResultsStreaks(cmd *cobra.Command, _ []string) error {
	cfg, _, err := setup(cmd)
	if err != nil {
		return err
	}
	return printStreaks(cmd.OutOrStdout(), storage.NewFileStore(cfg.ResultsFile), resultsEmail)
}

func printStreaks(w io.Writer, store *storage.FileStore, identity string) error {
	info, streaks, err := store.FindStreaks(identity)
	if err != nil {
		return err
	}
	out := struct {
		Email       string `json:"email"`
		CohortLabel string `json:"cohortLabel,omitempty"`
		Streaks     any    `json:"streaks"`
	}{Email: info.Identity, CohortLabel: info.CohortLabel, Streaks: streaks}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
