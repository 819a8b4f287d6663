package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jonathan/lpi-harvester/internal/accounts"
)

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "Inspect the accounts file",
}

var accountsValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the accounts file without signing in",
	Long:  `Parses and validates the accounts file and lists each account's identity and cohort. Secrets are never printed.`,
	RunE:  runAccountsValidate,
}

func init() {
	addPathFlags(accountsValidateCmd.Flags())
	accountsCmd.AddCommand(accountsValidateCmd)
	rootCmd.AddCommand(accountsCmd)
}

func runAccountsValidate(cmd *cobra.Command, _ []string) error {
	cfg, _, err := setup(cmd)
	if err != nil {
		return err
	}
	return validateAccounts(cmd.OutOrStdout(), cfg.AccountsFile)
}

func validateAccounts(w io.Writer, path string) error {
	list, err := accounts.Load(path)
	if err != nil {
		return err
	}
	for i, acc := range list {
		fmt.Fprintf(w, "%3d  %-40s %s\n", i+1, acc.Identity, acc.CohortLabel)
	}
	fmt.Fprintf(w, "%s: %d accounts OK\n", path, len(list))
	return nil
}
