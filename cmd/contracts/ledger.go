package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/contract-extractor/constants"
	"github.com/joseph-ayodele/contract-extractor/internal/entity"
)

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Inspect and repair the processing ledger",
}

var ledgerShowCmd = &cobra.Command{
	Use:   "show <url>",
	Short: "Show the ledger entry for a URL",
	Args:  cobra.ExactArgs(1),
	RunE:  runLedgerShow,
}

var ledgerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List ledger entries",
	Args:  cobra.NoArgs,
	RunE:  runLedgerList,
}

var ledgerFailuresCmd = &cobra.Command{
	Use:   "failures",
	Short: "List failed URLs with their reasons",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ledgerStatus = string(constants.LedgerStatusFailed)
		return runLedgerList(cmd, nil)
	},
}

var ledgerResetCmd = &cobra.Command{
	Use:   "reset <url>",
	Short: "Forget a URL so the next batch processes it again",
	Long: `Removes the ledger entry. A URL whose record is already in the store is marked
succeeded again by the next run, so this only re-enables failed URLs.`,
	Args: cobra.ExactArgs(1),
	RunE: runLedgerReset,
}

var ledgerStatus string

func init() {
	ledgerListCmd.Flags().StringVar(&ledgerStatus, "status", "", "filter by status (pending, in_progress, succeeded, failed)")

	ledgerCmd.AddCommand(ledgerShowCmd)
	ledgerCmd.AddCommand(ledgerListCmd)
	ledgerCmd.AddCommand(ledgerFailuresCmd)
	ledgerCmd.AddCommand(ledgerResetCmd)
	rootCmd.AddCommand(ledgerCmd)
}

func runLedgerShow(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, false)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.openLedger(cmd.Context()); err != nil {
		return err
	}

	e, err := a.ledger.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(e)
}

func runLedgerList(cmd *cobra.Command, _ []string) error {
	status := constants.LedgerStatus(ledgerStatus)
	if status != "" && !status.Valid() {
		return fmt.Errorf("unknown status %q", ledgerStatus)
	}

	a, err := newApp(cmd, false)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.openLedger(cmd.Context()); err != nil {
		return err
	}

	entries, err := a.ledger.List(cmd.Context(), status)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No entries.")
		return nil
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "URL\tSTATUS\tIDX\tATTEMPTS\tCLASS\tNEXT\tREASON")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
			e.URL, e.Status, idxString(e), e.Attempts, e.ErrorClass, nextString(e), e.Reason)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Total: %d\n", len(entries))
	return nil
}

func runLedgerReset(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, false)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.openLedger(cmd.Context()); err != nil {
		return err
	}

	if err := a.ledger.Reset(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "reset %s\n", args[0])
	return nil
}

func idxString(e entity.LedgerEntry) string {
	if e.Idx == nil {
		return "-"
	}
	return fmt.Sprint(*e.Idx)
}

func nextString(e entity.LedgerEntry) string {
	if e.NextAttemptAt.IsZero() || e.Status != constants.LedgerStatusFailed || !e.Retryable {
		return "-"
	}
	return e.NextAttemptAt.Format(time.RFC3339)
}
