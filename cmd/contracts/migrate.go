package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	repo "github.com/joseph-ayodele/contract-extractor/internal/repository"
	"github.com/joseph-ayodele/contract-extractor/internal/server"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply ledger migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd, false)
		if err != nil {
			return err
		}
		defer a.Close()
		// openLedger migrates
		if err := a.openLedger(cmd.Context()); err != nil {
			return err
		}
		v, err := repo.MigrationVersion(cmd.Context(), a.db)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "ledger schema at version %d (%s)\n", v, a.db.Dialect)
		return nil
	},
}

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check that the ledger database is reachable",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd, false)
		if err != nil {
			return err
		}
		defer a.Close()
		db, err := repo.Open(cmd.Context(), a.cfg.Ledger, a.logger)
		if err != nil {
			return err
		}
		a.db = db
		if err := server.PingLedger(cmd.Context(), db, a.logger, 2*time.Second); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "ledger: OK")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(pingCmd)
}
