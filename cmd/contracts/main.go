// Command contracts extracts structured fields from parsed contract documents.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/contract-extractor/internal/common"
	"github.com/joseph-ayodele/contract-extractor/internal/llm"
	repo "github.com/joseph-ayodele/contract-extractor/internal/repository"
	"github.com/joseph-ayodele/contract-extractor/internal/server"
)

var (
	configPath string
	logLevel   string

	// textService replaces the configured provider when set.
	textService llm.TextService
)

var rootCmd = &cobra.Command{
	Use:           "contracts",
	Short:         "Extract contract fields into an append-only TSV store",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (default $CONTRACTS_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log.level")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	var svcErr *llm.ServiceError
	switch {
	case common.HasCode(err, common.CodeConfig):
		return 2
	case errors.As(err, &svcErr):
		return 3
	case common.HasCode(err, common.CodeLedger), common.HasCode(err, common.CodeStore):
		return 4
	}
	return 1
}

// app holds what a command opened; Close releases all of it.
type app struct {
	cfg    *common.Config
	logger *slog.Logger
	db     *repo.DB
	ledger repo.Ledger
	store  *repo.RecordStore
}

func newApp(cmd *cobra.Command, requireLLM bool) (*app, error) {
	cfg, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if textService != nil && cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = "injected"
	}
	if err := cfg.Validate(requireLLM); err != nil {
		return nil, err
	}
	return &app{cfg: cfg, logger: common.NewLogger(cfg.Log, cmd.ErrOrStderr())}, nil
}

func (a *app) openLedger(ctx context.Context) error {
	db, ledger, err := server.ConnectLedger(ctx, a.cfg.Ledger, a.logger)
	if err != nil {
		return err
	}
	a.db, a.ledger = db, ledger
	return nil
}

func (a *app) openStore() error {
	s, err := repo.OpenRecordStore(a.cfg.Store.Path, a.logger)
	if err != nil {
		return common.NewAppError(common.CodeStore, "open record store "+a.cfg.Store.Path, err)
	}
	a.store = s
	return nil
}

func (a *app) Close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Error("failed to close record store", "error", err)
		}
	}
	server.CloseLedger(a.db, a.logger)
}
