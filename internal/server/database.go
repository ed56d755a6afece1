package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/contract-extractor/internal/common"
	repo "github.com/joseph-ayodele/contract-extractor/internal/repository"
)

// ConnectLedger opens the ledger database, applies pending migrations and returns
// the ledger repository on top of it.
func ConnectLedger(ctx context.Context, cfg common.LedgerConfig, logger *slog.Logger) (*repo.DB, repo.Ledger, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := repo.Open(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open ledger", "driver", cfg.Driver, "error", err)
		if common.HasCode(err, common.CodeConfig) {
			return nil, nil, err
		}
		return nil, nil, common.NewAppError(common.CodeLedger, "open ledger", err)
	}
	if err := repo.Migrate(ctx, db); err != nil {
		_ = db.Close()
		logger.Error("ledger migration failed", "error", err)
		return nil, nil, common.NewAppError(common.CodeLedger, "migrate ledger", err)
	}

	logger.Info("ledger ready", "driver", db.Dialect)
	return db, repo.NewLedger(db, logger), nil
}

// PingLedger pings the ledger database to ensure it's responsive
func PingLedger(ctx context.Context, db *repo.DB, logger *slog.Logger, timeout time.Duration) error {
	return repo.HealthCheck(ctx, db, timeout, logger)
}

// CloseLedger closes the database connections gracefully
func CloseLedger(db *repo.DB, logger *slog.Logger) {
	if db == nil {
		return
	}
	logger.Info("closing ledger connections")
	if err := db.Close(); err != nil {
		logger.Error("failed to close ledger", "error", err)
	}
}
