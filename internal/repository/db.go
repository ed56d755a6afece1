package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/joseph-ayodele/contract-extractor/internal/common"
)

const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"
)

// DB is the ledger database handle together with its SQL dialect.
type DB struct {
	*sql.DB
	Dialect string
	pool    *pgxpool.Pool
}

// Open connects to the ledger database. SQLite is opened in WAL mode with a single
// connection so every write is serialised; Postgres goes through a pgx pool wrapped as *sql.DB.
func Open(ctx context.Context, cfg common.LedgerConfig, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.Driver {
	case DialectSQLite, "":
		return openSQLite(ctx, cfg, logger)
	case DialectPostgres:
		return openPostgres(ctx, cfg, logger)
	}
	return nil, common.NewAppError(common.CodeConfig, fmt.Sprintf("unsupported ledger driver %q", cfg.Driver), common.ErrInvalidInput)
}

func openSQLite(ctx context.Context, cfg common.LedgerConfig, logger *slog.Logger) (*DB, error) {
	logger.Info("connecting to ledger", "driver", DialectSQLite, "path", cfg.DSN)
	sep := "?"
	if strings.Contains(cfg.DSN, "?") {
		sep = "&"
	}
	db, err := sql.Open("sqlite", cfg.DSN+sep+"_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite ledger: %w", err)
	}
	db.SetMaxOpenConns(1)

	out := &DB{DB: db, Dialect: DialectSQLite}
	if err := HealthCheck(ctx, out, cfg.DialTimeout, logger); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite ledger: %w", err)
	}
	return out, nil
}

func openPostgres(ctx context.Context, cfg common.LedgerConfig, logger *slog.Logger) (*DB, error) {
	logger.Info("connecting to ledger", "driver", DialectPostgres)
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		logger.Error("failed to parse ledger dsn", "error", err)
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pc.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	pc.ConnConfig.RuntimeParams["application_name"] = "contract-extractor"
	if cfg.StatementTimeout > 0 {
		pc.ConnConfig.RuntimeParams["statement_timeout"] = fmt.Sprint(cfg.StatementTimeout.Milliseconds())
	}

	dialCtx := ctx
	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	pool, err := pgxpool.NewWithConfig(dialCtx, pc)
	if err != nil {
		logger.Error("failed to connect to ledger", "error", err)
		return nil, fmt.Errorf("connect postgres ledger: %w", err)
	}
	if err := pool.Ping(dialCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres ledger: %w", err)
	}

	logger.Info("successfully connected to ledger")
	return &DB{DB: stdlib.OpenDBFromPool(pool), Dialect: DialectPostgres, pool: pool}, nil
}

// Close closes the database connections gracefully
func (d *DB) Close() error {
	err := d.DB.Close()
	if d.pool != nil {
		d.pool.Close()
	}
	return err
}

// HealthCheck pings the ledger database.
func HealthCheck(ctx context.Context, db *DB, timeout time.Duration, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := db.PingContext(ctx); err != nil {
		logger.Warn("ledger ping failed", "dialect", db.Dialect, "error", err)
		return err
	}
	logger.Debug("ledger ping successful", "dialect", db.Dialect)
	return nil
}

// rebind rewrites ? placeholders as $n for postgres.
func (d *DB) rebind(query string) string {
	if d.Dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
