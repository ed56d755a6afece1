package repository

import (
	"context"
	"embed"
	"fmt"
	"sync"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// goose keeps its base FS and dialect in package state.
var gooseMu sync.Mutex

// Migrate applies the embedded ledger migrations.
func Migrate(ctx context.Context, db *DB) error {
	if db == nil {
		return nil
	}
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrationFiles)
	dialect := "postgres"
	if db.Dialect == DialectSQLite {
		dialect = "sqlite3"
	}
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("set migration dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db.DB, "migrations"); err != nil {
		return fmt.Errorf("apply ledger migrations: %w", err)
	}
	return nil
}

// MigrationVersion returns the applied schema version.
func MigrationVersion(ctx context.Context, db *DB) (int64, error) {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrationFiles)
	dialect := "postgres"
	if db.Dialect == DialectSQLite {
		dialect = "sqlite3"
	}
	if err := goose.SetDialect(dialect); err != nil {
		return 0, err
	}
	return goose.GetDBVersionContext(ctx, db.DB)
}
