package repository

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/contract-extractor/constants"
	"github.com/joseph-ayodele/contract-extractor/internal/common"
	"github.com/joseph-ayodele/contract-extractor/internal/entity"
)

func newSQLiteLedger(t *testing.T) (Ledger, *DB) {
	t.Helper()
	ctx := context.Background()
	db, err := Open(ctx, common.LedgerConfig{Driver: DialectSQLite, DSN: filepath.Join(t.TempDir(), "ledger.db")}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, Migrate(ctx, db))
	return NewLedger(db, nil), db
}

func TestLedgerIdxSequence(t *testing.T) {
	ctx := context.Background()
	l, db := newSQLiteLedger(t)

	last, err := l.LastIdx(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(-1), last)

	for want := int64(0); want < 3; want++ {
		got, err := l.NextIdx(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	require.NoError(t, l.EnsureIdxAtLeast(ctx, 10))
	require.NoError(t, l.EnsureIdxAtLeast(ctx, 4), "lowering is a no-op")
	got, err := l.NextIdx(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(11), got)

	// re-running migrations must not reseed the sequence
	require.NoError(t, Migrate(ctx, db))
	got, err = l.NextIdx(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(12), got)

	v, err := MigrationVersion(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)
}

func TestLedgerConcurrentNextIdxIsUnique(t *testing.T) {
	ctx := context.Background()
	l, _ := newSQLiteLedger(t)

	var (
		mu   sync.Mutex
		seen = map[int64]bool{}
		wg   sync.WaitGroup
	)
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			idx, err := l.NextIdx(ctx)
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			assert.False(t, seen[idx], "idx %d handed out twice", idx)
			seen[idx] = true
		}()
	}
	wg.Wait()
	assert.Len(t, seen, 16)
}

func TestLedgerEntryLifecycle(t *testing.T) {
	ctx := context.Background()
	l, _ := newSQLiteLedger(t)
	const url = "https://example.com/a"

	_, err := l.Get(ctx, url)
	assert.True(t, errors.Is(err, common.ErrNotFound))

	e, err := l.MarkInProgress(ctx, url)
	require.NoError(t, err)
	assert.Equal(t, constants.LedgerStatusInProgress, e.Status)
	assert.Equal(t, 1, e.Attempts)

	next := time.Now().Add(time.Minute).Truncate(time.Millisecond)
	require.NoError(t, l.MarkFailed(ctx, url, entity.Failure{
		Reason: "timeout after 30s", ErrorClass: "timeout", Retryable: true, NextAttemptAt: next,
	}))
	e, err = l.Get(ctx, url)
	require.NoError(t, err)
	assert.Equal(t, constants.LedgerStatusFailed, e.Status)
	assert.True(t, e.Retryable)
	assert.False(t, e.PermanentlyFailed())
	assert.Equal(t, "timeout", e.ErrorClass)
	assert.True(t, next.Equal(e.NextAttemptAt))
	assert.Nil(t, e.Idx)

	e, err = l.MarkInProgress(ctx, url)
	require.NoError(t, err)
	assert.Equal(t, 2, e.Attempts)
	assert.Empty(t, e.Reason)
	assert.True(t, e.NextAttemptAt.IsZero())

	require.NoError(t, l.MarkSucceeded(ctx, url, 7))
	e, err = l.Get(ctx, url)
	require.NoError(t, err)
	assert.True(t, e.Succeeded())
	require.NotNil(t, e.Idx)
	assert.Equal(t, int64(7), *e.Idx)
	assert.Equal(t, 2, e.Attempts)

	succeeded, err := l.List(ctx, constants.LedgerStatusSucceeded)
	require.NoError(t, err)
	assert.Len(t, succeeded, 1)

	require.NoError(t, l.Reset(ctx, url))
	assert.True(t, errors.Is(l.Reset(ctx, url), common.ErrNotFound))
}

func TestLedgerResetInProgress(t *testing.T) {
	ctx := context.Background()
	l, _ := newSQLiteLedger(t)

	_, err := l.MarkInProgress(ctx, "https://example.com/a")
	require.NoError(t, err)
	_, err = l.MarkInProgress(ctx, "https://example.com/b")
	require.NoError(t, err)
	require.NoError(t, l.MarkSucceeded(ctx, "https://example.com/b", 0))

	n, err := l.ResetInProgress(ctx, "interrupted by restart")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	e, err := l.Get(ctx, "https://example.com/a")
	require.NoError(t, err)
	assert.Equal(t, constants.LedgerStatusFailed, e.Status)
	assert.Equal(t, ErrorClassInterrupted, e.ErrorClass)
	assert.True(t, e.Retryable)

	all, err := l.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestLedgerPostgresDialect(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	l := NewLedger(&DB{DB: db, Dialect: DialectPostgres}, nil)
	ctx := context.Background()

	mock.ExpectQuery(`UPDATE ledger_sequence SET value = value \+ 1 WHERE name = \$1 RETURNING value`).
		WithArgs("idx").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(int64(4)))
	idx, err := l.NextIdx(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), idx)

	mock.ExpectExec(`INSERT INTO ledger_entries .* VALUES \(\$1, \$2, \$3, \$4, \$5, 1, \$6, \$7\)`).
		WithArgs(
			"https://example.com/a",
			"failed",
			"rejected: 400",
			"rejected",
			false,
			sqlmock.AnyArg(), // next_attempt_at
			sqlmock.AnyArg(), // updated_at
		).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, l.MarkFailed(ctx, "https://example.com/a", entity.Failure{
		Reason: "rejected: 400", ErrorClass: "rejected",
	}))

	mock.ExpectExec(`DELETE FROM ledger_entries WHERE url = \$1`).
		WithArgs("https://example.com/missing").
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.True(t, errors.Is(l.Reset(ctx, "https://example.com/missing"), common.ErrNotFound))

	mock.ExpectQuery(`SELECT .* FROM ledger_entries WHERE url = \$1`).
		WithArgs("https://example.com/b").
		WillReturnError(sql.ErrNoRows)
	_, err = l.Get(ctx, "https://example.com/b")
	assert.True(t, errors.Is(err, common.ErrNotFound))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRebind(t *testing.T) {
	pg := &DB{Dialect: DialectPostgres}
	assert.Equal(t, "a = $1 AND b = $2", pg.rebind("a = ? AND b = ?"))
	lite := &DB{Dialect: DialectSQLite}
	assert.Equal(t, "a = ?", lite.rebind("a = ?"))
}

func TestLedgerClaimIsExclusive(t *testing.T) {
	ctx := context.Background()
	l, _ := newSQLiteLedger(t)
	const url = "https://example.com/a"

	_, err := l.MarkInProgress(ctx, url)
	require.NoError(t, err)
	_, err = l.MarkInProgress(ctx, url)
	assert.True(t, errors.Is(err, ErrAlreadyClaimed), "a held claim is refused")

	require.NoError(t, l.MarkFailed(ctx, url, entity.Failure{Reason: "boom", ErrorClass: "server", Retryable: true}))
	e, err := l.MarkInProgress(ctx, url)
	require.NoError(t, err, "a failed entry can be claimed again")
	assert.Equal(t, 2, e.Attempts)

	require.NoError(t, l.MarkSucceeded(ctx, url, 0))
	_, err = l.MarkInProgress(ctx, url)
	assert.True(t, errors.Is(err, ErrAlreadyClaimed), "a succeeded entry is never reclaimed")

	e, err = l.Get(ctx, url)
	require.NoError(t, err)
	assert.True(t, e.Succeeded())
	assert.Equal(t, 2, e.Attempts)
}
