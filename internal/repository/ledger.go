package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/contract-extractor/constants"
	"github.com/joseph-ayodele/contract-extractor/internal/common"
	"github.com/joseph-ayodele/contract-extractor/internal/entity"
)

// Ledger is the durable per-URL processing state and the idx sequence.
type Ledger interface {
	Get(ctx context.Context, url string) (entity.LedgerEntry, error)
	List(ctx context.Context, status constants.LedgerStatus) ([]entity.LedgerEntry, error)
	MarkInProgress(ctx context.Context, url string) (entity.LedgerEntry, error)
	MarkSucceeded(ctx context.Context, url string, idx int64) error
	MarkFailed(ctx context.Context, url string, f entity.Failure) error
	ResetInProgress(ctx context.Context, reason string) (int64, error)
	Reset(ctx context.Context, url string) error
	NextIdx(ctx context.Context) (int64, error)
	LastIdx(ctx context.Context) (int64, error)
	EnsureIdxAtLeast(ctx context.Context, idx int64) error
	Ping(ctx context.Context) error
}

// ErrAlreadyClaimed reports a URL another attempt holds or that already succeeded.
var ErrAlreadyClaimed = errors.New("already in progress or succeeded")

// ErrorClassInterrupted marks attempts cut short by a crash or cancellation.
const ErrorClassInterrupted = "interrupted"

type sqlLedger struct {
	db  *DB
	log *slog.Logger
	now func() time.Time
}

// NewLedger returns a Ledger over an already migrated database.
func NewLedger(db *DB, log *slog.Logger) Ledger {
	if log == nil {
		log = slog.Default()
	}
	return &sqlLedger{db: db, log: log, now: time.Now}
}

const entryColumns = `url, status, idx, reason, error_class, retryable, attempt_count, next_attempt_at, updated_at`

func (r *sqlLedger) Get(ctx context.Context, url string) (entity.LedgerEntry, error) {
	row := r.db.QueryRowContext(ctx, r.db.rebind(`SELECT `+entryColumns+` FROM ledger_entries WHERE url = ?`), url)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.LedgerEntry{}, fmt.Errorf("ledger entry %q: %w", url, common.ErrNotFound)
	}
	if err != nil {
		return entity.LedgerEntry{}, fmt.Errorf("get ledger entry: %w", err)
	}
	return e, nil
}

// List returns entries ordered by URL; an empty status lists everything.
func (r *sqlLedger) List(ctx context.Context, status constants.LedgerStatus) ([]entity.LedgerEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM ledger_entries`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY url`

	rows, err := r.db.QueryContext(ctx, r.db.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	var out []entity.LedgerEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// MarkInProgress claims url for one attempt. The attempt counter survives across runs.
// It returns ErrAlreadyClaimed when the entry is already in_progress or succeeded.
func (r *sqlLedger) MarkInProgress(ctx context.Context, url string) (entity.LedgerEntry, error) {
	const query = `
INSERT INTO ledger_entries (url, status, reason, error_class, retryable, attempt_count, next_attempt_at, updated_at)
VALUES (?, ?, '', '', FALSE, 1, NULL, ?)
ON CONFLICT (url) DO UPDATE SET
	status = excluded.status,
	reason = '',
	error_class = '',
	retryable = FALSE,
	attempt_count = ledger_entries.attempt_count + 1,
	next_attempt_at = NULL,
	updated_at = excluded.updated_at
WHERE ledger_entries.status NOT IN (?, ?)
RETURNING ` + entryColumns

	row := r.db.QueryRowContext(ctx, r.db.rebind(query), url, string(constants.LedgerStatusInProgress), r.now().UnixMilli(),
		string(constants.LedgerStatusInProgress), string(constants.LedgerStatusSucceeded))
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		r.log.Info("ledger.claim_refused", "url", url)
		return entity.LedgerEntry{}, fmt.Errorf("mark in progress %s: %w", url, ErrAlreadyClaimed)
	}
	if err != nil {
		r.log.Error("ledger mark in_progress failed", "url", url, "err", err)
		return entity.LedgerEntry{}, fmt.Errorf("mark in progress: %w", err)
	}
	r.log.Debug("ledger.in_progress", "url", url, "attempt", e.Attempts)
	return e, nil
}

func (r *sqlLedger) MarkSucceeded(ctx context.Context, url string, idx int64) error {
	const query = `
INSERT INTO ledger_entries (url, status, idx, reason, error_class, retryable, attempt_count, next_attempt_at, updated_at)
VALUES (?, ?, ?, '', '', FALSE, 1, NULL, ?)
ON CONFLICT (url) DO UPDATE SET
	status = excluded.status,
	idx = excluded.idx,
	reason = '',
	error_class = '',
	retryable = FALSE,
	next_attempt_at = NULL,
	updated_at = excluded.updated_at`

	if _, err := r.db.ExecContext(ctx, r.db.rebind(query), url, string(constants.LedgerStatusSucceeded), idx, r.now().UnixMilli()); err != nil {
		r.log.Error("ledger mark succeeded failed", "url", url, "idx", idx, "err", err)
		return fmt.Errorf("mark succeeded: %w", err)
	}
	return nil
}

func (r *sqlLedger) MarkFailed(ctx context.Context, url string, f entity.Failure) error {
	const query = `
INSERT INTO ledger_entries (url, status, reason, error_class, retryable, attempt_count, next_attempt_at, updated_at)
VALUES (?, ?, ?, ?, ?, 1, ?, ?)
ON CONFLICT (url) DO UPDATE SET
	status = excluded.status,
	reason = excluded.reason,
	error_class = excluded.error_class,
	retryable = excluded.retryable,
	next_attempt_at = excluded.next_attempt_at,
	updated_at = excluded.updated_at`

	var next sql.NullInt64
	if !f.NextAttemptAt.IsZero() {
		next = sql.NullInt64{Int64: f.NextAttemptAt.UnixMilli(), Valid: true}
	}
	_, err := r.db.ExecContext(ctx, r.db.rebind(query),
		url, string(constants.LedgerStatusFailed), f.Reason, f.ErrorClass, f.Retryable, next, r.now().UnixMilli())
	if err != nil {
		r.log.Error("ledger mark failed failed", "url", url, "err", err)
		return fmt.Errorf("mark failed: %w", err)
	}
	return nil
}

// ResetInProgress turns entries left in_progress by a crashed run into retryable failures.
func (r *sqlLedger) ResetInProgress(ctx context.Context, reason string) (int64, error) {
	const query = `
UPDATE ledger_entries
SET status = ?, reason = ?, error_class = ?, retryable = TRUE, updated_at = ?
WHERE status = ?`

	res, err := r.db.ExecContext(ctx, r.db.rebind(query),
		string(constants.LedgerStatusFailed), reason, ErrorClassInterrupted, r.now().UnixMilli(),
		string(constants.LedgerStatusInProgress))
	if err != nil {
		return 0, fmt.Errorf("reset in-progress entries: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		r.log.Warn("ledger.stale_in_progress_reset", "count", n)
	}
	return n, nil
}

// Reset forgets a URL so the next run processes it from scratch.
func (r *sqlLedger) Reset(ctx context.Context, url string) error {
	res, err := r.db.ExecContext(ctx, r.db.rebind(`DELETE FROM ledger_entries WHERE url = ?`), url)
	if err != nil {
		return fmt.Errorf("reset ledger entry: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("ledger entry %q: %w", url, common.ErrNotFound)
	}
	return nil
}

// NextIdx atomically advances the sequence. Values are never handed out twice.
func (r *sqlLedger) NextIdx(ctx context.Context) (int64, error) {
	var idx int64
	err := r.db.QueryRowContext(ctx, r.db.rebind(`UPDATE ledger_sequence SET value = value + 1 WHERE name = ? RETURNING value`), "idx").Scan(&idx)
	if err != nil {
		return 0, fmt.Errorf("next idx: %w", err)
	}
	return idx, nil
}

// LastIdx returns the last idx handed out, or -1.
func (r *sqlLedger) LastIdx(ctx context.Context) (int64, error) {
	var idx int64
	err := r.db.QueryRowContext(ctx, r.db.rebind(`SELECT value FROM ledger_sequence WHERE name = ?`), "idx").Scan(&idx)
	if err != nil {
		return 0, fmt.Errorf("last idx: %w", err)
	}
	return idx, nil
}

// EnsureIdxAtLeast raises the sequence so the next idx is greater than idx.
func (r *sqlLedger) EnsureIdxAtLeast(ctx context.Context, idx int64) error {
	_, err := r.db.ExecContext(ctx, r.db.rebind(`UPDATE ledger_sequence SET value = ? WHERE name = ? AND value < ?`), idx, "idx", idx)
	if err != nil {
		return fmt.Errorf("raise idx sequence: %w", err)
	}
	return nil
}

func (r *sqlLedger) Ping(ctx context.Context) error {
	return HealthCheck(ctx, r.db, 0, r.log)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(s rowScanner) (entity.LedgerEntry, error) {
	var (
		e       entity.LedgerEntry
		status  string
		idx     sql.NullInt64
		next    sql.NullInt64
		updated int64
	)
	if err := s.Scan(&e.URL, &status, &idx, &e.Reason, &e.ErrorClass, &e.Retryable, &e.Attempts, &next, &updated); err != nil {
		return entity.LedgerEntry{}, err
	}
	e.Status = constants.LedgerStatus(status)
	if idx.Valid {
		v := idx.Int64
		e.Idx = &v
	}
	if next.Valid {
		e.NextAttemptAt = time.UnixMilli(next.Int64).UTC()
	}
	e.UpdatedAt = time.UnixMilli(updated).UTC()
	return e, nil
}
