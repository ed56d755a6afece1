package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/joseph-ayodele/contract-extractor/internal/common"
	"github.com/joseph-ayodele/contract-extractor/internal/entity"
	"github.com/joseph-ayodele/contract-extractor/internal/repository"
)

// RecordStore is the append-only output the committer writes to.
type RecordStore interface {
	Append(rec entity.ExtractedRecord) error
	Scan() (repository.StoreScan, error)
}

// Committer serialises idx assignment, the store append and the ledger update,
// so idx is strictly increasing in store order.
type Committer struct {
	mu     sync.Mutex
	store  RecordStore
	ledger repository.Ledger
	logger *slog.Logger
}

func NewCommitter(store RecordStore, ledger repository.Ledger, logger *slog.Logger) *Committer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Committer{store: store, ledger: ledger, logger: logger}
}

// ErrAlreadyCommitted reports a record whose URL the ledger already shows as succeeded.
var ErrAlreadyCommitted = errors.New("url already committed")

// Commit assigns the next idx and appends rec. An idx whose append failed is not reused.
// Once the row is on disk the document counts as committed even if the ledger write
// fails; Reconcile repairs the ledger on the next run.
func (c *Committer) Commit(ctx context.Context, rec entity.ExtractedRecord) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, err := c.ledger.Get(ctx, rec.URL())
	switch {
	case errors.Is(err, common.ErrNotFound):
	case err != nil:
		return -1, err
	case e.Succeeded():
		c.logger.Warn("commit.duplicate_refused", "url", rec.URL())
		return -1, fmt.Errorf("commit %s: %w", rec.URL(), ErrAlreadyCommitted)
	}

	idx, err := c.ledger.NextIdx(ctx)
	if err != nil {
		return -1, err
	}
	rec = rec.WithIdx(idx)
	if err := c.store.Append(rec); err != nil {
		c.logger.Error("commit.append_failed", "url", rec.URL(), "idx", idx, "err", err)
		return -1, err
	}
	if err := c.ledger.MarkSucceeded(context.WithoutCancel(ctx), rec.URL(), idx); err != nil {
		c.logger.Error("commit.ledger_lagging", "url", rec.URL(), "idx", idx, "err", err)
	}
	c.logger.Info("commit.ok", "url", rec.URL(), "idx", idx)
	return idx, nil
}

// Reconciled summarises the repairs made before a run.
type Reconciled struct {
	Interrupted int64 `json:"interrupted"`
	Repaired    int   `json:"repaired"`
	MaxIdx      int64 `json:"max_idx"`
	Unreadable  int   `json:"unreadable"`
}

// Reconcile turns stale in_progress entries into retryable failures, marks every URL
// present in the store as succeeded with its stored idx, and raises the idx sequence
// past the largest stored idx.
func (c *Committer) Reconcile(ctx context.Context) (Reconciled, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := Reconciled{MaxIdx: -1}
	n, err := c.ledger.ResetInProgress(ctx, "interrupted before completion")
	if err != nil {
		return out, err
	}
	out.Interrupted = n

	sc, err := c.store.Scan()
	if err != nil {
		return out, fmt.Errorf("read record store: %w", err)
	}
	out.Unreadable = len(sc.Unreadable)
	if out.Unreadable > 0 {
		c.logger.Warn("commit.store_rows_unreadable", "count", out.Unreadable, "lines", sc.Unreadable)
	}
	for _, row := range sc.Rows {
		out.MaxIdx = max(out.MaxIdx, row.Idx)

		e, err := c.ledger.Get(ctx, row.URL)
		if err != nil && !errors.Is(err, common.ErrNotFound) {
			return out, err
		}
		if err == nil && e.Succeeded() {
			continue
		}
		if err := c.ledger.MarkSucceeded(ctx, row.URL, row.Idx); err != nil {
			return out, err
		}
		out.Repaired++
		c.logger.Warn("commit.reconciled", "url", row.URL, "idx", row.Idx)
	}

	if out.MaxIdx >= 0 {
		if err := c.ledger.EnsureIdxAtLeast(ctx, out.MaxIdx); err != nil {
			return out, err
		}
	}
	return out, nil
}
