// Package batch drives many documents through the pipeline with a durable ledger,
// bounded concurrency and retries.
package batch

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/contract-extractor/internal/common"
	"github.com/joseph-ayodele/contract-extractor/internal/entity"
	"github.com/joseph-ayodele/contract-extractor/internal/pipeline"
	"github.com/joseph-ayodele/contract-extractor/internal/repository"
)

// Item is one unit of batch work. Load is called on every attempt.
type Item struct {
	URL  string
	Load func(ctx context.Context) (entity.ContractDocument, error)
}

// Extractor turns a document into an uncommitted record.
type Extractor interface {
	Process(ctx context.Context, doc entity.ContractDocument) (pipeline.Result, error)
}

// Committer persists records and repairs the ledger before a run.
type Committer interface {
	Commit(ctx context.Context, rec entity.ExtractedRecord) (int64, error)
	Reconcile(ctx context.Context) (pipeline.Reconciled, error)
}

type Runner struct {
	extractor   Extractor
	committer   Committer
	ledger      repository.Ledger
	logger      *slog.Logger
	policy      RetryPolicy
	concurrency int
	docTimeout  time.Duration

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	reconcileMu sync.Mutex
	reconciled  bool
}

type Option func(*Runner)

func WithConcurrency(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

func WithDocumentTimeout(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.docTimeout = d
		}
	}
}

func WithRetryPolicy(p RetryPolicy) Option {
	return func(r *Runner) {
		if p.MaxAttempts > 0 {
			r.policy = p
		}
	}
}

func NewRunner(extractor Extractor, committer Committer, ledger repository.Ledger, logger *slog.Logger, opts ...Option) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Runner{
		extractor:   extractor,
		committer:   committer,
		ledger:      ledger,
		logger:      logger,
		policy:      DefaultRetryPolicy(),
		concurrency: 4,
		docTimeout:  5 * time.Minute,
		now:         time.Now,
		sleep:       sleepContext,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Run processes items until each has a terminal outcome for this run or ctx is done.
// Already succeeded, permanently failed and claimed URLs are skipped, so running the
// same items again, even concurrently, never duplicates a row. URLs whose attempts are
// used up are reported as failures with the class recorded in the ledger. The first Run of a Runner reconciles the
// ledger with the record store.
func (r *Runner) Run(ctx context.Context, items []Item) (Summary, error) {
	start := r.now()
	sum := &summaryBuilder{s: Summary{RunID: uuid.NewString(), Total: len(items)}}
	ctx = common.WithRunID(ctx, sum.s.RunID)
	log := common.LoggerWith(ctx, r.logger)

	rec, err := r.reconcileOnce(ctx)
	if err != nil {
		log.Error("batch.reconcile.failed", "err", err)
		return sum.s, err
	}
	sum.s.Reconciled = rec
	log.Info("batch.start",
		"items", len(items),
		"concurrency", r.concurrency,
		"max_attempts", r.policy.MaxAttempts,
		"interrupted", rec.Interrupted,
		"repaired", rec.Repaired,
		"unreadable_rows", rec.Unreadable,
	)

	var g errgroup.Group
	g.SetLimit(r.concurrency)
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		if ctx.Err() != nil {
			break
		}
		url := strings.TrimSpace(item.URL)
		if seen[url] {
			sum.skip(url, "duplicate in batch")
			continue
		}
		seen[url] = true
		item.URL = url

		g.Go(func() error {
			r.runItem(ctx, item, sum)
			return nil
		})
	}
	_ = g.Wait()

	out := sum.finish()
	log.Info("batch.done",
		"succeeded", out.Succeeded,
		"failed", out.Failed,
		"skipped", out.Skipped,
		"not_started", out.NotStarted(),
		"elapsed_ms", r.now().Sub(start).Milliseconds(),
	)
	return out, ctx.Err()
}

func (r *Runner) reconcileOnce(ctx context.Context) (pipeline.Reconciled, error) {
	r.reconcileMu.Lock()
	defer r.reconcileMu.Unlock()
	if r.reconciled {
		return pipeline.Reconciled{MaxIdx: -1}, nil
	}
	rec, err := r.committer.Reconcile(ctx)
	if err != nil {
		return rec, err
	}
	r.reconciled = true
	return rec, nil
}

func (r *Runner) runItem(ctx context.Context, item Item, sum *summaryBuilder) {
	if ctx.Err() != nil {
		return
	}
	ctx = common.WithDocumentURL(ctx, item.URL)
	log := common.LoggerWith(ctx, r.logger)

	entry, err := r.ledger.Get(ctx, item.URL)
	switch {
	case errors.Is(err, common.ErrNotFound):
	case err != nil:
		log.Error("batch.item.ledger_read_failed", "err", err)
		sum.fail(ItemFailure{URL: item.URL, Reason: err.Error(), ErrorClass: ClassInternal, Retryable: true})
		return
	case entry.Succeeded():
		sum.skip(item.URL, "already succeeded")
		return
	case entry.PermanentlyFailed():
		sum.skip(item.URL, "permanently failed: "+entry.Reason)
		return
	case entry.Attempts >= r.policy.MaxAttempts:
		sum.fail(ItemFailure{
			URL:        item.URL,
			Reason:     "attempts exhausted: " + entry.Reason,
			ErrorClass: entry.ErrorClass,
			Retryable:  entry.Retryable,
			Attempts:   entry.Attempts,
		})
		return
	}

	if wait := entry.NextAttemptAt.Sub(r.now()); !entry.NextAttemptAt.IsZero() && wait > 0 {
		if r.policy.Max > 0 {
			wait = min(wait, r.policy.Max)
		}
		log.Info("batch.item.waiting", "wait_ms", wait.Milliseconds())
		if err := r.sleep(ctx, wait); err != nil {
			return
		}
	}

	for {
		started, err := r.ledger.MarkInProgress(ctx, item.URL)
		if errors.Is(err, repository.ErrAlreadyClaimed) {
			log.Info("batch.item.claimed_elsewhere")
			sum.skip(item.URL, "already in progress or succeeded")
			return
		}
		if err != nil {
			log.Error("batch.item.ledger_write_failed", "err", err)
			sum.fail(ItemFailure{URL: item.URL, Reason: err.Error(), ErrorClass: ClassInternal, Retryable: true})
			return
		}

		idx, err := r.attempt(ctx, item)
		if err == nil {
			log.Info("batch.item.succeeded", "idx", idx, "attempt", started.Attempts)
			sum.succeed()
			return
		}
		if errors.Is(err, pipeline.ErrAlreadyCommitted) {
			sum.skip(item.URL, "already succeeded")
			return
		}

		class, retryable, retryAfter := classify(err)
		if ctx.Err() != nil {
			class, retryable = repository.ErrorClassInterrupted, true
		}
		f := entity.Failure{Reason: err.Error(), ErrorClass: class, Retryable: retryable}
		again := retryable && started.Attempts < r.policy.MaxAttempts && ctx.Err() == nil

		var delay time.Duration
		if again {
			delay = r.policy.Backoff(started.Attempts, class, retryAfter)
			f.NextAttemptAt = r.now().Add(delay)
		}
		// the outcome is recorded even when the run is being cancelled
		if lerr := r.ledger.MarkFailed(context.WithoutCancel(ctx), item.URL, f); lerr != nil {
			log.Error("batch.item.ledger_write_failed", "err", lerr)
		}
		log.Warn("batch.item.failed",
			"attempt", started.Attempts,
			"error_class", class,
			"retryable", retryable,
			"retry_in_ms", delay.Milliseconds(),
			"err", err,
		)

		if !again {
			sum.fail(ItemFailure{
				URL:        item.URL,
				Reason:     f.Reason,
				ErrorClass: class,
				Retryable:  retryable,
				Attempts:   started.Attempts,
			})
			return
		}
		if err := r.sleep(ctx, delay); err != nil {
			sum.fail(ItemFailure{
				URL:        item.URL,
				Reason:     f.Reason,
				ErrorClass: repository.ErrorClassInterrupted,
				Retryable:  true,
				Attempts:   started.Attempts,
			})
			return
		}
	}
}

// attempt runs one document under the per-document timeout and commits it.
func (r *Runner) attempt(ctx context.Context, item Item) (int64, error) {
	dctx, cancel := context.WithTimeout(ctx, r.docTimeout)
	defer cancel()

	doc, err := item.Load(dctx)
	if err != nil {
		return -1, err
	}
	// the batch URL is authoritative for the record and the ledger
	doc.URL = item.URL

	res, err := r.extractor.Process(dctx, doc)
	if err != nil {
		return -1, err
	}
	if err := dctx.Err(); err != nil {
		return -1, err
	}
	return r.committer.Commit(dctx, res.Record)
}

// Summary is printed at the end of a batch run.
type Summary struct {
	RunID      string              `json:"run_id"`
	Total      int                 `json:"total"`
	Succeeded  int                 `json:"succeeded"`
	Failed     int                 `json:"failed"`
	Skipped    int                 `json:"skipped"`
	Failures   []ItemFailure       `json:"failures,omitempty"`
	Skips      []ItemSkip          `json:"skips,omitempty"`
	Reconciled pipeline.Reconciled `json:"reconciled"`
}

// NotStarted counts items left untouched because the run was cancelled.
func (s Summary) NotStarted() int {
	return s.Total - s.Succeeded - s.Failed - s.Skipped
}

type ItemFailure struct {
	URL        string `json:"url"`
	Reason     string `json:"reason"`
	ErrorClass string `json:"error_class"`
	Retryable  bool   `json:"retryable"`
	Attempts   int    `json:"attempts"`
}

type ItemSkip struct {
	URL    string `json:"url"`
	Reason string `json:"reason"`
}

type summaryBuilder struct {
	mu sync.Mutex
	s  Summary
}

func (b *summaryBuilder) succeed() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.s.Succeeded++
}

func (b *summaryBuilder) fail(f ItemFailure) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.s.Failed++
	b.s.Failures = append(b.s.Failures, f)
}

func (b *summaryBuilder) skip(url, reason string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.s.Skipped++
	b.s.Skips = append(b.s.Skips, ItemSkip{URL: url, Reason: reason})
}

func (b *summaryBuilder) finish() Summary {
	b.mu.Lock()
	defer b.mu.Unlock()
	slices.SortFunc(b.s.Failures, func(a, c ItemFailure) int { return strings.Compare(a.URL, c.URL) })
	slices.SortFunc(b.s.Skips, func(a, c ItemSkip) int { return strings.Compare(a.URL, c.URL) })
	return b.s
}
