package batch

import (
	"context"
	"errors"
	"time"

	"github.com/joseph-ayodele/contract-extractor/internal/common"
	"github.com/joseph-ayodele/contract-extractor/internal/entity"
	"github.com/joseph-ayodele/contract-extractor/internal/llm"
	"github.com/joseph-ayodele/contract-extractor/internal/pipeline"
	"github.com/joseph-ayodele/contract-extractor/internal/repository"
)

// Error classes stored in the ledger next to the service error kinds.
const (
	ClassInvalidDocument = "invalid_document"
	ClassStoreWrite      = "store_write"
	ClassInternal        = "internal"
)

// RetryPolicy bounds attempts per URL across runs and spaces them out.
type RetryPolicy struct {
	MaxAttempts   int
	Base          time.Duration
	RateLimitBase time.Duration
	Max           time.Duration
}

// DefaultRetryPolicy mirrors the built-in batch configuration.
func DefaultRetryPolicy() RetryPolicy {
	return PolicyFromConfig(common.DefaultConfig().Batch)
}

func PolicyFromConfig(cfg common.BatchConfig) RetryPolicy {
	return RetryPolicy{
		MaxAttempts:   cfg.MaxAttempts,
		Base:          cfg.BackoffBase,
		RateLimitBase: cfg.RateLimitBackoffBase,
		Max:           cfg.MaxBackoff,
	}
}

// Backoff returns the wait before the attempt after `attempt` (1-based).
// Rate-limit failures start from the longer base and never wait less than Retry-After.
func (p RetryPolicy) Backoff(attempt int, class string, retryAfter time.Duration) time.Duration {
	base := p.Base
	if class == string(llm.KindRateLimit) && p.RateLimitBase > 0 {
		base = p.RateLimitBase
	}
	if attempt < 1 {
		attempt = 1
	}

	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if p.Max > 0 && d >= p.Max {
			break
		}
	}
	if retryAfter > d {
		d = retryAfter
	}
	if p.Max > 0 && d > p.Max {
		d = p.Max
	}
	return d
}

// FailureFor builds the ledger failure for err without scheduling a retry.
func FailureFor(err error) entity.Failure {
	class, retryable, _ := classify(err)
	return entity.Failure{Reason: err.Error(), ErrorClass: class, Retryable: retryable}
}

// classify maps an attempt error onto the ledger's error class and retry flag.
func classify(err error) (class string, retryable bool, retryAfter time.Duration) {
	var (
		docErr   *pipeline.DocumentError
		svcErr   *llm.ServiceError
		storeErr *repository.StoreWriteError
	)
	switch {
	case errors.As(err, &docErr):
		return ClassInvalidDocument, false, 0
	case errors.As(err, &svcErr):
		return string(svcErr.Kind), svcErr.Kind.Retryable(), svcErr.RetryAfter
	case errors.As(err, &storeErr):
		return ClassStoreWrite, true, 0
	case errors.Is(err, context.DeadlineExceeded):
		return string(llm.KindTimeout), true, 0
	case errors.Is(err, context.Canceled):
		return repository.ErrorClassInterrupted, true, 0
	}
	return ClassInternal, true, 0
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
