package llm

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"
)

// Throttled paces calls to a TextService with a token bucket shared by every worker.
type Throttled struct {
	next   TextService
	bucket *rate.Limiter
	logger *slog.Logger
}

// NewThrottled allows perSecond calls on average with the given burst. A non-positive rate disables pacing.
func NewThrottled(next TextService, perSecond float64, burst int, logger *slog.Logger) *Throttled {
	if logger == nil {
		logger = slog.Default()
	}
	if burst < 1 {
		burst = 1
	}
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	return &Throttled{
		next:   next,
		bucket: rate.NewLimiter(limit, burst),
		logger: logger,
	}
}

func (t *Throttled) ExtractFields(ctx context.Context, req FieldRequest) (RawAnswer, []byte, error) {
	start := time.Now()
	if err := t.bucket.Wait(ctx); err != nil {
		return nil, nil, &ServiceError{Group: req.Group, Kind: KindTimeout, Err: err}
	}
	if waited := time.Since(start); waited > 100*time.Millisecond {
		t.logger.Debug("llm.throttle.waited", "group", req.Group, "wait_ms", waited.Milliseconds())
	}
	return t.next.ExtractFields(ctx, req)
}
