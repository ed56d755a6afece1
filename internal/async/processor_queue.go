package async

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/contract-extractor/internal/batch"
	"github.com/joseph-ayodele/contract-extractor/internal/ingest"
)

// BatchRunner is the part of *batch.Runner the queue drives.
type BatchRunner interface {
	Run(ctx context.Context, items []batch.Item) (batch.Summary, error)
}

// ProcessorQueue feeds watched document files to the batch runner, one item per job.
type ProcessorQueue struct {
	runner  BatchRunner
	logger  *slog.Logger
	workers int
	timeout time.Duration

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	// base is cancelled when Shutdown gives up draining; every job context derives from it.
	base   context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
}

type Option func(*ProcessorQueue)

func WithWorkers(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}
func WithQueueSize(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}

// WithProcessTimeout bounds one job including its retries.
func WithProcessTimeout(d time.Duration) Option {
	return func(q *ProcessorQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

func NewProcessorQueue(runner BatchRunner, logger *slog.Logger, opts ...Option) *ProcessorQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &ProcessorQueue{
		runner:  runner,
		logger:  logger,
		workers: 2,
		timeout: 30 * time.Minute,
		ch:      make(chan Job, 256),
	}
	for _, o := range opts {
		o(q)
	}
	q.base, q.cancel = context.WithCancel(context.Background())
	q.start()
	return q
}

func (q *ProcessorQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Info("worker started", "worker_id", workerID)

				for job := range q.ch {
					q.process(workerID, job)
				}

				q.logger.Info("worker stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *ProcessorQueue) process(workerID int, job Job) {
	ctx, cancel := context.WithTimeout(q.base, q.timeout)
	defer cancel()

	item := ingest.ItemForPath(job.Path, job.URL)
	sum, err := q.runner.Run(ctx, []batch.Item{item})
	switch {
	case err != nil:
		q.logger.Error("queue.job.failed", "worker_id", workerID, "trace_id", job.TraceID, "path", job.Path, "error", err)
	case sum.Failed > 0:
		f := sum.Failures[0]
		q.logger.Warn("queue.job.document_failed",
			"worker_id", workerID,
			"trace_id", job.TraceID,
			"url", f.URL,
			"error_class", f.ErrorClass,
			"retryable", f.Retryable,
			"reason", f.Reason,
		)
	case sum.Skipped > 0:
		q.logger.Info("queue.job.skipped", "worker_id", workerID, "trace_id", job.TraceID, "url", item.URL, "reason", sum.Skips[0].Reason)
	default:
		q.logger.Info("queue.job.ok", "worker_id", workerID, "trace_id", job.TraceID, "url", item.URL,
			"queued_ms", time.Since(job.SubmittedAt).Milliseconds())
	}
}

// Enqueue blocks when the queue is full. Jobs submitted after Shutdown are dropped.
func (q *ProcessorQueue) Enqueue(ctx context.Context, job Job) error {
	if job.TraceID == "" {
		job.TraceID = uuid.NewString()
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("cannot enqueue: queue is shutting down", "path", job.Path)
		return nil
	}
	select {
	case q.ch <- job:
		q.logger.Info("queued document for processing", "path", job.Path, "trace_id", job.TraceID)
		return nil
	default:
	}

	q.logger.Warn("queue full, applying backpressure", "path", job.Path)
	select {
	case q.ch <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops accepting jobs and drains the queue. When ctx ends first, the jobs
// still running are cancelled and Shutdown waits for them to record the interruption.
func (q *ProcessorQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-done:
		q.cancel()
		q.logger.Info("queue drained, shutdown complete")
	case <-ctx.Done():
		q.logger.Warn("drain deadline passed, cancelling in-flight jobs")
		q.cancel()
		<-done
		q.logger.Info("workers stopped after cancellation")
	}
}

var _ Queue = (*ProcessorQueue)(nil)
