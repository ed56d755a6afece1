package async

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/contract-extractor/internal/batch"
)

type recordingRunner struct {
	mu   sync.Mutex
	urls []string
}

func (r *recordingRunner) Run(_ context.Context, items []batch.Item) (batch.Summary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, it := range items {
		r.urls = append(r.urls, it.URL)
	}
	return batch.Summary{Total: len(items), Succeeded: len(items)}, nil
}

func TestProcessorQueueRunsEveryJob(t *testing.T) {
	runner := &recordingRunner{}
	q := NewProcessorQueue(runner, slog.New(slog.NewTextHandler(io.Discard, nil)), WithWorkers(3), WithQueueSize(1))

	ctx := context.Background()
	for _, u := range []string{"https://e.com/a", "https://e.com/b", "https://e.com/c", "https://e.com/d"} {
		require.NoError(t, q.Enqueue(ctx, Job{Path: "/does/not/matter.json", URL: u}))
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	q.Shutdown(shutdownCtx)

	assert.ElementsMatch(t, []string{"https://e.com/a", "https://e.com/b", "https://e.com/c", "https://e.com/d"}, runner.urls)
	assert.NoError(t, q.Enqueue(ctx, Job{Path: "late.json"}), "jobs after shutdown are dropped")
}

// stallingRunner blocks every run until its context ends.
type stallingRunner struct {
	started   chan struct{}
	once      sync.Once
	cancelled atomic.Bool
}

func (r *stallingRunner) Run(ctx context.Context, items []batch.Item) (batch.Summary, error) {
	r.once.Do(func() { close(r.started) })
	<-ctx.Done()
	r.cancelled.Store(true)
	return batch.Summary{Total: len(items)}, ctx.Err()
}

func TestProcessorQueueShutdownCancelsInFlightJobs(t *testing.T) {
	runner := &stallingRunner{started: make(chan struct{})}
	q := NewProcessorQueue(runner, slog.New(slog.NewTextHandler(io.Discard, nil)), WithWorkers(1))

	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, Job{Path: "/docs/a.json", URL: "https://e.com/a"}))
	<-runner.started

	shutdownCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	q.Shutdown(shutdownCtx)

	assert.True(t, runner.cancelled.Load(), "the running job saw its context cancelled before Shutdown returned")
}
