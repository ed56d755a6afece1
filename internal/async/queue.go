package async

import (
	"context"
	"time"
)

// Job is one document file to push through the batch runner.
type Job struct {
	Path        string
	URL         string // optional; overrides the url stored in the document
	SubmittedAt time.Time
	TraceID     string
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}
