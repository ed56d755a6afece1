package common

import (
	"context"
	"log/slog"
)

// Context keys for storing values in context
type contextKey string

const (
	ContextKeyRunID contextKey = "run_id"
	ContextKeyURL   contextKey = "document_url"
)

// WithRunID adds a batch run ID to the context
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, ContextKeyRunID, runID)
}

// RunIDFromContext extracts the batch run ID from context
func RunIDFromContext(ctx context.Context) string {
	if runID, ok := ctx.Value(ContextKeyRunID).(string); ok {
		return runID
	}
	return ""
}

// WithDocumentURL adds the document URL being processed to the context
func WithDocumentURL(ctx context.Context, url string) context.Context {
	return context.WithValue(ctx, ContextKeyURL, url)
}

// DocumentURLFromContext extracts the document URL from context
func DocumentURLFromContext(ctx context.Context) string {
	if url, ok := ctx.Value(ContextKeyURL).(string); ok {
		return url
	}
	return ""
}

// LoggerWith decorates logger with the run and document carried by ctx.
func LoggerWith(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	if id := RunIDFromContext(ctx); id != "" {
		logger = logger.With("run_id", id)
	}
	if url := DocumentURLFromContext(ctx); url != "" {
		logger = logger.With("url", url)
	}
	return logger
}
