package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// SendJSON posts a JSON body to a full URL with optional headers and returns the raw response body.
// It does not assume any provider; callers decide the URL and headers. Failures come back as *ServiceError.
func SendJSON(ctx context.Context, client *http.Client, url string, body any, headers map[string]string, logger *slog.Logger) ([]byte, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}

	reqID := uuid.New().String()
	start := time.Now()

	bs, err := json.Marshal(body)
	if err != nil {
		logger.Error("llm.http.encode_error", "req_id", reqID, "error", err)
		return nil, &ServiceError{Kind: KindRejected, Err: fmt.Errorf("encode json: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bs))
	if err != nil {
		logger.Error("llm.http.build_request_error", "req_id", reqID, "error", err)
		return nil, &ServiceError{Kind: KindRejected, Err: fmt.Errorf("build request: %w", err)}
	}

	// Default headers; allow caller overrides.
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	logger.Info("llm.http.request",
		"req_id", reqID,
		"url", url,
		"content_length", len(bs),
	)

	resp, err := client.Do(req)
	if err != nil {
		kind := ClassifyTransport(err)
		if ctx.Err() != nil {
			kind = KindTimeout
		}
		logger.Error("llm.http.send_error", "req_id", reqID, "error", err, "kind", kind, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, &ServiceError{Kind: kind, Err: err}
	}
	defer func(Body io.ReadCloser) {
		err := Body.Close()
		if err != nil {
			logger.Warn("llm.http.response_body_close_error", "req_id", reqID, "error", err)
		}
	}(resp.Body)

	raw, readErr := io.ReadAll(resp.Body)

	logger.Info("llm.http.response",
		"req_id", reqID,
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode/100 != 2 {
		return raw, &ServiceError{
			Kind:       ClassifyStatus(resp.StatusCode),
			StatusCode: resp.StatusCode,
			RetryAfter: ParseRetryAfter(resp.Header, time.Now()),
			Err:        fmt.Errorf("non-2xx status: %d: %s", resp.StatusCode, truncate(string(raw), 300)),
		}
	}
	if readErr != nil {
		return nil, &ServiceError{Kind: ClassifyTransport(readErr), StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", readErr)}
	}
	return raw, nil
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
