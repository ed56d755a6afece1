package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/contract-extractor/internal/llm"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(Config{APIKey: "test-key", BaseURL: srv.URL, Timeout: 2 * time.Second},
		slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func paymentRequest() llm.FieldRequest {
	return llm.FieldRequest{
		Group: "payment",
		Text:  "=== Section 3: Fees ===\nBuyer pays $3,500 per month.",
		Fields: []llm.FieldSpec{
			{Name: "fee_amount", Definition: "Numeric amount"},
			{Name: "charged_per"},
			{Name: "payment_method"},
		},
	}
}

func TestExtractFieldsOK(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))

		var req messagesRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, DefaultModel, req.Model)
		require.Len(t, req.Messages, 1)
		assert.Contains(t, req.Messages[0].Content, "$3,500 per month")

		_, _ = io.WriteString(w, `{"content":[{"type":"text","text":"`+
			"```json\\n{\\\"fee_amount\\\":\\\"3500\\\",\\\"charged_per\\\":\\\"month\\\"}\\n```"+
			`"}],"stop_reason":"end_turn"}`)
	})

	ans, raw, err := c.ExtractFields(context.Background(), paymentRequest())
	require.NoError(t, err)
	assert.NotEmpty(t, raw)
	assert.Equal(t, llm.RawAnswer{"fee_amount": "3500", "charged_per": "month", "payment_method": ""}, ans)
}

func TestExtractFieldsRateLimited(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"type":"error","error":{"type":"rate_limit_error"}}`)
	})

	_, _, err := c.ExtractFields(context.Background(), paymentRequest())
	var se *llm.ServiceError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, llm.KindRateLimit, se.Kind)
	assert.Equal(t, "payment", se.Group)
	assert.Equal(t, 7*time.Second, se.RetryAfter)
}

func TestExtractFieldsRejected(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})

	_, _, err := c.ExtractFields(context.Background(), paymentRequest())
	var se *llm.ServiceError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, llm.KindRejected, se.Kind)
	assert.False(t, se.Kind.Retryable())
}

func TestExtractFieldsTimeout(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, _, err := c.ExtractFields(ctx, paymentRequest())
	var se *llm.ServiceError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, llm.KindTimeout, se.Kind)
}

func TestExtractFieldsMalformedReply(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"content":[{"type":"text","text":"I am unable to help with that."}]}`)
	})

	_, _, err := c.ExtractFields(context.Background(), paymentRequest())
	var se *llm.ServiceError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, llm.KindMalformed, se.Kind)
}
