package openai

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
	return NewClient(Config{APIKey: "sk-test", BaseURL: srv.URL, Timeout: 2 * time.Second},
		slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func reply(content string) string {
	b, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{{"message": map[string]any{"content": content}}},
	})
	return string(b)
}

func TestExtractFieldsOK(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, reply(`{"has_sla":"Yes","sla_tiers":"3"}`))
	})

	ans, _, err := c.ExtractFields(context.Background(), llm.FieldRequest{
		Group:  "sla",
		Text:   "=== Section 9: Support ===",
		Fields: []llm.FieldSpec{{Name: "has_sla"}, {Name: "sla_tiers"}},
	})
	require.NoError(t, err)
	assert.Equal(t, llm.RawAnswer{"has_sla": "Yes", "sla_tiers": "3"}, ans)
}

func TestExtractFieldsNoChoices(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"choices":[]}`)
	})

	_, _, err := c.ExtractFields(context.Background(), llm.FieldRequest{Group: "sla", Fields: []llm.FieldSpec{{Name: "has_sla"}}})
	var se *llm.ServiceError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, llm.KindMalformed, se.Kind)
	assert.Equal(t, "sla", se.Group)
}

func TestExtractFieldsServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, _, err := c.ExtractFields(context.Background(), llm.FieldRequest{Group: "sla", Fields: []llm.FieldSpec{{Name: "has_sla"}}})
	var se *llm.ServiceError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, llm.KindUnavailable, se.Kind)
	assert.Equal(t, http.StatusServiceUnavailable, se.StatusCode)
}
