package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/contract-extractor/internal/llm"
)

var _ llm.TextService = (*Client)(nil)

// messagesRequest is the /v1/messages request format.
type messagesRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	System      string    `json:"system,omitempty"`
	Temperature float32   `json:"temperature"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// messagesResponse is the /v1/messages response format.
type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// ExtractFields implements llm.TextService with a single messages call per field group.
func (c *Client) ExtractFields(ctx context.Context, req llm.FieldRequest) (llm.RawAnswer, []byte, error) {
	rid := uuid.New().String()
	start := time.Now()
	fields := req.FieldNames()

	c.logger.Info("llm.extract.start",
		"req_id", rid,
		"provider", "anthropic",
		"model", c.cfg.Model,
		"group", req.Group,
		"text_len", len(req.Text),
		"fields", len(fields),
	)

	body := messagesRequest{
		Model:       c.cfg.Model,
		MaxTokens:   c.cfg.MaxTokens,
		System:      llm.BuildSystemPrompt(),
		Temperature: c.cfg.Temperature,
		Messages: []message{
			{Role: "user", Content: llm.BuildUserPrompt(req)},
		},
	}
	headers := map[string]string{
		"x-api-key":         c.cfg.APIKey,
		"anthropic-version": anthropicVersion,
	}
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/v1/messages"

	raw, err := llm.SendJSON(ctx, c.http, endpoint, body, headers, c.logger)
	if err != nil {
		c.logger.Error("llm.extract.http_error",
			"req_id", rid, "group", req.Group, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, raw, llm.WithGroup(err, req.Group)
	}

	var mr messagesResponse
	if err := json.Unmarshal(raw, &mr); err != nil {
		c.logger.Error("llm.extract.decode_error",
			"req_id", rid, "error", err, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, raw, &llm.ServiceError{Group: req.Group, Kind: llm.KindMalformed, Err: fmt.Errorf("decode anthropic response: %w", err)}
	}

	var text strings.Builder
	for _, block := range mr.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		c.logger.Error("llm.extract.empty_content",
			"req_id", rid, "stop_reason", mr.StopReason,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, raw, &llm.ServiceError{Group: req.Group, Kind: llm.KindMalformed, Err: fmt.Errorf("no text content in anthropic response")}
	}
	if mr.StopReason == "max_tokens" {
		c.logger.Warn("llm.extract.truncated_reply", "req_id", rid, "group", req.Group, "max_tokens", c.cfg.MaxTokens)
	}

	out, content, err := llm.DecodeAnswer(text.String(), fields, rid, start, c.logger)
	if err != nil {
		return nil, content, llm.WithGroup(err, req.Group)
	}

	c.logger.Info("llm.extract.ok",
		"req_id", rid,
		"group", req.Group,
		"populated", out.Populated(),
		"input_tokens", mr.Usage.InputTokens,
		"output_tokens", mr.Usage.OutputTokens,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, content, nil
}
