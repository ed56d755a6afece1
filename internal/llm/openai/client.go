package openai

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

type chatCompletion struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// ExtractFields implements llm.TextService using chat/completions in JSON mode.
func (c *Client) ExtractFields(ctx context.Context, req llm.FieldRequest) (llm.RawAnswer, []byte, error) {
	rid := uuid.New().String()
	start := time.Now()
	fields := req.FieldNames()

	c.logger.Info("llm.extract.start",
		"req_id", rid,
		"provider", "openai",
		"model", c.cfg.Model,
		"group", req.Group,
		"text_len", len(req.Text),
		"fields", len(fields),
	)

	schema := llm.BuildFieldsJSONSchema(fields)
	body := map[string]any{
		"model":           c.cfg.Model,
		"temperature":     c.cfg.Temperature,
		"response_format": map[string]any{"type": "json_object"},
		"messages": []map[string]any{
			{"role": "system", "content": llm.BuildSystemPrompt()},
			{"role": "user", "content": llm.BuildUserPrompt(req)},
			{"role": "system", "content": "JSON Schema:\n" + mustJSON(schema)},
		},
	}
	if c.cfg.MaxTokens > 0 {
		body["max_tokens"] = c.cfg.MaxTokens
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	headers := map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}
	raw, err := llm.SendJSON(ctx, c.http, endpoint, body, headers, c.logger)
	if err != nil {
		c.logger.Error("llm.extract.http_error",
			"req_id", rid, "group", req.Group, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, raw, llm.WithGroup(err, req.Group)
	}

	var cc chatCompletion
	if err := json.Unmarshal(raw, &cc); err != nil {
		c.logger.Error("llm.extract.decode_error",
			"req_id", rid, "error", err, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, raw, &llm.ServiceError{Group: req.Group, Kind: llm.KindMalformed, Err: fmt.Errorf("decode openai response: %w", err)}
	}
	if len(cc.Choices) == 0 {
		c.logger.Error("llm.extract.no_choices",
			"req_id", rid, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, raw, &llm.ServiceError{Group: req.Group, Kind: llm.KindMalformed, Err: fmt.Errorf("no choices in openai response")}
	}

	out, content, err := llm.DecodeAnswer(cc.Choices[0].Message.Content, fields, rid, start, c.logger)
	if err != nil {
		return nil, content, llm.WithGroup(err, req.Group)
	}

	c.logger.Info("llm.extract.ok",
		"req_id", rid,
		"group", req.Group,
		"populated", out.Populated(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, content, nil
}

func mustJSON(v any) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}
