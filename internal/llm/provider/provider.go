// Package provider builds the configured llm.TextService.
package provider

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/contract-extractor/internal/common"
	"github.com/joseph-ayodele/contract-extractor/internal/llm"
	"github.com/joseph-ayodele/contract-extractor/internal/llm/anthropic"
	"github.com/joseph-ayodele/contract-extractor/internal/llm/openai"
)

const (
	Anthropic = "anthropic"
	OpenAI    = "openai"
)

// New returns the text service for cfg.Provider, wrapped in a shared throttle.
func New(cfg common.LLMConfig, logger *slog.Logger) (llm.TextService, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var svc llm.TextService
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case Anthropic, "":
		svc = anthropic.NewClient(anthropic.Config{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		}, logger)
	case OpenAI:
		svc = openai.NewClient(openai.Config{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		}, logger)
	default:
		return nil, common.NewAppError(common.CodeConfig, fmt.Sprintf("unknown llm provider %q", cfg.Provider), common.ErrInvalidInput)
	}

	logger.Info("llm client initialized", "provider", cfg.Provider, "model", cfg.Model, "requests_per_second", cfg.RequestsPerSecond)
	return llm.NewThrottled(svc, cfg.RequestsPerSecond, cfg.Burst, logger), nil
}
