package common

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("CONTRACTS_CONFIG", "")
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.Equal(t, "sqlite", cfg.Ledger.Driver)
	assert.Equal(t, 3, cfg.Batch.MaxAttempts)
	assert.InDelta(t, 0.3, cfg.Extract.FallbackThreshold, 1e-9)
	require.NoError(t, cfg.Validate(true))
}

func TestLoadConfigYAMLThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "contracts.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
llm:
  provider: openai
  model: gpt-4o-mini
  api_key: from-file
ledger:
  driver: postgres
  dsn: postgres://localhost/contracts
batch:
  max_attempts: 5
  backoff_base: 250ms
  concurrency: 8
`), 0o644))
	t.Setenv("BATCH_CONCURRENCY", "2")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "from-file", cfg.LLM.APIKey)
	assert.Equal(t, "postgres", cfg.Ledger.Driver)
	assert.Equal(t, 5, cfg.Batch.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.Batch.BackoffBase)
	assert.Equal(t, 2, cfg.Batch.Concurrency, "env wins over file")
	assert.Equal(t, 30*time.Second, cfg.Batch.RateLimitBackoffBase, "unset keys keep defaults")
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	var appErr *AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "CONFIG_ERROR", appErr.Code)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(*Config)
		requireLLM bool
		wantErr    bool
	}{
		{name: "no key without llm", mutate: func(c *Config) { c.LLM.APIKey = "" }, requireLLM: false},
		{name: "no key with llm", mutate: func(c *Config) { c.LLM.APIKey = "" }, requireLLM: true, wantErr: true},
		{name: "bad provider", mutate: func(c *Config) { c.LLM.Provider = "bard" }, requireLLM: true, wantErr: true},
		{name: "bad driver", mutate: func(c *Config) { c.Ledger.Driver = "mysql" }, wantErr: true},
		{name: "zero attempts", mutate: func(c *Config) { c.Batch.MaxAttempts = 0 }, wantErr: true},
		{name: "threshold above one", mutate: func(c *Config) { c.Extract.FallbackThreshold = 1.5 }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.LLM.APIKey = "k"
			tt.mutate(cfg)
			err := cfg.Validate(tt.requireLLM)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidInput)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", ParseLevel("debug").String())
	assert.Equal(t, "WARN", ParseLevel("Warning").String())
	assert.Equal(t, "INFO", ParseLevel("").String())
}
