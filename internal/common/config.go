package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	LLM     LLMConfig     `yaml:"llm"`
	Ledger  LedgerConfig  `yaml:"ledger"`
	Store   StoreConfig   `yaml:"store"`
	Extract ExtractConfig `yaml:"extract"`
	Batch   BatchConfig   `yaml:"batch"`
	Server  ServerConfig  `yaml:"server"`
	Watch   WatchConfig   `yaml:"watch"`
	Log     LogConfig     `yaml:"log"`
}

// LLMConfig holds text-service configuration
type LLMConfig struct {
	Provider          string        `yaml:"provider"` // anthropic | openai
	Model             string        `yaml:"model"`    // empty picks the provider default
	APIKey            string        `yaml:"api_key"`
	BaseURL           string        `yaml:"base_url"`
	Temperature       float32       `yaml:"temperature"`
	MaxTokens         int           `yaml:"max_tokens"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
}

// LedgerConfig holds processing-ledger database configuration
type LedgerConfig struct {
	Driver           string        `yaml:"driver"` // sqlite | postgres
	DSN              string        `yaml:"dsn"`
	MaxConns         int32         `yaml:"max_conns"`
	MinConns         int32         `yaml:"min_conns"`
	MaxConnLifetime  time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime  time.Duration `yaml:"max_conn_idle_time"`
	DialTimeout      time.Duration `yaml:"dial_timeout"`
	StatementTimeout time.Duration `yaml:"statement_timeout"`
}

// StoreConfig holds record-store configuration
type StoreConfig struct {
	Path string `yaml:"path"`
}

// ExtractConfig holds per-document extraction configuration
type ExtractConfig struct {
	MaxChars          int     `yaml:"max_chars"`
	GroupConcurrency  int     `yaml:"group_concurrency"`
	FallbackThreshold float64 `yaml:"fallback_threshold"`
}

// BatchConfig holds batch retry and concurrency configuration
type BatchConfig struct {
	MaxAttempts          int           `yaml:"max_attempts"`
	BackoffBase          time.Duration `yaml:"backoff_base"`
	RateLimitBackoffBase time.Duration `yaml:"rate_limit_backoff_base"`
	MaxBackoff           time.Duration `yaml:"max_backoff"`
	Concurrency          int           `yaml:"concurrency"`
	DocumentTimeout      time.Duration `yaml:"document_timeout"`
}

// ServerConfig holds daemon configuration
type ServerConfig struct {
	GRPCAddr string `yaml:"grpc_addr"`
}

// WatchConfig holds directory-watch configuration for the daemon
type WatchConfig struct {
	Dir       string        `yaml:"dir"`
	Debounce  time.Duration `yaml:"debounce"`
	Workers   int           `yaml:"workers"`
	QueueSize int           `yaml:"queue_size"`
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json | text
}

// DefaultConfig returns built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:          "anthropic",
			Temperature:       0,
			MaxTokens:         4096,
			Timeout:           120 * time.Second,
			RequestsPerSecond: 2,
			Burst:             2,
		},
		Ledger: LedgerConfig{
			Driver:          "sqlite",
			DSN:             "contracts-ledger.db",
			MaxConns:        10,
			MinConns:        1,
			MaxConnLifetime: 30 * time.Minute,
			MaxConnIdleTime: 5 * time.Minute,
			DialTimeout:     5 * time.Second,
		},
		Store: StoreConfig{Path: "contracts.tsv"},
		Extract: ExtractConfig{
			MaxChars:          60000,
			GroupConcurrency:  1,
			FallbackThreshold: 0.3,
		},
		Batch: BatchConfig{
			MaxAttempts:          3,
			BackoffBase:          2 * time.Second,
			RateLimitBackoffBase: 30 * time.Second,
			MaxBackoff:           10 * time.Minute,
			Concurrency:          4,
			DocumentTimeout:      5 * time.Minute,
		},
		Server: ServerConfig{GRPCAddr: ":8080"},
		Watch: WatchConfig{
			Debounce:  500 * time.Millisecond,
			Workers:   2,
			QueueSize: 256,
		},
		Log: LogConfig{Level: "info", Format: "json"},
	}
}

// LoadConfig layers defaults, an optional YAML file and environment variables, in that order.
// An empty path falls back to CONTRACTS_CONFIG; no file at all is fine.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = os.Getenv("CONTRACTS_CONFIG")
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, NewAppError(CodeConfig, "read config file", err)
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, NewAppError(CodeConfig, fmt.Sprintf("parse config file %s", path), err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.LLM.Provider = strings.ToLower(getEnv("LLM_PROVIDER", c.LLM.Provider))
	c.LLM.Model = getEnv("LLM_MODEL", c.LLM.Model)
	c.LLM.BaseURL = getEnv("LLM_BASE_URL", c.LLM.BaseURL)
	c.LLM.Temperature = getEnvAsFloat32("LLM_TEMPERATURE", c.LLM.Temperature)
	c.LLM.Timeout = getEnvAsDuration("LLM_TIMEOUT", c.LLM.Timeout)
	c.LLM.RequestsPerSecond = getEnvAsFloat64("LLM_REQUESTS_PER_SECOND", c.LLM.RequestsPerSecond)
	if c.LLM.APIKey == "" {
		switch c.LLM.Provider {
		case "openai":
			c.LLM.APIKey = getEnv("OPENAI_API_KEY", "")
		default:
			c.LLM.APIKey = getEnv("ANTHROPIC_API_KEY", "")
		}
	}

	c.Ledger.Driver = strings.ToLower(getEnv("LEDGER_DRIVER", c.Ledger.Driver))
	c.Ledger.DSN = getEnv("LEDGER_DSN", c.Ledger.DSN)
	c.Ledger.MaxConns = getEnvAsInt32("LEDGER_MAX_CONNS", c.Ledger.MaxConns)
	c.Ledger.StatementTimeout = getEnvAsDuration("LEDGER_STATEMENT_TIMEOUT", c.Ledger.StatementTimeout)

	c.Store.Path = getEnv("STORE_PATH", c.Store.Path)

	c.Extract.MaxChars = getEnvAsInt("EXTRACT_MAX_CHARS", c.Extract.MaxChars)
	c.Extract.GroupConcurrency = getEnvAsInt("EXTRACT_GROUP_CONCURRENCY", c.Extract.GroupConcurrency)
	c.Extract.FallbackThreshold = getEnvAsFloat64("EXTRACT_FALLBACK_THRESHOLD", c.Extract.FallbackThreshold)

	c.Batch.MaxAttempts = getEnvAsInt("BATCH_MAX_ATTEMPTS", c.Batch.MaxAttempts)
	c.Batch.BackoffBase = getEnvAsDuration("BATCH_BACKOFF_BASE", c.Batch.BackoffBase)
	c.Batch.RateLimitBackoffBase = getEnvAsDuration("BATCH_RATE_LIMIT_BACKOFF_BASE", c.Batch.RateLimitBackoffBase)
	c.Batch.MaxBackoff = getEnvAsDuration("BATCH_MAX_BACKOFF", c.Batch.MaxBackoff)
	c.Batch.Concurrency = getEnvAsInt("BATCH_CONCURRENCY", c.Batch.Concurrency)
	c.Batch.DocumentTimeout = getEnvAsDuration("BATCH_DOCUMENT_TIMEOUT", c.Batch.DocumentTimeout)

	c.Server.GRPCAddr = getEnv("GRPC_ADDR", c.Server.GRPCAddr)
	c.Watch.Dir = getEnv("WATCH_DIR", c.Watch.Dir)

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate checks the settings every command needs. RequireLLM is false for commands
// that never call the text service (export, ledger, migrate).
func (c *Config) Validate(requireLLM bool) error {
	if requireLLM {
		switch c.LLM.Provider {
		case "anthropic", "openai":
		default:
			return NewAppError(CodeConfig, fmt.Sprintf("llm.provider must be anthropic or openai, got %q", c.LLM.Provider), ErrInvalidInput)
		}
		if c.LLM.APIKey == "" {
			return NewAppError(CodeConfig, "an API key for the llm provider is required", ErrInvalidInput)
		}
	}
	switch c.Ledger.Driver {
	case "sqlite", "postgres":
	default:
		return NewAppError(CodeConfig, fmt.Sprintf("ledger.driver must be sqlite or postgres, got %q", c.Ledger.Driver), ErrInvalidInput)
	}
	if c.Ledger.DSN == "" {
		return NewAppError(CodeConfig, "ledger.dsn is required", ErrInvalidInput)
	}
	if c.Store.Path == "" {
		return NewAppError(CodeConfig, "store.path is required", ErrInvalidInput)
	}
	if c.Batch.MaxAttempts < 1 {
		return NewAppError(CodeConfig, "batch.max_attempts must be at least 1", ErrInvalidInput)
	}
	if c.Batch.Concurrency < 1 {
		return NewAppError(CodeConfig, "batch.concurrency must be at least 1", ErrInvalidInput)
	}
	if c.Batch.BackoffBase < 0 || c.Batch.RateLimitBackoffBase < 0 || c.Batch.MaxBackoff < 0 {
		return NewAppError(CodeConfig, "batch backoff durations must not be negative", ErrInvalidInput)
	}
	if c.Extract.MaxChars < 1000 {
		return NewAppError(CodeConfig, "extract.max_chars must be at least 1000", ErrInvalidInput)
	}
	if c.Extract.FallbackThreshold < 0 || c.Extract.FallbackThreshold > 1 {
		return NewAppError(CodeConfig, "extract.fallback_threshold must be within [0,1]", ErrInvalidInput)
	}
	return nil
}
