package hinsell

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Config holds the environment-driven client settings. Every field maps to a
// HINSELL_* variable so deployments configure the SDK without code changes.
type Config struct {
	BaseURL        string        `env:"HINSELL_BASE_URL,        default=https://api.hinsell.com"`
	APIKey         string        `env:"HINSELL_API_KEY"`
	Timeout        time.Duration `env:"HINSELL_TIMEOUT,         default=30s"`
	MaxRetries     int           `env:"HINSELL_MAX_RETRIES,     default=3"`
	InitialBackoff time.Duration `env:"HINSELL_INITIAL_BACKOFF, default=100ms"`
	MaxBackoff     time.Duration `env:"HINSELL_MAX_BACKOFF,     default=10s"`
	Jitter         float64       `env:"HINSELL_JITTER,          default=0.1"`
	CacheTTL       time.Duration `env:"HINSELL_CACHE_TTL,       default=0"`
	Deduplicate    bool          `env:"HINSELL_DEDUPLICATE,     default=true"`
	Debug          bool          `env:"HINSELL_DEBUG,           default=false"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("hinsell: loading config: %w", err)
	}
	return &cfg, nil
}

// Options expands the config into the option list New understands; extras are
// appended so callers can override.
func (cfg *Config) Options(extra ...Option) []Option {
	opts := []Option{
		WithBaseURL(cfg.BaseURL),
		WithAPIKey(cfg.APIKey),
		WithTimeout(cfg.Timeout),
		WithMaxRetries(cfg.MaxRetries),
		WithInitialBackoff(cfg.InitialBackoff),
		WithMaxBackoff(cfg.MaxBackoff),
		WithJitter(cfg.Jitter),
	}
	if cfg.CacheTTL > 0 {
		opts = append(opts, WithCache(cfg.CacheTTL))
	}
	if cfg.Deduplicate {
		opts = append(opts, WithDeduplication())
	}
	if cfg.Debug {
		opts = append(opts, WithSimpleLogger())
	}
	return append(opts, extra...)
}

// NewFromEnv builds a Client from environment variables.
func NewFromEnv(ctx context.Context, extra ...Option) (*Client, error) {
	cfg, err := LoadConfig(ctx)
	if err != nil {
		return nil, err
	}

	client := New(cfg.Options(extra...)...)
	if err := client.ValidationError(); err != nil {
		return nil, err
	}
	return client, nil
}
