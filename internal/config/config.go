// Package config loads arceus settings from flags, environment and the
// config file.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/MD412/project-arceus/internal/common"
	"github.com/MD412/project-arceus/internal/resilience"
	"github.com/MD412/project-arceus/internal/review"
	"github.com/MD412/project-arceus/internal/service"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. ARCEUS_BACKEND_URL.
const EnvPrefix = "ARCEUS"

// Config is the resolved application configuration.
type Config struct {
	Logging    LoggingConfig
	Backend    BackendConfig
	Database   DatabaseConfig
	Server     ServerConfig
	Search     SearchConfig
	Resilience resilience.Config
	Review     ReviewConfig
}

// DatabaseConfig locates the local SQLite database.
type DatabaseConfig struct {
	Path string
}

// BackendConfig selects a remote server. An empty URL means local mode.
type BackendConfig struct {
	URL     string
	Timeout time.Duration
}

// Remote reports whether a remote server is configured.
func (b BackendConfig) Remote() bool {
	return b.URL != ""
}

// ReviewConfig tunes the review screen.
type ReviewConfig struct {
	LowConfidenceThreshold float64
	MinQueryLength         int
}

// ServerConfig configures `arceus serve`.
type ServerConfig struct {
	Addr string
}

// SearchConfig configures remote card search.
type SearchConfig struct {
	CacheTTL  time.Duration
	RateLimit float64
	Burst     int
}

// LoggingConfig configures slog.
type LoggingConfig struct {
	Level  string
	Format string
	File   string
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	res := resilience.DefaultConfig()

	v.SetDefault("database.path", "~/.local/share/arceus/arceus.db")
	v.SetDefault("backend.url", "")
	v.SetDefault("backend.timeout", 15*time.Second)
	v.SetDefault("review.low_confidence_threshold", review.DefaultLowConfidenceThreshold)
	v.SetDefault("review.min_query_length", service.MinSearchQueryLength)
	v.SetDefault("server.addr", "127.0.0.1:8787")
	v.SetDefault("search.cache_ttl", 5*time.Minute)
	v.SetDefault("search.rate_limit", 5.0)
	v.SetDefault("search.burst", 3)
	v.SetDefault("resilience.retry_max_attempts", res.RetryMaxAttempts)
	v.SetDefault("resilience.retry_initial_backoff", res.RetryInitialBackoff)
	v.SetDefault("resilience.retry_max_backoff", res.RetryMaxBackoff)
	v.SetDefault("resilience.breaker_enabled", res.BreakerEnabled)
	v.SetDefault("resilience.breaker_min_requests", res.BreakerMinRequests)
	v.SetDefault("resilience.breaker_failure_ratio", res.BreakerFailureRatio)
	v.SetDefault("resilience.breaker_open_timeout", res.BreakerOpenTimeout)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.file", "~/.local/share/arceus/arceus.log")
}

// Load resolves the configuration from v. Values come from, in order of
// precedence, flags bound to v, ARCEUS_* environment variables, the config
// file, and defaults.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Database: DatabaseConfig{
			Path: ExpandPath(v.GetString("database.path")),
		},
		Backend: BackendConfig{
			URL:     strings.TrimRight(strings.TrimSpace(v.GetString("backend.url")), "/"),
			Timeout: v.GetDuration("backend.timeout"),
		},
		Review: ReviewConfig{
			LowConfidenceThreshold: v.GetFloat64("review.low_confidence_threshold"),
			MinQueryLength:         max(v.GetInt("review.min_query_length"), service.MinSearchQueryLength),
		},
		Server: ServerConfig{
			Addr: v.GetString("server.addr"),
		},
		Search: SearchConfig{
			CacheTTL:  v.GetDuration("search.cache_ttl"),
			RateLimit: v.GetFloat64("search.rate_limit"),
			Burst:     v.GetInt("search.burst"),
		},
		Resilience: resilience.Config{
			RetryMaxAttempts:    v.GetInt("resilience.retry_max_attempts"),
			RetryInitialBackoff: v.GetDuration("resilience.retry_initial_backoff"),
			RetryMaxBackoff:     v.GetDuration("resilience.retry_max_backoff"),
			BreakerEnabled:      v.GetBool("resilience.breaker_enabled"),
			BreakerMinRequests:  v.GetUint32("resilience.breaker_min_requests"),
			BreakerFailureRatio: v.GetFloat64("resilience.breaker_failure_ratio"),
			BreakerOpenTimeout:  v.GetDuration("resilience.breaker_open_timeout"),
		},
		Logging: LoggingConfig{
			Level:  strings.ToLower(v.GetString("logging.level")),
			Format: strings.ToLower(v.GetString("logging.format")),
			File:   ExpandPath(v.GetString("logging.file")),
		},
	}

	// Fall back to the conventional variable used by the pipeline tooling.
	if cfg.Backend.URL == "" {
		cfg.Backend.URL = strings.TrimRight(os.Getenv("ARCEUS_API_URL"), "/")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if !c.Backend.Remote() && c.Database.Path == "" {
		return fmt.Errorf("%w: database.path or backend.url is required", common.ErrMissingConfig)
	}
	if t := c.Review.LowConfidenceThreshold; t <= 0 || t > 1 {
		return fmt.Errorf("%w: review.low_confidence_threshold must be in (0, 1], got %v", common.ErrInvalidConfig, t)
	}
	if c.Backend.Timeout <= 0 {
		return fmt.Errorf("%w: backend.timeout must be positive", common.ErrInvalidConfig)
	}
	if c.Search.RateLimit < 0 || c.Search.Burst < 0 {
		return fmt.Errorf("%w: search limits must not be negative", common.ErrInvalidConfig)
	}
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("%w: logging.format %q", common.ErrInvalidConfig, c.Logging.Format)
	}
	if _, err := common.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("%w: %w", common.ErrInvalidConfig, err)
	}
	return nil
}
