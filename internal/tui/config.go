package tui

import (
	"time"

	"github.com/MD412/project-arceus/internal/review"
	"github.com/MD412/project-arceus/internal/service"
	"github.com/MD412/project-arceus/internal/tui/themes"
)

// Config holds TUI configuration.
type Config struct {
	Theme                  themes.Theme
	Backend                service.ReviewBackend
	Cache                  *review.QueryCache
	RequestTimeout         time.Duration
	ActionTimeout          time.Duration
	LowConfidenceThreshold float64
	MinQueryLength         int
	Width                  int
	Height                 int
	EnableAnimations       bool
	ShowHelp               bool
}

// Option is a functional option for configuring the TUI.
type Option func(*Config)

// defaultConfig returns the default configuration.
func defaultConfig() Config {
	return Config{
		Theme:                  themes.Default,
		RequestTimeout:         15 * time.Second,
		ActionTimeout:          30 * time.Second,
		LowConfidenceThreshold: review.DefaultLowConfidenceThreshold,
		MinQueryLength:         service.MinSearchQueryLength,
		Width:                  120,
		Height:                 32,
		EnableAnimations:       true,
		ShowHelp:               true,
	}
}

// WithBackend sets the review backend, local storage or a remote client.
func WithBackend(backend service.ReviewBackend) Option {
	return func(c *Config) {
		c.Backend = backend
	}
}

// WithCache shares a query cache with the TUI.
func WithCache(cache *review.QueryCache) Option {
	return func(c *Config) {
		c.Cache = cache
	}
}

// WithTheme sets the visual theme.
func WithTheme(theme themes.Theme) Option {
	return func(c *Config) {
		c.Theme = theme
	}
}

// WithSize sets the initial terminal size.
func WithSize(width, height int) Option {
	return func(c *Config) {
		c.Width = width
		c.Height = height
	}
}

// WithRequestTimeout bounds every backend read and edit.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.RequestTimeout = d
		}
	}
}

// WithActionTimeout bounds approve and discard calls.
func WithActionTimeout(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.ActionTimeout = d
		}
	}
}

// WithLowConfidenceThreshold sets the confidence below which tiles are flagged.
func WithLowConfidenceThreshold(threshold float64) Option {
	return func(c *Config) {
		c.LowConfidenceThreshold = threshold
	}
}

// WithMinQueryLength sets the shortest card search query.
func WithMinQueryLength(n int) Option {
	return func(c *Config) {
		c.MinQueryLength = n
	}
}

// WithAnimations toggles spinners and cursor blinking.
func WithAnimations(enabled bool) Option {
	return func(c *Config) {
		c.EnableAnimations = enabled
	}
}
