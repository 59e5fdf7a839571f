// Package resilience wraps backend calls in retries and circuit breakers.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/MD412/project-arceus/internal/common"
	"github.com/sony/gobreaker/v2"
)

// ErrCircuitOpen is returned while an operation's breaker rejects calls.
var ErrCircuitOpen = errors.New("backend temporarily unavailable")

// Classification decides how an error is treated.
type Classification struct {
	// Retryable errors are attempted again.
	Retryable bool
	// CountsAsFailure errors move the breaker toward opening. Errors the
	// caller caused, such as not found or invalid input, do not.
	CountsAsFailure bool
}

// Classifier maps an error to a Classification.
type Classifier func(err error) Classification

// DefaultClassifier retries transient errors and counts everything except
// caller mistakes and cancellation against the breaker.
func DefaultClassifier(err error) Classification {
	switch {
	case errors.Is(err, context.Canceled):
		return Classification{}
	case errors.Is(err, common.ErrNotFound),
		errors.Is(err, common.ErrInvalidInput),
		errors.Is(err, common.ErrInvalidStatus),
		errors.Is(err, common.ErrScanLocked),
		errors.Is(err, common.ErrNotReviewable):
		return Classification{}
	}
	return Classification{
		Retryable:       common.IsRetryable(err),
		CountsAsFailure: true,
	}
}

// Executor runs named operations with retries behind one breaker per name.
type Executor struct {
	breakers map[string]*gobreaker.CircuitBreaker[struct{}]
	cfg      Config
	mu       sync.Mutex
}

// NewExecutor creates an executor. Zero config fields take defaults.
func NewExecutor(cfg Config) *Executor {
	return &Executor{
		cfg:      cfg.withDefaults(),
		breakers: make(map[string]*gobreaker.CircuitBreaker[struct{}]),
	}
}

// Execute runs fn under operation's breaker, retrying as classify allows.
// A nil classify uses DefaultClassifier.
func (e *Executor) Execute(ctx context.Context, operation string, fn func(context.Context) error, classify Classifier) error {
	if fn == nil {
		return fmt.Errorf("resilience: nil operation %q", operation)
	}
	op := strings.TrimSpace(operation)
	if op == "" {
		op = "unknown"
	}
	if classify == nil {
		classify = DefaultClassifier
	}

	if !e.cfg.BreakerEnabled {
		return e.retry(ctx, fn, classify)
	}

	_, err := e.breaker(op, classify).Execute(func() (struct{}, error) {
		return struct{}{}, e.retry(ctx, fn, classify)
	})
	if IsCircuitOpen(err) {
		return fmt.Errorf("%s: %w: %w", op, ErrCircuitOpen, err)
	}
	return err
}

// Do is Execute for operations that produce a value.
func Do[T any](ctx context.Context, e *Executor, operation string, fn func(context.Context) (T, error)) (T, error) {
	var result T
	err := e.Execute(ctx, operation, func(ctx context.Context) error {
		var err error
		result, err = fn(ctx)
		return err
	}, nil)
	return result, err
}

func (e *Executor) retry(ctx context.Context, fn func(context.Context) error, classify Classifier) error {
	err := common.WithRetry(ctx, func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return fn(ctx)
	}, common.RetryOptions{
		MaxAttempts:  e.cfg.RetryMaxAttempts,
		InitialDelay: e.cfg.RetryInitialBackoff,
		MaxDelay:     e.cfg.RetryMaxBackoff,
		Multiplier:   e.cfg.RetryMultiplier,
		ShouldRetry:  func(err error) bool { return classify(err).Retryable },
	})
	return err
}

func (e *Executor) breaker(operation string, classify Classifier) *gobreaker.CircuitBreaker[struct{}] {
	e.mu.Lock()
	defer e.mu.Unlock()

	if cb, ok := e.breakers[operation]; ok {
		return cb
	}

	cfg := e.cfg
	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        operation,
		MaxRequests: cfg.BreakerHalfOpenMaxCalls,
		Timeout:     cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.BreakerMinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.BreakerFailureRatio
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !classify(err).CountsAsFailure
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("Circuit breaker changed state",
				"operation", name,
				"from", from.String(),
				"to", to.String())
		},
	})
	e.breakers[operation] = cb
	return cb
}

// State returns the breaker state of operation, or closed if unused.
func (e *Executor) State(operation string) gobreaker.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	if cb, ok := e.breakers[operation]; ok {
		return cb.State()
	}
	return gobreaker.StateClosed
}

// IsCircuitOpen reports whether err came from a rejecting breaker.
func IsCircuitOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
