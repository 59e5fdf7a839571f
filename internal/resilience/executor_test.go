package resilience

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/MD412/project-arceus/internal/common"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig() Config {
	return Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     2 * time.Millisecond,
		RetryMultiplier:     2,
	}
}

func TestExecute_RetriesTransientFailure(t *testing.T) {
	exec := NewExecutor(fastConfig())

	attempts := 0
	err := exec.Execute(context.Background(), "list_pending", func(context.Context) error {
		attempts++
		if attempts < 3 {
			return &common.RetryableError{Err: errors.New("503"), Retryable: true}
		}
		return nil
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestExecute_DoesNotRetryCallerErrors(t *testing.T) {
	exec := NewExecutor(fastConfig())

	for _, sentinel := range []error{common.ErrNotFound, common.ErrScanLocked, common.ErrInvalidInput} {
		attempts := 0
		err := exec.Execute(context.Background(), "correct_detection", func(context.Context) error {
			attempts++
			return fmt.Errorf("wrapped: %w", sentinel)
		}, nil)

		assert.ErrorIs(t, err, sentinel)
		assert.Equal(t, 1, attempts, "%v must not be retried", sentinel)
	}
}

func TestExecute_OpensCircuit(t *testing.T) {
	cfg := fastConfig()
	cfg.RetryMaxAttempts = 1
	cfg.BreakerEnabled = true
	cfg.BreakerMinRequests = 2
	cfg.BreakerFailureRatio = 0.5
	cfg.BreakerOpenTimeout = time.Minute
	exec := NewExecutor(cfg)

	boom := errors.New("connection reset")
	for i := 0; i < 2; i++ {
		err := exec.Execute(context.Background(), "approve_scan", func(context.Context) error { return boom }, nil)
		require.ErrorIs(t, err, boom)
	}
	assert.Equal(t, gobreaker.StateOpen, exec.State("approve_scan"))

	err := exec.Execute(context.Background(), "approve_scan", func(context.Context) error {
		t.Fatal("operation must not run while the circuit is open")
		return nil
	}, nil)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.True(t, IsCircuitOpen(err))

	assert.Equal(t, gobreaker.StateClosed, exec.State("search_cards"), "breakers are per operation")
}

func TestExecute_CallerErrorsDoNotTripBreaker(t *testing.T) {
	cfg := fastConfig()
	cfg.RetryMaxAttempts = 1
	cfg.BreakerEnabled = true
	cfg.BreakerMinRequests = 1
	exec := NewExecutor(cfg)

	for i := 0; i < 5; i++ {
		_ = exec.Execute(context.Background(), "list_detections", func(context.Context) error {
			return common.ErrNotFound
		}, nil)
	}
	assert.Equal(t, gobreaker.StateClosed, exec.State("list_detections"))
}

func TestExecute_StopsOnCancelledContext(t *testing.T) {
	exec := NewExecutor(fastConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := exec.Execute(ctx, "op", func(context.Context) error {
		called = true
		return nil
	}, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestDo_ReturnsValue(t *testing.T) {
	exec := NewExecutor(fastConfig())
	got, err := Do(context.Background(), exec, "count", func(context.Context) (int, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, got)
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{RetryInitialBackoff: time.Second}.withDefaults()
	assert.Equal(t, 3, cfg.RetryMaxAttempts)
	assert.Equal(t, time.Second, cfg.RetryMaxBackoff)
	assert.InDelta(t, 2.0, cfg.RetryMultiplier, 1e-9)
	assert.False(t, cfg.BreakerEnabled)
}
