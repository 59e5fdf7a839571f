package common

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserMessage(t *testing.T) {
	tests := []struct {
		err  error
		name string
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{name: "user error", err: NewUserError("could not save", errors.New("disk full")), want: "could not save"},
		{name: "timeout", err: fmt.Errorf("approve: %w", context.DeadlineExceeded), want: "request timed out"},
		{name: "locked", err: fmt.Errorf("correct: %w", ErrScanLocked), want: "scan was already approved"},
		{name: "plain", err: errors.New("boom"), want: "boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, UserMessage(tt.err))
		})
	}
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(ErrRateLimit))
	assert.True(t, IsRetryable(fmt.Errorf("wrapped: %w", context.DeadlineExceeded)))
	assert.True(t, IsRetryable(&RetryableError{Err: errors.New("busy"), Retryable: true}))
	assert.False(t, IsRetryable(&RetryableError{Err: errors.New("bad"), Retryable: false}))
	assert.False(t, IsRetryable(ErrNotFound))
}
