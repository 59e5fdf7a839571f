// Package api exposes the review backend over HTTP and provides a client
// that implements the same backend interface against a remote server.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/MD412/project-arceus/internal/common"
)

// Error codes carried in error responses.
const (
	codeNotFound      = "not_found"
	codeScanLocked    = "scan_locked"
	codeNotReviewable = "not_reviewable"
	codeInvalidStatus = "invalid_status"
	codeInvalidInput  = "invalid_input"
	codeRateLimited   = "rate_limited"
	codeInternal      = "internal"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// codeFor maps a backend error to an HTTP status and error code.
func codeFor(err error) (int, string) {
	switch {
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound, codeNotFound
	case errors.Is(err, common.ErrScanLocked):
		return http.StatusConflict, codeScanLocked
	case errors.Is(err, common.ErrNotReviewable):
		return http.StatusConflict, codeNotReviewable
	case errors.Is(err, common.ErrInvalidStatus):
		return http.StatusBadRequest, codeInvalidStatus
	case errors.Is(err, common.ErrInvalidInput):
		return http.StatusBadRequest, codeInvalidInput
	case errors.Is(err, common.ErrRateLimit):
		return http.StatusTooManyRequests, codeRateLimited
	default:
		return http.StatusInternalServerError, codeInternal
	}
}

// sentinelFor maps an error code back to the error it came from.
func sentinelFor(code string) error {
	switch code {
	case codeNotFound:
		return common.ErrNotFound
	case codeScanLocked:
		return common.ErrScanLocked
	case codeNotReviewable:
		return common.ErrNotReviewable
	case codeInvalidStatus:
		return common.ErrInvalidStatus
	case codeInvalidInput:
		return common.ErrInvalidInput
	case codeRateLimited:
		return common.ErrRateLimit
	default:
		return common.ErrBackendFailure
	}
}

// decodeError turns a non-2xx response into an error that matches the
// server-side sentinel with errors.Is. Gateway errors are retryable.
func decodeError(resp *http.Response, method, path string) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var payload ErrorResponse
	if err := json.Unmarshal(body, &payload); err != nil || payload.Code == "" {
		payload = ErrorResponse{Message: http.StatusText(resp.StatusCode)}
	}

	err := fmt.Errorf("%s %s: %d %s: %w",
		method, path, resp.StatusCode, payload.Message, sentinelFor(payload.Code))

	switch resp.StatusCode {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return &common.RetryableError{Err: err, Retryable: true}
	}
	return err
}
