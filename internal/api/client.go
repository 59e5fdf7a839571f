package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/MD412/project-arceus/internal/common"
	"github.com/MD412/project-arceus/internal/model"
	"github.com/MD412/project-arceus/internal/resilience"
	"github.com/MD412/project-arceus/internal/service"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

var _ service.ReviewBackend = (*Client)(nil)

// Client talks to an arceus API server.
type Client struct {
	http        *http.Client
	exec        *resilience.Executor
	limiter     *rate.Limiter
	searchCache *gocache.Cache
	baseURL     string
	searchTTL   time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.http = hc
	}
}

// WithExecutor replaces the retry and circuit breaker policy.
func WithExecutor(exec *resilience.Executor) ClientOption {
	return func(c *Client) {
		c.exec = exec
	}
}

// WithSearchRateLimit bounds how many card searches are sent per second.
func WithSearchRateLimit(perSecond float64, burst int) ClientOption {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), max(burst, 1))
	}
}

// WithSearchCacheTTL sets how long search results are reused. Zero
// disables the cache.
func WithSearchCacheTTL(ttl time.Duration) ClientOption {
	return func(c *Client) {
		c.searchTTL = ttl
	}
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: backend url %q", common.ErrInvalidConfig, baseURL)
	}

	c := &Client{
		baseURL:   strings.TrimRight(u.String(), "/"),
		http:      &http.Client{Timeout: 15 * time.Second},
		exec:      resilience.NewExecutor(resilience.DefaultConfig()),
		limiter:   rate.NewLimiter(rate.Limit(5), 3),
		searchTTL: 5 * time.Minute,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.searchTTL > 0 {
		// No janitor goroutine: expired entries are skipped on read and
		// replaced on write.
		c.searchCache = gocache.New(c.searchTTL, 0)
	}
	return c, nil
}

// ListPendingScans implements service.InboxSource.
func (c *Client) ListPendingScans(ctx context.Context) ([]model.InboxEntry, error) {
	var entries []model.InboxEntry
	err := c.do(ctx, "list_pending", http.MethodGet, "/inbox", nil, &entries)
	return entries, err
}

// ListHistory implements service.HistorySource.
func (c *Client) ListHistory(ctx context.Context) ([]model.Scan, error) {
	var scans []model.Scan
	err := c.do(ctx, "list_history", http.MethodGet, "/history", nil, &scans)
	return scans, err
}

// ListDetections implements service.DetectionSource.
func (c *Client) ListDetections(ctx context.Context, scanID string) ([]model.Detection, error) {
	var detections []model.Detection
	err := c.do(ctx, "list_detections", http.MethodGet, "/scans/"+url.PathEscape(scanID)+"/detections", nil, &detections)
	return detections, err
}

// SearchCards implements service.CardSearcher. Queries shorter than
// service.MinSearchQueryLength return nil without a request.
func (c *Client) SearchCards(ctx context.Context, query string) ([]model.CardCandidate, error) {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < service.MinSearchQueryLength {
		return nil, nil
	}

	key := strings.ToLower(query)
	if c.searchCache != nil {
		if cached, ok := c.searchCache.Get(key); ok {
			if results, ok := cached.([]model.CardCandidate); ok {
				slog.Debug("Card search served from cache", "query", query)
				return results, nil
			}
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("search rate limiter: %w", err)
	}

	var results []model.CardCandidate
	path := "/cards/search?q=" + url.QueryEscape(query)
	if err := c.do(ctx, "search_cards", http.MethodGet, path, nil, &results); err != nil {
		return nil, err
	}

	if c.searchCache != nil {
		c.searchCache.SetDefault(key, results)
	}
	return results, nil
}

// CorrectDetection implements service.DetectionCorrector.
func (c *Client) CorrectDetection(ctx context.Context, detectionID, cardID string) error {
	body := CorrectDetectionRequest{CardID: cardID}
	return c.do(ctx, "correct_detection", http.MethodPut, "/detections/"+url.PathEscape(detectionID)+"/card", body, nil)
}

// ApproveScan implements service.ScanReviewer. The server treats repeated
// approvals as no-ops, so the call is safe to retry.
func (c *Client) ApproveScan(ctx context.Context, scanID string) (model.ApprovalResult, error) {
	var result model.ApprovalResult
	err := c.do(ctx, "approve_scan", http.MethodPost, "/scans/"+url.PathEscape(scanID)+"/approve", nil, &result)
	return result, err
}

// UpdateScanStatus implements service.ScanReviewer.
func (c *Client) UpdateScanStatus(ctx context.Context, scanID string, status model.ScanStatus) error {
	body := UpdateStatusRequest{Status: string(status)}
	return c.do(ctx, "update_status", http.MethodPut, "/scans/"+url.PathEscape(scanID)+"/status", body, nil)
}

// RejectScan implements service.ScanReviewer. Rejecting a rejected scan is a
// no-op on the server.
func (c *Client) RejectScan(ctx context.Context, scanID string) error {
	return c.do(ctx, "reject_scan", http.MethodPost, "/scans/"+url.PathEscape(scanID)+"/reject", nil, nil)
}

// RenameScan implements service.ScanEditor.
func (c *Client) RenameScan(ctx context.Context, scanID, title string) error {
	body := RenameScanRequest{Title: title}
	return c.do(ctx, "rename_scan", http.MethodPatch, "/scans/"+url.PathEscape(scanID), body, nil)
}

// DeleteScan implements service.ScanEditor.
func (c *Client) DeleteScan(ctx context.Context, scanID string) error {
	return c.do(ctx, "delete_scan", http.MethodDelete, "/scans/"+url.PathEscape(scanID), nil, nil)
}

// do sends one request through the resilience executor and decodes a JSON
// response into out when out is non-nil.
func (c *Client) do(ctx context.Context, operation, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode %s request: %w", operation, err)
		}
	}

	return c.exec.Execute(ctx, operation, func(ctx context.Context) error {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+apiPrefix+path, reader)
		if err != nil {
			return fmt.Errorf("failed to build %s request: %w", operation, err)
		}
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return classifyTransportError(operation, err)
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return decodeError(resp, method, apiPrefix+path)
		}
		if out == nil || resp.StatusCode == http.StatusNoContent {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode %s response: %w", operation, err)
		}
		return nil
	}, nil)
}

// classifyTransportError marks network failures as retryable.
func classifyTransportError(operation string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return &common.RetryableError{Err: fmt.Errorf("%s: %w", operation, err), Retryable: true}
	}
	return fmt.Errorf("%s: %w", operation, err)
}
