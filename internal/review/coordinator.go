package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/MD412/project-arceus/internal/common"
	"github.com/MD412/project-arceus/internal/model"
	"github.com/MD412/project-arceus/internal/service"
)

// ErrActionInFlight is returned when a scan already has an approve or
// discard outstanding.
var ErrActionInFlight = errors.New("an action is already in progress for this scan")

// Action is a bulk action applied to a whole scan.
type Action int

// Bulk actions.
const (
	ActionApprove Action = iota
	ActionDiscard
)

func (a Action) String() string {
	switch a {
	case ActionApprove:
		return "approve"
	case ActionDiscard:
		return "discard"
	default:
		return "unknown"
	}
}

// Outcome is the result of running an action against the backend.
type Outcome struct {
	Err       error
	StatusErr error
	ScanID    string
	Result    model.ApprovalResult
	Action    Action
}

// Coordinator applies approve and discard optimistically: the scan is
// hidden from the inbox before the backend is called and restored if the
// call fails. At most one action per scan is outstanding at a time.
// The in-flight guard is safe for concurrent use.
type Coordinator struct {
	backend  service.ScanReviewer
	inbox    *Inbox
	cache    *QueryCache
	inFlight map[string]*Optimistic[inboxSnapshot]
	timeout  time.Duration
	mu       sync.Mutex
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithActionTimeout bounds each backend call. A timeout counts as failure.
func WithActionTimeout(d time.Duration) CoordinatorOption {
	return func(c *Coordinator) {
		c.timeout = d
	}
}

// NewCoordinator creates a coordinator that hides scans from inbox.
func NewCoordinator(backend service.ScanReviewer, inbox *Inbox, cache *QueryCache, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		backend:  backend,
		inbox:    inbox,
		cache:    cache,
		inFlight: make(map[string]*Optimistic[inboxSnapshot]),
		timeout:  30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// InFlight reports whether scanID has an outstanding action.
func (c *Coordinator) InFlight(scanID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.inFlight[scanID]
	return ok
}

// Begin claims scanID and hides it from the inbox. It returns false, and
// changes nothing, when an action for the scan is already outstanding.
func (c *Coordinator) Begin(action Action, scanID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, busy := c.inFlight[scanID]; busy {
		slog.Debug("Ignoring duplicate scan action", "scan_id", scanID, "action", action)
		return false
	}

	c.inFlight[scanID] = ApplyOptimistic(
		func() inboxSnapshot { return c.inbox.snapshot(scanID) },
		func() { c.inbox.Hide(scanID) },
		c.inbox.restore,
	)
	return true
}

// Run performs the backend calls for an action. It touches no shared state
// and may run on any goroutine.
func (c *Coordinator) Run(ctx context.Context, action Action, scanID string) Outcome {
	out := Outcome{Action: action, ScanID: scanID}

	switch action {
	case ActionApprove:
		out.Err = c.call(ctx, func(ctx context.Context) error {
			var err error
			out.Result, err = c.backend.ApproveScan(ctx, scanID)
			return err
		})
		if out.Err != nil {
			break
		}
		// The approval is committed; the status label is cosmetic.
		out.StatusErr = c.call(ctx, func(ctx context.Context) error {
			return c.backend.UpdateScanStatus(ctx, scanID, model.ScanCompleted)
		})
	case ActionDiscard:
		out.Err = c.call(ctx, func(ctx context.Context) error {
			return c.backend.RejectScan(ctx, scanID)
		})
	default:
		out.Err = fmt.Errorf("unknown action %d: %w", action, common.ErrInvalidInput)
	}
	return out
}

func (c *Coordinator) call(ctx context.Context, fn func(context.Context) error) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	return fn(ctx)
}

// Finish settles an action started with Begin. On failure the scan
// reappears at its original position. Either way the inbox cache is
// invalidated so the caller can refetch.
func (c *Coordinator) Finish(out Outcome) Notice {
	c.mu.Lock()
	undo, ok := c.inFlight[out.ScanID]
	delete(c.inFlight, out.ScanID)

	if ok {
		if out.Err != nil {
			undo.Rollback()
		} else {
			undo.Commit()
			c.inbox.Settle(out.ScanID)
		}
	}
	c.mu.Unlock()

	c.cache.Invalidate(InboxKey)

	if out.Err != nil {
		slog.Error("Scan action failed",
			"scan_id", out.ScanID,
			"action", out.Action,
			"error", out.Err)
		return Notice{
			Level:   NoticeError,
			Message: fmt.Sprintf("Could not %s scan: %s", out.Action, common.UserMessage(out.Err)),
		}
	}

	c.cache.Invalidate(DetectionsKey(out.ScanID))
	if out.StatusErr != nil {
		slog.Warn("Scan approved but status update failed",
			"scan_id", out.ScanID,
			"error", out.StatusErr)
	}

	switch out.Action {
	case ActionApprove:
		slog.Info("Scan approved", "scan_id", out.ScanID, "approved_count", out.Result.ApprovedCount)
		return Notice{
			Level:   NoticeInfo,
			Message: fmt.Sprintf("Approved %d %s", out.Result.ApprovedCount, pluralize("card", out.Result.ApprovedCount)),
		}
	default:
		slog.Info("Scan discarded", "scan_id", out.ScanID)
		return Notice{Level: NoticeInfo, Message: "Scan discarded"}
	}
}

// ApproveAll runs a whole approval synchronously.
func (c *Coordinator) ApproveAll(ctx context.Context, scanID string) (model.ApprovalResult, error) {
	out, err := c.runSync(ctx, ActionApprove, scanID)
	return out.Result, err
}

// Discard rejects a scan synchronously.
func (c *Coordinator) Discard(ctx context.Context, scanID string) error {
	_, err := c.runSync(ctx, ActionDiscard, scanID)
	return err
}

func (c *Coordinator) runSync(ctx context.Context, action Action, scanID string) (Outcome, error) {
	if !c.Begin(action, scanID) {
		return Outcome{}, fmt.Errorf("scan %s: %w", scanID, ErrActionInFlight)
	}
	out := c.Run(ctx, action, scanID)
	c.Finish(out)
	return out, out.Err
}

func pluralize(word string, n int) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
