package review

import (
	"slices"

	"github.com/MD412/project-arceus/internal/model"
)

// ViewMode is the top-level view of the review screen.
type ViewMode int

// View modes.
const (
	ViewReview ViewMode = iota
	ViewHistory
)

func (v ViewMode) String() string {
	if v == ViewHistory {
		return "history"
	}
	return "review"
}

// Shell owns the active scan and hands selection off when the active scan
// disappears from the inbox.
type Shell struct {
	inbox         *Inbox
	coordinator   *Coordinator
	handoffs      map[string]handoff
	active        string
	pendingDelete string
	view          ViewMode
}

// handoff remembers the selection change made when a scan was hidden.
type handoff struct {
	previous string
	next     string
}

// NewShell creates a shell over inbox and coordinator.
func NewShell(inbox *Inbox, coordinator *Coordinator) *Shell {
	return &Shell{
		inbox:       inbox,
		coordinator: coordinator,
		handoffs:    make(map[string]handoff),
	}
}

// Active returns the active scan id, or "" when none is selected.
func (s *Shell) Active() string {
	return s.active
}

// Select makes scanID active. Hidden or unknown scans cannot be selected.
func (s *Shell) Select(scanID string) bool {
	if _, ok := s.inbox.Entry(scanID); !ok {
		return false
	}
	s.active = scanID
	return true
}

// View returns the current view mode.
func (s *Shell) View() ViewMode {
	return s.view
}

// SetView switches between review and history.
func (s *Shell) SetView(v ViewMode) {
	s.view = v
}

// Sync reconciles the selection with the visible inbox. With nothing
// active the first entry is selected; an active scan that vanished hands
// off to its neighbour.
func (s *Shell) Sync(previous []model.InboxEntry) {
	visible := s.inbox.Visible()
	if s.active == "" {
		if len(visible) > 0 {
			s.active = visible[0].ScanID
		}
		return
	}
	if _, ok := s.inbox.Entry(s.active); ok {
		return
	}
	s.active = successor(previous, visible, s.active)
}

// RequestApprove starts an optimistic approval of scanID.
func (s *Shell) RequestApprove(scanID string) bool {
	return s.request(ActionApprove, scanID)
}

// RequestDiscard starts an optimistic discard of scanID.
func (s *Shell) RequestDiscard(scanID string) bool {
	return s.request(ActionDiscard, scanID)
}

func (s *Shell) request(action Action, scanID string) bool {
	before := s.inbox.Visible()
	if !s.coordinator.Begin(action, scanID) {
		return false
	}

	h := handoff{previous: s.active, next: s.active}
	if s.active == scanID {
		h.next = successor(before, s.inbox.Visible(), scanID)
		s.active = h.next
	}
	s.handoffs[scanID] = h
	return true
}

// Complete settles an action. When it failed and the user has not moved
// the selection since the handoff, the previous selection is restored.
func (s *Shell) Complete(out Outcome) Notice {
	notice := s.coordinator.Finish(out)

	h, ok := s.handoffs[out.ScanID]
	delete(s.handoffs, out.ScanID)
	if ok && out.Err != nil && s.active == h.next {
		if _, visible := s.inbox.Entry(h.previous); visible {
			s.active = h.previous
		}
	}
	return notice
}

// RequestDelete asks for confirmation before deleting scanID.
func (s *Shell) RequestDelete(scanID string) {
	s.pendingDelete = scanID
}

// PendingDelete returns the scan awaiting delete confirmation.
func (s *Shell) PendingDelete() string {
	return s.pendingDelete
}

// ConfirmDelete returns the scan to delete and clears the confirmation.
func (s *Shell) ConfirmDelete() (string, bool) {
	id := s.pendingDelete
	s.pendingDelete = ""
	return id, id != ""
}

// CancelDelete drops the pending confirmation.
func (s *Shell) CancelDelete() {
	s.pendingDelete = ""
}

// Deleted removes a deleted scan from the inbox and moves the selection.
func (s *Shell) Deleted(scanID string) {
	before := s.inbox.Visible()
	s.inbox.Remove(scanID)
	s.inbox.Invalidate()
	if s.active == scanID {
		s.active = successor(before, s.inbox.Visible(), scanID)
	}
}

// successor picks the scan to select once removed left the list: the entry
// after it in the previous order, else the one before, else none.
func successor(before, after []model.InboxEntry, removed string) string {
	idx := slices.IndexFunc(before, func(e model.InboxEntry) bool { return e.ScanID == removed })
	if idx < 0 {
		if len(after) > 0 {
			return after[0].ScanID
		}
		return ""
	}

	remaining := make(map[string]bool, len(after))
	for _, e := range after {
		remaining[e.ScanID] = true
	}
	for _, e := range before[idx+1:] {
		if remaining[e.ScanID] {
			return e.ScanID
		}
	}
	for j := idx - 1; j >= 0; j-- {
		if remaining[before[j].ScanID] {
			return before[j].ScanID
		}
	}
	return ""
}
