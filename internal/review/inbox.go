package review

import (
	"context"
	"fmt"
	"slices"

	"github.com/MD412/project-arceus/internal/model"
	"github.com/MD412/project-arceus/internal/service"
)

// Inbox is the list of scans awaiting review as last reported by the
// backend, minus the scans hidden by optimistic actions.
type Inbox struct {
	cache   *QueryCache
	err     error
	hidden  map[string]bool // scan id -> action still in flight
	entries []model.InboxEntry
	state   LoadState
}

// NewInbox creates an idle inbox backed by cache.
func NewInbox(cache *QueryCache) *Inbox {
	if cache == nil {
		cache = NewQueryCache()
	}
	return &Inbox{
		cache:  cache,
		hidden: make(map[string]bool),
	}
}

// State returns the load state.
func (i *Inbox) State() LoadState {
	return i.state
}

// Err returns the error of the last failed load.
func (i *Inbox) Err() error {
	return i.err
}

// Cached returns the cached server list, if it has not been invalidated.
func (i *Inbox) Cached() ([]model.InboxEntry, bool) {
	return i.cache.Inbox()
}

// BeginLoad marks a fetch as started. Entries from the previous load stay
// available while loading.
func (i *Inbox) BeginLoad() {
	i.state = LoadLoading
}

// Loaded replaces the server list. Hidden scans that the server no longer
// reports are forgotten; hidden scans it still reports stay hidden only
// while their action is in flight.
func (i *Inbox) Loaded(entries []model.InboxEntry) {
	if entries == nil {
		entries = []model.InboxEntry{}
	}
	i.entries = slices.Clone(entries)
	i.state = LoadLoaded
	i.err = nil
	i.cache.Set(InboxKey, slices.Clone(entries))

	for id, inFlight := range i.hidden {
		if !inFlight || !i.serverHas(id) {
			delete(i.hidden, id)
		}
	}
}

// Failed records a failed fetch.
func (i *Inbox) Failed(err error) {
	i.state = LoadFailed
	i.err = err
}

// Invalidate drops the cached list so the next Load refetches.
func (i *Inbox) Invalidate() {
	i.cache.Invalidate(InboxKey)
}

// Load fetches the inbox through src unless a cached copy is available.
func (i *Inbox) Load(ctx context.Context, src service.InboxSource) error {
	if cached, ok := i.Cached(); ok {
		i.Loaded(cached)
		return nil
	}

	i.BeginLoad()
	entries, err := src.ListPendingScans(ctx)
	if err != nil {
		err = fmt.Errorf("failed to load inbox: %w", err)
		i.Failed(err)
		return err
	}
	i.Loaded(entries)
	return nil
}

// Visible returns the server list minus hidden scans, in server order.
func (i *Inbox) Visible() []model.InboxEntry {
	visible := make([]model.InboxEntry, 0, len(i.entries))
	for _, e := range i.entries {
		if _, hidden := i.hidden[e.ScanID]; !hidden {
			visible = append(visible, e)
		}
	}
	return visible
}

// Entry returns a visible entry by scan id.
func (i *Inbox) Entry(scanID string) (model.InboxEntry, bool) {
	if i.IsHidden(scanID) {
		return model.InboxEntry{}, false
	}
	for _, e := range i.entries {
		if e.ScanID == scanID {
			return e, true
		}
	}
	return model.InboxEntry{}, false
}

// IsHidden reports whether a scan is optimistically hidden.
func (i *Inbox) IsHidden(scanID string) bool {
	_, hidden := i.hidden[scanID]
	return hidden
}

// Hide removes a scan from the visible list while its action is in flight.
func (i *Inbox) Hide(scanID string) {
	i.hidden[scanID] = true
}

// Settle marks the action on a hidden scan as finished. The scan stays
// hidden until the next load no longer reports it.
func (i *Inbox) Settle(scanID string) {
	if _, ok := i.hidden[scanID]; ok {
		i.hidden[scanID] = false
	}
}

// Remove drops a scan from the server list, e.g. after it was deleted.
func (i *Inbox) Remove(scanID string) {
	delete(i.hidden, scanID)
	i.entries = slices.DeleteFunc(i.entries, func(e model.InboxEntry) bool {
		return e.ScanID == scanID
	})
}

func (i *Inbox) serverHas(scanID string) bool {
	return i.indexOf(scanID) >= 0
}

func (i *Inbox) indexOf(scanID string) int {
	return slices.IndexFunc(i.entries, func(e model.InboxEntry) bool {
		return e.ScanID == scanID
	})
}

// inboxSnapshot is what an optimistic hide needs to undo itself.
type inboxSnapshot struct {
	entry  model.InboxEntry
	scanID string
	index  int
	known  bool
}

func (i *Inbox) snapshot(scanID string) inboxSnapshot {
	snap := inboxSnapshot{scanID: scanID, index: i.indexOf(scanID)}
	if snap.index >= 0 {
		snap.entry = i.entries[snap.index]
		snap.known = true
	}
	return snap
}

// restore puts a scan back where it was. If a refetch dropped the entry in
// the meantime it is reinserted at its original position.
func (i *Inbox) restore(snap inboxSnapshot) {
	delete(i.hidden, snap.scanID)

	if !snap.known || i.serverHas(snap.scanID) {
		return
	}
	idx := min(max(snap.index, 0), len(i.entries))
	i.entries = slices.Insert(i.entries, idx, snap.entry)
}
