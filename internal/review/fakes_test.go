package review

import (
	"context"
	"sync"
	"time"

	"github.com/MD412/project-arceus/internal/model"
)

// fakeBackend is a scriptable service.ReviewBackend.
type fakeBackend struct {
	approveErr   error
	statusErr    error
	searchResult []model.CardCandidate
	correctErr   error
	approveGate  chan struct{}
	inbox        []model.InboxEntry
	detections   map[string][]model.Detection
	approvals    map[string]int
	statuses     map[string]model.ScanStatus
	approveCalls int
	statusCalls  int
	inboxCalls   int
	detectCalls  int
	searchCalls  int
	approveDelay time.Duration
	mu           sync.Mutex
}

func newFakeBackend(entries ...model.InboxEntry) *fakeBackend {
	return &fakeBackend{
		inbox:      entries,
		detections: make(map[string][]model.Detection),
		approvals:  make(map[string]int),
		statuses:   make(map[string]model.ScanStatus),
	}
}

func (f *fakeBackend) ListPendingScans(_ context.Context) ([]model.InboxEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inboxCalls++
	return append([]model.InboxEntry(nil), f.inbox...), nil
}

func (f *fakeBackend) ListDetections(_ context.Context, scanID string) ([]model.Detection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.detectCalls++
	return append([]model.Detection(nil), f.detections[scanID]...), nil
}

func (f *fakeBackend) SearchCards(_ context.Context, _ string) ([]model.CardCandidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searchCalls++
	return f.searchResult, nil
}

func (f *fakeBackend) CorrectDetection(_ context.Context, _, _ string) error {
	return f.correctErr
}

func (f *fakeBackend) ApproveScan(ctx context.Context, scanID string) (model.ApprovalResult, error) {
	if f.approveGate != nil {
		select {
		case <-f.approveGate:
		case <-ctx.Done():
			return model.ApprovalResult{}, ctx.Err()
		}
	}
	if f.approveDelay > 0 {
		select {
		case <-time.After(f.approveDelay):
		case <-ctx.Done():
			return model.ApprovalResult{}, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.approveCalls++
	if f.approveErr != nil {
		return model.ApprovalResult{}, f.approveErr
	}
	count := 0
	for _, d := range f.detections[scanID] {
		if d.IsIdentified() {
			count++
		}
	}
	f.approvals[scanID]++
	return model.ApprovalResult{ApprovedCount: count}, nil
}

func (f *fakeBackend) UpdateScanStatus(_ context.Context, scanID string, status model.ScanStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls++
	if f.statusErr != nil {
		return f.statusErr
	}
	f.statuses[scanID] = status
	return nil
}

func (f *fakeBackend) RejectScan(ctx context.Context, scanID string) error {
	return f.UpdateScanStatus(ctx, scanID, model.ScanRejected)
}

func (f *fakeBackend) RenameScan(_ context.Context, _, _ string) error { return nil }
func (f *fakeBackend) DeleteScan(_ context.Context, _ string) error    { return nil }
func (f *fakeBackend) ListHistory(_ context.Context) ([]model.Scan, error) {
	return nil, nil
}

// abcInbox is the A(3), B(0), C(5) inbox, most recent first.
func abcInbox() []model.InboxEntry {
	base := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	return []model.InboxEntry{
		{ScanID: "A", Title: "Binder A", TotalDetections: 3, CreatedAt: base.Add(2 * time.Hour)},
		{ScanID: "B", Title: "Binder B", TotalDetections: 0, CreatedAt: base.Add(time.Hour)},
		{ScanID: "C", Title: "Binder C", TotalDetections: 5, CreatedAt: base},
	}
}

func ids(entries []model.InboxEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.ScanID)
	}
	return out
}

func identified(id, cardID string, confidence float64) model.Detection {
	c := confidence
	return model.Detection{
		ID:         id,
		CropURL:    "crops/" + id + ".jpg",
		Confidence: &c,
		Match:      model.Identified{Card: model.Card{ID: cardID, Name: cardID}},
	}
}

func unidentified(id string) model.Detection {
	return model.Detection{ID: id, CropURL: "crops/" + id + ".jpg", Match: model.Unidentified{}}
}
