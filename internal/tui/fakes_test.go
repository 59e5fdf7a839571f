package tui

import (
	"context"
	"testing"

	"github.com/MD412/project-arceus/internal/model"
	"github.com/MD412/project-arceus/internal/storage"
	"github.com/MD412/project-arceus/internal/testutil"
	tuitest "github.com/MD412/project-arceus/internal/tui/testing"
	"github.com/stretchr/testify/require"
)

// testBackend is a seeded SQLite store with failure injection.
type testBackend struct {
	*storage.SQLiteStorage
	listErr     error
	approveErr  error
	correctErr  error
	deleteErr   error
	searches    []string
	approveHits int
}

func (b *testBackend) ListPendingScans(ctx context.Context) ([]model.InboxEntry, error) {
	if b.listErr != nil {
		return nil, b.listErr
	}
	return b.SQLiteStorage.ListPendingScans(ctx)
}

func (b *testBackend) SearchCards(ctx context.Context, query string) ([]model.CardCandidate, error) {
	b.searches = append(b.searches, query)
	return b.SQLiteStorage.SearchCards(ctx, query)
}

func (b *testBackend) ApproveScan(ctx context.Context, scanID string) (model.ApprovalResult, error) {
	b.approveHits++
	if b.approveErr != nil {
		return model.ApprovalResult{}, b.approveErr
	}
	return b.SQLiteStorage.ApproveScan(ctx, scanID)
}

func (b *testBackend) CorrectDetection(ctx context.Context, detectionID, cardID string) error {
	if b.correctErr != nil {
		return b.correctErr
	}
	return b.SQLiteStorage.CorrectDetection(ctx, detectionID, cardID)
}

func (b *testBackend) DeleteScan(ctx context.Context, scanID string) error {
	if b.deleteErr != nil {
		return b.deleteErr
	}
	return b.SQLiteStorage.DeleteScan(ctx, scanID)
}

func newTestBackend(t *testing.T, fixture testutil.Fixture) *testBackend {
	t.Helper()
	db := testutil.SetupTestDB(t, fixture)
	return &testBackend{SQLiteStorage: db.Storage}
}

// startTUI builds a model over backend and runs its initial loads.
func startTUI(t *testing.T, backend *testBackend, opts ...Option) *tuitest.Driver {
	t.Helper()
	opts = append([]Option{
		WithBackend(backend),
		WithAnimations(false),
		WithSize(140, 40),
	}, opts...)

	m, err := New(context.Background(), opts...)
	require.NoError(t, err)
	return tuitest.NewDriver(m).Init()
}

func current(d *tuitest.Driver) Model {
	return d.Model.(Model)
}

func visibleIDs(m Model) []string {
	var ids []string
	for _, e := range m.inbox.Visible() {
		ids = append(ids, e.ScanID)
	}
	return ids
}
