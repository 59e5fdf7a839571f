package tui

import (
	"context"
	"errors"
	"testing"

	"github.com/MD412/project-arceus/internal/common"
	"github.com/MD412/project-arceus/internal/model"
	"github.com/MD412/project-arceus/internal/review"
	"github.com/MD412/project-arceus/internal/testutil"
	tuitest "github.com/MD412/project-arceus/internal/tui/testing"
	"github.com/MD412/project-arceus/internal/tui/components"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RequiresBackend(t *testing.T) {
	_, err := New(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backend is required")
}

func TestModel_InitialLoadSelectsMostRecentScan(t *testing.T) {
	d := startTUI(t, newTestBackend(t, testutil.InboxScenario()))
	m := current(d)

	assert.Equal(t, "A", m.shell.Active())
	assert.Equal(t, []string{"A", "B", "C"}, visibleIDs(m))
	assert.Equal(t, review.LoadLoaded, m.detections.State())
	assert.Equal(t, 3, m.detections.Len())

	view := d.Plain()
	assert.Contains(t, view, "Inbox (3)")
	assert.True(t, tuitest.ContainsInOrder(view, "Scan A", "Scan B", "Scan C"))
	assert.Contains(t, view, "Charizard · BS 4/102")
	assert.Contains(t, view, components.UnidentifiedHint)
	assert.Contains(t, view, "low confidence", "a 75% match is flagged")
}

func TestModel_EmptyAndFailedInboxRenderDifferently(t *testing.T) {
	empty := startTUI(t, newTestBackend(t, testutil.Fixture{Cards: testutil.SampleCatalog()}))
	assert.Contains(t, empty.Plain(), "No scans awaiting review")
	assert.Equal(t, "", current(empty).shell.Active())

	backend := newTestBackend(t, testutil.InboxScenario())
	backend.listErr = &common.RetryableError{Err: errors.New("connection refused")}
	failed := startTUI(t, backend)

	view := failed.Plain()
	assert.Contains(t, view, "Could not load inbox")
	assert.NotContains(t, view, "No scans awaiting review")
	assert.Equal(t, review.LoadFailed, current(failed).inbox.State())

	backend.listErr = nil
	failed.Send(tuitest.KeyPress("r"))
	assert.Equal(t, []string{"A", "B", "C"}, visibleIDs(current(failed)))
	assert.Equal(t, "A", current(failed).shell.Active())
}

func TestModel_InboxNavigationLoadsDetections(t *testing.T) {
	d := startTUI(t, newTestBackend(t, testutil.InboxScenario()))

	d.Send(tuitest.KeyDown())
	m := current(d)
	assert.Equal(t, "B", m.shell.Active())
	assert.Contains(t, d.Plain(), "No cards were detected in this scan")

	d.Send(tuitest.KeyDown())
	m = current(d)
	assert.Equal(t, "C", m.shell.Active())
	assert.Equal(t, 5, m.detections.Len())

	d.Send(tuitest.KeyDown())
	assert.Equal(t, "C", current(d).shell.Active(), "selection stops at the last scan")

	d.Send(tuitest.KeyUp(), tuitest.KeyUp())
	assert.Equal(t, "A", current(d).shell.Active())
}

func TestModel_ApproveHidesScanBeforeBackendCall(t *testing.T) {
	backend := newTestBackend(t, testutil.InboxScenario())
	d := startTUI(t, backend)

	cmd := d.Step(tuitest.KeyPress("a"))
	require.NotNil(t, cmd)

	m := current(d)
	assert.Equal(t, 0, backend.approveHits, "nothing reached the backend yet")
	assert.Equal(t, []string{"B", "C"}, visibleIDs(m))
	assert.Equal(t, "B", m.shell.Active(), "selection moves to the next scan")
	assert.NotContains(t, d.Plain(), "Scan A")

	d.Run(cmd)
	m = current(d)
	assert.Equal(t, 1, backend.approveHits)
	assert.Equal(t, []string{"B", "C"}, visibleIDs(m))
	assert.Equal(t, "Approved 2 cards", m.notice.Message)
	assert.Equal(t, review.NoticeInfo, m.notice.Level)

	entries, err := backend.ListCollection(context.Background())
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	scan, err := backend.GetScan(context.Background(), "A")
	require.NoError(t, err)
	assert.Equal(t, model.ScanCompleted, scan.Status)
	assert.NotNil(t, scan.ApprovedAt)
}

func TestModel_ApproveEmptyScan(t *testing.T) {
	backend := newTestBackend(t, testutil.InboxScenario())
	d := startTUI(t, backend)

	d.Send(tuitest.KeyDown(), tuitest.KeyPress("a"))
	m := current(d)
	assert.Equal(t, "Approved 0 cards", m.notice.Message)
	assert.Equal(t, []string{"A", "C"}, visibleIDs(m))
	assert.Equal(t, "C", m.shell.Active())
}

func TestModel_ApproveFailureRestoresScanAndSelection(t *testing.T) {
	backend := newTestBackend(t, testutil.InboxScenario())
	backend.approveErr = errors.New("backend unavailable")
	d := startTUI(t, backend)

	cmd := d.Step(tuitest.KeyPress("a"))
	assert.Equal(t, []string{"B", "C"}, visibleIDs(current(d)))

	d.Run(cmd)
	m := current(d)
	assert.Equal(t, []string{"A", "B", "C"}, visibleIDs(m), "scan reappears at its original position")
	assert.Equal(t, "A", m.shell.Active())
	assert.Equal(t, review.NoticeError, m.notice.Level)
	assert.Contains(t, m.notice.Message, "Could not approve scan")
	assert.Contains(t, d.Plain(), "Could not approve scan")

	entries, err := backend.ListCollection(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestModel_Discard(t *testing.T) {
	backend := newTestBackend(t, testutil.InboxScenario())
	d := startTUI(t, backend)

	d.Send(tuitest.KeyPress("x"))
	m := current(d)
	assert.Equal(t, "Scan discarded", m.notice.Message)
	assert.Equal(t, []string{"B", "C"}, visibleIDs(m))
	assert.Zero(t, backend.approveHits)

	scan, err := backend.GetScan(context.Background(), "A")
	require.NoError(t, err)
	assert.Equal(t, model.ScanRejected, scan.Status)
}

func TestModel_DismissNotice(t *testing.T) {
	d := startTUI(t, newTestBackend(t, testutil.InboxScenario()))

	d.Send(tuitest.KeyPress("x"))
	require.False(t, current(d).notice.IsZero())

	d.Send(tuitest.KeyEsc())
	assert.True(t, current(d).notice.IsZero())
	assert.NotContains(t, d.Plain(), "Scan discarded")
}

func TestModel_CorrectionPanelReplacesMatch(t *testing.T) {
	backend := newTestBackend(t, testutil.InboxScenario())
	d := startTUI(t, backend)

	d.Send(tuitest.KeyRight(), tuitest.KeyEnter())
	m := current(d)
	require.Equal(t, StateCorrecting, m.state)
	assert.True(t, m.router.Active())
	view := d.Plain()
	assert.Contains(t, view, "Detection 2 of 3")
	assert.Contains(t, view, "Unidentified")
	assert.Contains(t, view, "Original crop")
	assert.Contains(t, view, "crops/A/1.jpg")

	d.Send(tuitest.KeyPress("r"))
	d.Send(tuitest.Type("m")...)
	assert.Contains(t, d.Plain(), "type at least 2 characters")
	assert.Empty(t, backend.searches, "one character never reaches search")

	d.Send(tuitest.Type("ew")...)
	assert.Equal(t, []string{"me", "mew"}, backend.searches)
	assert.Contains(t, d.Plain(), "Mew · FO 15/62")

	d.Send(tuitest.KeyEnter())
	m = current(d)
	assert.Equal(t, StateCorrecting, m.state, "panel stays open on the new identification")
	assert.Equal(t, review.PanelReview, m.panel.Mode())
	card, ok := m.panel.Detection().IdentifiedCard()
	require.True(t, ok)
	assert.Equal(t, "fossil-15", card.ID)
	assert.Equal(t, "Linked Mew · FO 15/62", m.notice.Message)

	items := m.detections.Items()
	require.Len(t, items, 3)
	assert.Equal(t, []string{"A-d0", "A-d1", "A-d2"}, []string{items[0].ID, items[1].ID, items[2].ID})
	assert.True(t, items[1].IsIdentified())

	stored, err := backend.ListDetections(context.Background(), "A")
	require.NoError(t, err)
	linked, ok := stored[1].IdentifiedCard()
	require.True(t, ok)
	assert.Equal(t, "fossil-15", linked.ID)

	d.Send(tuitest.KeyEsc())
	m = current(d)
	assert.Equal(t, StateReview, m.state)
	assert.False(t, m.router.Active(), "navigation is removed with the panel")
	assert.Contains(t, d.Plain(), "Mew · FO 15/62")
}

// A failed approval hands the selection back while a correction on the
// next scan is still committing. The correction must not be lost.
func TestModel_CorrectionLandsAfterSelectionRestored(t *testing.T) {
	backend := newTestBackend(t, testutil.InboxScenario())
	backend.approveErr = errors.New("backend unavailable")
	d := startTUI(t, backend)

	// Visit C so its detections are cached, then come back to B.
	d.Send(tuitest.KeyDown(), tuitest.KeyDown(), tuitest.KeyUp())
	require.Equal(t, "B", current(d).shell.Active())

	approve := d.Step(tuitest.KeyPress("a"))
	require.Equal(t, "C", current(d).shell.Active())

	d.Send(tuitest.KeyRight(), tuitest.KeyEnter(), tuitest.KeyPress("r"))
	d.Send(tuitest.Type("mew")...)
	require.Equal(t, "C-d1", current(d).panel.Detection().ID)
	correct := d.Step(tuitest.KeyEnter())

	d.Run(approve)
	m := current(d)
	require.Equal(t, "B", m.shell.Active(), "failed approval restores the selection")
	assert.Nil(t, m.panel)

	d.Run(correct)
	assert.Equal(t, "Linked Mew · FO 15/62", current(d).notice.Message)

	d.Send(tuitest.KeyDown())
	m = current(d)
	require.Equal(t, "C", m.shell.Active())
	items := m.detections.Items()
	require.Len(t, items, 5)
	card, ok := items[1].IdentifiedCard()
	require.True(t, ok, "C shows the committed link")
	assert.Equal(t, "fossil-15", card.ID)
}

func TestModel_CorrectionForHiddenScanInvalidatesItsCache(t *testing.T) {
	backend := newTestBackend(t, testutil.InboxScenario())
	d := startTUI(t, backend)

	d.Send(tuitest.KeyDown(), tuitest.KeyDown(), tuitest.KeyUp(), tuitest.KeyUp())
	m := current(d)
	require.Equal(t, "A", m.shell.Active())
	_, cached := m.detections.Cached("C")
	require.True(t, cached)

	mew := testutil.SampleCatalog()[4]
	require.NoError(t, backend.CorrectDetection(context.Background(), "C-d1", mew.ID))
	d.Send(correctionDoneMsg{scanID: "C", detectionID: "C-d1", card: mew})

	m = current(d)
	_, cached = m.detections.Cached("C")
	assert.False(t, cached)
	assert.Equal(t, "A", m.detections.ScanID())
	assert.False(t, m.detections.Items()[1].IsIdentified(), "A is untouched")

	d.Send(tuitest.KeyDown(), tuitest.KeyDown())
	card, ok := current(d).detections.Items()[1].IdentifiedCard()
	require.True(t, ok)
	assert.Equal(t, "fossil-15", card.ID)
}

func TestModel_CorrectionFailureKeepsReplaceMode(t *testing.T) {
	backend := newTestBackend(t, testutil.InboxScenario())
	backend.correctErr = common.ErrScanLocked
	d := startTUI(t, backend)

	d.Send(tuitest.KeyEnter(), tuitest.KeyPress("r"))
	d.Send(tuitest.Type("mew")...)
	d.Send(tuitest.KeyEnter())

	m := current(d)
	assert.Equal(t, review.PanelReplace, m.panel.Mode())
	require.Error(t, m.panel.CommitErr())
	assert.Contains(t, d.Plain(), "Could not update detection")

	card, ok := m.panel.Detection().IdentifiedCard()
	require.True(t, ok)
	assert.Equal(t, "base1-4", card.ID, "link unchanged")
}

func TestModel_CorrectionNavigationWrapsAround(t *testing.T) {
	d := startTUI(t, newTestBackend(t, testutil.InboxScenario()))

	d.Send(tuitest.KeyEnter())
	require.Contains(t, d.Plain(), "Detection 1 of 3")

	d.Send(tuitest.KeyLeft())
	assert.Contains(t, d.Plain(), "Detection 3 of 3")
	assert.Equal(t, "A-d2", current(d).panel.Detection().ID)

	d.Send(tuitest.KeyRight())
	assert.Contains(t, d.Plain(), "Detection 1 of 3")

	d.Send(tuitest.KeyRight(), tuitest.KeyRight(), tuitest.KeyRight())
	assert.Contains(t, d.Plain(), "Detection 1 of 3")
}

func TestModel_ArrowsStayInSearchInput(t *testing.T) {
	d := startTUI(t, newTestBackend(t, testutil.InboxScenario()))

	d.Send(tuitest.KeyEnter(), tuitest.KeyPress("r"))
	assert.Equal(t, review.FocusTextInput, current(d).router.Focus())

	d.Send(tuitest.KeyLeft(), tuitest.KeyRight())
	m := current(d)
	assert.Equal(t, "A-d0", m.panel.Detection().ID)
	assert.Equal(t, 0, m.detections.EditingIndex())

	d.Send(tuitest.KeyEsc())
	assert.Equal(t, review.FocusNone, current(d).router.Focus())
	d.Send(tuitest.KeyRight())
	assert.Equal(t, "A-d1", current(d).panel.Detection().ID)
}

func TestModel_DeleteRequiresConfirmation(t *testing.T) {
	backend := newTestBackend(t, testutil.InboxScenario())
	d := startTUI(t, backend)

	d.Send(tuitest.KeyPress("D"))
	require.Equal(t, StateConfirmDelete, current(d).state)
	assert.Contains(t, d.Plain(), `Delete "Scan A"?`)

	d.Send(tuitest.KeyPress("n"))
	assert.Equal(t, StateReview, current(d).state)
	assert.Equal(t, []string{"A", "B", "C"}, visibleIDs(current(d)))

	d.Send(tuitest.KeyPress("D"), tuitest.KeyPress("y"))
	m := current(d)
	assert.Equal(t, []string{"B", "C"}, visibleIDs(m))
	assert.Equal(t, "B", m.shell.Active())
	assert.Equal(t, "Scan deleted", m.notice.Message)

	_, err := backend.GetScan(context.Background(), "A")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestModel_DeleteFailureKeepsScan(t *testing.T) {
	backend := newTestBackend(t, testutil.InboxScenario())
	backend.deleteErr = errors.New("disk full")
	d := startTUI(t, backend)

	d.Send(tuitest.KeyPress("D"), tuitest.KeyPress("y"))
	m := current(d)
	assert.Equal(t, []string{"A", "B", "C"}, visibleIDs(m))
	assert.Equal(t, review.NoticeError, m.notice.Level)
	assert.Contains(t, m.notice.Message, "Could not delete scan")
}

func TestModel_Rename(t *testing.T) {
	backend := newTestBackend(t, testutil.InboxScenario())
	d := startTUI(t, backend)

	d.Send(tuitest.KeyPress("e"))
	require.Equal(t, StateRenaming, current(d).state)
	for i := 0; i < len("Scan A"); i++ {
		d.Send(tuitest.KeyBackspace())
	}
	d.Send(tuitest.Type("Binder page 1")...)
	d.Send(tuitest.KeyEnter())

	m := current(d)
	assert.Equal(t, StateReview, m.state)
	entry, ok := m.inbox.Entry("A")
	require.True(t, ok)
	assert.Equal(t, "Binder page 1", entry.Title)
	assert.Contains(t, d.Plain(), "Binder page 1")
}

func TestModel_RenameRejectsEmptyTitle(t *testing.T) {
	d := startTUI(t, newTestBackend(t, testutil.InboxScenario()))

	d.Send(tuitest.KeyPress("e"))
	for i := 0; i < len("Scan A"); i++ {
		d.Send(tuitest.KeyBackspace())
	}
	d.Send(tuitest.KeyEnter())

	m := current(d)
	assert.Equal(t, StateRenaming, m.state)
	assert.Equal(t, review.NoticeWarning, m.notice.Level)
}

func TestModel_HistoryView(t *testing.T) {
	backend := newTestBackend(t, testutil.InboxScenario())
	d := startTUI(t, backend)

	d.Send(tuitest.KeyPress("a"), tuitest.KeyPress("x"), tuitest.KeyTab())
	m := current(d)
	require.Equal(t, review.ViewHistory, m.shell.View())

	view := d.Plain()
	assert.Contains(t, view, "History (2)")
	assert.Contains(t, view, "completed")
	assert.Contains(t, view, "rejected")

	d.Send(tuitest.KeyTab())
	assert.Equal(t, review.ViewReview, current(d).shell.View())
	assert.Contains(t, d.Plain(), "Inbox (1)")
}

func TestModel_Help(t *testing.T) {
	d := startTUI(t, newTestBackend(t, testutil.InboxScenario()))

	d.Send(tuitest.KeyPress("?"))
	assert.Equal(t, StateHelp, current(d).state)
	view := d.Plain()
	assert.Contains(t, view, "Keyboard shortcuts")
	assert.Contains(t, view, "approve all")

	d.Send(tuitest.KeyEsc())
	assert.Equal(t, StateReview, current(d).state)
}

func TestModel_Quit(t *testing.T) {
	d := startTUI(t, newTestBackend(t, testutil.InboxScenario()))

	d.Send(tuitest.KeyPress("q"))
	assert.True(t, d.Quit)
	assert.Empty(t, d.View())
}
