package tui

import (
	"context"

	"github.com/MD412/project-arceus/internal/common"
	"github.com/MD412/project-arceus/internal/model"
	"github.com/MD412/project-arceus/internal/review"
	tea "github.com/charmbracelet/bubbletea"
)

// requestContext bounds one backend read or write.
func (m Model) requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(m.ctx, m.config.RequestTimeout)
}

// loadInbox fetches the pending scans. Results are tagged so an older
// fetch finishing late cannot overwrite a newer one.
func (m *Model) loadInbox() tea.Cmd {
	m.inboxSeq++
	seq := m.inboxSeq
	m.inbox.BeginLoad()

	backend, scope := m.backend, m.requestContext
	return func() tea.Msg {
		ctx, cancel := scope()
		defer cancel()

		entries, err := backend.ListPendingScans(ctx)
		return inboxLoadedMsg{seq: seq, entries: entries, err: err}
	}
}

// loadDetections fetches the detections of scanID.
func (m Model) loadDetections(scanID string) tea.Cmd {
	backend := m.backend
	return func() tea.Msg {
		ctx, cancel := m.requestContext()
		defer cancel()

		detections, err := backend.ListDetections(ctx, scanID)
		return detectionsLoadedMsg{scanID: scanID, detections: detections, err: err}
	}
}

// loadHistory fetches scans that left the inbox.
func (m Model) loadHistory() tea.Cmd {
	backend := m.backend
	return func() tea.Msg {
		ctx, cancel := m.requestContext()
		defer cancel()

		scans, err := backend.ListHistory(ctx)
		return historyLoadedMsg{scans: scans, err: err}
	}
}

// searchCards queries the catalog for the correction panel.
func (m Model) searchCards(seq int, query string) tea.Cmd {
	backend := m.backend
	return func() tea.Msg {
		ctx, cancel := m.requestContext()
		defer cancel()

		results, err := backend.SearchCards(ctx, query)
		return searchResultsMsg{seq: seq, results: results, err: err}
	}
}

// correctDetection relinks a detection of scanID.
func (m Model) correctDetection(scanID, detectionID string, card model.Card) tea.Cmd {
	backend := m.backend
	return func() tea.Msg {
		ctx, cancel := m.requestContext()
		defer cancel()

		err := backend.CorrectDetection(ctx, detectionID, card.ID)
		if err != nil {
			common.LogError(err, "Failed to correct detection", common.Fields{
				"detection_id": detectionID,
				"card_id":      card.ID,
			})
		}
		return correctionDoneMsg{scanID: scanID, detectionID: detectionID, card: card, err: err}
	}
}

// runAction performs the backend half of an approve or discard that was
// already applied optimistically.
func (m Model) runAction(action review.Action, scanID string) tea.Cmd {
	coordinator := m.coordinator
	ctx := m.ctx
	return func() tea.Msg {
		return actionDoneMsg{outcome: coordinator.Run(ctx, action, scanID)}
	}
}

// renameScan retitles a scan.
func (m Model) renameScan(scanID, title string) tea.Cmd {
	backend := m.backend
	return func() tea.Msg {
		ctx, cancel := m.requestContext()
		defer cancel()

		err := backend.RenameScan(ctx, scanID, title)
		return scanEditedMsg{op: opRename, scanID: scanID, title: title, err: err}
	}
}

// deleteScan removes a scan.
func (m Model) deleteScan(scanID string) tea.Cmd {
	backend := m.backend
	return func() tea.Msg {
		ctx, cancel := m.requestContext()
		defer cancel()

		err := backend.DeleteScan(ctx, scanID)
		return scanEditedMsg{op: opDelete, scanID: scanID, err: err}
	}
}
