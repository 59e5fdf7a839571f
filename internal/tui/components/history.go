package components

import (
	"fmt"
	"strconv"

	"github.com/MD412/project-arceus/internal/common"
	"github.com/MD412/project-arceus/internal/model"
	"github.com/MD412/project-arceus/internal/review"
	"github.com/MD412/project-arceus/internal/tui/themes"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// HistoryModel is a read-only table of scans that left the inbox.
type HistoryModel struct {
	theme  themes.Theme
	err    error
	scans  []model.Scan
	table  table.Model
	state  review.LoadState
	width  int
	height int
}

// NewHistoryModel creates an empty history table.
func NewHistoryModel(theme themes.Theme) HistoryModel {
	t := table.New(
		table.WithColumns(historyColumns(80)),
		table.WithFocused(true),
		table.WithHeight(15),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(theme.Border).
		BorderBottom(true).
		Bold(false)
	s.Selected = theme.Selected
	t.SetStyles(s)

	return HistoryModel{
		theme:  theme,
		table:  t,
		width:  80,
		height: 20,
	}
}

func historyColumns(width int) []table.Column {
	fixed := 14 + 7 + 13 + 13
	return []table.Column{
		{Title: "Title", Width: max(width-fixed-10, 12)},
		{Title: "Status", Width: 14},
		{Title: "Cards", Width: 7},
		{Title: "Approved", Width: 13},
		{Title: "Updated", Width: 13},
	}
}

// SetScans replaces the rows.
func (m *HistoryModel) SetScans(scans []model.Scan) {
	m.scans = scans
	rows := make([]table.Row, 0, len(scans))
	for _, s := range scans {
		approved := "-"
		if s.ApprovedAt != nil {
			approved = s.ApprovedAt.Local().Format("Jan 02 15:04")
		}
		rows = append(rows, table.Row{
			s.Title,
			historyStatus(s),
			strconv.Itoa(s.DetectionCount),
			approved,
			s.UpdatedAt.Local().Format("Jan 02 15:04"),
		})
	}
	m.table.SetRows(rows)
}

// historyStatus labels scans whose approval landed before the status update.
func historyStatus(s model.Scan) string {
	if s.Status == model.ScanReviewPending && s.ApprovedAt != nil {
		return "approved"
	}
	return string(s.Status)
}

// SetState records the load state of the history.
func (m *HistoryModel) SetState(state review.LoadState, err error) {
	m.state = state
	m.err = err
}

// Resize updates the available space.
func (m *HistoryModel) Resize(width, height int) {
	m.width = width
	m.height = height
	m.table.SetColumns(historyColumns(width))
	m.table.SetHeight(max(height-4, 3))
}

// Update handles messages.
func (m HistoryModel) Update(msg tea.Msg) (HistoryModel, tea.Cmd) {
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// View renders the history.
func (m HistoryModel) View() string {
	header := m.theme.Title.Render(fmt.Sprintf("History (%d)", len(m.scans)))
	muted := lipgloss.NewStyle().Foreground(m.theme.Muted)

	var body string
	switch {
	case m.state == review.LoadFailed:
		body = lipgloss.JoinVertical(
			lipgloss.Left,
			m.theme.StatusError.Render("Could not load history"),
			m.theme.Normal.Render(common.UserMessage(m.err)),
			"",
			muted.Render("Press r to retry"),
		)
	case len(m.scans) == 0 && m.state != review.LoadLoaded:
		body = m.theme.StatusPending.Render("Loading history...")
	case len(m.scans) == 0:
		body = muted.Render("No reviewed scans yet")
	default:
		body = m.table.View()
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, body)
}
