package components

import (
	"fmt"
	"slices"
	"strings"

	"github.com/MD412/project-arceus/internal/common"
	"github.com/MD412/project-arceus/internal/model"
	"github.com/MD412/project-arceus/internal/review"
	"github.com/MD412/project-arceus/internal/tui/themes"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// InboxModel renders the scans awaiting review.
type InboxModel struct {
	theme   themes.Theme
	err     error
	active  string
	entries []model.InboxEntry
	state   review.LoadState
	width   int
	height  int
}

// NewInboxModel creates an empty inbox view.
func NewInboxModel(theme themes.Theme) InboxModel {
	return InboxModel{
		theme:  theme,
		width:  32,
		height: 20,
	}
}

// SetEntries replaces the visible entries and the active scan.
func (m *InboxModel) SetEntries(entries []model.InboxEntry, active string) {
	m.entries = entries
	m.active = active
}

// SetState records the load state of the inbox.
func (m *InboxModel) SetState(state review.LoadState, err error) {
	m.state = state
	m.err = err
}

// Resize updates the available space.
func (m *InboxModel) Resize(width, height int) {
	m.width = width
	m.height = height
}

// Update handles messages. Selection changes are requested through
// ScanSelectedMsg; the active scan itself is owned by the caller.
func (m InboxModel) Update(msg tea.Msg) (InboxModel, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok || len(m.entries) == 0 {
		return m, nil
	}

	idx := m.activeIndex()
	target := idx
	switch keyMsg.String() {
	case "j", "down":
		target = min(idx+1, len(m.entries)-1)
	case "k", "up":
		target = max(idx-1, 0)
	case "g", "home":
		target = 0
	case "G", "end":
		target = len(m.entries) - 1
	default:
		return m, nil
	}

	if target == idx && idx >= 0 {
		return m, nil
	}
	scanID := m.entries[max(target, 0)].ScanID
	return m, func() tea.Msg {
		return ScanSelectedMsg{ScanID: scanID}
	}
}

func (m InboxModel) activeIndex() int {
	return slices.IndexFunc(m.entries, func(e model.InboxEntry) bool {
		return e.ScanID == m.active
	})
}

// View renders the inbox.
func (m InboxModel) View() string {
	header := m.theme.Title.Render(fmt.Sprintf("Inbox (%d)", len(m.entries)))

	var body string
	switch {
	case m.state == review.LoadFailed:
		body = lipgloss.JoinVertical(
			lipgloss.Left,
			m.theme.StatusError.Render("Could not load inbox"),
			m.theme.Normal.Render(common.UserMessage(m.err)),
			"",
			lipgloss.NewStyle().Foreground(m.theme.Muted).Render("Press r to retry"),
		)
	case len(m.entries) == 0 && m.state != review.LoadLoaded:
		body = m.theme.StatusPending.Render("Loading scans...")
	case len(m.entries) == 0:
		body = lipgloss.NewStyle().Foreground(m.theme.Muted).Render("No scans awaiting review")
	default:
		body = m.renderEntries()
	}

	return lipgloss.NewStyle().
		Width(m.width).
		Render(lipgloss.JoinVertical(lipgloss.Left, header, body))
}

func (m InboxModel) renderEntries() string {
	// Each entry takes two lines; the header takes two more.
	capacity := max((m.height-2)/2, 1)
	start := 0
	if idx := m.activeIndex(); idx >= capacity {
		start = idx - capacity + 1
	}
	end := min(start+capacity, len(m.entries))

	lines := make([]string, 0, (end-start)*2)
	for _, e := range m.entries[start:end] {
		title := truncate(e.Title, m.width-2)
		meta := fmt.Sprintf("%d %s · %s",
			e.TotalDetections, plural("card", e.TotalDetections), e.CreatedAt.Local().Format("Jan 02 15:04"))

		if e.ScanID == m.active {
			lines = append(lines,
				m.theme.Selected.Render("▸ "+title),
				lipgloss.NewStyle().Foreground(m.theme.Secondary).Render("  "+meta))
			continue
		}
		lines = append(lines,
			m.theme.Normal.Render("  "+title),
			lipgloss.NewStyle().Foreground(m.theme.Muted).Render("  "+meta))
	}
	return strings.Join(lines, "\n")
}

func truncate(s string, width int) string {
	if width <= 1 || lipgloss.Width(s) <= width {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 && lipgloss.Width(string(runes)) > width-1 {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "…"
}

func plural(word string, n int) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
