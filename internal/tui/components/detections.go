package components

import (
	"fmt"

	"github.com/MD412/project-arceus/internal/common"
	"github.com/MD412/project-arceus/internal/review"
	"github.com/MD412/project-arceus/internal/tui/themes"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// UnidentifiedHint is shown on tiles without a linked card.
const UnidentifiedHint = "unidentified — press enter to correct"

const tileWidth = 41

// DetectionGridModel renders the detections of the active scan as tiles.
type DetectionGridModel struct {
	theme  themes.Theme
	err    error
	title  string
	tiles  []review.Tile
	state  review.LoadState
	cursor int
	width  int
	height int
}

// NewDetectionGridModel creates an empty grid.
func NewDetectionGridModel(theme themes.Theme) DetectionGridModel {
	return DetectionGridModel{
		theme:  theme,
		width:  80,
		height: 20,
	}
}

// SetTiles replaces the tiles, keeping the cursor in range.
func (m *DetectionGridModel) SetTiles(title string, tiles []review.Tile) {
	if title != m.title {
		m.cursor = 0
	}
	m.title = title
	m.tiles = tiles
	m.cursor = min(m.cursor, max(len(tiles)-1, 0))
}

// SetState records the load state of the detections.
func (m *DetectionGridModel) SetState(state review.LoadState, err error) {
	m.state = state
	m.err = err
}

// Cursor returns the highlighted tile.
func (m DetectionGridModel) Cursor() int {
	return m.cursor
}

// SetCursor highlights tile i.
func (m *DetectionGridModel) SetCursor(i int) {
	if i >= 0 && i < len(m.tiles) {
		m.cursor = i
	}
}

// Resize updates the available space.
func (m *DetectionGridModel) Resize(width, height int) {
	m.width = width
	m.height = height
}

// Update handles messages.
func (m DetectionGridModel) Update(msg tea.Msg) (DetectionGridModel, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok || len(m.tiles) == 0 {
		return m, nil
	}

	switch keyMsg.String() {
	case "l", "right":
		m.cursor = min(m.cursor+1, len(m.tiles)-1)
	case "h", "left":
		m.cursor = max(m.cursor-1, 0)
	case "enter":
		idx := m.cursor
		return m, func() tea.Msg {
			return DetectionOpenMsg{Index: idx}
		}
	}
	return m, nil
}

// View renders the grid.
func (m DetectionGridModel) View() string {
	header := m.theme.Title.Render(m.title)
	if m.title == "" {
		header = m.theme.Title.Render("Detections")
	}

	var body string
	switch {
	case m.state == review.LoadIdle:
		body = lipgloss.NewStyle().Foreground(m.theme.Muted).Render("Select a scan to review")
	case m.state == review.LoadFailed:
		body = lipgloss.JoinVertical(
			lipgloss.Left,
			m.theme.StatusError.Render("Could not load detections"),
			m.theme.Normal.Render(common.UserMessage(m.err)),
			"",
			lipgloss.NewStyle().Foreground(m.theme.Muted).Render("Press r to retry"),
		)
	case m.state == review.LoadLoading && len(m.tiles) == 0:
		body = m.theme.StatusPending.Render("Loading detections...")
	case len(m.tiles) == 0:
		body = lipgloss.NewStyle().Foreground(m.theme.Muted).Render("No cards were detected in this scan")
	default:
		body = m.renderGrid()
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, body)
}

func (m DetectionGridModel) renderGrid() string {
	perRow := max(m.width/tileWidth, 1)

	var rows []string
	for start := 0; start < len(m.tiles); start += perRow {
		end := min(start+perRow, len(m.tiles))
		cells := make([]string, 0, end-start)
		for i := start; i < end; i++ {
			cells = append(cells, m.renderTile(i))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (m DetectionGridModel) renderTile(i int) string {
	t := m.tiles[i]
	inner := tileWidth - 4
	muted := lipgloss.NewStyle().Foreground(m.theme.Muted)

	label := fmt.Sprintf("#%d", i+1)
	if t.Detection.TileLabel != "" {
		label += " " + t.Detection.TileLabel
	}

	var name string
	if t.Identified {
		name = m.theme.Bold.Render(truncate(t.Card.Label(), inner))
	} else {
		name = m.theme.Unidentified.Render(UnidentifiedHint)
	}

	confidence := muted.Render("confidence n/a")
	if t.HasConfidence {
		confidence = m.theme.Normal.Render(fmt.Sprintf("%d%%", t.Confidence))
		if t.LowConfidence {
			confidence += " " + m.theme.LowConfidence.Render("⚠ low confidence")
		}
	}

	border := m.theme.RoundedBox.Width(tileWidth - 2)
	if i == m.cursor {
		border = border.BorderForeground(m.theme.Primary)
	}

	return border.Render(lipgloss.JoinVertical(
		lipgloss.Left,
		muted.Render(label),
		muted.Render(truncate(t.Detection.CropURL, inner)),
		name,
		confidence,
	))
}
