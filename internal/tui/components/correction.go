package components

import (
	"fmt"
	"strings"

	"github.com/MD412/project-arceus/internal/common"
	"github.com/MD412/project-arceus/internal/model"
	"github.com/MD412/project-arceus/internal/review"
	"github.com/MD412/project-arceus/internal/tui/themes"
	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const maxVisibleResults = 8

// CorrectionModel renders a review.CorrectionPanel: the current match next
// to the original crop, or a card search in replace mode.
type CorrectionModel struct {
	theme   themes.Theme
	panel   *review.CorrectionPanel
	input   textinput.Model
	spinner spinner.Model
	cursor  int
	index   int
	total   int
	width   int
	height  int
	animate bool
}

// NewCorrectionModel creates a closed correction view.
func NewCorrectionModel(theme themes.Theme, animate bool) CorrectionModel {
	input := textinput.New()
	input.Placeholder = "Search cards by name, set or number..."
	input.CharLimit = 80
	input.Prompt = "🔍 "
	if !animate {
		input.Cursor.SetMode(cursor.CursorStatic)
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(theme.Primary)

	return CorrectionModel{
		theme:   theme,
		input:   input,
		spinner: s,
		animate: animate,
		width:   80,
		height:  20,
	}
}

// Open shows panel for detection index of total.
func (m *CorrectionModel) Open(panel *review.CorrectionPanel, index, total int) {
	m.panel = panel
	m.index = index
	m.total = total
	m.cursor = 0
	m.input.Reset()
	m.input.Blur()
}

// Close hides the panel.
func (m *CorrectionModel) Close() {
	m.panel = nil
	m.input.Reset()
	m.input.Blur()
}

// SetPosition updates which detection of how many is shown.
func (m *CorrectionModel) SetPosition(index, total int) {
	if index != m.index {
		m.input.Reset()
		m.input.Blur()
		m.cursor = 0
	}
	m.index = index
	m.total = total
}

// Replacing reports whether the search interface is showing.
func (m CorrectionModel) Replacing() bool {
	return m.panel != nil && m.panel.Mode() == review.PanelReplace
}

// Refresh re-reads the panel after it changed outside Update.
func (m *CorrectionModel) Refresh() tea.Cmd {
	if m.panel == nil {
		return nil
	}
	if m.panel.Mode() == review.PanelReview && m.input.Focused() {
		m.input.Reset()
		m.input.Blur()
	}
	m.cursor = min(m.cursor, max(len(m.panel.Results())-1, 0))
	return m.tick()
}

// Resize updates the available space.
func (m *CorrectionModel) Resize(width, height int) {
	m.width = width
	m.height = height
	m.input.Width = max(width/2-8, 10)
}

// Update handles messages.
func (m CorrectionModel) Update(msg tea.Msg) (CorrectionModel, tea.Cmd) {
	if m.panel == nil {
		return m, nil
	}

	switch msg := msg.(type) {
	case spinner.TickMsg:
		if m.busy() {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}

	case tea.KeyMsg:
		if m.panel.Mode() == review.PanelReplace {
			return m.handleReplaceMode(msg)
		}
		return m.handleReviewMode(msg)
	}

	return m, nil
}

// handleReviewMode handles key presses while showing the current match.
func (m CorrectionModel) handleReviewMode(msg tea.KeyMsg) (CorrectionModel, tea.Cmd) {
	switch msg.String() {
	case "r", "/", "s":
		m.panel.EnterReplace()
		m.input.Reset()
		m.cursor = 0
		return m, m.input.Focus()

	case "esc", "q":
		return m, func() tea.Msg { return CorrectionClosedMsg{} }
	}
	return m, nil
}

// handleReplaceMode handles key presses while searching.
func (m CorrectionModel) handleReplaceMode(msg tea.KeyMsg) (CorrectionModel, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.panel.CancelReplace()
		if m.panel.Mode() == review.PanelReview {
			m.input.Reset()
			m.input.Blur()
			m.cursor = 0
		}
		return m, nil

	case "up", "ctrl+p":
		m.cursor = max(m.cursor-1, 0)
		return m, nil

	case "down", "ctrl+n":
		m.cursor = min(m.cursor+1, max(len(m.panel.Results())-1, 0))
		return m, nil

	case "enter":
		results := m.panel.Results()
		if m.cursor >= len(results) {
			return m, nil
		}
		card := results[m.cursor].Card
		if !m.panel.BeginSelect(card) {
			return m, nil
		}
		d := m.panel.Detection()
		return m, tea.Batch(m.tick(), func() tea.Msg {
			return ReplacementChosenMsg{ScanID: d.ScanID, DetectionID: d.ID, Card: card}
		})
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.input.Value() == before {
		return m, cmd
	}

	m.cursor = 0
	seq, search := m.panel.SetQuery(m.input.Value())
	if !search {
		return m, cmd
	}
	query := m.input.Value()
	return m, tea.Batch(cmd, m.tick(), func() tea.Msg {
		return SearchRequestMsg{Seq: seq, Query: query}
	})
}

func (m CorrectionModel) busy() bool {
	return m.panel != nil && (m.panel.Committing() || m.panel.SearchState() == review.LoadLoading)
}

func (m CorrectionModel) tick() tea.Cmd {
	if !m.animate || !m.busy() {
		return nil
	}
	return m.spinner.Tick
}

// View renders the panel.
func (m CorrectionModel) View() string {
	if m.panel == nil {
		return ""
	}

	paneWidth := max((m.width-4)/2, 24)
	left := m.renderMatchPane()
	if m.panel.Mode() == review.PanelReplace {
		left = m.renderSearchPane()
	}

	header := m.theme.Title.Render(fmt.Sprintf("Detection %d of %d", m.index+1, m.total))
	panes := lipgloss.JoinHorizontal(
		lipgloss.Top,
		m.theme.RoundedBox.Width(paneWidth).Render(left),
		m.theme.RoundedBox.Width(paneWidth).Render(m.renderCropPane()),
	)

	return lipgloss.JoinVertical(lipgloss.Left, header, panes, m.renderHints())
}

// renderMatchPane renders the current best match.
func (m CorrectionModel) renderMatchPane() string {
	d := m.panel.Detection()
	muted := lipgloss.NewStyle().Foreground(m.theme.Muted)

	lines := []string{m.theme.Bold.Render("Current match")}
	card, ok := d.IdentifiedCard()
	if !ok {
		lines = append(lines,
			m.theme.Unidentified.Render("Unidentified"),
			muted.Render(d.CropURL))
	} else {
		lines = append(lines, renderCard(m.theme, card)...)
	}

	if pct, known := d.ConfidencePercent(); known {
		lines = append(lines, "", m.theme.Normal.Render(fmt.Sprintf("Confidence %d%%", pct)))
	}
	return strings.Join(lines, "\n")
}

// renderSearchPane renders the replacement search.
func (m CorrectionModel) renderSearchPane() string {
	muted := lipgloss.NewStyle().Foreground(m.theme.Muted)
	lines := []string{m.theme.Bold.Render("Replace match"), m.input.View(), ""}

	switch {
	case m.panel.Committing():
		lines = append(lines, m.spinner.View()+" Saving...")
	case m.panel.NeedsMoreInput():
		lines = append(lines, muted.Render(fmt.Sprintf("type at least %d characters", m.panel.MinQueryLength())))
	case m.panel.SearchState() == review.LoadLoading:
		lines = append(lines, m.spinner.View()+" Searching...")
	case m.panel.SearchState() == review.LoadFailed:
		lines = append(lines, m.theme.StatusError.Render("Search failed: "+common.UserMessage(m.panel.SearchErr())))
	case len(m.panel.Results()) == 0:
		lines = append(lines, muted.Render("No cards match"))
	default:
		lines = append(lines, m.renderResults()...)
	}

	if err := m.panel.CommitErr(); err != nil {
		lines = append(lines, "", m.theme.StatusError.Render("Could not update detection: "+common.UserMessage(err)))
	}
	return strings.Join(lines, "\n")
}

func (m CorrectionModel) renderResults() []string {
	results := m.panel.Results()
	start := 0
	if m.cursor >= maxVisibleResults {
		start = m.cursor - maxVisibleResults + 1
	}
	end := min(start+maxVisibleResults, len(results))

	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		label := truncate(results[i].Card.Label(), max((m.width-4)/2-6, 10))
		if i == m.cursor {
			lines = append(lines, m.theme.Selected.Render("▸ "+label))
			continue
		}
		lines = append(lines, m.theme.Normal.Render("  "+label))
	}
	return lines
}

// renderCropPane renders the original crop, which is always visible.
func (m CorrectionModel) renderCropPane() string {
	d := m.panel.Detection()
	muted := lipgloss.NewStyle().Foreground(m.theme.Muted)

	lines := []string{m.theme.Bold.Render("Original crop"), m.theme.Code.Render(d.CropURL)}
	if d.TileLabel != "" {
		lines = append(lines, muted.Render("Tile "+d.TileLabel))
	}
	return strings.Join(lines, "\n")
}

func (m CorrectionModel) renderHints() string {
	hint := "r replace · ←/→ previous/next · esc close"
	if m.panel.Mode() == review.PanelReplace {
		hint = "↑/↓ choose · enter link card · esc cancel"
	}
	return lipgloss.NewStyle().Foreground(m.theme.Muted).Render(hint)
}

func renderCard(theme themes.Theme, card model.Card) []string {
	muted := lipgloss.NewStyle().Foreground(theme.Muted)
	lines := []string{theme.Bold.Render(card.Name)}

	set := card.SetName
	if card.SetCode != "" {
		set = strings.TrimSpace(fmt.Sprintf("%s (%s)", card.SetName, card.SetCode))
	}
	if set != "" {
		lines = append(lines, muted.Render("Set     ")+theme.Normal.Render(set))
	}
	if card.Number != "" {
		lines = append(lines, muted.Render("Number  ")+theme.Normal.Render(card.Number))
	}
	if card.Rarity != "" {
		lines = append(lines, muted.Render("Rarity  ")+theme.Normal.Render(card.Rarity))
	}
	if card.MarketPrice != nil {
		lines = append(lines, muted.Render("Market  ")+theme.Normal.Render(fmt.Sprintf("$%.2f", *card.MarketPrice)))
	}
	return lines
}
