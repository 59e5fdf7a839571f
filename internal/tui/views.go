package tui

import (
	"fmt"

	"github.com/MD412/project-arceus/internal/review"
	"github.com/charmbracelet/lipgloss"
)

// View renders the TUI.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.state == StateHelp {
		return m.renderHelp()
	}

	content := m.renderReview()
	if m.shell.View() == review.ViewHistory {
		content = m.history.View()
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.renderHeader(),
		content,
		m.renderStatusBar(),
	)
}

// renderHeader renders the title line.
func (m Model) renderHeader() string {
	title := m.theme.Bold.Foreground(m.theme.Primary).Render("Project Arceus")
	view := lipgloss.NewStyle().Foreground(m.theme.Muted).Render(" · " + m.shell.View().String())

	loading := ""
	if m.inbox.State() == review.LoadLoading || m.detections.State() == review.LoadLoading {
		loading = " " + m.spinner.View()
	}
	return title + view + loading
}

// renderReview renders the inbox next to the detections or the
// correction panel.
func (m Model) renderReview() string {
	var main string
	switch m.state {
	case StateCorrecting:
		main = m.correction.View()
	default:
		main = m.grid.View()
	}

	switch m.state {
	case StateConfirmDelete:
		main = lipgloss.JoinVertical(lipgloss.Left, main, m.renderDeletePrompt())
	case StateRenaming:
		main = lipgloss.JoinVertical(lipgloss.Left, main, m.renderRenamePrompt())
	}

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		m.inboxView.View(),
		lipgloss.NewStyle().Foreground(m.theme.Border).Render(" │ "),
		main,
	)
}

func (m Model) renderDeletePrompt() string {
	title := m.shell.PendingDelete()
	if entry, ok := m.inbox.Entry(title); ok {
		title = entry.Title
	}

	return m.theme.RoundedBox.
		BorderForeground(m.theme.Error).
		Render(lipgloss.JoinVertical(
			lipgloss.Left,
			m.theme.StatusError.Render(fmt.Sprintf("Delete %q?", title)),
			m.theme.Normal.Render("The scan and its detections are removed."),
			lipgloss.NewStyle().Foreground(m.theme.Muted).Render("y confirm · n cancel"),
		))
}

func (m Model) renderRenamePrompt() string {
	return m.theme.RoundedBox.
		BorderForeground(m.theme.Primary).
		Render(lipgloss.JoinVertical(
			lipgloss.Left,
			m.theme.Bold.Render("Rename scan"),
			m.renameInput.View(),
			lipgloss.NewStyle().Foreground(m.theme.Muted).Render("enter save · esc cancel"),
		))
}

// renderStatusBar shows the current notice, or key hints when there is none.
func (m Model) renderStatusBar() string {
	if m.notice.IsZero() {
		if !m.config.ShowHelp {
			return ""
		}
		return m.help.ShortHelpView(m.keymap.ShortHelp())
	}

	style := m.theme.StatusInfo
	switch m.notice.Level {
	case review.NoticeWarning:
		style = m.theme.StatusWarning
	case review.NoticeError:
		style = m.theme.StatusError
	}
	dismiss := lipgloss.NewStyle().Foreground(m.theme.Muted).Render("  (esc to dismiss)")
	return style.Render(m.notice.Message) + dismiss
}

// renderHelp renders the full key reference.
func (m Model) renderHelp() string {
	h := m.help
	h.ShowAll = true

	content := lipgloss.JoinVertical(
		lipgloss.Left,
		m.theme.Title.Render("Keyboard shortcuts"),
		h.View(m.keymap),
		"",
		lipgloss.NewStyle().Foreground(m.theme.Muted).Render("Press ? or esc to return"),
	)
	return m.theme.RoundedBox.Render(content)
}
