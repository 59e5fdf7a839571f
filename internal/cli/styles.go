// Package cli provides styled terminal output for the arceus commands.
package cli

import (
	"github.com/charmbracelet/lipgloss"
)

// Command output colors.
var (
	accent  = lipgloss.Color("#7c3aed")
	success = lipgloss.Color("#10b981")
	warning = lipgloss.Color("#f59e0b")
	info    = lipgloss.Color("#3b82f6")
)

var (
	// InfoStyle formats neutral messages such as empty listings.
	InfoStyle = lipgloss.NewStyle().Foreground(info)

	// TableHeaderStyle is used for the header row of listings.
	TableHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(accent)

	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(accent).MarginBottom(1)
	successStyle = lipgloss.NewStyle().Foreground(success)
	warningStyle = lipgloss.NewStyle().Foreground(warning)
	promptStyle  = lipgloss.NewStyle().Bold(true).Foreground(accent)
)

// FormatSuccess prefixes message with a check mark.
func FormatSuccess(message string) string {
	return successStyle.Render("✓ " + message)
}

// FormatWarning prefixes message with a warning sign.
func FormatWarning(message string) string {
	return warningStyle.Render("⚠️ " + message)
}

// FormatInfo prefixes message with an info sign.
func FormatInfo(message string) string {
	return InfoStyle.Render("ℹ️ " + message)
}

// FormatTitle renders a listing title.
func FormatTitle(title string) string {
	return titleStyle.Render("🃏 " + title)
}

// FormatPrompt renders a question that waits for input.
func FormatPrompt(prompt string) string {
	return promptStyle.Render(prompt + " → ")
}
