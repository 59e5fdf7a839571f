package testing

import (
	tea "github.com/charmbracelet/bubbletea"
)

func special(t tea.KeyType) tea.KeyMsg {
	return tea.KeyMsg{Type: t}
}

// KeyPress types key as runes, e.g. "a" or "D".
func KeyPress(key string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
}

// Arrow, enter, escape, tab and backspace keys.
func KeyDown() tea.KeyMsg      { return special(tea.KeyDown) }
func KeyUp() tea.KeyMsg        { return special(tea.KeyUp) }
func KeyLeft() tea.KeyMsg      { return special(tea.KeyLeft) }
func KeyRight() tea.KeyMsg     { return special(tea.KeyRight) }
func KeyEnter() tea.KeyMsg     { return special(tea.KeyEnter) }
func KeyEsc() tea.KeyMsg       { return special(tea.KeyEsc) }
func KeyTab() tea.KeyMsg       { return special(tea.KeyTab) }
func KeyBackspace() tea.KeyMsg { return special(tea.KeyBackspace) }

// Type returns one key message per rune of text, the way a terminal
// delivers typing.
func Type(text string) []tea.Msg {
	msgs := make([]tea.Msg, 0, len(text))
	for _, r := range text {
		msgs = append(msgs, KeyPress(string(r)))
	}
	return msgs
}
