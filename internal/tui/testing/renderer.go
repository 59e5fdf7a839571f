// Package testing provides test utilities for TUI components.
package testing

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// maxSteps bounds command chains so a self-rescheduling command fails a
// test instead of hanging it.
const maxSteps = 500

// Driver feeds messages to a Bubble Tea model and runs the commands they
// produce synchronously, feeding each result back in, until the model is
// quiescent.
type Driver struct {
	// Model is the current model.
	Model tea.Model

	// Messages contains every message delivered to the model.
	Messages []tea.Msg

	// Steps counts Update calls.
	Steps int

	// Quit is set once the model returned tea.Quit.
	Quit bool
}

// NewDriver wraps model.
func NewDriver(model tea.Model) *Driver {
	return &Driver{Model: model}
}

// Init runs the model's Init command chain.
func (d *Driver) Init() *Driver {
	d.run(d.Model.Init())
	return d
}

// Send delivers msgs one at a time, settling commands after each.
func (d *Driver) Send(msgs ...tea.Msg) *Driver {
	for _, msg := range msgs {
		d.deliver(msg)
	}
	return d
}

// Step delivers msg without running the command it returns.
func (d *Driver) Step(msg tea.Msg) tea.Cmd {
	d.Messages = append(d.Messages, msg)
	d.Steps++
	var cmd tea.Cmd
	d.Model, cmd = d.Model.Update(msg)
	return cmd
}

// Run executes cmd and delivers its results.
func (d *Driver) Run(cmd tea.Cmd) *Driver {
	d.run(cmd)
	return d
}

func (d *Driver) deliver(msg tea.Msg) {
	d.run(d.Step(msg))
}

func (d *Driver) run(cmd tea.Cmd) {
	queue := []tea.Cmd{cmd}
	for len(queue) > 0 {
		if d.Steps > maxSteps {
			panic("testing: command chain did not settle")
		}
		next := queue[0]
		queue = queue[1:]
		if next == nil {
			continue
		}

		switch msg := next().(type) {
		case nil:
		case tea.BatchMsg:
			queue = append(queue, msg...)
		case tea.QuitMsg:
			d.Quit = true
		default:
			queue = append(queue, d.Step(msg))
		}
	}
}

// View renders the current model.
func (d *Driver) View() string {
	return d.Model.View()
}

// Plain renders the current model without ANSI escapes.
func (d *Driver) Plain() string {
	return StripANSI(d.Model.View())
}

// Lines returns the plain view split by newlines.
func (d *Driver) Lines() []string {
	return strings.Split(d.Plain(), "\n")
}
