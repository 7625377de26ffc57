// Package tui is a terminal front-end for an exam attempt.
package tui

import (
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
)

// Controls are the flow commands bound to keys.
type Controls interface {
	Next()
	Previous()
	Submit()
	PauseListening()
	ResumeListening()
}

// Model renders the current question, answer and countdown.
type Model struct {
	state    State
	events   <-chan Event
	controls Controls
	progress progress.Model
	width    int
	noColor  bool
}

// Options configures the model.
type Options struct {
	ExamName string
	NoColor  bool
}

func NewModel(events <-chan Event, controls Controls, opts Options) Model {
	bar := progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage())
	if opts.NoColor {
		bar = progress.New(progress.WithSolidFill("7"), progress.WithoutPercentage())
	}
	bar.Width = 40
	return Model{
		state:    State{ExamName: opts.ExamName},
		events:   events,
		controls: controls,
		progress: bar,
		noColor:  opts.NoColor,
	}
}

// Init waits for the first flow event.
func (m Model) Init() tea.Cmd {
	return waitForEvent(m.events)
}

// Update consumes flow events and key presses.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = typed.Width
		m.progress.Width = max(min(typed.Width-4, 80), 10)
		return m, nil
	case EventMsg:
		m.state = Reduce(m.state, typed.Event)
		return m, waitForEvent(m.events)
	case tea.KeyMsg:
		return m.onKey(typed)
	}
	return m, nil
}

func (m Model) onKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.String() {
	case "ctrl+c", "q", "esc":
		return m, tea.Quit
	case "n", "right":
		m.controls.Next()
	case "p", "left":
		m.controls.Previous()
	case "s":
		m.controls.Submit()
	case " ", "m":
		if m.state.Paused {
			m.controls.ResumeListening()
		} else {
			m.controls.PauseListening()
		}
	}
	return m, nil
}

// View renders the UI.
func (m Model) View() string {
	return render(m.state, m.progress, m.width, m.noColor)
}

// State exposes the reduced state.
func (m Model) State() State {
	return m.state
}

// EventMsg wraps a flow event for Bubble Tea.
type EventMsg struct {
	Event Event
}

// waitForEvent blocks until a flow event is available.
func waitForEvent(events <-chan Event) tea.Cmd {
	return func() tea.Msg {
		if events == nil {
			return nil
		}
		event, ok := <-events
		if !ok {
			return tea.Quit()
		}
		return EventMsg{Event: event}
	}
}
