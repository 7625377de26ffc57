package tui

import (
	"time"

	"autoscribe/internal/domain"
)

// EventKind identifies a flow notification forwarded to the terminal UI.
type EventKind int

const (
	EventPhase EventKind = iota
	EventQuestion
	EventNarrated
	EventTime
	EventError
)

// Event is one flow notification.
type Event struct {
	Kind      EventKind
	Phase     domain.FlowPhase
	Reason    domain.FlowReason
	View      domain.QuestionView
	Text      string
	Remaining time.Duration
	Code      domain.ErrorCode
}

// State is everything the view renders.
type State struct {
	ExamName  string
	View      domain.QuestionView
	HasView   bool
	Phase     domain.FlowPhase
	Reason    domain.FlowReason
	Paused    bool
	Caption   string
	Remaining time.Duration
	HasTime   bool
	LastError string
}

// Reduce folds an event into the UI state.
func Reduce(state State, event Event) State {
	switch event.Kind {
	case EventPhase:
		state.Phase = event.Phase
		state.Reason = event.Reason
		switch event.Reason {
		case domain.FlowReasonListeningPaused:
			state.Paused = true
		case domain.FlowReasonListeningResumed:
			state.Paused = false
		}
	case EventQuestion:
		if state.HasView && state.View.QuestionIndex != event.View.QuestionIndex {
			state.LastError = ""
		}
		state.View = event.View
		state.HasView = true
	case EventNarrated:
		state.Caption = event.Text
	case EventTime:
		state.Remaining = event.Remaining
		state.HasTime = true
	case EventError:
		state.LastError = string(event.Code) + ": " + event.Text
	}
	return state
}
