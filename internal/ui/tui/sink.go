package tui

import (
	"time"

	"autoscribe/internal/domain"
)

// Sink implements ports.EventSink by forwarding to a channel the UI reads.
type Sink struct {
	events chan Event
}

func NewSink(buffer int) *Sink {
	if buffer <= 0 {
		buffer = 256
	}
	return &Sink{events: make(chan Event, buffer)}
}

// Events is the stream consumed by the model.
func (s *Sink) Events() <-chan Event {
	return s.events
}

func (s *Sink) PhaseChanged(phase domain.FlowPhase, reason domain.FlowReason) {
	s.send(Event{Kind: EventPhase, Phase: phase, Reason: reason})
}

func (s *Sink) QuestionRendered(view domain.QuestionView) {
	s.send(Event{Kind: EventQuestion, View: view})
}

func (s *Sink) Narrated(text string) {
	s.send(Event{Kind: EventNarrated, Text: text})
}

func (s *Sink) TimeRemaining(remaining time.Duration) {
	s.send(Event{Kind: EventTime, Remaining: remaining})
}

func (s *Sink) FlowError(code domain.ErrorCode, detail string) {
	s.send(Event{Kind: EventError, Code: code, Text: detail})
}

// send enqueues an event without blocking the flow.
func (s *Sink) send(event Event) {
	select {
	case s.events <- event:
	default:
	}
}
