package usecase

import (
	"time"

	"autoscribe/internal/domain"
)

// navDirection is the target of a pending ConfirmAdvance.
type navDirection int

const (
	navForward navDirection = iota
	navBackward
)

// saveIntent says what happens once the in-flight save has finished.
type saveIntent int

const (
	saveThenAdvance saveIntent = iota
	saveThenSubmit
)

// flowState is the single mutable state of one exam attempt. Only the
// controller loop touches it.
type flowState struct {
	phase      domain.FlowPhase
	index      int
	locked     bool
	pending    domain.Confirmation
	direction  navDirection
	navigating bool
	selected   int
	saved      bool
	answers    map[int]domain.AnswerRecord
}

func newFlowState() flowState {
	return flowState{
		phase:    domain.FlowPhaseIdle,
		selected: -1,
		answers:  make(map[int]domain.AnswerRecord),
	}
}

func (s *flowState) copyAnswers() map[int]domain.AnswerRecord {
	out := make(map[int]domain.AnswerRecord, len(s.answers))
	for index, answer := range s.answers {
		out[index] = answer
	}
	return out
}

// flowEvent is anything the controller loop reacts to.
type flowEvent interface{}

type (
	startEvent       struct{}
	recognitionEvent struct{ result domain.RecognitionResult }
	recognizerEnded  struct{}
	narrationDone    struct{ utterance uint64 }
	saveDone         struct {
		intent    saveIntent
		direction navDirection
		index     int
		err       error
	}
	submitDone   struct{ err error }
	commandEvent struct{ command uiCommand }
	tickEvent    struct{ remaining time.Duration }
	timeoutEvent struct{}
	snapshotReq  struct{ reply chan domain.FlowSnapshot }
)

// uiCommand is a button press routed through the same paths as speech.
type uiCommand int

const (
	commandNext uiCommand = iota
	commandPrevious
	commandSubmit
	commandPauseListening
	commandResumeListening
)
