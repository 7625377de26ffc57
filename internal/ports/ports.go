package ports

import (
	"context"
	"errors"
	"io"
	"time"

	"autoscribe/internal/domain"
)

var (
	// ErrRecognizerRunning is returned by Recognizer.Start while a session is active.
	ErrRecognizerRunning = errors.New("recognizer is already running")
	// ErrRecognizerStopped is returned by Recognizer.Stop when no session is active.
	ErrRecognizerStopped = errors.New("recognizer is not running")
)

// RecognitionSink receives continuous recognizer output.
type RecognitionSink interface {
	RecognitionResult(result domain.RecognitionResult)
	RecognitionEnded()
}

// Recognizer is a continuous, interim-results speech recognizer. A session
// may end on its own; RecognitionEnded is delivered whenever it does.
type Recognizer interface {
	Start(ctx context.Context, sink RecognitionSink) error
	Stop() error
}

// Narrator speaks text. Speak cancels any utterance in progress; onDone runs
// once the new utterance finishes and is not invoked for cancelled ones.
type Narrator interface {
	Speak(text string, onDone func())
	IsSpeaking() bool
}

// AnswerStore persists one answer for the current attempt.
type AnswerStore interface {
	SaveAnswer(ctx context.Context, index int, questionID string, answer domain.AnswerRecord) error
}

// Submitter is notified once when the exam is finally submitted.
type Submitter interface {
	Submit(ctx context.Context, answers map[int]domain.AnswerRecord) error
}

// VocabularyRules rewrites dictated text using deterministic rules.
type VocabularyRules interface {
	Apply(text string) (string, error)
}

// EventSink receives declarative render instructions from the flow.
type EventSink interface {
	PhaseChanged(phase domain.FlowPhase, reason domain.FlowReason)
	QuestionRendered(view domain.QuestionView)
	Narrated(text string)
	TimeRemaining(remaining time.Duration)
	FlowError(code domain.ErrorCode, detail string)
}

// AudioConfig describes how the microphone should be captured.
type AudioConfig struct {
	SampleRate  int
	Channels    int
	InputFormat string
	InputDevice string
}

// AudioSession is a live capture session.
type AudioSession interface {
	io.ReadCloser
	Stop() error
}

// AudioCapture creates microphone capture sessions.
type AudioCapture interface {
	Start(ctx context.Context, cfg AudioConfig) (AudioSession, error)
}

// StreamingConfig describes provider-agnostic streaming settings.
type StreamingConfig struct {
	SampleRate     int
	Channels       int
	Encoding       string
	Language       string
	InterimResults bool
	// Keywords boosts domain vocabulary, e.g. the exam's technical terms.
	Keywords []string
	// EndpointingMs is the silence that finalizes a hypothesis; zero keeps
	// the provider default.
	EndpointingMs int
}

// StreamingSession is an active provider websocket session.
type StreamingSession interface {
	SendAudio(chunk []byte) error
	CloseSend() error
	Events() <-chan domain.TranscriptEvent
	Wait() error
	Close() error
}

// TranscriptionProvider starts streaming transcription sessions.
type TranscriptionProvider interface {
	StartStreaming(ctx context.Context, cfg StreamingConfig) (StreamingSession, error)
}
