package usecase

import (
	"context"
	"sync"
	"time"

	"autoscribe/internal/domain"
	"autoscribe/internal/ports"
)

// micMonitor counts moments where the recognizer and the narrator are both
// active.
type micMonitor struct {
	mu               sync.Mutex
	recognizerActive bool
	narratorSpeaking bool
	overlaps         int
}

func (m *micMonitor) overlapCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.overlaps
}

type fakeRecognizer struct {
	mon      *micMonitor
	startErr error
	starts   int
	stops    int
	sink     ports.RecognitionSink
}

func newFakeRecognizer(mon *micMonitor) *fakeRecognizer {
	return &fakeRecognizer{mon: mon}
}

func (f *fakeRecognizer) Start(_ context.Context, sink ports.RecognitionSink) error {
	f.mon.mu.Lock()
	defer f.mon.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	if f.mon.recognizerActive {
		return ports.ErrRecognizerRunning
	}
	if f.mon.narratorSpeaking {
		f.mon.overlaps++
	}
	f.mon.recognizerActive = true
	f.starts++
	f.sink = sink
	return nil
}

func (f *fakeRecognizer) Stop() error {
	f.mon.mu.Lock()
	defer f.mon.mu.Unlock()
	if !f.mon.recognizerActive {
		return ports.ErrRecognizerStopped
	}
	f.mon.recognizerActive = false
	f.stops++
	return nil
}

// end simulates the recognition session ending on its own.
func (f *fakeRecognizer) end() {
	f.mon.mu.Lock()
	f.mon.recognizerActive = false
	sink := f.sink
	f.mon.mu.Unlock()
	if sink != nil {
		sink.RecognitionEnded()
	}
}

func (f *fakeRecognizer) active() bool {
	f.mon.mu.Lock()
	defer f.mon.mu.Unlock()
	return f.mon.recognizerActive
}

func (f *fakeRecognizer) startCount() int {
	f.mon.mu.Lock()
	defer f.mon.mu.Unlock()
	return f.starts
}

type fakeNarrator struct {
	mon     *micMonitor
	spoken  []string
	pending func()
}

func newFakeNarrator(mon *micMonitor) *fakeNarrator {
	return &fakeNarrator{mon: mon}
}

func (f *fakeNarrator) Speak(text string, onDone func()) {
	f.mon.mu.Lock()
	defer f.mon.mu.Unlock()
	if f.mon.recognizerActive {
		f.mon.overlaps++
	}
	f.mon.narratorSpeaking = true
	f.spoken = append(f.spoken, text)
	f.pending = onDone
}

func (f *fakeNarrator) IsSpeaking() bool {
	f.mon.mu.Lock()
	defer f.mon.mu.Unlock()
	return f.mon.narratorSpeaking
}

// finish completes the current utterance and reports whether one was
// in progress.
func (f *fakeNarrator) finish() bool {
	f.mon.mu.Lock()
	done := f.pending
	f.pending = nil
	f.mon.narratorSpeaking = false
	f.mon.mu.Unlock()
	if done == nil {
		return false
	}
	done()
	return true
}

func (f *fakeNarrator) snapshotSpoken() []string {
	f.mon.mu.Lock()
	defer f.mon.mu.Unlock()
	out := make([]string, len(f.spoken))
	copy(out, f.spoken)
	return out
}

func (f *fakeNarrator) last() string {
	spoken := f.snapshotSpoken()
	if len(spoken) == 0 {
		return ""
	}
	return spoken[len(spoken)-1]
}

type saveCall struct {
	index      int
	questionID string
	answer     domain.AnswerRecord
}

type fakeStore struct {
	mu       sync.Mutex
	calls    []saveCall
	failures int
	err      error
	gate     chan struct{}
}

func (f *fakeStore) SaveAnswer(_ context.Context, index int, questionID string, answer domain.AnswerRecord) error {
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, saveCall{index: index, questionID: questionID, answer: answer})
	if f.failures > 0 {
		f.failures--
		return f.err
	}
	return nil
}

func (f *fakeStore) snapshotCalls() []saveCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]saveCall, len(f.calls))
	copy(out, f.calls)
	return out
}

type fakeSubmitter struct {
	mu      sync.Mutex
	calls   int
	answers map[int]domain.AnswerRecord
	err     error
	gate    chan struct{}
	ctxErr  error
}

func (f *fakeSubmitter) Submit(ctx context.Context, answers map[int]domain.AnswerRecord) error {
	f.mu.Lock()
	f.calls++
	f.answers = answers
	gate, err := f.gate, f.err
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	f.mu.Lock()
	f.ctxErr = ctx.Err()
	f.mu.Unlock()
	return err
}

func (f *fakeSubmitter) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeSubmitter) hold() chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gate = make(chan struct{})
	return f.gate
}

func (f *fakeSubmitter) snapshot() (int, map[int]domain.AnswerRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls, f.answers
}

func (f *fakeSubmitter) contextErr() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ctxErr
}

type phaseEvent struct {
	phase  domain.FlowPhase
	reason domain.FlowReason
}

type errEvent struct {
	code   domain.ErrorCode
	detail string
}

type fakeEventSink struct {
	mu        sync.Mutex
	phases    []phaseEvent
	views     []domain.QuestionView
	narrated  []string
	remaining []time.Duration
	errors    []errEvent
}

func (f *fakeEventSink) PhaseChanged(phase domain.FlowPhase, reason domain.FlowReason) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.phases = append(f.phases, phaseEvent{phase: phase, reason: reason})
}

func (f *fakeEventSink) QuestionRendered(view domain.QuestionView) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.views = append(f.views, view)
}

func (f *fakeEventSink) Narrated(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.narrated = append(f.narrated, text)
}

func (f *fakeEventSink) TimeRemaining(remaining time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.remaining = append(f.remaining, remaining)
}

func (f *fakeEventSink) FlowError(code domain.ErrorCode, detail string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors = append(f.errors, errEvent{code: code, detail: detail})
}

func (f *fakeEventSink) snapshotPhases() []phaseEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]phaseEvent, len(f.phases))
	copy(out, f.phases)
	return out
}

func (f *fakeEventSink) lastView() domain.QuestionView {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.views) == 0 {
		return domain.QuestionView{}
	}
	return f.views[len(f.views)-1]
}

func (f *fakeEventSink) snapshotErrors() []errEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]errEvent, len(f.errors))
	copy(out, f.errors)
	return out
}

func (f *fakeEventSink) remainingCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.remaining)
}

type fakeVocabulary struct {
	replacer func(string) string
}

func (f fakeVocabulary) Apply(text string) (string, error) {
	if f.replacer == nil {
		return text, nil
	}
	return f.replacer(text), nil
}

func demoExam() domain.Exam {
	return domain.Exam{
		ID:   "AUTO-001",
		Name: "Computer Science - Automated Flow Demo",
		Questions: []domain.Question{
			{
				ID:    "q1",
				Kind:  domain.QuestionKindMCQ,
				Text:  "What is the full form of RAM?",
				Marks: 1,
				Options: []string{
					"Read Access Memory",
					"Random Access Memory",
					"Rapid Access Memory",
					"Real Access Memory",
				},
			},
			{
				ID:    "q2",
				Kind:  domain.QuestionKindDescriptive,
				Text:  "Explain the importance of cybersecurity in modern digital banking.",
				Marks: 5,
			},
		},
	}
}
