package recognizer

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"autoscribe/internal/domain"
	"autoscribe/internal/ports"
)

func TestRecognizerDeliversResultsAndEndsWithStream(t *testing.T) {
	t.Parallel()

	stream := newFakeStreamingSession()
	stream.events <- domain.TranscriptEvent{Kind: domain.TranscriptKindPartial, Text: "hello"}
	stream.events <- domain.TranscriptEvent{Kind: domain.TranscriptKindFinal, Text: "hello world", Confidence: 0.9}
	sink := newFakeSink()

	rec := New(
		&fakeAudioCapture{sessions: []ports.AudioSession{&fakeAudioSession{chunks: [][]byte{[]byte("abc")}}}},
		&fakeProvider{sessions: []ports.StreamingSession{stream}},
		Config{ChunkSize: 512},
		nil,
	)

	if err := rec.Start(context.Background(), sink); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	sink.waitEnded(t)

	results := sink.snapshotResults()
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Results[0].Transcript != "hello" || results[0].Results[0].IsFinal {
		t.Fatalf("unexpected interim result: %+v", results[0])
	}
	last := results[1]
	if last.ResultIndex != 0 || !last.Results[0].IsFinal || last.Results[0].Confidence != 0.9 {
		t.Fatalf("unexpected final result: %+v", last)
	}
	if rec.Active() {
		t.Fatalf("expected recognizer to be inactive after stream end")
	}
	if err := rec.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
}

func TestRecognizerStartWhileRunning(t *testing.T) {
	t.Parallel()

	rec := New(
		&fakeAudioCapture{sessions: []ports.AudioSession{newBlockingAudioSession()}},
		&fakeProvider{sessions: []ports.StreamingSession{newFakeStreamingSession()}},
		Config{},
		nil,
	)

	if err := rec.Start(context.Background(), newFakeSink()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := rec.Start(context.Background(), newFakeSink()); !errors.Is(err, ports.ErrRecognizerRunning) {
		t.Fatalf("expected ErrRecognizerRunning, got %v", err)
	}
	if err := rec.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
}

func TestRecognizerStopWithoutSession(t *testing.T) {
	t.Parallel()

	rec := New(&fakeAudioCapture{}, &fakeProvider{}, Config{}, nil)
	if err := rec.Stop(); !errors.Is(err, ports.ErrRecognizerStopped) {
		t.Fatalf("expected ErrRecognizerStopped, got %v", err)
	}
}

func TestRecognizerStopTearsDownWithoutEndEvent(t *testing.T) {
	t.Parallel()

	audio := newBlockingAudioSession()
	stream := newFakeStreamingSession()
	sink := newFakeSink()
	rec := New(
		&fakeAudioCapture{sessions: []ports.AudioSession{audio}},
		&fakeProvider{sessions: []ports.StreamingSession{stream}},
		Config{},
		nil,
	)

	if err := rec.Start(context.Background(), sink); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := rec.Stop(); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	if rec.Active() {
		t.Fatalf("expected inactive after stop")
	}
	if err := rec.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	if audio.stopCount() == 0 {
		t.Fatalf("expected audio capture to be stopped")
	}
	if stream.closeSendCount() == 0 {
		t.Fatalf("expected stream to be half-closed")
	}
	if sink.endedCount() != 0 {
		t.Fatalf("stop must not report a spontaneous end")
	}
}

func TestRecognizerRestartAfterStop(t *testing.T) {
	t.Parallel()

	rec := New(
		&fakeAudioCapture{sessions: []ports.AudioSession{newBlockingAudioSession(), newBlockingAudioSession()}},
		&fakeProvider{sessions: []ports.StreamingSession{newFakeStreamingSession(), newFakeStreamingSession()}},
		Config{},
		nil,
	)

	if err := rec.Start(context.Background(), newFakeSink()); err != nil {
		t.Fatalf("first start failed: %v", err)
	}
	if err := rec.Stop(); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	if err := rec.Start(context.Background(), newFakeSink()); err != nil {
		t.Fatalf("second start failed: %v", err)
	}
	if err := rec.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
}

func TestRecognizerProviderFailure(t *testing.T) {
	t.Parallel()

	dialErr := errors.New("dial failed")
	rec := New(&fakeAudioCapture{}, &fakeProvider{err: dialErr}, Config{}, nil)
	err := rec.Start(context.Background(), newFakeSink())
	if !errors.Is(err, dialErr) {
		t.Fatalf("expected start error, got %v", err)
	}
	if rec.Active() {
		t.Fatalf("expected inactive after failed start")
	}
}

func TestRecognizerAudioFailureClosesStream(t *testing.T) {
	t.Parallel()

	stream := newFakeStreamingSession()
	rec := New(
		&fakeAudioCapture{err: errors.New("no microphone")},
		&fakeProvider{sessions: []ports.StreamingSession{stream}},
		Config{},
		nil,
	)

	if err := rec.Start(context.Background(), newFakeSink()); err == nil {
		t.Fatalf("expected audio start error")
	}
	if stream.closeCount() == 0 {
		t.Fatalf("expected stream to be closed after audio failure")
	}
}

func TestResultListKeepsFinalsAndCurrentInterim(t *testing.T) {
	t.Parallel()

	list := newResultList()
	if _, ok := list.Add(domain.TranscriptEvent{Kind: domain.TranscriptKindPartial, Text: "   "}); ok {
		t.Fatalf("expected empty event to be ignored")
	}

	list.Add(domain.TranscriptEvent{Kind: domain.TranscriptKindFinal, Text: "option b"})
	got, ok := list.Add(domain.TranscriptEvent{Kind: domain.TranscriptKindPartial, Text: "next"})
	if !ok {
		t.Fatalf("expected result")
	}
	if got.ResultIndex != 1 || len(got.Results) != 2 {
		t.Fatalf("unexpected result list: %+v", got)
	}
	if got.Results[1].Transcript != "next" || got.Results[1].IsFinal {
		t.Fatalf("unexpected interim entry: %+v", got.Results[1])
	}

	got, _ = list.Add(domain.TranscriptEvent{Kind: domain.TranscriptKindFinal, Text: "next question"})
	if got.ResultIndex != 1 || len(got.Results) != 2 || !got.Results[1].IsFinal {
		t.Fatalf("expected final to replace interim: %+v", got)
	}
}

func TestResultListIsBounded(t *testing.T) {
	t.Parallel()

	list := newResultList()
	var got domain.RecognitionResult
	for i := 0; i < maxFinals+10; i++ {
		got, _ = list.Add(domain.TranscriptEvent{Kind: domain.TranscriptKindFinal, Text: "word"})
	}
	if len(got.Results) != maxFinals || got.ResultIndex != maxFinals-1 {
		t.Fatalf("unexpected bounded list: index=%d len=%d", got.ResultIndex, len(got.Results))
	}
}

type fakeSink struct {
	mu      sync.Mutex
	results []domain.RecognitionResult
	ended   int
	endedCh chan struct{}
}

func newFakeSink() *fakeSink {
	return &fakeSink{endedCh: make(chan struct{}, 4)}
}

func (f *fakeSink) RecognitionResult(result domain.RecognitionResult) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results = append(f.results, result)
}

func (f *fakeSink) RecognitionEnded() {
	f.mu.Lock()
	f.ended++
	f.mu.Unlock()
	f.endedCh <- struct{}{}
}

func (f *fakeSink) waitEnded(t *testing.T) {
	t.Helper()
	select {
	case <-f.endedCh:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for recognition end")
	}
}

func (f *fakeSink) snapshotResults() []domain.RecognitionResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.RecognitionResult, len(f.results))
	copy(out, f.results)
	return out
}

func (f *fakeSink) endedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ended
}

type fakeAudioCapture struct {
	mu       sync.Mutex
	sessions []ports.AudioSession
	err      error
	calls    int
}

func (f *fakeAudioCapture) Start(_ context.Context, _ ports.AudioConfig) (ports.AudioSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if f.calls >= len(f.sessions) {
		return nil, errors.New("no audio session configured")
	}
	session := f.sessions[f.calls]
	f.calls++
	return session, nil
}

type fakeAudioSession struct {
	mu        sync.Mutex
	chunks    [][]byte
	index     int
	stopCalls int
}

func (f *fakeAudioSession) Read(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.index >= len(f.chunks) {
		return 0, io.EOF
	}
	n := copy(p, f.chunks[f.index])
	f.index++
	return n, nil
}

func (f *fakeAudioSession) Close() error { return nil }

func (f *fakeAudioSession) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopCalls++
	return nil
}

// blockingAudioSession produces no audio until stopped.
type blockingAudioSession struct {
	once      sync.Once
	stopped   chan struct{}
	mu        sync.Mutex
	stopCalls int
}

func newBlockingAudioSession() *blockingAudioSession {
	return &blockingAudioSession{stopped: make(chan struct{})}
}

func (f *blockingAudioSession) Read(_ []byte) (int, error) {
	<-f.stopped
	return 0, io.EOF
}

func (f *blockingAudioSession) Close() error { return nil }

func (f *blockingAudioSession) Stop() error {
	f.mu.Lock()
	f.stopCalls++
	f.mu.Unlock()
	f.once.Do(func() { close(f.stopped) })
	return nil
}

func (f *blockingAudioSession) stopCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopCalls
}

type fakeProvider struct {
	mu       sync.Mutex
	sessions []ports.StreamingSession
	err      error
	calls    int
}

func (f *fakeProvider) StartStreaming(_ context.Context, _ ports.StreamingConfig) (ports.StreamingSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if f.calls >= len(f.sessions) {
		return nil, errors.New("no stream session configured")
	}
	session := f.sessions[f.calls]
	f.calls++
	return session, nil
}

type fakeStreamingSession struct {
	mu         sync.Mutex
	events     chan domain.TranscriptEvent
	closeSend  int
	closeCalls int
	closed     bool
}

func newFakeStreamingSession() *fakeStreamingSession {
	return &fakeStreamingSession{events: make(chan domain.TranscriptEvent, 16)}
}

func (f *fakeStreamingSession) SendAudio(_ []byte) error { return nil }

func (f *fakeStreamingSession) CloseSend() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closeSend++
	f.closeEventsLocked()
	return nil
}

func (f *fakeStreamingSession) Events() <-chan domain.TranscriptEvent { return f.events }

func (f *fakeStreamingSession) Wait() error {
	time.Sleep(5 * time.Millisecond)
	return nil
}

func (f *fakeStreamingSession) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closeCalls++
	f.closeEventsLocked()
	return nil
}

func (f *fakeStreamingSession) closeEventsLocked() {
	if !f.closed {
		close(f.events)
		f.closed = true
	}
}

func (f *fakeStreamingSession) closeSendCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closeSend
}

func (f *fakeStreamingSession) closeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closeCalls
}
