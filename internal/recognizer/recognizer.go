// Package recognizer implements a continuous speech recognizer on top of
// microphone capture and a streaming transcription provider.
package recognizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"autoscribe/internal/ports"
)

const defaultCloseTimeout = 4 * time.Second

// Config controls capture and streaming for each recognition session.
type Config struct {
	Audio     ports.AudioConfig
	Streaming ports.StreamingConfig
	ChunkSize int
	// StreamingGrace is how long a stopped session may keep flushing audio
	// before the stream is half-closed.
	StreamingGrace time.Duration
	CloseTimeout   time.Duration
}

// StreamingRecognizer runs at most one session at a time. Start and Stop
// return promptly; teardown of a stopped session happens in the background
// and its late results are dropped.
type StreamingRecognizer struct {
	audio    ports.AudioCapture
	provider ports.TranscriptionProvider
	cfg      Config
	logger   *slog.Logger

	mu      sync.Mutex
	current *session
	wg      sync.WaitGroup
}

type session struct {
	cancel  context.CancelFunc
	audio   ports.AudioSession
	stream  ports.StreamingSession
	results *resultList
}

func New(audio ports.AudioCapture, provider ports.TranscriptionProvider, cfg Config, logger *slog.Logger) *StreamingRecognizer {
	if cfg.ChunkSize < 256 {
		cfg.ChunkSize = 4096
	}
	if cfg.CloseTimeout <= 0 {
		cfg.CloseTimeout = defaultCloseTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &StreamingRecognizer{audio: audio, provider: provider, cfg: cfg, logger: logger}
}

// Start opens a provider stream and begins capturing audio into it.
func (r *StreamingRecognizer) Start(ctx context.Context, sink ports.RecognitionSink) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current != nil {
		return ports.ErrRecognizerRunning
	}

	sessionCtx, cancel := context.WithCancel(ctx)
	stream, err := r.provider.StartStreaming(sessionCtx, r.cfg.Streaming)
	if err != nil {
		cancel()
		return fmt.Errorf("start transcription stream: %w", err)
	}

	audio, err := r.audio.Start(sessionCtx, r.cfg.Audio)
	if err != nil {
		_ = stream.Close()
		cancel()
		return fmt.Errorf("start audio capture: %w", err)
	}

	s := &session{
		cancel:  cancel,
		audio:   audio,
		stream:  stream,
		results: newResultList(),
	}
	r.current = s

	r.wg.Add(2)
	go r.consume(s, sink)
	go r.pump(s)
	return nil
}

// Stop ends the active session. It returns ports.ErrRecognizerStopped when
// none is running.
func (r *StreamingRecognizer) Stop() error {
	r.mu.Lock()
	s := r.current
	r.current = nil
	r.mu.Unlock()

	if s == nil {
		return ports.ErrRecognizerStopped
	}

	r.wg.Add(1)
	go r.shutdown(s)
	return nil
}

// Close stops any active session and waits for all session goroutines.
func (r *StreamingRecognizer) Close() error {
	if err := r.Stop(); err != nil && !errors.Is(err, ports.ErrRecognizerStopped) {
		return err
	}
	r.wg.Wait()
	return nil
}

// Active reports whether a session is running.
func (r *StreamingRecognizer) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current != nil
}

func (r *StreamingRecognizer) consume(s *session, sink ports.RecognitionSink) {
	defer r.wg.Done()

	for event := range s.stream.Events() {
		result, ok := s.results.Add(event)
		if !ok || !r.isCurrent(s) {
			continue
		}
		sink.RecognitionResult(result)
	}

	if !r.detach(s) {
		return
	}
	// The provider closed the session on its own.
	s.cancel()
	_ = s.audio.Stop()
	r.logger.Debug("recognition session ended")
	sink.RecognitionEnded()
}

func (r *StreamingRecognizer) pump(s *session) {
	defer r.wg.Done()

	if err := pumpAudioChunks(s.audio, s.stream, r.cfg.ChunkSize); err != nil && r.isCurrent(s) {
		r.logger.Warn("recognizer audio stopped", "error", err)
	}
	_ = s.stream.CloseSend()
}

func (r *StreamingRecognizer) shutdown(s *session) {
	defer r.wg.Done()
	defer s.cancel()

	if err := s.audio.Stop(); err != nil {
		r.logger.Debug("failed to stop audio capture cleanly", "error", err)
	}

	if r.cfg.StreamingGrace > 0 {
		time.Sleep(r.cfg.StreamingGrace)
	}

	_ = s.stream.CloseSend()
	if err := waitForStream(s.stream, r.cfg.CloseTimeout); err != nil {
		r.logger.Debug("transcription stream closed with error", "error", err)
	}
}

func (r *StreamingRecognizer) isCurrent(s *session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current == s
}

// detach clears s if it is still the active session.
func (r *StreamingRecognizer) detach(s *session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current != s {
		return false
	}
	r.current = nil
	return true
}
