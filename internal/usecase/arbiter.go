package usecase

import (
	"context"
	"errors"
	"log/slog"

	"autoscribe/internal/ports"
)

// micArbiter keeps the recognizer active exactly when the flow wants to
// listen, the user has not muted the microphone, and the narrator is silent. It is owned by the controller loop and
// is not safe for concurrent use.
type micArbiter struct {
	recognizer ports.Recognizer
	narrator   ports.Narrator
	sink       ports.RecognitionSink
	logger     *slog.Logger

	// post delivers narration completions back onto the controller loop.
	post func(flowEvent)
	// startFailed, if set, is told about recognizer start errors.
	startFailed func(error)

	ctx       context.Context
	listening bool
	// muted is the user's pause. Prompts do not clear it.
	muted     bool
	speaking  bool
	active    bool
	utterance uint64
}

func newMicArbiter(recognizer ports.Recognizer, narrator ports.Narrator, sink ports.RecognitionSink, logger *slog.Logger, post func(flowEvent)) *micArbiter {
	return &micArbiter{
		recognizer: recognizer,
		narrator:   narrator,
		sink:       sink,
		logger:     logger,
		post:       post,
		ctx:        context.Background(),
	}
}

// Speak narrates text with the recognizer paused. Listening intent is left
// as is, so the recognizer resumes afterwards if the flow was listening.
func (a *micArbiter) Speak(text string) {
	a.pause()
	a.utterance++
	id := a.utterance
	a.speaking = true
	a.narrator.Speak(text, func() {
		a.post(narrationDone{utterance: id})
	})
}

// SpeakThenListen narrates text and starts listening once it has finished.
func (a *micArbiter) SpeakThenListen(text string) {
	a.listening = true
	a.Speak(text)
}

// Listen declares the intent to listen.
func (a *micArbiter) Listen() {
	a.listening = true
	a.resume()
}

// Mute turns the microphone off until Unmute, whatever the flow asks for.
func (a *micArbiter) Mute() {
	a.muted = true
	a.pause()
}

// Unmute lifts a Mute. The recognizer restarts if the flow is listening.
func (a *micArbiter) Unmute() {
	a.muted = false
	a.resume()
}

// StopListening drops the intent to listen and stops the recognizer.
func (a *micArbiter) StopListening() {
	a.listening = false
	a.pause()
}

// NarrationDone handles a narrator completion. It reports false for
// completions of superseded utterances.
func (a *micArbiter) NarrationDone(utterance uint64) bool {
	if utterance != a.utterance || !a.speaking {
		return false
	}
	a.speaking = false
	a.resume()
	return true
}

// RecognizerEnded restarts recognition when the session ended on its own,
// e.g. a silence timeout, and the flow still wants to listen.
func (a *micArbiter) RecognizerEnded() {
	a.active = false
	a.resume()
}

// Listening reports whether the microphone is wanted and not muted.
func (a *micArbiter) Listening() bool { return a.listening && !a.muted }
func (a *micArbiter) Speaking() bool  { return a.speaking }

func (a *micArbiter) resume() {
	if !a.listening || a.muted || a.speaking || a.active {
		return
	}
	err := a.recognizer.Start(a.ctx, a.sink)
	switch {
	case err == nil, errors.Is(err, ports.ErrRecognizerRunning):
		a.active = true
	default:
		a.logger.Warn("recognizer start failed", "error", err)
		if a.startFailed != nil {
			a.startFailed(err)
		}
	}
}

func (a *micArbiter) pause() {
	a.active = false
	if err := a.recognizer.Stop(); err != nil && !errors.Is(err, ports.ErrRecognizerStopped) {
		a.logger.Debug("recognizer stop failed", "error", err)
	}
}
