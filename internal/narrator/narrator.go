// Package narrator speaks text through an external text-to-speech command.
package narrator

import (
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
)

// Config selects the TTS command and its voice settings.
type Config struct {
	Command string
	Voice   string
	// Rate is in words per minute; zero keeps the command's default.
	Rate int
}

// CommandNarrator runs one TTS process per utterance. A new Speak kills the
// utterance in progress; the killed utterance's onDone is never called.
type CommandNarrator struct {
	cfg    Config
	logger *slog.Logger

	mu      sync.Mutex
	current *utterance
}

type utterance struct {
	cancel    context.CancelFunc
	done      chan struct{}
	cancelled bool
}

func New(cfg Config, logger *slog.Logger) *CommandNarrator {
	if cfg.Command == "" {
		cfg.Command = "espeak-ng"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CommandNarrator{cfg: cfg, logger: logger}
}

// Speak starts narrating text. onDone runs on the narrator's goroutine once
// the utterance ends on its own, including when the command fails.
func (n *CommandNarrator) Speak(text string, onDone func()) {
	ctx, cancel := context.WithCancel(context.Background())
	u := &utterance{cancel: cancel, done: make(chan struct{})}

	n.mu.Lock()
	previous := n.current
	if previous != nil {
		previous.cancelled = true
		previous.cancel()
	}
	n.current = u
	n.mu.Unlock()

	go n.run(ctx, u, previous, text, onDone)
}

// IsSpeaking reports whether an utterance is in progress.
func (n *CommandNarrator) IsSpeaking() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current != nil
}

// Stop cancels the utterance in progress without calling its onDone.
func (n *CommandNarrator) Stop() {
	n.mu.Lock()
	u := n.current
	n.current = nil
	if u != nil {
		u.cancelled = true
		u.cancel()
	}
	n.mu.Unlock()

	if u != nil {
		<-u.done
	}
}

func (n *CommandNarrator) run(ctx context.Context, u *utterance, previous *utterance, text string, onDone func()) {
	defer close(u.done)
	defer u.cancel()

	// Never let two voices overlap.
	if previous != nil {
		<-previous.done
	}

	var err error
	if ctx.Err() == nil {
		err = exec.CommandContext(ctx, n.cfg.Command, commandArgs(n.cfg, text)...).Run()
	}

	n.mu.Lock()
	cancelled := u.cancelled
	if n.current == u {
		n.current = nil
	}
	n.mu.Unlock()

	if cancelled {
		return
	}
	if err != nil && !errors.Is(ctx.Err(), context.Canceled) {
		n.logger.Warn("narration failed", "command", n.cfg.Command, "error", err)
	}
	if onDone != nil {
		onDone()
	}
}

// commandArgs builds arguments for espeak-style commands, or macOS say.
func commandArgs(cfg Config, text string) []string {
	var args []string
	isSay := filepath.Base(cfg.Command) == "say"
	if cfg.Voice != "" {
		args = append(args, "-v", cfg.Voice)
	}
	if cfg.Rate > 0 {
		flag := "-s"
		if isSay {
			flag = "-r"
		}
		args = append(args, flag, strconv.Itoa(cfg.Rate))
	}
	return append(args, text)
}
