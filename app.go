package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/wailsapp/wails/v2/pkg/runtime"

	"autoscribe/internal/bootstrap"
	"autoscribe/internal/config"
	"autoscribe/internal/domain"
	"autoscribe/internal/usecase"
)

const (
	eventPhase    = "autoscribe:phase"
	eventQuestion = "autoscribe:question"
	eventNarrated = "autoscribe:narrated"
	eventTime     = "autoscribe:time"
	eventError    = "autoscribe:error"
)

// renderQuiet coalesces bursts of question renders from interim dictation.
const renderQuiet = 60 * time.Millisecond

// App is the Wails application root.
type App struct {
	ctx    context.Context
	cancel context.CancelFunc

	services   bootstrap.Services
	controller *usecase.ExamFlowController
	cfg        config.Config
	bootErr    error

	mu       sync.Mutex
	lastView domain.QuestionView
	debounce func(func())
	runDone  chan struct{}
}

func NewApp() *App {
	return &App{debounce: debounce.New(renderQuiet)}
}

func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	services, err := bootstrap.Build(ctx, a, nil)
	if err != nil {
		a.bootErr = err
		a.FlowError(domain.ErrorCodeStartup, err.Error())
		return
	}

	a.services = services
	a.cfg = services.Config
	a.controller = services.Controller

	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.runDone = make(chan struct{})
	go func() {
		defer close(a.runDone)
		if err := a.controller.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			services.Logger.Error("exam flow stopped", "error", err)
		}
	}()
}

func (a *App) shutdown(_ context.Context) {
	if a.cancel != nil {
		a.cancel()
		<-a.runDone
	}
	if a.controller != nil {
		if err := a.services.Close(); err != nil {
			a.services.Logger.Warn("shutdown cleanup failed", "error", err)
		}
	}
}

// Next moves to the next question, as saying "next" would.
func (a *App) Next() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	a.controller.Next()
	return nil
}

// Previous moves to the previous question.
func (a *App) Previous() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	a.controller.Previous()
	return nil
}

// Submit asks for confirmation and submits the exam.
func (a *App) Submit() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	a.controller.Submit()
	return nil
}

// ToggleListening pauses or resumes the microphone.
func (a *App) ToggleListening() (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	status := a.controller.Status(a.ctx)
	if status.Listening {
		a.controller.PauseListening()
	} else {
		a.controller.ResumeListening()
	}
	return a.controller.Status(a.ctx), nil
}

// GetStatus returns the current flow status.
func (a *App) GetStatus() domain.Status {
	if a.controller == nil {
		if a.bootErr != nil {
			return domain.Status{Phase: domain.FlowPhaseIdle, Message: a.bootErr.Error()}
		}
		return domain.Status{Phase: domain.FlowPhaseIdle}
	}
	return a.controller.Status(a.ctx)
}

// GetQuestion returns the most recently rendered question view.
func (a *App) GetQuestion() domain.QuestionView {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastView
}

// GetRuntimeInfo returns non-sensitive config for the UI.
func (a *App) GetRuntimeInfo() map[string]string {
	if err := a.requireReady(); err != nil {
		return map[string]string{"error": err.Error()}
	}

	return map[string]string{
		"provider":         "Deepgram",
		"model":            a.cfg.Deepgram.Model,
		"language":         a.cfg.Deepgram.Language,
		"rulesFile":        a.cfg.Rules.Path,
		"audioInput":       a.cfg.Audio.InputDevice,
		"audioInputFormat": a.cfg.Audio.InputFormat,
		"narrator":         a.cfg.Narrator.Command,
		"exam":             a.services.Exam.Name,
		"attempt":          a.services.Attempt.ID(),
		"database":         a.cfg.Store.Driver,
	}
}

func (a *App) requireReady() error {
	if a.bootErr != nil {
		return a.bootErr
	}
	if a.controller == nil {
		return fmt.Errorf("application is not initialized")
	}
	return nil
}

// PhaseChanged emits flow lifecycle updates to the frontend.
func (a *App) PhaseChanged(phase domain.FlowPhase, reason domain.FlowReason) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventPhase, map[string]string{
		"phase":   string(phase),
		"reason":  string(reason),
		"message": phaseReasonMessage(reason),
	})
}

// QuestionRendered emits the current question view. Rapid re-renders
// collapse into the latest one.
func (a *App) QuestionRendered(view domain.QuestionView) {
	a.mu.Lock()
	a.lastView = view
	a.mu.Unlock()
	if a.ctx == nil {
		return
	}
	a.debounce(func() {
		runtime.EventsEmit(a.ctx, eventQuestion, a.GetQuestion())
	})
}

// Narrated emits the text being spoken so the UI can caption it.
func (a *App) Narrated(text string) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventNarrated, map[string]string{"text": text})
}

// TimeRemaining emits the countdown.
func (a *App) TimeRemaining(remaining time.Duration) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventTime, map[string]any{
		"seconds": int(remaining.Seconds()),
		"display": formatRemaining(remaining),
	})
}

// FlowError emits backend errors to the UI.
func (a *App) FlowError(code domain.ErrorCode, detail string) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventError, map[string]string{
		"code":    string(code),
		"message": errorMessage(code, detail),
		"detail":  detail,
	})
}

func formatRemaining(remaining time.Duration) string {
	if remaining < 0 {
		remaining = 0
	}
	total := int(remaining.Round(time.Second).Seconds())
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

func phaseReasonMessage(reason domain.FlowReason) string {
	switch reason {
	case domain.FlowReasonQuestionPresented:
		return "Reading question"
	case domain.FlowReasonNarrationFinished:
		return "Listening"
	case domain.FlowReasonConfirmAdvance:
		return "Waiting for confirmation to move on"
	case domain.FlowReasonConfirmSubmit:
		return "Waiting for confirmation to submit"
	case domain.FlowReasonConfirmDeclined:
		return "Continuing"
	case domain.FlowReasonSavingAnswer:
		return "Saving answer..."
	case domain.FlowReasonSaveFailed:
		return "Answer could not be saved"
	case domain.FlowReasonListeningPaused:
		return "Microphone paused"
	case domain.FlowReasonListeningResumed:
		return "Microphone resumed"
	case domain.FlowReasonTimedOut:
		return "Time is up"
	case domain.FlowReasonExamSubmitted:
		return "Exam submitted"
	default:
		return ""
	}
}

func errorMessage(code domain.ErrorCode, detail string) string {
	switch code {
	case domain.ErrorCodeStartup:
		return "Startup failed"
	case domain.ErrorCodeRecognizer:
		return "Speech recognition issue"
	case domain.ErrorCodePersistence:
		return "Answer could not be saved"
	case domain.ErrorCodeSubmission:
		return "Submission failed"
	case domain.ErrorCodeEdit:
		return "Edit not applied"
	default:
		if detail == "" {
			return "Unknown error"
		}
		return detail
	}
}
