package bootstrap

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"

	"autoscribe/internal/audio"
	"autoscribe/internal/config"
	"autoscribe/internal/domain"
	"autoscribe/internal/examdata"
	"autoscribe/internal/narrator"
	"autoscribe/internal/ports"
	"autoscribe/internal/providers/deepgram"
	"autoscribe/internal/recognizer"
	"autoscribe/internal/rules"
	"autoscribe/internal/store"
	"autoscribe/internal/usecase"
)

// Services is the assembled runtime graph for one exam attempt.
type Services struct {
	Controller *usecase.ExamFlowController
	Config     config.Config
	Exam       domain.Exam
	Attempt    *store.Attempt
	Store      *store.Store
	Logger     *slog.Logger

	recognizer *recognizer.StreamingRecognizer
	narrator   *narrator.CommandNarrator
}

// Build wires all backend dependencies for the current runtime. Logs go to
// logOutput, or stderr when nil.
func Build(ctx context.Context, eventSink ports.EventSink, logOutput io.Writer) (Services, error) {
	cfg, err := config.Load()
	if err != nil {
		return Services{}, err
	}
	if logOutput == nil {
		logOutput = os.Stderr
	}
	logger := slog.New(slog.NewTextHandler(logOutput, &slog.HandlerOptions{Level: cfg.Flow.LogLevel}))

	exam, err := examdata.Load(cfg.Exam.Path)
	if err != nil {
		return Services{}, err
	}

	fileRules, err := rules.NewEngine(cfg.Rules.Path, cfg.Rules.IterationLimit)
	if err != nil {
		return Services{}, err
	}
	examRules, err := rules.Compile(exam.Vocabulary, cfg.Rules.IterationLimit)
	if err != nil {
		return Services{}, err
	}
	vocabulary := fileRules.Merge(examRules)

	db, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DSN, logger)
	if err != nil {
		return Services{}, err
	}
	attempt, err := db.BeginAttempt(ctx, exam)
	if err != nil {
		db.Close()
		return Services{}, err
	}

	rec := recognizer.New(
		audio.NewMicrophoneCapture(cfg.Audio.RecorderCommand, cfg.Audio.Filter),
		deepgram.NewProvider(deepgram.Config{
			APIKey:      cfg.Deepgram.APIKey,
			APIBaseURL:  cfg.Deepgram.APIBaseURL,
			Model:       cfg.Deepgram.Model,
			Language:    cfg.Deepgram.Language,
			SmartFormat: cfg.Deepgram.SmartFormat,
			KeepAlive:   cfg.Deepgram.KeepAlive,
		}),
		recognizer.Config{
			Audio: ports.AudioConfig{
				SampleRate:  cfg.Audio.SampleRate,
				Channels:    cfg.Audio.Channels,
				InputFormat: cfg.Audio.InputFormat,
				InputDevice: cfg.Audio.InputDevice,
			},
			Streaming: ports.StreamingConfig{
				SampleRate:     cfg.Audio.SampleRate,
				Channels:       cfg.Audio.Channels,
				Encoding:       "linear16",
				Language:       cfg.Deepgram.Language,
				InterimResults: true,
				Keywords:       vocabularyKeywords(exam.Vocabulary),
				EndpointingMs:  cfg.Deepgram.EndpointingMs,
			},
			ChunkSize:      cfg.Session.ChunkSize,
			StreamingGrace: cfg.Session.StreamingGrace,
		},
		logger,
	)
	voice := narrator.New(narrator.Config{
		Command: cfg.Narrator.Command,
		Voice:   cfg.Narrator.Voice,
		Rate:    cfg.Narrator.Rate,
	}, logger)

	controller := usecase.NewExamFlowController(
		exam,
		usecase.FlowPorts{
			Recognizer: rec,
			Narrator:   voice,
			Store:      attempt,
			Submitter:  attempt,
			Vocabulary: vocabulary,
			Events:     eventSink,
		},
		usecase.FlowConfig{
			TimeLimit:           cfg.Exam.TimeLimit,
			AutoSubmitOnTimeout: cfg.Exam.AutoSubmitOnTimeout,
			SaveAttempts:        cfg.Flow.SaveAttempts,
			SaveBackoff:         cfg.Flow.SaveBackoff,
			Logger:              logger,
		},
	)

	logger.Info("exam ready",
		"exam", exam.ID,
		"questions", len(exam.Questions),
		"attempt", attempt.ID(),
		"vocabularyRules", vocabulary.Len(),
	)

	return Services{
		Controller: controller,
		Config:     cfg,
		Exam:       exam,
		Attempt:    attempt,
		Store:      db,
		Logger:     logger,
		recognizer: rec,
		narrator:   voice,
	}, nil
}

// Close releases the microphone, silences narration and closes the store.
func (s Services) Close() error {
	var errs []error
	if s.recognizer != nil {
		errs = append(errs, s.recognizer.Close())
	}
	if s.narrator != nil {
		s.narrator.Stop()
	}
	if s.Store != nil {
		errs = append(errs, s.Store.Close())
	}
	return errors.Join(errs...)
}

// vocabularyKeywords extracts the replacement side of literal vocabulary
// rules as recognition hints.
func vocabularyKeywords(lines []string) []string {
	var keywords []string
	seen := make(map[string]bool)
	for _, line := range lines {
		_, to, ok := strings.Cut(line, "=>")
		if !ok {
			continue
		}
		to = strings.TrimSpace(to)
		if to == "" || seen[strings.ToLower(to)] {
			continue
		}
		seen[strings.ToLower(to)] = true
		keywords = append(keywords, to)
	}
	return keywords
}
