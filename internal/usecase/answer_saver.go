package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"autoscribe/internal/domain"
	"autoscribe/internal/ports"
)

// answerSaver retries a failed save with exponential backoff before giving up.
type answerSaver struct {
	store    ports.AnswerStore
	attempts int
	backoff  time.Duration
	logger   *slog.Logger
}

func newAnswerSaver(store ports.AnswerStore, attempts int, backoff time.Duration, logger *slog.Logger) answerSaver {
	if attempts <= 0 {
		attempts = 1
	}
	if backoff < 0 {
		backoff = 0
	}
	return answerSaver{store: store, attempts: attempts, backoff: backoff, logger: logger}
}

func (s answerSaver) Save(ctx context.Context, index int, questionID string, answer domain.AnswerRecord) error {
	wait := s.backoff
	var err error
	for attempt := 1; attempt <= s.attempts; attempt++ {
		err = s.store.SaveAnswer(ctx, index, questionID, answer)
		if err == nil {
			return nil
		}
		s.logger.Warn("save answer failed", "index", index, "question", questionID, "attempt", attempt, "error", err)
		if attempt == s.attempts {
			break
		}

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
		wait *= 2
	}
	return fmt.Errorf("save answer for question %d after %d attempts: %w", index+1, s.attempts, err)
}
