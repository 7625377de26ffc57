package usecase

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"autoscribe/internal/domain"
)

func TestAnswerSaverRetriesUntilSuccess(t *testing.T) {
	t.Parallel()

	store := &fakeStore{failures: 2, err: errors.New("busy")}
	saver := newAnswerSaver(store, 3, time.Millisecond, slog.Default())

	if err := saver.Save(context.Background(), 0, "q1", domain.OptionAnswer(2)); err != nil {
		t.Fatalf("expected success on third attempt, got %v", err)
	}
	if calls := store.snapshotCalls(); len(calls) != 3 {
		t.Fatalf("expected 3 attempts, got %d", len(calls))
	}
}

func TestAnswerSaverWrapsFinalError(t *testing.T) {
	t.Parallel()

	busy := errors.New("busy")
	store := &fakeStore{failures: 10, err: busy}
	saver := newAnswerSaver(store, 2, 0, slog.Default())

	err := saver.Save(context.Background(), 1, "q2", domain.TextAnswer("x"))
	if !errors.Is(err, busy) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
	if calls := store.snapshotCalls(); len(calls) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(calls))
	}
}

func TestAnswerSaverStopsOnCancel(t *testing.T) {
	t.Parallel()

	store := &fakeStore{failures: 10, err: errors.New("busy")}
	saver := newAnswerSaver(store, 5, time.Hour, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := saver.Save(ctx, 0, "q1", domain.OptionAnswer(0)); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestAnswerSaverDefaultsToSingleAttempt(t *testing.T) {
	t.Parallel()

	store := &fakeStore{failures: 1, err: errors.New("busy")}
	saver := newAnswerSaver(store, 0, -time.Second, slog.Default())
	if err := saver.Save(context.Background(), 0, "q1", domain.OptionAnswer(0)); err == nil {
		t.Fatalf("expected failure with a single attempt")
	}
}
