package bootstrap

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"autoscribe/internal/domain"
)

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("AUTOSCRIBE_ENV_FILE", filepath.Join(home, "missing.env"))
	t.Setenv("AUTOSCRIBE_DB_DRIVER", "sqlite")
	t.Setenv("AUTOSCRIBE_DB_DSN", filepath.Join(home, "autoscribe.db"))
	t.Setenv("AUTOSCRIBE_RULES_FILE", "")
	t.Setenv("AUTOSCRIBE_EXAM_FILE", "")
	return home
}

func TestBuildSuccess(t *testing.T) {
	isolate(t)
	t.Setenv("DEEPGRAM_API_KEY", "test-key")

	services, err := Build(context.Background(), noopEventSink{}, io.Discard)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	t.Cleanup(func() { services.Close() })

	if services.Controller == nil {
		t.Fatalf("expected controller")
	}
	if services.Exam.ID != "AUTO-001" {
		t.Fatalf("expected demo exam, got %q", services.Exam.ID)
	}
	if services.Attempt == nil || services.Attempt.ID() == "" {
		t.Fatalf("expected an open attempt")
	}

	rec, err := services.Store.LoadAttempt(context.Background(), services.Attempt.ID())
	if err != nil {
		t.Fatalf("load attempt: %v", err)
	}
	if rec.ExamID != "AUTO-001" {
		t.Fatalf("unexpected attempt record: %+v", rec)
	}
}

func TestBuildFailsOnInvalidRules(t *testing.T) {
	home := isolate(t)
	rules := filepath.Join(home, "bad.rules")
	if err := os.WriteFile(rules, []byte("not a valid rule\n"), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	t.Setenv("AUTOSCRIBE_RULES_FILE", rules)

	_, err := Build(context.Background(), noopEventSink{}, io.Discard)
	if err == nil {
		t.Fatalf("expected build error due to invalid rules")
	}
}

func TestBuildFailsOnInvalidExam(t *testing.T) {
	home := isolate(t)
	exam := filepath.Join(home, "exam.yaml")
	if err := os.WriteFile(exam, []byte("id: E\nquestions: []\n"), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	t.Setenv("AUTOSCRIBE_EXAM_FILE", exam)

	if _, err := Build(context.Background(), noopEventSink{}, io.Discard); err == nil {
		t.Fatalf("expected build error due to invalid exam")
	}
}

func TestVocabularyKeywords(t *testing.T) {
	t.Parallel()

	got := vocabularyKeywords([]string{
		"cyber security => cybersecurity",
		"s/colour/color/g",
		"Cyber-Security => Cybersecurity",
		"ram =>  ",
		"tcp ip => TCP/IP",
	})
	want := []string{"cybersecurity", "TCP/IP"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

type noopEventSink struct{}

func (noopEventSink) PhaseChanged(domain.FlowPhase, domain.FlowReason) {}
func (noopEventSink) QuestionRendered(domain.QuestionView)             {}
func (noopEventSink) Narrated(string)                                  {}
func (noopEventSink) TimeRemaining(time.Duration)                      {}
func (noopEventSink) FlowError(domain.ErrorCode, string)               {}
