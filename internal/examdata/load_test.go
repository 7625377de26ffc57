package examdata

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"autoscribe/internal/domain"
)

func TestDemoExam(t *testing.T) {
	t.Parallel()

	exam, err := Demo()
	if err != nil {
		t.Fatalf("Demo returned error: %v", err)
	}
	if exam.ID != "AUTO-001" {
		t.Fatalf("unexpected exam id %q", exam.ID)
	}
	if len(exam.Questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(exam.Questions))
	}
	mcq := exam.Questions[0]
	if mcq.Kind != domain.QuestionKindMCQ || len(mcq.Options) != 4 {
		t.Fatalf("unexpected first question: %+v", mcq)
	}
	if mcq.CorrectAnswer == nil || *mcq.CorrectAnswer != 1 {
		t.Fatalf("expected correct answer 1, got %v", mcq.CorrectAnswer)
	}
	if exam.Questions[1].Kind != domain.QuestionKindDescriptive || exam.Questions[1].Marks != 5 {
		t.Fatalf("unexpected second question: %+v", exam.Questions[1])
	}
	if exam.TimeLimit().Minutes() != 60 {
		t.Fatalf("expected 60 minute limit, got %v", exam.TimeLimit())
	}
}

func TestLoadEmptyPathReturnsDemo(t *testing.T) {
	t.Parallel()

	exam, err := Load("  ")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exam.ID != "AUTO-001" {
		t.Fatalf("expected demo exam, got %q", exam.ID)
	}
}

func TestLoadJSONFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "exam.json")
	body := `{"id":"E1","name":"Json","questions":[{"id":"a","text":" Describe TCP. "}]}`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write exam: %v", err)
	}

	exam, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	q := exam.Questions[0]
	if q.Text != "Describe TCP." {
		t.Fatalf("expected trimmed text, got %q", q.Text)
	}
	if q.Kind != domain.QuestionKindDescriptive {
		t.Fatalf("expected inferred descriptive kind, got %q", q.Kind)
	}
}

func TestParseInfersMCQFromOptions(t *testing.T) {
	t.Parallel()

	exam, err := Parse([]byte("id: E\nquestions:\n  - id: a\n    text: Pick\n    options: [x, y]\n"), false)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if exam.Questions[0].Kind != domain.QuestionKindMCQ {
		t.Fatalf("expected mcq, got %q", exam.Questions[0].Kind)
	}
}

func TestParseRejectsBadInput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		body   string
		json   bool
		expect string
	}{
		{
			name:   "unknown yaml field",
			body:   "id: E\nbogus: 1\nquestions:\n  - id: a\n    text: t\n",
			expect: "bogus",
		},
		{
			name:   "unknown json field",
			body:   `{"id":"E","bogus":1,"questions":[{"id":"a","text":"t"}]}`,
			json:   true,
			expect: "bogus",
		},
		{
			name:   "multiple yaml documents",
			body:   "id: E\nquestions:\n  - id: a\n    text: t\n---\nid: F\n",
			expect: "multiple documents",
		},
		{
			name:   "missing questions",
			body:   "id: E\n",
			expect: "questions: is required",
		},
		{
			name:   "missing question text",
			body:   "id: E\nquestions:\n  - id: a\n",
			expect: "questions[0].text: is required",
		},
		{
			name:   "mcq with one option",
			body:   "id: E\nquestions:\n  - id: a\n    type: mcq\n    text: t\n    options: [only]\n",
			expect: "at least two options",
		},
		{
			name:   "correct answer out of range",
			body:   "id: E\nquestions:\n  - id: a\n    text: t\n    options: [x, y]\n    correctAnswer: 2\n",
			expect: "does not name one of the options",
		},
		{
			name:   "too many options",
			body:   "id: E\nquestions:\n  - id: a\n    text: t\n    options: [a, b, c, d, e]\n",
			expect: "at most 4",
		},
		{
			name:   "unknown type",
			body:   "id: E\nquestions:\n  - id: a\n    type: essay\n    text: t\n",
			expect: "must be one of",
		},
		{
			name:   "duplicate ids",
			body:   "id: E\nquestions:\n  - id: a\n    text: t\n  - id: a\n    text: u\n",
			expect: "duplicates questions[0]",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Parse([]byte(tt.body), tt.json)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.expect) {
				t.Fatalf("expected error containing %q, got %v", tt.expect, err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
