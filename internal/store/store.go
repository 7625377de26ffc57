// Package store persists exam attempts and their answers.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"autoscribe/internal/domain"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

var (
	ErrAttemptSubmitted = errors.New("attempt already submitted")
	ErrAttemptNotFound  = errors.New("attempt not found")
	ErrQuestionIndex    = errors.New("question index out of range")
)

// Store owns the database handle shared by all attempts.
type Store struct {
	db     *sql.DB
	driver string
	logger *slog.Logger
	now    func() time.Time
}

// Open connects to the database and ensures the schema exists.
func Open(ctx context.Context, driver string, dsn string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch driver {
	case DriverSQLite:
		if err := ensureDir(dsn); err != nil {
			return nil, err
		}
	case DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("database open failed: %w", err)
	}
	if driver == DriverSQLite {
		// foreign_keys is per connection.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	s := &Store{db: db, driver: driver, logger: logger, now: func() time.Time { return time.Now().UTC() }}
	if driver == DriverSQLite {
		if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable foreign keys: %w", err)
		}
	}
	if err := s.createSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// BeginAttempt records a new attempt at exam and returns its handle.
func (s *Store) BeginAttempt(ctx context.Context, exam domain.Exam) (*Attempt, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO exam_attempt (id, exam_id, exam_name, question_count, started_at)
		VALUES (?, ?, ?, ?, ?)`),
		id, exam.ID, exam.Name, len(exam.Questions), s.now())
	if err != nil {
		return nil, fmt.Errorf("begin attempt: %w", err)
	}
	s.logger.Info("exam attempt started", "attempt", id, "exam", exam.ID)
	return &Attempt{
		store:      s,
		id:         id,
		exam:       exam,
		byIndex:    make(map[int]domain.AnswerRecord),
		byQuestion: make(map[string]domain.AnswerRecord),
	}, nil
}

// AttemptRecord is a persisted attempt read back for export.
type AttemptRecord struct {
	ID          string         `json:"id"`
	ExamID      string         `json:"examId"`
	ExamName    string         `json:"examName"`
	StartedAt   time.Time      `json:"startedAt"`
	SubmittedAt *time.Time     `json:"submittedAt,omitempty"`
	Answers     []StoredAnswer `json:"answers"`
}

// StoredAnswer is one answer row.
type StoredAnswer struct {
	Index      int                 `json:"index"`
	QuestionID string              `json:"questionId"`
	Answer     domain.AnswerRecord `json:"answer"`
}

// LoadAttempt reads an attempt and its answers ordered by question index.
func (s *Store) LoadAttempt(ctx context.Context, id string) (AttemptRecord, error) {
	var (
		rec       AttemptRecord
		submitted sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, s.q(`
		SELECT id, exam_id, exam_name, started_at, submitted_at
		FROM exam_attempt WHERE id = ?`), id).
		Scan(&rec.ID, &rec.ExamID, &rec.ExamName, &rec.StartedAt, &submitted)
	if errors.Is(err, sql.ErrNoRows) {
		return AttemptRecord{}, ErrAttemptNotFound
	}
	if err != nil {
		return AttemptRecord{}, fmt.Errorf("load attempt: %w", err)
	}
	if submitted.Valid {
		at := submitted.Time
		rec.SubmittedAt = &at
	}

	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT question_index, question_id, kind, option_index, text_value
		FROM answer WHERE attempt_id = ? ORDER BY question_index`), id)
	if err != nil {
		return AttemptRecord{}, fmt.Errorf("load answers: %w", err)
	}
	defer rows.Close()

	rec.Answers = []StoredAnswer{}
	for rows.Next() {
		var (
			stored StoredAnswer
			kind   string
			option sql.NullInt64
			text   sql.NullString
		)
		if err := rows.Scan(&stored.Index, &stored.QuestionID, &kind, &option, &text); err != nil {
			return AttemptRecord{}, fmt.Errorf("scan answer: %w", err)
		}
		stored.Answer = domain.AnswerRecord{
			Kind:   domain.AnswerKind(kind),
			Option: int(option.Int64),
			Text:   text.String,
		}
		rec.Answers = append(rec.Answers, stored)
	}
	if err := rows.Err(); err != nil {
		return AttemptRecord{}, fmt.Errorf("load answers: %w", err)
	}
	return rec, nil
}

func (s *Store) q(query string) string {
	return rebind(s.driver, query)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) upsertAnswer(ctx context.Context, db execer, attemptID string, index int, questionID string, answer domain.AnswerRecord) error {
	var (
		option sql.NullInt64
		text   sql.NullString
	)
	switch answer.Kind {
	case domain.AnswerKindOption:
		option = sql.NullInt64{Int64: int64(answer.Option), Valid: true}
	case domain.AnswerKindText:
		text = sql.NullString{String: answer.Text, Valid: true}
	}
	_, err := db.ExecContext(ctx, s.q(upsertAnswerSQL),
		attemptID, index, questionID, string(answer.Kind), option, text, s.now())
	return err
}

func (s *Store) deleteAnswer(ctx context.Context, db execer, attemptID string, index int) error {
	_, err := db.ExecContext(ctx, s.q(`DELETE FROM answer WHERE attempt_id = ? AND question_index = ?`), attemptID, index)
	return err
}

func ensureDir(dsn string) error {
	if dsn == "" || strings.HasPrefix(dsn, ":memory:") || strings.HasPrefix(dsn, "file:") {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
		return fmt.Errorf("create database directory: %w", err)
	}
	return nil
}

// Attempt is one in-progress exam attempt. It keeps an in-memory mirror of
// the saved answers keyed by question index and by question ID.
type Attempt struct {
	store *Store
	id    string
	exam  domain.Exam

	mu         sync.Mutex
	byIndex    map[int]domain.AnswerRecord
	byQuestion map[string]domain.AnswerRecord
	submitted  bool
}

func (a *Attempt) ID() string {
	return a.id
}

// SaveAnswer stores the answer for a question. An empty answer removes it.
func (a *Attempt) SaveAnswer(ctx context.Context, index int, questionID string, answer domain.AnswerRecord) error {
	if index < 0 || index >= len(a.exam.Questions) {
		return fmt.Errorf("%w: %d", ErrQuestionIndex, index)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.submitted {
		return ErrAttemptSubmitted
	}

	if answer.IsEmpty() {
		if err := a.store.deleteAnswer(ctx, a.store.db, a.id, index); err != nil {
			return fmt.Errorf("delete answer: %w", err)
		}
		delete(a.byIndex, index)
		delete(a.byQuestion, questionID)
		return nil
	}

	if err := a.store.upsertAnswer(ctx, a.store.db, a.id, index, questionID, answer); err != nil {
		return fmt.Errorf("save answer: %w", err)
	}
	a.byIndex[index] = answer
	a.byQuestion[questionID] = answer
	return nil
}

// Submit replaces the stored answers with answers and closes the attempt.
func (a *Attempt) Submit(ctx context.Context, answers map[int]domain.AnswerRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.submitted {
		return ErrAttemptSubmitted
	}

	tx, err := a.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("submit attempt: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, a.store.q(`DELETE FROM answer WHERE attempt_id = ?`), a.id); err != nil {
		return fmt.Errorf("submit attempt: %w", err)
	}
	byIndex := make(map[int]domain.AnswerRecord, len(answers))
	byQuestion := make(map[string]domain.AnswerRecord, len(answers))
	for index, answer := range answers {
		if index < 0 || index >= len(a.exam.Questions) {
			return fmt.Errorf("%w: %d", ErrQuestionIndex, index)
		}
		if answer.IsEmpty() {
			continue
		}
		questionID := a.exam.Questions[index].ID
		if err := a.store.upsertAnswer(ctx, tx, a.id, index, questionID, answer); err != nil {
			return fmt.Errorf("submit attempt: %w", err)
		}
		byIndex[index] = answer
		byQuestion[questionID] = answer
	}
	if _, err := tx.ExecContext(ctx, a.store.q(`UPDATE exam_attempt SET submitted_at = ? WHERE id = ?`), a.store.now(), a.id); err != nil {
		return fmt.Errorf("submit attempt: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("submit attempt: %w", err)
	}

	a.byIndex = byIndex
	a.byQuestion = byQuestion
	a.submitted = true
	a.store.logger.Info("exam attempt submitted", "attempt", a.id, "answers", len(byIndex))
	return nil
}

// Submitted reports whether Submit has succeeded.
func (a *Attempt) Submitted() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.submitted
}

// AnswersByIndex returns a copy of the mirror keyed by question index.
func (a *Attempt) AnswersByIndex() map[int]domain.AnswerRecord {
	a.mu.Lock()
	defer a.mu.Unlock()
	return maps.Clone(a.byIndex)
}

// AnswersByQuestion returns a copy of the mirror keyed by question ID.
func (a *Attempt) AnswersByQuestion() map[string]domain.AnswerRecord {
	a.mu.Lock()
	defer a.mu.Unlock()
	return maps.Clone(a.byQuestion)
}
