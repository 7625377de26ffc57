package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Statements are written with ? placeholders and rebound per driver.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS exam_attempt (
    id TEXT PRIMARY KEY,
    exam_id TEXT NOT NULL,
    exam_name TEXT NOT NULL DEFAULT '',
    question_count INTEGER NOT NULL,
    started_at TIMESTAMP NOT NULL,
    submitted_at TIMESTAMP
)`,
	`CREATE TABLE IF NOT EXISTS answer (
    attempt_id TEXT NOT NULL REFERENCES exam_attempt(id) ON DELETE CASCADE,
    question_index INTEGER NOT NULL,
    question_id TEXT NOT NULL,
    kind TEXT NOT NULL,
    option_index INTEGER,
    text_value TEXT,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (attempt_id, question_index)
)`,
	`CREATE INDEX IF NOT EXISTS idx_exam_attempt_exam ON exam_attempt(exam_id)`,
}

const upsertAnswerSQL = `
INSERT INTO answer (attempt_id, question_index, question_id, kind, option_index, text_value, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (attempt_id, question_index) DO UPDATE SET
    question_id = EXCLUDED.question_id,
    kind = EXCLUDED.kind,
    option_index = EXCLUDED.option_index,
    text_value = EXCLUDED.text_value,
    updated_at = EXCLUDED.updated_at`

// createSchema is safe to call on every open.
func (s *Store) createSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// rebind rewrites ? placeholders to $n for drivers that need it.
func rebind(driver string, query string) string {
	if driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}
