package usecase

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"autoscribe/internal/ports"
	"autoscribe/internal/voice"
)

// ErrEmptyEdit is returned when there is nothing in the answer to edit.
var ErrEmptyEdit = errors.New("nothing to delete")

// TargetNotFoundError reports a replace target absent from the answer.
type TargetNotFoundError struct {
	Target string
}

func (e *TargetNotFoundError) Error() string {
	return fmt.Sprintf("target %q not found in answer", e.Target)
}

// AnswerEditor owns the free-text buffer of a descriptive question. It knows
// nothing about locking; callers must not invoke mutators on a locked answer.
type AnswerEditor struct {
	vocabulary ports.VocabularyRules
	buffer     string
}

// NewAnswerEditor creates an editor. vocabulary may be nil.
func NewAnswerEditor(vocabulary ports.VocabularyRules) *AnswerEditor {
	return &AnswerEditor{vocabulary: vocabulary}
}

// Buffer returns the accumulated, unnormalized answer text.
func (e *AnswerEditor) Buffer() string {
	return e.buffer
}

// Reset replaces the buffer, e.g. with a previously cached answer.
func (e *AnswerEditor) Reset(text string) {
	e.buffer = strings.TrimSpace(text)
}

// Append adds a final dictation segment. It returns false when the segment
// normalizes to nothing.
func (e *AnswerEditor) Append(segment string) bool {
	if e.vocabulary != nil {
		if rewritten, err := e.vocabulary.Apply(segment); err == nil {
			segment = rewritten
		}
	}
	clean := voice.Normalize(segment)
	if clean == "" {
		return false
	}
	e.buffer = strings.TrimSpace(e.buffer + " " + clean)
	return true
}

// DeleteLastWord pops the last whitespace-delimited token and returns it.
func (e *AnswerEditor) DeleteLastWord() (string, error) {
	words := strings.Fields(e.buffer)
	if len(words) == 0 {
		return "", ErrEmptyEdit
	}
	removed := words[len(words)-1]
	e.buffer = strings.Join(words[:len(words)-1], " ")
	return removed, nil
}

// Clear empties the buffer.
func (e *AnswerEditor) Clear() {
	e.buffer = ""
}

// Replace swaps every case-insensitive occurrence of target for replacement.
func (e *AnswerEditor) Replace(target, replacement string) error {
	target = strings.TrimSpace(target)
	if target == "" || !strings.Contains(strings.ToLower(e.buffer), strings.ToLower(target)) {
		return &TargetNotFoundError{Target: target}
	}
	re := regexp.MustCompile("(?i)" + regexp.QuoteMeta(target))
	e.buffer = re.ReplaceAllLiteralString(e.buffer, replacement)
	return nil
}

// Display is the normalized view of the buffer.
func (e *AnswerEditor) Display() string {
	return voice.Normalize(e.buffer)
}

// LiveDisplay previews the buffer followed by interim text, leaving the
// buffer untouched.
func (e *AnswerEditor) LiveDisplay(interim string) string {
	return voice.Normalize(e.buffer + " " + interim)
}
