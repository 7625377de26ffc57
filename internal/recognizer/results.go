package recognizer

import (
	"strings"
	"sync"

	"autoscribe/internal/domain"
)

// maxFinals bounds how many finalized hypotheses a session keeps.
const maxFinals = 64

// resultList turns provider transcript events into the cumulative result
// list a continuous recognizer reports: finalized hypotheses followed by the
// current interim one, with ResultIndex pointing at the first changed entry.
type resultList struct {
	mu      sync.Mutex
	finals  []domain.Hypothesis
	interim *domain.Hypothesis
}

func newResultList() *resultList {
	return &resultList{}
}

// Add records event and returns the updated list. ok is false for events
// carrying no text.
func (l *resultList) Add(event domain.TranscriptEvent) (domain.RecognitionResult, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	text := strings.TrimSpace(event.Text)
	if text == "" {
		return domain.RecognitionResult{}, false
	}

	hypothesis := domain.Hypothesis{
		Transcript: text,
		IsFinal:    event.Kind == domain.TranscriptKindFinal,
		Confidence: event.Confidence,
	}
	if !hypothesis.IsFinal {
		l.interim = &hypothesis
		return l.snapshot(len(l.finals)), true
	}

	l.interim = nil
	l.finals = append(l.finals, hypothesis)
	if len(l.finals) > maxFinals {
		l.finals = append([]domain.Hypothesis(nil), l.finals[len(l.finals)-maxFinals:]...)
	}
	return l.snapshot(len(l.finals) - 1), true
}

func (l *resultList) snapshot(index int) domain.RecognitionResult {
	results := make([]domain.Hypothesis, 0, len(l.finals)+1)
	results = append(results, l.finals...)
	if l.interim != nil {
		results = append(results, *l.interim)
	}
	return domain.RecognitionResult{ResultIndex: index, Results: results}
}
