package voice

import (
	"regexp"
	"strings"

	"autoscribe/internal/domain"
)

// IntentKind names the single meaning of one transcript.
type IntentKind string

const (
	IntentIgnored        IntentKind = "ignored"
	IntentConfirmYes     IntentKind = "confirm_yes"
	IntentConfirmNo      IntentKind = "confirm_no"
	IntentReviewAnswer   IntentKind = "review_answer"
	IntentClearAnswer    IntentKind = "clear_answer"
	IntentDeleteLastWord IntentKind = "delete_last_word"
	IntentReplace        IntentKind = "replace"
	IntentNavigateNext   IntentKind = "navigate_next"
	IntentNavigatePrev   IntentKind = "navigate_prev"
	IntentSubmitExam     IntentKind = "submit_exam"
	IntentLockAnswer     IntentKind = "lock_answer"
	IntentSelectOption   IntentKind = "select_option"
	IntentDictation      IntentKind = "dictation"
)

// Intent is the classified transcript. Only the fields relevant to Kind are set.
type Intent struct {
	Kind         IntentKind
	Confirmation domain.Confirmation
	Target       string
	Replacement  string
	Letter       string
	Text         string
}

// OptionIndex maps a SelectOption letter to its zero-based option index.
func (i Intent) OptionIndex() int {
	if len(i.Letter) != 1 {
		return -1
	}
	return int(i.Letter[0] - 'A')
}

// Context carries the flow flags classification depends on.
type Context struct {
	Pending domain.Confirmation
	Mode    domain.QuestionKind
	Locked  bool
}

var (
	replacePattern   = regexp.MustCompile(`(?i)replace\s+(.+)\s+with\s+(.+)`)
	labelledOption   = regexp.MustCompile(`(?i)(?:option|choice|answer)\s*([a-d])\b`)
	standaloneOption = regexp.MustCompile(`(?i)\b([a-d])\b`)
	nextWord         = regexp.MustCompile(`\bnext\b`)
	previousWord     = regexp.MustCompile(`\bprevious\b`)
)

// step is one entry of the ordered classification table. A step returns
// ok=false to let evaluation continue with the next one.
type step func(raw string, ctx Context) (Intent, bool)

// steps is evaluated in order and the first match wins. Phrases overlap, so
// the order is part of the contract.
var steps = []step{
	confirmationStep,
	reviewStep,
	editStep,
	controlStep,
	lockedStep,
	optionStep,
	dictationStep,
}

// Classify maps a lowercase, trimmed transcript to exactly one Intent.
func Classify(raw string, ctx Context) Intent {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return Intent{Kind: IntentIgnored}
	}
	for _, classify := range steps {
		if intent, ok := classify(raw, ctx); ok {
			return intent
		}
	}
	return Intent{Kind: IntentIgnored}
}

// confirmationStep answers a pending yes/no dialog. Anything else falls
// through and is classified as if nothing were pending.
func confirmationStep(raw string, ctx Context) (Intent, bool) {
	if ctx.Pending == domain.ConfirmNone {
		return Intent{}, false
	}
	if raw == "yes" || containsAny(raw, yesMarkers) {
		return Intent{Kind: IntentConfirmYes, Confirmation: ctx.Pending}, true
	}
	if raw == "no" || containsAny(raw, noMarkers) {
		return Intent{Kind: IntentConfirmNo, Confirmation: ctx.Pending}, true
	}
	return Intent{}, false
}

func reviewStep(raw string, _ Context) (Intent, bool) {
	if containsAny(raw, reviewPhrases) {
		return Intent{Kind: IntentReviewAnswer}, true
	}
	return Intent{}, false
}

// editStep recognises in-place edits of a descriptive answer. Whether a
// replace target exists is the editor's concern, and whether the answer is
// locked is the caller's.
func editStep(raw string, ctx Context) (Intent, bool) {
	if ctx.Mode != domain.QuestionKindDescriptive {
		return Intent{}, false
	}
	if containsAny(raw, clearPhrases) {
		return Intent{Kind: IntentClearAnswer}, true
	}
	if containsAny(raw, deleteWordPhrases) {
		return Intent{Kind: IntentDeleteLastWord}, true
	}
	if match := replacePattern.FindStringSubmatch(raw); match != nil {
		target := strings.TrimSpace(match[1])
		replacement := strings.TrimSpace(match[2])
		if target != "" && replacement != "" {
			return Intent{Kind: IntentReplace, Target: target, Replacement: replacement}, true
		}
	}
	return Intent{}, false
}

func controlStep(raw string, ctx Context) (Intent, bool) {
	switch {
	case nextWord.MatchString(raw):
		return Intent{Kind: IntentNavigateNext}, true
	case previousWord.MatchString(raw):
		return Intent{Kind: IntentNavigatePrev}, true
	case strings.Contains(raw, "submit exam") || raw == "submit":
		return Intent{Kind: IntentSubmitExam}, true
	case !ctx.Locked && (strings.Contains(raw, "lock answer") || raw == "lock"):
		return Intent{Kind: IntentLockAnswer}, true
	}
	return Intent{}, false
}

func lockedStep(_ string, ctx Context) (Intent, bool) {
	if ctx.Locked {
		return Intent{Kind: IntentIgnored}, true
	}
	return Intent{}, false
}

// optionStep prefers "option b" / "choice b" / "answer b" over a bare letter.
func optionStep(raw string, ctx Context) (Intent, bool) {
	if ctx.Mode != domain.QuestionKindMCQ {
		return Intent{}, false
	}
	match := labelledOption.FindStringSubmatch(raw)
	if match == nil {
		match = standaloneOption.FindStringSubmatch(raw)
	}
	if match == nil {
		return Intent{}, false
	}
	return Intent{Kind: IntentSelectOption, Letter: strings.ToUpper(match[1])}, true
}

func dictationStep(raw string, ctx Context) (Intent, bool) {
	if ctx.Mode == domain.QuestionKindDescriptive {
		return Intent{Kind: IntentDictation, Text: raw}, true
	}
	return Intent{}, false
}
