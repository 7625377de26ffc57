// Package voice turns raw recognizer transcripts into display prose and
// classifies them into exam-flow intents.
package voice

import (
	"regexp"
	"unicode"
	"unicode/utf8"

	"github.com/samber/lo"

	"autoscribe/internal/rules"
)

var (
	scrubber      = newScrubber()
	standaloneI   = regexp.MustCompile(`\bi\b`)
	terminalPunct = regexp.MustCompile(`[.!?]$`)
)

// newScrubber removes command phrases, then fillers, then collapses
// whitespace, repeating until nothing changes: removing a word can join the
// neighbours of another phrase.
func newScrubber() *rules.Engine {
	removals := lo.Map(longestFirst(CommandPhrases), func(phrase string, _ int) rules.Rule {
		return rules.RemovePhrase(phrase)
	})
	removals = append(removals, lo.Map(longestFirst(FillerWords), func(word string, _ int) rules.Rule {
		return rules.RemovePhrase(word)
	})...)
	removals = append(removals, rules.CollapseSpace())
	return rules.NewEngineFromRules(removals, 0)
}

// Normalize strips command phrases and fillers, then capitalizes and
// punctuates what remains. Empty input, or input made only of phrases and
// fillers, yields "".
func Normalize(raw string) string {
	text := scrubber.Transform(raw)
	if text == "" {
		return ""
	}

	first, size := utf8.DecodeRuneInString(text)
	text = string(unicode.ToUpper(first)) + text[size:]

	if !terminalPunct.MatchString(text) {
		text += "."
	}

	return standaloneI.ReplaceAllString(text, "I")
}
