package voice

import (
	"sort"
	"strings"

	"github.com/samber/lo"
)

// FillerWords are stripped from dictated text.
var FillerWords = []string{
	"um", "uh", "ah", "like", "you know", "basically", "actually",
	"sort of", "kind of", "i mean", "right", "so",
}

// CommandPhrases are scrubbed from dictated text so spoken commands never
// end up inside an answer.
var CommandPhrases = []string{
	"next question", "previous question", "lock answer", "submit exam",
	"read my answer", "review answer", "verify answer", "repeat my answer", "read answer",
	"clear answer", "delete answer", "erase answer",
	"delete last word", "remove last word",
	"submit", "next", "previous",
}

var (
	reviewPhrases     = []string{"read my answer", "review answer", "verify answer", "repeat my answer", "read answer"}
	clearPhrases      = []string{"clear answer", "delete answer", "erase answer"}
	deleteWordPhrases = []string{"delete last word", "remove last word"}
	yesMarkers        = []string{"correct", "proceed"}
	noMarkers         = []string{"edit", "change"}
)

// longestFirst orders phrases by word count, then length, so multi-word
// phrases are removed before any of their words could be.
func longestFirst(phrases []string) []string {
	ordered := lo.Uniq(phrases)
	sort.SliceStable(ordered, func(i, j int) bool {
		wi, wj := len(strings.Fields(ordered[i])), len(strings.Fields(ordered[j]))
		if wi != wj {
			return wi > wj
		}
		return len(ordered[i]) > len(ordered[j])
	})
	return ordered
}

func containsAny(raw string, phrases []string) bool {
	return lo.SomeBy(phrases, func(phrase string) bool {
		return strings.Contains(raw, phrase)
	})
}
