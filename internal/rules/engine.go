package rules

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
)

const defaultLoopLimit = 30

// Rule rewrites text once, reporting whether anything changed.
type Rule interface {
	Apply(input string) (output string, changed bool)
}

// RuleParser parses one line into a compiled rule.
type RuleParser interface {
	CanParse(line string) bool
	Parse(line string) (Rule, error)
}

// Engine applies ordered rewrite rules until the text stops changing.
type Engine struct {
	rules     []Rule
	loopLimit int
}

// NewEngine loads and compiles rules from a file using built-in parsers.
// A missing file yields an engine that leaves text untouched.
func NewEngine(path string, loopLimit int) (*Engine, error) {
	return NewEngineWithParsers(path, loopLimit, defaultRuleParsers())
}

// NewEngineWithParsers allows parser extension without engine changes.
func NewEngineWithParsers(path string, loopLimit int, parsers []RuleParser) (*Engine, error) {
	if strings.TrimSpace(path) == "" {
		return NewEngineFromRules(nil, loopLimit), nil
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewEngineFromRules(nil, loopLimit), nil
		}
		return nil, fmt.Errorf("failed to read rules file %q: %w", path, err)
	}

	engine, err := compileWithParsers(strings.Split(string(contents), "\n"), loopLimit, parsers)
	if err != nil {
		return nil, fmt.Errorf("failed to parse rules file %q: %w", path, err)
	}
	return engine, nil
}

// Compile builds an engine from in-memory rule lines, e.g. an exam vocabulary.
func Compile(lines []string, loopLimit int) (*Engine, error) {
	return compileWithParsers(lines, loopLimit, defaultRuleParsers())
}

// NewEngineFromRules builds an engine from already compiled rules.
func NewEngineFromRules(rules []Rule, loopLimit int) *Engine {
	if loopLimit <= 0 {
		loopLimit = defaultLoopLimit
	}
	return &Engine{rules: rules, loopLimit: loopLimit}
}

// Merge returns an engine running e's rules followed by other's.
func (e *Engine) Merge(other *Engine) *Engine {
	if other == nil {
		return e
	}
	combined := make([]Rule, 0, len(e.rules)+len(other.rules))
	combined = append(combined, e.rules...)
	combined = append(combined, other.rules...)
	return &Engine{rules: combined, loopLimit: max(e.loopLimit, other.loopLimit)}
}

// Len reports the number of compiled rules.
func (e *Engine) Len() int {
	return len(e.rules)
}

// Apply transforms text deterministically.
func (e *Engine) Apply(text string) (string, error) {
	return e.Transform(text), nil
}

// Transform runs every rule in order, repeating the pass until no rule
// changes the text or the loop limit is reached.
func (e *Engine) Transform(text string) string {
	if len(e.rules) == 0 {
		return text
	}

	result := text
	for i := 0; i < e.loopLimit; i++ {
		changed := false
		for _, rule := range e.rules {
			next, ruleChanged := rule.Apply(result)
			if ruleChanged {
				result = next
				changed = true
			}
		}
		if !changed {
			return result
		}
	}

	return result
}

func compileWithParsers(lines []string, loopLimit int, parsers []RuleParser) (*Engine, error) {
	if len(parsers) == 0 {
		parsers = defaultRuleParsers()
	}
	rules, err := parseRules(lines, parsers)
	if err != nil {
		return nil, err
	}
	return NewEngineFromRules(rules, loopLimit), nil
}

func parseRules(lines []string, parsers []RuleParser) ([]Rule, error) {
	rules := make([]Rule, 0, len(lines))

	for index, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parsed := false
		for _, parser := range parsers {
			if !parser.CanParse(line) {
				continue
			}
			rule, err := parser.Parse(line)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", index+1, err)
			}
			rules = append(rules, rule)
			parsed = true
			break
		}

		if !parsed {
			return nil, fmt.Errorf("line %d: unsupported rule format", index+1)
		}
	}

	return rules, nil
}

func defaultRuleParsers() []RuleParser {
	return []RuleParser{regexRuleParser{}, literalRuleParser{}}
}

// RemovePhrase deletes every case-insensitive, word-bounded occurrence of a
// phrase. Words of the phrase may be separated by any run of whitespace.
func RemovePhrase(phrase string) Rule {
	return literalRule{re: phrasePattern(phrase)}
}

// CollapseSpace folds whitespace runs into one space and trims the ends.
func CollapseSpace() Rule {
	return collapseSpaceRule{}
}

type collapseSpaceRule struct{}

var whitespaceRun = regexp.MustCompile(`\s+`)

func (collapseSpaceRule) Apply(input string) (string, bool) {
	output := strings.TrimSpace(whitespaceRun.ReplaceAllString(input, " "))
	return output, output != input
}

type literalRuleParser struct{}

func (literalRuleParser) CanParse(line string) bool {
	return strings.Contains(line, "=>")
}

func (literalRuleParser) Parse(line string) (Rule, error) {
	return parseLiteralRule(line)
}

type regexRuleParser struct{}

func (regexRuleParser) CanParse(line string) bool {
	return looksLikeRegexRule(line)
}

func (regexRuleParser) Parse(line string) (Rule, error) {
	return parseRegexRule(line)
}

type literalRule struct {
	replacement string
	re          *regexp.Regexp
}

func parseLiteralRule(line string) (Rule, error) {
	parts := strings.SplitN(line, "=>", 2)
	if len(parts) != 2 {
		return nil, errors.New("invalid literal rule")
	}
	from := strings.TrimSpace(parts[0])
	to := strings.TrimSpace(parts[1])
	if from == "" {
		return nil, errors.New("literal rule source cannot be empty")
	}

	return literalRule{replacement: to, re: phrasePattern(from)}, nil
}

// phrasePattern matches a phrase case-insensitively, anchored on word
// boundaries where the phrase starts or ends with a word character.
func phrasePattern(phrase string) *regexp.Regexp {
	words := strings.Fields(phrase)
	quoted := make([]string, len(words))
	for i, word := range words {
		quoted[i] = regexp.QuoteMeta(word)
	}
	pattern := strings.Join(quoted, `\s+`)
	if len(words) > 0 && isWordByte(words[0][0]) {
		pattern = `\b` + pattern
	}
	if len(words) > 0 {
		last := words[len(words)-1]
		if isWordByte(last[len(last)-1]) {
			pattern += `\b`
		}
	}
	return regexp.MustCompile("(?i)" + pattern)
}

func (r literalRule) Apply(input string) (string, bool) {
	output := r.re.ReplaceAllLiteralString(input, r.replacement)
	return output, output != input
}

type regexRule struct {
	re          *regexp.Regexp
	replacement string
	global      bool
}

func parseRegexRule(line string) (Rule, error) {
	if len(line) < 2 {
		return nil, errors.New("invalid regex rule")
	}
	delim := line[1]
	if isAlphaNumericOrSpace(delim) {
		return nil, errors.New("regex delimiter must be non-alphanumeric")
	}

	pattern, pos, err := parseDelimited(line, 2, delim)
	if err != nil {
		return nil, fmt.Errorf("invalid regex pattern: %w", err)
	}
	replacement, pos, err := parseDelimited(line, pos, delim)
	if err != nil {
		return nil, fmt.Errorf("invalid regex replacement: %w", err)
	}
	flags := strings.TrimSpace(line[pos:])

	ignoreCase, global, multiLine, dotAll := true, false, false, false
	for _, flag := range flags {
		switch flag {
		case 'i':
			ignoreCase = true
		case 'g':
			global = true
		case 'm':
			multiLine = true
		case 's':
			dotAll = true
		case ' ':
			continue
		default:
			return nil, fmt.Errorf("unsupported regex flag %q", flag)
		}
	}

	prefixFlags := ""
	if ignoreCase {
		prefixFlags += "i"
	}
	if multiLine {
		prefixFlags += "m"
	}
	if dotAll {
		prefixFlags += "s"
	}
	if prefixFlags != "" {
		pattern = "(?" + prefixFlags + ")" + pattern
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid regex: %w", err)
	}

	return regexRule{re: re, replacement: replacement, global: global}, nil
}

func (r regexRule) Apply(input string) (string, bool) {
	if r.global {
		output := r.re.ReplaceAllString(input, r.replacement)
		return output, output != input
	}

	loc := r.re.FindStringIndex(input)
	if loc == nil {
		return input, false
	}

	segment := input[loc[0]:loc[1]]
	replaced := r.re.ReplaceAllString(segment, r.replacement)
	output := input[:loc[0]] + replaced + input[loc[1]:]
	return output, output != input
}

func parseDelimited(line string, start int, delim byte) (string, int, error) {
	if start >= len(line) {
		return "", 0, errors.New("unexpected end of expression")
	}

	var builder strings.Builder
	escaped := false
	for index := start; index < len(line); index++ {
		char := line[index]
		if escaped {
			builder.WriteByte(char)
			escaped = false
			continue
		}
		if char == '\\' {
			escaped = true
			builder.WriteByte(char)
			continue
		}
		if char == delim {
			return builder.String(), index + 1, nil
		}
		builder.WriteByte(char)
	}
	return "", 0, errors.New("unterminated expression")
}

func isWordByte(char byte) bool {
	return (char >= 'a' && char <= 'z') ||
		(char >= 'A' && char <= 'Z') ||
		(char >= '0' && char <= '9') ||
		char == '_'
}

func isAlphaNumericOrSpace(char byte) bool {
	return (char >= 'a' && char <= 'z') ||
		(char >= 'A' && char <= 'Z') ||
		(char >= '0' && char <= '9') ||
		char == ' ' || char == '\t'
}

func looksLikeRegexRule(line string) bool {
	return len(line) > 1 && line[0] == 's' && !isAlphaNumericOrSpace(line[1])
}
