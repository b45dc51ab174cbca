package generator

import (
	"regexp"
	"strings"

	"github.com/54b3r/pdfqa-go/internal/budget"
)

// Outcome classifies a post-processed answer.
type Outcome int

const (
	// OutcomeAccept means the answer passed every check and is final.
	OutcomeAccept Outcome = iota
	// OutcomeRetry means the answer was rejected but regenerating may help.
	OutcomeRetry
)

// PostResult is the outcome of post-processing one raw model answer.
type PostResult struct {
	// Outcome classifies the answer.
	Outcome Outcome
	// Answer is the cleaned answer, valid when Outcome is OutcomeAccept.
	Answer string
	// Reason explains a Retry outcome.
	Reason string
}

// minAnswerWords is the minimum word count for an acceptable answer.
const minAnswerWords = 20

// InsufficientAnswer is returned to the user when no acceptable answer could
// be produced within the retry budget.
const InsufficientAnswer = "I apologize, but I need to generate a more detailed answer. Please try asking the question again."

// echoPrefixes are boilerplate openings models prepend to answers; stripped
// case-insensitively when the answer starts with one.
var echoPrefixes = []string{
	"Here's the answer:",
	"Based on the context:",
	"The answer is:",
	"According to the context,",
	"Based on the provided information,",
}

// abbreviations maps common abbreviations to their expansions. Applied only
// when the abbreviation is followed by a space, so trailing "etc." at the end
// of an answer stays untouched.
var abbreviations = []struct {
	re       *regexp.Regexp
	expanded string
}{
	{regexp.MustCompile(`\be\.g\.\s`), "for example, "},
	{regexp.MustCompile(`\bi\.e\.\s`), "that is, "},
	{regexp.MustCompile(`\betc\.\s`), "and so forth, "},
	{regexp.MustCompile(`\bvs\.\s`), "versus "},
	{regexp.MustCompile(`\bfig\.\s`), "figure "},
	{regexp.MustCompile(`\bexp\.\s`), "experiment "},
	{regexp.MustCompile(`\bref\.\s`), "reference "},
}

// wsRe matches any whitespace run.
var wsRe = regexp.MustCompile(`\s+`)

// sentenceSplitRe splits text after sentence terminators.
var sentenceSplitRe = regexp.MustCompile(`([.!?])\s+`)

// PostProcess cleans a raw model answer and classifies it. Stages run in a
// fixed order: whitespace normalization, echo-prefix stripping, abbreviation
// expansion, duplicate-sentence removal, terminal-sentence trimming, and the
// minimum-length check. Empty and too-short answers both ask for a retry;
// the next attempt may well produce a usable one.
func PostProcess(raw string) PostResult {
	answer := collapseWhitespace(raw)
	if answer == "" {
		return PostResult{Outcome: OutcomeRetry, Reason: "empty answer"}
	}

	answer = stripEchoPrefixes(answer)
	answer = expandAbbreviations(answer)
	answer = dedupeSentences(answer)
	answer = ensureCompleteSentences(answer)

	if budget.WordCount(answer) < minAnswerWords {
		return PostResult{Outcome: OutcomeRetry, Answer: answer, Reason: "answer too short"}
	}

	return PostResult{Outcome: OutcomeAccept, Answer: answer}
}

// collapseWhitespace trims the answer and folds whitespace runs to single
// spaces.
func collapseWhitespace(s string) string {
	return strings.TrimSpace(wsRe.ReplaceAllString(s, " "))
}

// stripEchoPrefixes removes a leading boilerplate opening, if present.
func stripEchoPrefixes(s string) string {
	lower := strings.ToLower(s)
	for _, prefix := range echoPrefixes {
		if strings.HasPrefix(lower, strings.ToLower(prefix)) {
			return strings.TrimSpace(s[len(prefix):])
		}
	}
	return s
}

// expandAbbreviations replaces common abbreviations with their long forms.
func expandAbbreviations(s string) string {
	for _, a := range abbreviations {
		s = a.re.ReplaceAllString(s, a.expanded)
	}
	return s
}

// dedupeSentences drops repeated sentences (case-insensitive comparison)
// while preserving order. Sentences of three words or fewer are dropped as
// filler.
func dedupeSentences(s string) string {
	// Split keeping the terminator attached to its sentence.
	marked := sentenceSplitRe.ReplaceAllString(s, "$1\x00")
	sentences := strings.Split(marked, "\x00")

	seen := make(map[string]bool)
	unique := make([]string, 0, len(sentences))
	for _, sent := range sentences {
		clean := collapseWhitespace(sent)
		if clean == "" || budget.WordCount(clean) <= 3 {
			continue
		}
		key := strings.ToLower(clean)
		if seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, clean)
	}
	return strings.Join(unique, " ")
}

// ensureCompleteSentences trims a trailing sentence fragment, keeping the
// text up to the last sentence terminator. Text with no interior terminator
// is left alone.
func ensureCompleteSentences(s string) string {
	last := strings.LastIndexAny(s, ".!?")
	if last > 0 && last < len(s)-1 {
		return s[:last+1]
	}
	return s
}
