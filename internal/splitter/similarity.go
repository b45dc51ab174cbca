package splitter

import (
	"strings"
	"unicode"
)

// negations are words that flip the sense of the word that follows them.
var negations = map[string]bool{
	"not":     true,
	"no":      true,
	"never":   true,
	"nor":     true,
	"cannot":  true,
	"without": true,
	"n't":     true,
}

// similarity returns the Jaccard word-overlap between two sentences in
// [0, 1]. Words are lowercased and stop words removed. A word preceded by a
// negation is tagged with a "NOT_" prefix; tagged words only match other
// identically tagged words, so a sentence and its negation score lower than
// their surface overlap suggests.
func (s *Splitter) similarity(a, b string) float64 {
	wa := contentWords(a)
	wb := contentWords(b)
	if len(wa) == 0 || len(wb) == 0 {
		return 0
	}

	overlap := 0
	for w := range wa {
		if _, ok := wb[w]; ok {
			overlap++
		}
	}

	return float64(overlap) / float64(len(wa)+len(wb)-overlap)
}

// contentWords tokenizes a sentence into its set of lowercased content
// words: stop words are dropped and negated words carry a NOT_ tag.
func contentWords(sent string) map[string]struct{} {
	out := make(map[string]struct{})

	negate := false
	for _, word := range tokenizeWords(sent) {
		if negations[word] {
			negate = true
			continue
		}
		if negate {
			out["NOT_"+word] = struct{}{}
			negate = false
			continue
		}
		if stopWords[word] {
			continue
		}
		out[word] = struct{}{}
	}

	return out
}

// tokenizeWords splits a sentence into lowercase word tokens, treating any
// non-letter, non-digit rune as a separator.
func tokenizeWords(sent string) []string {
	return strings.FieldsFunc(strings.ToLower(sent), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
