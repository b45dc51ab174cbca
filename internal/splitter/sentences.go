package splitter

import (
	"unicode"
	"unicode/utf8"
)

// sentence is a tokenized sentence with its byte offsets in the source text.
type sentence struct {
	// Text is the sentence body, terminator included.
	Text string
	// Start is the byte offset of the first character.
	Start int
	// End is the byte offset one past the last character.
	End int
}

// sentences tokenizes text into sentences. A sentence ends at a run of
// '.', '!' or '?' (plus any closing quotes or brackets) followed by
// whitespace or end of input. Text without terminators is one sentence.
func sentences(text string) []sentence {
	var out []sentence

	start := -1
	i := 0
	for i < len(text) {
		r, size := utf8.DecodeRuneInString(text[i:])

		if start == -1 {
			if unicode.IsSpace(r) {
				i += size
				continue
			}
			start = i
		}

		if r == '.' || r == '!' || r == '?' {
			end := i + size
			// Absorb trailing terminators and closing punctuation.
			for end < len(text) {
				nr, ns := utf8.DecodeRuneInString(text[end:])
				if nr == '.' || nr == '!' || nr == '?' || isClosing(nr) {
					end += ns
					continue
				}
				break
			}
			// A terminator mid-word (e.g. "3.14", "v1.2") does not end the
			// sentence; only terminators before whitespace or EOF do.
			if end >= len(text) || startsWithSpace(text[end:]) {
				out = append(out, sentence{Text: text[start:end], Start: start, End: end})
				start = -1
			}
			i = end
			continue
		}

		i += size
	}

	if start != -1 {
		out = append(out, sentence{Text: text[start:], Start: start, End: len(text)})
	}

	return out
}

// isClosing reports whether r is closing punctuation that belongs to the
// sentence it follows.
func isClosing(r rune) bool {
	switch r {
	case '"', '\'', '”', '’', ')', ']', '»':
		return true
	}
	return false
}

// startsWithSpace reports whether s begins with a whitespace rune.
func startsWithSpace(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsSpace(r)
}
