// Package splitter divides cleaned document text into semantically coherent
// passages. Splitting prefers sentence boundaries: when a passage budget is
// exceeded, the split lands at the start of the sentence straddling the
// budget, scored by the word-overlap coherence it would break. Adjacent
// passages share a fixed overlap window so context survives the cut.
package splitter

import (
	"strings"
)

const (
	// DefaultChunkSize is the target passage length in characters.
	DefaultChunkSize = 2000

	// DefaultChunkOverlap is the overlap window between adjacent passages.
	DefaultChunkOverlap = 200

	// minPassageChars is the minimum passage length kept by the post-filter.
	// Shorter fragments carry too little meaning to retrieve against.
	minPassageChars = 100
)

// Splitter splits text into overlapping sentence-aligned passages.
type Splitter struct {
	// ChunkSize is the target passage length in characters.
	ChunkSize int

	// ChunkOverlap is the number of characters shared between adjacent
	// passages. Must be smaller than ChunkSize.
	ChunkOverlap int
}

// New returns a Splitter with the given parameters.
// Non-positive values fall back to the defaults.
func New(chunkSize, chunkOverlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if chunkOverlap <= 0 {
		chunkOverlap = DefaultChunkOverlap
	}
	if chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize / 10
	}
	return &Splitter{ChunkSize: chunkSize, ChunkOverlap: chunkOverlap}
}

// Split divides text into passages. Text within the chunk budget is returned
// as a single passage. The post-filter drops passages under minPassageChars
// and trims ragged endings back to a sentence terminator when one exists in
// the final fifth of the passage.
func (s *Splitter) Split(text string) []string {
	var raw []string

	cur := text
	for len(cur) > s.ChunkSize {
		split := s.bestSplitPoint(cur, s.ChunkSize)

		if split >= len(cur) {
			raw = append(raw, cur)
			cur = ""
			break
		}

		// The split must clear the overlap window or the restart position
		// stops advancing. Fall back to a plain budget cut when it doesn't.
		if split <= s.ChunkOverlap {
			split = runeFloor(cur, s.ChunkSize)
		}

		raw = append(raw, cur[:split])

		overlapStart := split - s.ChunkOverlap
		if overlapStart < 0 {
			overlapStart = 0
		}
		cur = cur[runeFloor(cur, overlapStart):]
	}
	if cur != "" {
		raw = append(raw, cur)
	}

	return postFilter(raw)
}

// bestSplitPoint returns the index at which to cut text so the prefix stays
// near target. Candidates are interior sentences that straddle the budget;
// the one breaking the least word-overlap coherence with its neighbours wins.
// With no usable sentence boundary the cut falls at target exactly.
func (s *Splitter) bestSplitPoint(text string, target int) int {
	if len(text) <= target {
		return len(text)
	}

	sents := sentences(text)
	if len(sents) <= 1 {
		return len(text)
	}

	best := 0
	minLoss := -1.0
	for i, sent := range sents {
		if sent.End <= target {
			continue
		}
		// Only sentences beginning at or before the budget qualify: a later
		// start would push the passage past its size bound.
		if sent.Start > target {
			break
		}
		if i > 0 && i < len(sents)-1 {
			loss := s.similarity(sents[i-1].Text, sent.Text) + s.similarity(sent.Text, sents[i+1].Text)
			if minLoss < 0 || loss < minLoss {
				minLoss = loss
				best = sent.Start
			}
		}
		if minLoss < 0 {
			best = sent.Start
		}
		break
	}

	if best == 0 {
		best = runeFloor(text, target)
	}
	return best
}

// postFilter drops fragments below the minimum length and trims ragged
// passage endings back to the last sentence terminator, provided the trim
// keeps at least 80% of the passage.
func postFilter(chunks []string) []string {
	out := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		chunk = strings.TrimSpace(chunk)
		if len(chunk) < minPassageChars {
			continue
		}
		if !endsAtSentence(chunk) {
			last := lastTerminator(chunk)
			if last > len(chunk)*8/10 {
				chunk = chunk[:last+1]
			}
		}
		out = append(out, chunk)
	}
	return out
}

// endsAtSentence reports whether chunk already finishes on a sentence
// terminator or closing quote.
func endsAtSentence(chunk string) bool {
	for _, suffix := range []string{".", "!", "?", ":\"", "\"", "”"} {
		if strings.HasSuffix(chunk, suffix) {
			return true
		}
	}
	return false
}

// lastTerminator returns the index of the last '.', '!' or '?' in chunk,
// or -1 when none exists.
func lastTerminator(chunk string) int {
	return strings.LastIndexAny(chunk, ".!?")
}

// runeFloor returns the largest index ≤ i that starts a rune in s.
func runeFloor(s string, i int) int {
	if i >= len(s) {
		return len(s)
	}
	for i > 0 && s[i]&0xC0 == 0x80 {
		i--
	}
	return i
}
