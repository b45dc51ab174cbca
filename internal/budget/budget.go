// Package budget provides token counting and prompt truncation for the
// generation layer. Counting prefers an exact BPE tokenizer (cl100k_base via
// tiktoken); when the encoding cannot be initialised (offline environments)
// it falls back to a conservative character heuristic of 1 token ≈ 4
// characters, which deliberately under-estimates to leave headroom for
// model-specific overhead.
package budget

import (
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"github.com/cloudwego/eino/schema"
)

const (
	// charsPerToken is the conservative character-to-token ratio used when no
	// exact tokenizer is available. 4 chars/token is standard for English.
	charsPerToken = 4

	// DefaultMaxPromptTokens is the input budget applied to assembled prompts
	// before they are handed to the chat model.
	DefaultMaxPromptTokens = 1024

	// encodingName is the BPE encoding used for exact counting.
	encodingName = "cl100k_base"
)

// Estimator counts tokens and truncates text to a token budget.
// The zero value uses the character heuristic; NewEstimator upgrades to the
// exact tokenizer when available.
type Estimator struct {
	// enc is the exact tokenizer, nil when initialisation failed and the
	// character heuristic is in effect.
	enc *tiktoken.Tiktoken
}

// NewEstimator returns an Estimator backed by the cl100k_base encoding when
// available, falling back to the character heuristic otherwise. It never
// returns an error: a missing encoding degrades accuracy, not functionality.
func NewEstimator() *Estimator {
	enc, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return &Estimator{}
	}
	return &Estimator{enc: enc}
}

// Count returns the token count of s.
func (e *Estimator) Count(s string) int {
	if e.enc != nil {
		return len(e.enc.Encode(s, nil, nil))
	}
	return Estimate(s)
}

// Truncate returns s cut down to at most maxTokens tokens. With an exact
// tokenizer the cut falls on a token boundary; with the heuristic it falls on
// the corresponding character boundary, adjusted to a valid rune start.
func (e *Estimator) Truncate(s string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}
	if e.enc != nil {
		ids := e.enc.Encode(s, nil, nil)
		if len(ids) <= maxTokens {
			return s
		}
		return e.enc.Decode(ids[:maxTokens])
	}

	limit := maxTokens * charsPerToken
	if len(s) <= limit {
		return s
	}
	// Back up to a rune boundary so the cut never splits a multi-byte char.
	for limit > 0 && !isRuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}

// Exact reports whether the estimator is using the exact BPE tokenizer.
func (e *Estimator) Exact() bool {
	return e.enc != nil
}

// Estimate returns a rough token count for s using the character heuristic.
func Estimate(s string) int {
	n := len(s) / charsPerToken
	if n == 0 && len(s) > 0 {
		return 1
	}
	return n
}

// EstimateMessages returns the estimated total token count for a slice of
// schema.Message values, summing role + content for each message.
func EstimateMessages(msgs []*schema.Message) int {
	total := 0
	for _, m := range msgs {
		// Each message has a small per-message overhead (~4 tokens in most APIs).
		total += 4
		total += Estimate(string(m.Role))
		total += Estimate(m.Content)
	}
	return total
}

// WordCount returns the number of whitespace-separated words in s.
func WordCount(s string) int {
	return len(strings.Fields(s))
}

// isRuneStart reports whether b can begin a UTF-8 encoded rune.
func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
