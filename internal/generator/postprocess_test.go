package generator

import (
	"strings"
	"testing"
)

// longAnswer builds an answer comfortably above the word floor.
func longAnswer(lead string) string {
	return lead + " The document describes the system architecture in detail. " +
		"Each component communicates over a message bus with retries. " +
		"Failures are logged and surfaced to the operator dashboard."
}

func Test_PostProcess_AcceptsCleanAnswer(t *testing.T) {
	t.Parallel()

	got := PostProcess(longAnswer("The pipeline has three stages."))
	if got.Outcome != OutcomeAccept {
		t.Fatalf("outcome = %v (%s), want accept", got.Outcome, got.Reason)
	}
	if got.Answer == "" {
		t.Error("accepted answer is empty")
	}
}

func Test_PostProcess_EmptyRetries(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"", "   ", "\n\t\n"} {
		got := PostProcess(raw)
		if got.Outcome != OutcomeRetry {
			t.Errorf("PostProcess(%q) outcome = %v, want retry", raw, got.Outcome)
		}
		if got.Reason == "" {
			t.Errorf("PostProcess(%q) carries no reason", raw)
		}
	}
}

func Test_PostProcess_ShortAnswerRetries(t *testing.T) {
	t.Parallel()

	got := PostProcess("It uses a queue for buffering incoming work.")
	if got.Outcome != OutcomeRetry {
		t.Fatalf("outcome = %v, want retry", got.Outcome)
	}
	if got.Reason == "" {
		t.Error("retry outcome carries no reason")
	}
}

func Test_PostProcess_CollapsesWhitespace(t *testing.T) {
	t.Parallel()

	raw := "  The system   uses\n\nthree   queues. " + longAnswer("")
	got := PostProcess(raw)
	if got.Outcome != OutcomeAccept {
		t.Fatalf("outcome = %v, want accept", got.Outcome)
	}
	if strings.Contains(got.Answer, "  ") || strings.Contains(got.Answer, "\n") {
		t.Errorf("whitespace not collapsed: %q", got.Answer)
	}
}

func Test_StripEchoPrefixes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"Here's the answer: the cache is bounded.", "the cache is bounded."},
		{"BASED ON THE CONTEXT: it retries twice.", "it retries twice."},
		{"According to the context, the store is durable.", "the store is durable."},
		{"The design favors simplicity.", "The design favors simplicity."},
	}
	for _, tc := range tests {
		if got := stripEchoPrefixes(tc.in); got != tc.want {
			t.Errorf("stripEchoPrefixes(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func Test_ExpandAbbreviations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"Some stores, e.g. the flat one, fit in memory.", "Some stores, for example, the flat one, fit in memory."},
		{"The floor, i.e. the minimum score, is configurable.", "The floor, that is, the minimum score, is configurable."},
		{"See fig. 3 for details.", "See figure 3 for details."},
		{"Latency vs. throughput is the usual trade.", "Latency versus throughput is the usual trade."},
		// no trailing space after the abbreviation: left alone
		{"Queues, caches, etc.", "Queues, caches, etc."},
	}
	for _, tc := range tests {
		if got := expandAbbreviations(tc.in); got != tc.want {
			t.Errorf("expandAbbreviations(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func Test_DedupeSentences(t *testing.T) {
	t.Parallel()

	in := "The store keeps vectors in memory. The store keeps vectors in memory. " +
		"the store keeps vectors in memory. Searches run under a read lock."
	got := dedupeSentences(in)
	if n := strings.Count(strings.ToLower(got), "keeps vectors in memory"); n != 1 {
		t.Errorf("duplicate sentence survived %d times: %q", n, got)
	}
	if !strings.Contains(got, "Searches run under a read lock.") {
		t.Errorf("unique sentence dropped: %q", got)
	}
}

func Test_DedupeSentences_DropsFiller(t *testing.T) {
	t.Parallel()

	got := dedupeSentences("Yes. The ingest path validates every page before indexing it.")
	if strings.Contains(got, "Yes.") {
		t.Errorf("three-word filler kept: %q", got)
	}
}

func Test_EnsureCompleteSentences(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"The store is durable. The cache however", "The store is durable."},
		{"The store is durable.", "The store is durable."},
		{"no terminator at all", "no terminator at all"},
	}
	for _, tc := range tests {
		if got := ensureCompleteSentences(tc.in); got != tc.want {
			t.Errorf("ensureCompleteSentences(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
