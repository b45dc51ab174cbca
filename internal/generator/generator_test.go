package generator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/54b3r/pdfqa-go/internal/budget"
	"github.com/54b3r/pdfqa-go/internal/rag"
)

// fakeModel replays scripted replies and records each call's prompt.
type fakeModel struct {
	replies []string
	errs    []error
	calls   int
	prompts []string
}

func (f *fakeModel) Generate(ctx context.Context, in []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	i := f.calls
	f.calls++
	if len(in) > 0 {
		f.prompts = append(f.prompts, in[0].Content)
	}
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	reply := ""
	if i < len(f.replies) {
		reply = f.replies[i]
	}
	return schema.AssistantMessage(reply, nil), nil
}

func goodAnswer() string {
	return "The ingest pipeline extracts text from every page before indexing. " +
		"Each passage is embedded and stored with its position in the document. " +
		"Searches compare the question embedding against every stored passage. " +
		"Results below the relevance floor are discarded before generation."
}

func Test_Generator_AcceptsFirstGoodAnswer(t *testing.T) {
	t.Parallel()

	m := &fakeModel{replies: []string{goodAnswer()}}
	g := New(m, Config{Estimator: &budget.Estimator{}})

	results := []rag.Result{{Passage: rag.Passage{Text: "passage"}, Score: 0.9}}
	answer, err := g.Answer(context.Background(), "how does ingest work?", results, false)
	if err != nil {
		t.Fatalf("Answer failed: %v", err)
	}
	if m.calls != 1 {
		t.Errorf("model called %d times, want 1", m.calls)
	}
	if !strings.Contains(answer, "ingest pipeline") {
		t.Errorf("unexpected answer: %q", answer)
	}
}

func Test_Generator_RetriesShortAnswer(t *testing.T) {
	t.Parallel()

	var cleanups int
	m := &fakeModel{replies: []string{"Too short to accept here.", goodAnswer()}}
	g := New(m, Config{
		Cleanup:   func() { cleanups++ },
		Estimator: &budget.Estimator{},
	})

	answer, err := g.Answer(context.Background(), "q", nil, false)
	if err != nil {
		t.Fatalf("Answer failed: %v", err)
	}
	if m.calls != 2 {
		t.Errorf("model called %d times, want 2", m.calls)
	}
	if cleanups != 1 {
		t.Errorf("cleanup ran %d times, want 1 (between attempts)", cleanups)
	}
	if answer == InsufficientAnswer {
		t.Error("got the insufficiency message despite a good second answer")
	}
}

func Test_Generator_ExhaustedRetriesReturnsInsufficiency(t *testing.T) {
	t.Parallel()

	short := "Still too short an answer."
	m := &fakeModel{replies: []string{short, short, short}}
	g := New(m, Config{MaxRetries: 3, Estimator: &budget.Estimator{}})

	answer, err := g.Answer(context.Background(), "q", nil, false)
	if err != nil {
		t.Fatalf("Answer failed: %v", err)
	}
	if answer != InsufficientAnswer {
		t.Errorf("answer = %q, want the insufficiency message", answer)
	}
	if m.calls != 3 {
		t.Errorf("model called %d times, want 3", m.calls)
	}
}

func Test_Generator_TransportFailure(t *testing.T) {
	t.Parallel()

	boom := errors.New("connection refused")
	m := &fakeModel{errs: []error{boom, boom, boom}}
	g := New(m, Config{MaxRetries: 3, Estimator: &budget.Estimator{}})

	_, err := g.Answer(context.Background(), "q", nil, false)
	if !errors.Is(err, ErrGeneration) {
		t.Fatalf("expected ErrGeneration, got %v", err)
	}
	if !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("error does not carry the cause: %v", err)
	}
}

func Test_Generator_EmptyAnswerRetried(t *testing.T) {
	t.Parallel()

	m := &fakeModel{replies: []string{"   ", goodAnswer()}}
	g := New(m, Config{Estimator: &budget.Estimator{}})

	answer, err := g.Answer(context.Background(), "q", nil, false)
	if err != nil {
		t.Fatalf("Answer failed: %v", err)
	}
	if m.calls != 2 {
		t.Errorf("model called %d times, want 2 (empty answers are retried)", m.calls)
	}
	if answer == InsufficientAnswer {
		t.Error("got the insufficiency message despite a good second answer")
	}
}

func Test_Generator_AllEmptyReturnsInsufficiency(t *testing.T) {
	t.Parallel()

	m := &fakeModel{replies: []string{"", "", ""}}
	g := New(m, Config{MaxRetries: 3, Estimator: &budget.Estimator{}})

	answer, err := g.Answer(context.Background(), "q", nil, false)
	if err != nil {
		t.Fatalf("Answer failed: %v", err)
	}
	if answer != InsufficientAnswer {
		t.Errorf("answer = %q, want the insufficiency message", answer)
	}
}

func Test_Generator_TruncatesPrompt(t *testing.T) {
	t.Parallel()

	m := &fakeModel{replies: []string{goodAnswer()}}
	est := &budget.Estimator{}
	g := New(m, Config{Estimator: est})

	question := strings.Repeat("why does the scheduler preempt long jobs ", 400)
	if _, err := g.Answer(context.Background(), question, nil, false); err != nil {
		t.Fatalf("Answer failed: %v", err)
	}
	if len(m.prompts) != 1 {
		t.Fatalf("captured %d prompts, want 1", len(m.prompts))
	}
	if got := est.Count(m.prompts[0]); got > budget.DefaultMaxPromptTokens {
		t.Errorf("prompt is %d tokens, want at most %d", got, budget.DefaultMaxPromptTokens)
	}
}

func Test_Generator_NilModel(t *testing.T) {
	t.Parallel()

	g := New(nil, Config{Estimator: &budget.Estimator{}})
	if _, err := g.Answer(context.Background(), "q", nil, false); err == nil {
		t.Fatal("expected an error with no chat model")
	}
}
