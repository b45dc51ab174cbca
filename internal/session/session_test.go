package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/54b3r/pdfqa-go/internal/extractor"
	"github.com/54b3r/pdfqa-go/internal/generator"
	"github.com/54b3r/pdfqa-go/internal/rag"
	"github.com/54b3r/pdfqa-go/internal/store"
)

// fakeEmbedder returns a fixed vector per known text and a default axis
// vector otherwise.
type fakeEmbedder struct {
	dim  int
	vecs map[string][]float32
}

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if v, ok := f.vecs[t]; ok {
			out[i] = v
			continue
		}
		v := make([]float32, f.dim)
		v[0] = 1
		out[i] = v
	}
	return out, nil
}

func (f *fakeEmbedder) Dimensions() int { return f.dim }

// fakeAnswerer records its inputs and replays a canned answer.
type fakeAnswerer struct {
	calls   int
	lastQ   string
	results []rag.Result
	answer  string
	err     error
}

func (f *fakeAnswerer) Answer(ctx context.Context, question string, results []rag.Result, requireDetail bool) (string, error) {
	f.calls++
	f.lastQ = question
	f.results = results
	return f.answer, f.err
}

func newSession(t *testing.T, emb rag.Embedder, ans Answerer) (*Session, *store.FlatStore) {
	t.Helper()
	st := store.NewFlatStore(0)
	s, err := New(Config{Embedder: emb, Store: st, Answerer: ans})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return s, st
}

// seedArtifact saves a small populated index and returns its path.
func seedArtifact(t *testing.T, dim int) string {
	t.Helper()
	st := store.NewFlatStore(0)
	passages := []rag.Passage{
		{Text: "The scheduler preempts long jobs.", Index: 0},
		{Text: "Retries use exponential backoff.", Index: 1},
	}
	vecs := make([][]float32, len(passages))
	for i := range vecs {
		v := make([]float32, dim)
		v[i%dim] = 1
		vecs[i] = v
	}
	if err := st.Add(context.Background(), passages, vecs); err != nil {
		t.Fatalf("seeding store: %v", err)
	}
	path := filepath.Join(t.TempDir(), "index.db")
	if err := st.Save(path); err != nil {
		t.Fatalf("saving seed artifact: %v", err)
	}
	return path
}

func Test_Session_AskBeforeIngest(t *testing.T) {
	t.Parallel()

	s, _ := newSession(t, &fakeEmbedder{dim: 3}, &fakeAnswerer{answer: "x"})
	_, err := s.Ask(context.Background(), "anything", AskOptions{})
	if !errors.Is(err, ErrNoDocument) {
		t.Fatalf("expected ErrNoDocument, got %v", err)
	}
}

func Test_Session_LoadStoreThenAsk(t *testing.T) {
	t.Parallel()

	path := seedArtifact(t, 3)
	ans := &fakeAnswerer{answer: "a grounded answer"}
	s, _ := newSession(t, &fakeEmbedder{dim: 3}, ans)

	if err := s.LoadStore(path); err != nil {
		t.Fatalf("LoadStore failed: %v", err)
	}

	got, err := s.Ask(context.Background(), "what preempts jobs?", AskOptions{})
	if err != nil {
		t.Fatalf("Ask failed: %v", err)
	}
	if got != "a grounded answer" {
		t.Errorf("answer = %q", got)
	}
	if ans.calls != 1 {
		t.Errorf("answerer called %d times, want 1", ans.calls)
	}
	if len(ans.results) == 0 {
		t.Error("answerer received no context")
	}
}

func Test_Session_AskNoRelevantContext(t *testing.T) {
	t.Parallel()

	path := seedArtifact(t, 3)
	ans := &fakeAnswerer{answer: "should not be used"}
	emb := &fakeEmbedder{
		dim: 3,
		// far from every stored vector, below the relevance floor
		vecs: map[string][]float32{"off-topic question": {10, 10, 10}},
	}
	s, _ := newSession(t, emb, ans)
	if err := s.LoadStore(path); err != nil {
		t.Fatalf("LoadStore failed: %v", err)
	}

	got, err := s.Ask(context.Background(), "off-topic question", AskOptions{})
	if err != nil {
		t.Fatalf("Ask failed: %v", err)
	}
	if got != generator.InsufficientAnswer {
		t.Errorf("answer = %q, want the insufficiency message", got)
	}
	if ans.calls != 0 {
		t.Errorf("answerer called %d times, want 0 without relevant context", ans.calls)
	}
}

func Test_Session_LoadStoreDimensionMismatch(t *testing.T) {
	t.Parallel()

	path := seedArtifact(t, 3)
	s, _ := newSession(t, &fakeEmbedder{dim: 4}, &fakeAnswerer{})

	err := s.LoadStore(path)
	if err == nil {
		t.Fatal("expected a dimension mismatch error")
	}
	if !strings.Contains(err.Error(), "dimension") {
		t.Errorf("error does not mention the dimension: %v", err)
	}
	if _, err := s.Ask(context.Background(), "q", AskOptions{}); !errors.Is(err, ErrNoDocument) {
		t.Errorf("session became ready after a failed load: %v", err)
	}
}

func Test_Session_Reset(t *testing.T) {
	t.Parallel()

	path := seedArtifact(t, 3)
	s, st := newSession(t, &fakeEmbedder{dim: 3}, &fakeAnswerer{answer: "x"})
	if err := s.LoadStore(path); err != nil {
		t.Fatalf("LoadStore failed: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := s.Reset(context.Background()); err != nil {
			t.Fatalf("Reset #%d failed: %v", i+1, err)
		}
	}
	if st.Len() != 0 {
		t.Errorf("store holds %d passages after reset", st.Len())
	}
	if _, err := s.Ask(context.Background(), "q", AskOptions{}); !errors.Is(err, ErrNoDocument) {
		t.Errorf("expected ErrNoDocument after reset, got %v", err)
	}
}

func Test_Session_SaveStoreRoundTrip(t *testing.T) {
	t.Parallel()

	path := seedArtifact(t, 3)
	s, _ := newSession(t, &fakeEmbedder{dim: 3}, &fakeAnswerer{answer: "x"})
	if err := s.LoadStore(path); err != nil {
		t.Fatalf("LoadStore failed: %v", err)
	}

	out := filepath.Join(t.TempDir(), "copy.db")
	if err := s.SaveStore(out); err != nil {
		t.Fatalf("SaveStore failed: %v", err)
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatalf("saved artifact missing: %v", err)
	}
}

func Test_Session_SaveStoreBeforeReady(t *testing.T) {
	t.Parallel()

	s, _ := newSession(t, &fakeEmbedder{dim: 3}, &fakeAnswerer{})
	err := s.SaveStore(filepath.Join(t.TempDir(), "index.db"))
	if !errors.Is(err, ErrNoDocument) {
		t.Fatalf("expected ErrNoDocument, got %v", err)
	}
}

func Test_Session_IngestUnreadable(t *testing.T) {
	t.Parallel()

	s, _ := newSession(t, &fakeEmbedder{dim: 3}, &fakeAnswerer{})

	bogus := filepath.Join(t.TempDir(), "not-a-pdf.pdf")
	if err := os.WriteFile(bogus, []byte("plain text, no pdf header"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := s.Ingest(context.Background(), bogus)
	if !errors.Is(err, extractor.ErrUnreadable) {
		t.Fatalf("expected ErrUnreadable, got %v", err)
	}
}

func Test_Session_Status(t *testing.T) {
	t.Parallel()

	path := seedArtifact(t, 3)
	s, _ := newSession(t, &fakeEmbedder{dim: 3}, &fakeAnswerer{})

	if _, _, ready := s.Status(); ready {
		t.Error("fresh session reports ready")
	}
	if err := s.LoadStore(path); err != nil {
		t.Fatalf("LoadStore failed: %v", err)
	}
	_, passages, ready := s.Status()
	if !ready || passages != 2 {
		t.Errorf("Status = (passages=%d, ready=%v), want (2, true)", passages, ready)
	}
}

func Test_Session_NewValidation(t *testing.T) {
	t.Parallel()

	st := store.NewFlatStore(0)
	if _, err := New(Config{Store: st, Answerer: &fakeAnswerer{}}); err == nil {
		t.Error("expected an error without an embedder")
	}
	if _, err := New(Config{Embedder: &fakeEmbedder{dim: 3}, Answerer: &fakeAnswerer{}}); err == nil {
		t.Error("expected an error without a store")
	}
	if _, err := New(Config{Embedder: &fakeEmbedder{dim: 3}, Store: st}); err == nil {
		t.Error("expected an error without an answerer")
	}
}
