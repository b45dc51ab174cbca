// Package session ties the pipeline together: it owns a document, its vector
// store, the embedder, and the answer generator, and exposes the user-facing
// operations — ingest a PDF, ask a question, save and load the index.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/54b3r/pdfqa-go/internal/extractor"
	"github.com/54b3r/pdfqa-go/internal/generator"
	"github.com/54b3r/pdfqa-go/internal/logging"
	"github.com/54b3r/pdfqa-go/internal/rag"
	"github.com/54b3r/pdfqa-go/internal/splitter"
)

// ErrNoDocument is returned by Ask when no document has been ingested and no
// saved index has been loaded.
var ErrNoDocument = errors.New("session: no document loaded")

// defaultTopK is the number of passages retrieved per question when the
// caller does not choose one.
const defaultTopK = 3

// Answerer generates a grounded answer from a question and retrieved context.
// Satisfied by generator.Generator.
type Answerer interface {
	Answer(ctx context.Context, question string, results []rag.Result, requireDetail bool) (string, error)
}

// Report summarizes an ingested document.
type Report struct {
	// DocumentName is the base name of the ingested file.
	DocumentName string
	// PageCount is the total number of pages in the document.
	PageCount int
	// PassageCount is the number of passages indexed. Zero when the document
	// yielded no usable text.
	PassageCount int
}

// AskOptions tune a single question.
type AskOptions struct {
	// K is the number of passages to retrieve. Zero means the default (3).
	K int
	// RequireDetail requests a longer, more thorough answer.
	RequireDetail bool
}

// Config assembles a Session. Embedder, Store, and Answerer are required.
type Config struct {
	// Embedder converts passages and questions into vectors.
	Embedder rag.Embedder
	// Store holds passages and answers similarity queries.
	Store rag.VectorStore
	// Answerer generates the final answer.
	Answerer Answerer
	// Splitter cuts document text into passages. Defaults to the standard
	// sentence-aligned splitter.
	Splitter *splitter.Splitter
	// TopK is the default retrieval depth. Defaults to 3.
	TopK int
}

// Session is the stateful core of the question-answering pipeline. All
// operations are safe for concurrent use; a question observes either the
// pre-ingest or post-ingest index, never a partial one.
type Session struct {
	mu sync.Mutex

	embedder  rag.Embedder
	store     rag.VectorStore
	retriever rag.Retriever
	answerer  Answerer
	split     *splitter.Splitter
	topK      int

	doc   *extractor.Document
	ready bool
}

// New assembles a Session from its parts.
func New(cfg Config) (*Session, error) {
	if cfg.Embedder == nil {
		return nil, fmt.Errorf("session: embedder must not be nil")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("session: store must not be nil")
	}
	if cfg.Answerer == nil {
		return nil, fmt.Errorf("session: answerer must not be nil")
	}
	split := cfg.Splitter
	if split == nil {
		split = splitter.New(splitter.DefaultChunkSize, splitter.DefaultChunkOverlap)
	}
	topK := cfg.TopK
	if topK <= 0 {
		topK = defaultTopK
	}
	retriever, err := rag.NewRetriever(cfg.Embedder, cfg.Store, topK)
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}
	return &Session{
		embedder:  cfg.Embedder,
		store:     cfg.Store,
		retriever: retriever,
		answerer:  cfg.Answerer,
		split:     split,
		topK:      topK,
	}, nil
}

// Ingest extracts, splits, embeds, and indexes the PDF at path, replacing any
// previously loaded document. A readable PDF with no extractable text
// succeeds with a zero passage count; questions against it receive the
// insufficiency message.
func (s *Session) Ingest(ctx context.Context, path string) (*Report, error) {
	log := logging.FromContext(ctx)

	doc, err := extractor.Extract(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("session: ingest %s: %w", path, err)
	}

	passages := s.split.Split(doc.Text)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.clearLocked(ctx); err != nil {
		return nil, err
	}

	if len(passages) > 0 {
		texts := make([]string, len(passages))
		batch := make([]rag.Passage, len(passages))
		for i, p := range passages {
			texts[i] = p
			batch[i] = rag.Passage{Text: p, Index: i}
		}

		embeddings, err := s.embedder.Embed(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("session: embedding passages: %w", err)
		}
		if err := s.store.Add(ctx, batch, embeddings); err != nil {
			return nil, fmt.Errorf("session: indexing passages: %w", err)
		}
	}

	s.doc = doc
	s.ready = true

	log.Info("document ingested",
		"document", doc.Name,
		"pages", doc.PageCount,
		"extracted_pages", doc.ExtractedPages,
		"passages", len(passages))

	return &Report{
		DocumentName: doc.Name,
		PageCount:    doc.PageCount,
		PassageCount: len(passages),
	}, nil
}

// Ask answers a question against the loaded document. Questions asked before
// any ingest or load return ErrNoDocument. When retrieval finds nothing above
// the relevance floor the insufficiency message is returned without calling
// the model.
func (s *Session) Ask(ctx context.Context, question string, opts AskOptions) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ready {
		return "", ErrNoDocument
	}

	k := opts.K
	if k <= 0 {
		k = s.topK
	}

	results, err := s.retriever.Retrieve(ctx, question, k)
	if err != nil {
		return "", fmt.Errorf("session: retrieving context: %w", err)
	}
	if len(results) == 0 {
		logging.FromContext(ctx).Info("no relevant context found", "question_len", len(question))
		return generator.InsufficientAnswer, nil
	}

	answer, err := s.answerer.Answer(ctx, question, results, opts.RequireDetail)
	if err != nil {
		return "", fmt.Errorf("session: %w", err)
	}
	return answer, nil
}

// SaveStore writes the current index to a single artifact file at path. The
// underlying store must support persistence.
func (s *Session) SaveStore(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.store.(rag.Persistable)
	if !ok {
		return fmt.Errorf("session: store %T does not support save/load", s.store)
	}
	if !s.ready {
		return ErrNoDocument
	}
	return p.Save(path)
}

// LoadStore replaces the index with a previously saved artifact. The artifact
// must have been built with an embedder of the same vector width as the
// session's; a mismatch is rejected before any state changes.
func (s *Session) LoadStore(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.store.(rag.Persistable)
	if !ok {
		return fmt.Errorf("session: store %T does not support save/load", s.store)
	}
	if err := p.Load(path); err != nil {
		return fmt.Errorf("session: loading index: %w", err)
	}

	if d, ok := s.store.(interface{ Dimensions() int }); ok {
		if got, want := d.Dimensions(), s.embedder.Dimensions(); got != 0 && want != 0 && got != want {
			if err := s.clearLocked(context.Background()); err != nil {
				return err
			}
			s.ready = false
			return fmt.Errorf("session: index dimension %d does not match embedder dimension %d", got, want)
		}
	}

	s.doc = nil
	s.ready = true
	return nil
}

// Reset discards the loaded document and index. Safe to call repeatedly.
func (s *Session) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.clearLocked(ctx); err != nil {
		return err
	}
	s.doc = nil
	s.ready = false
	return nil
}

// Status reports the session state for health and status endpoints.
func (s *Session) Status() (documentName string, passages int, ready bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.doc != nil {
		documentName = s.doc.Name
	}
	return documentName, s.store.Len(), s.ready
}

// clearLocked empties the store. Callers hold s.mu.
func (s *Session) clearLocked(ctx context.Context) error {
	type clearer interface {
		Clear(ctx context.Context) error
	}
	if c, ok := s.store.(clearer); ok {
		if err := c.Clear(ctx); err != nil {
			return fmt.Errorf("session: clearing store: %w", err)
		}
	}
	return nil
}
