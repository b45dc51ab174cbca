// Package store provides the in-process flat vector store: ordered passages
// with their embeddings, brute-force L2 search, and single-file artifact
// persistence backed by SQLite.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/54b3r/pdfqa-go/internal/rag"
)

// DefaultFloor is the minimum relevance score for a passage to be returned
// from Search. Tuned against the squared-L2 score mapping; a different
// embedder likely needs a different floor.
const DefaultFloor = 0.3

// ErrDimensionMismatch indicates a vector whose width disagrees with the
// store's established dimension.
var ErrDimensionMismatch = errors.New("store: embedding dimension mismatch")

// ErrCorrupt indicates an artifact that failed validation during load.
// A load that returns ErrCorrupt leaves the store unchanged.
var ErrCorrupt = errors.New("store: corrupt artifact")

// FlatStore keeps passages and their embeddings in memory and answers
// similarity queries by exhaustive scan. Distances are squared L2, mapped to
// a similarity score of 1/(1+d). Safe for concurrent use.
type FlatStore struct {
	mu sync.RWMutex

	// dim is the established vector width, zero until the first Add or Load.
	dim int

	// floor is the minimum score returned from Search.
	floor float32

	passages []rag.Passage
	vectors  [][]float32
}

// NewFlatStore returns an empty FlatStore with the given relevance floor.
// A non-positive floor falls back to DefaultFloor.
func NewFlatStore(floor float32) *FlatStore {
	if floor <= 0 {
		floor = DefaultFloor
	}
	return &FlatStore{floor: floor}
}

// Add appends passages with their embeddings. The first batch establishes
// the store's dimension; later batches must match it. The batch is applied
// atomically: on any validation error nothing is added.
func (s *FlatStore) Add(ctx context.Context, passages []rag.Passage, embeddings [][]float32) error {
	if len(passages) != len(embeddings) {
		return fmt.Errorf("store: add: %d passages but %d embeddings", len(passages), len(embeddings))
	}
	if len(passages) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dim := s.dim
	if dim == 0 {
		dim = len(embeddings[0])
		if dim == 0 {
			return fmt.Errorf("store: add: %w: empty embedding", ErrDimensionMismatch)
		}
	}
	for i, v := range embeddings {
		if len(v) != dim {
			return fmt.Errorf("store: add: %w: vector %d has width %d, want %d",
				ErrDimensionMismatch, i, len(v), dim)
		}
	}

	s.dim = dim
	s.passages = append(s.passages, passages...)
	for _, v := range embeddings {
		s.vectors = append(s.vectors, append([]float32(nil), v...))
	}
	return nil
}

// Search returns up to topK results for the query vector, highest score
// first. Results scoring below the floor are dropped. An empty store or
// non-positive topK returns no results.
func (s *FlatStore) Search(ctx context.Context, queryEmbedding []float32, topK int) ([]rag.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if topK <= 0 || len(s.vectors) == 0 {
		return nil, nil
	}
	if len(queryEmbedding) != s.dim {
		return nil, fmt.Errorf("store: search: %w: query has width %d, want %d",
			ErrDimensionMismatch, len(queryEmbedding), s.dim)
	}

	results := make([]rag.Result, 0, len(s.vectors))
	for i, v := range s.vectors {
		score := float32(1.0 / (1.0 + sqL2(queryEmbedding, v)))
		if score < s.floor {
			continue
		}
		results = append(results, rag.Result{Passage: s.passages[i], Score: score})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// Len returns the number of stored passages.
func (s *FlatStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.passages)
}

// Dimensions returns the established vector width, zero when the store is
// empty and no artifact has been loaded.
func (s *FlatStore) Dimensions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dim
}

// Clear empties the store. The dimension resets and is re-established by the
// next Add or Load.
func (s *FlatStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.passages = nil
	s.vectors = nil
	s.dim = 0
	return nil
}

// Close releases the store's contents.
func (s *FlatStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.passages = nil
	s.vectors = nil
	s.dim = 0
	return nil
}

// sqL2 returns the squared L2 distance between two equal-width vectors.
func sqL2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}
