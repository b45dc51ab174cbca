// Package rag defines the data contracts and interfaces shared by the
// retrieval pipeline: passages, embedding, vector storage, and retrieval.
// Concrete implementations (the in-process flat store, Qdrant, the HTTP
// embedders) satisfy these interfaces so the session and answer layers
// never depend on a specific backend.
package rag

import (
	"context"
)

// Passage is the retrieval unit: a bounded, sentence-aligned slice of a
// document. Passages are immutable after creation; callers receive copies.
type Passage struct {
	// Text is the passage body. Non-empty, whitespace-normalized, and free
	// of null bytes.
	Text string

	// Index is the position of this passage within its document, starting
	// at zero. Adjacent passages may share an overlap window of text.
	Index int
}

// Result pairs a retrieved passage with its relevance score.
type Result struct {
	// Passage is the retrieved passage.
	Passage Passage

	// Score is the similarity score in (0, 1]; larger means more similar.
	Score float32
}

// Embedder converts text into dense vector embeddings.
// Implementations must be safe to call from multiple goroutines and must
// produce identical vectors for identical inputs within a session.
type Embedder interface {
	// Embed converts a batch of texts into their corresponding embeddings.
	// The returned slice is parallel to the input slice. Embedding a batch
	// is equivalent to embedding each text individually.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the output vector width. It never runs an
	// inference call.
	Dimensions() int
}

// VectorStore persists passages with their embeddings and answers top-k
// similarity queries. Ingestion is single-phase: a Search observes either
// the pre-Add or post-Add state, never a partial one.
type VectorStore interface {
	// Add appends a batch of passages with their pre-computed embeddings.
	// The embeddings slice must be parallel to passages.
	Add(ctx context.Context, passages []Passage, embeddings [][]float32) error

	// Search returns up to topK results for the query embedding, ordered
	// by descending score and filtered by the store's relevance floor.
	Search(ctx context.Context, queryEmbedding []float32, topK int) ([]Result, error)

	// Len returns the number of passages currently held by the store.
	Len() int

	// Close releases any resources held by the store.
	Close() error
}

// Persistable is implemented by vector stores that can round-trip their
// full contents (passages, vectors, metadata) through a single artifact
// file on disk.
type Persistable interface {
	// Save writes the store to a single artifact file at path.
	Save(path string) error

	// Load replaces the store's contents with the artifact at path.
	// A failed load leaves the receiver unchanged.
	Load(path string) error
}

// Retriever is the high-level interface used by the session to fetch
// relevant context for a question. It combines embedding and vector search.
type Retriever interface {
	// Retrieve returns the top-k most relevant passages for the query.
	Retrieve(ctx context.Context, query string, topK int) ([]Result, error)
}
