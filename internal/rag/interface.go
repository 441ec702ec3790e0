// Package rag defines the interfaces for the retrieval side of the document
// Q&A pipeline: vector storage, fragment retrieval, and embedding.
// Concrete implementations (Qdrant, in-memory) satisfy these interfaces so
// the pipeline and server layers never depend on a specific backend.
package rag

import (
	"context"
	"errors"
)

// DefaultDimensions is the process-wide embedding vector size. Every
// embedder and store in one process must agree on it; it is fixed at
// initialization and overridable via EMBEDDING_DIMENSIONS.
const DefaultDimensions = 384

// ErrDimensionMismatch is returned when a vector of the wrong length reaches
// a component configured for a different embedding dimension. The affected
// batch is aborted; nothing is partially written.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// ErrStoreUnavailable is returned when the vector store backend cannot be
// reached. It is surfaced to the caller, never retried at this layer.
var ErrStoreUnavailable = errors.New("vector store unavailable")

// Fragment is a unit of stored or retrieved knowledge: one chunk of one
// document, plus the similarity score assigned during retrieval.
type Fragment struct {
	// ID is the deterministic chunk identifier ("{filename}_{index}").
	ID string

	// Filename is the document this fragment was cut from.
	Filename string

	// Text is the raw chunk text.
	Text string

	// StartOffset is the byte offset of Text within the original document.
	StartOffset int

	// Score is the cosine similarity assigned during retrieval
	// (practically 0.0–1.0 for normalized embeddings). Zero before search.
	Score float32
}

// VectorStore persists fragment embeddings and answers similarity searches.
// Implementations must be safe to call from multiple goroutines.
type VectorStore interface {
	// Upsert stores a batch of fragments with their pre-computed embeddings
	// and returns the number of records written. The embeddings slice must
	// be parallel to fragments — embeddings[i] is the vector for fragments[i].
	Upsert(ctx context.Context, fragments []Fragment, embeddings [][]float32) (int, error)

	// Search returns the top-k fragments most similar to the query embedding,
	// sorted by descending cosine score. The ordering is stable within one
	// call. An empty store yields an empty slice, not an error.
	Search(ctx context.Context, queryEmbedding []float32, topK int) ([]Fragment, error)

	// Count returns the total number of records currently stored.
	Count(ctx context.Context) (uint64, error)

	// Clear removes all records. After Clear, Count reports 0 and Search
	// returns an empty slice.
	Clear(ctx context.Context) error

	// Ping checks whether the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases any resources held by the store.
	Close() error
}

// Embedder converts text into dense vector embeddings.
// Implementations must be safe to call from multiple goroutines.
type Embedder interface {
	// Embed converts a batch of texts into their corresponding embeddings.
	// The returned slice is parallel to the input slice; an empty input
	// yields an empty result.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Retriever fetches the fragments most relevant to a natural-language
// question. It combines embedding and vector search.
// Implementations must be safe to call from multiple goroutines.
type Retriever interface {
	// Retrieve returns the top-k most relevant fragments for the question.
	Retrieve(ctx context.Context, question string, topK int) ([]Fragment, error)
}
