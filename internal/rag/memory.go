package rag

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// MemoryStore is a VectorStore backed by process memory with brute-force
// cosine similarity. It is the default backend when no Qdrant host is
// configured, and the substitute used by tests.
//
// Records are appended as-is: there is no deduplication by id, so uploading
// the same document twice stores every chunk twice. All mutating calls
// serialise behind a single lock — a Clear racing an Upsert or Search
// observes either the state before or after the other call, never a torn
// intermediate.
type MemoryStore struct {
	// mu guards records. Clear and Upsert take it exclusively.
	mu sync.RWMutex

	// dimensions is the required vector length for every record.
	dimensions int

	// records holds the stored fragments with their embeddings,
	// in insertion order.
	records []memoryRecord
}

// memoryRecord pairs a stored fragment with its embedding.
type memoryRecord struct {
	fragment  Fragment
	embedding []float32
}

// NewMemoryStore constructs a MemoryStore that accepts vectors of the given
// dimension. dimensions must be positive.
func NewMemoryStore(dimensions int) (*MemoryStore, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("memory store: dimensions must be positive, got %d", dimensions)
	}
	return &MemoryStore{dimensions: dimensions}, nil
}

// Upsert appends all fragments with their embeddings and returns the number
// written. The whole batch is validated before anything is stored, so a
// dimension mismatch never leaves a partial write behind.
func (s *MemoryStore) Upsert(_ context.Context, fragments []Fragment, embeddings [][]float32) (int, error) {
	if len(fragments) != len(embeddings) {
		return 0, fmt.Errorf("memory store: %d fragments but %d embeddings", len(fragments), len(embeddings))
	}
	for i, vec := range embeddings {
		if len(vec) != s.dimensions {
			return 0, fmt.Errorf("memory store: vector %d has %d dimensions, want %d: %w",
				i, len(vec), s.dimensions, ErrDimensionMismatch)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, frag := range fragments {
		s.records = append(s.records, memoryRecord{fragment: frag, embedding: embeddings[i]})
	}
	return len(fragments), nil
}

// Search scores every record against the query embedding and returns the
// topK best, sorted by descending cosine similarity. Ties keep insertion
// order, so the ordering is stable within one call.
func (s *MemoryStore) Search(_ context.Context, queryEmbedding []float32, topK int) ([]Fragment, error) {
	if len(queryEmbedding) != s.dimensions {
		return nil, fmt.Errorf("memory store: query vector has %d dimensions, want %d: %w",
			len(queryEmbedding), s.dimensions, ErrDimensionMismatch)
	}
	if topK <= 0 {
		return nil, fmt.Errorf("memory store: topK must be positive, got %d", topK)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	scored := make([]Fragment, 0, len(s.records))
	for _, rec := range s.records {
		f := rec.fragment
		f.Score = cosine(queryEmbedding, rec.embedding)
		scored = append(scored, f)
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })

	if topK < len(scored) {
		scored = scored[:topK]
	}
	return scored, nil
}

// Count returns the number of stored records.
func (s *MemoryStore) Count(_ context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return uint64(len(s.records)), nil
}

// Clear removes all records.
func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = nil
	return nil
}

// Ping always succeeds — there is no backend to reach.
func (s *MemoryStore) Ping(_ context.Context) error { return nil }

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error { return nil }

// cosine returns the cosine similarity of a and b. Zero-magnitude vectors
// score 0 rather than dividing by zero.
func cosine(a, b []float32) float32 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
