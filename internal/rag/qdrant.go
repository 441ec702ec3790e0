package rag

import (
	"context"
	"crypto/sha256"
	"fmt"

	"github.com/qdrant/go-client/qdrant"
)

// QdrantConfig holds connection parameters for a Qdrant vector store instance.
type QdrantConfig struct {
	// Host is the Qdrant server hostname (default: localhost).
	Host string

	// Port is the Qdrant gRPC port (default: 6334).
	Port int

	// Collection is the Qdrant collection name to use. It is the index
	// namespace: two deployments sharing a cluster isolate their fragments
	// by collection.
	Collection string

	// VectorSize is the dimensionality of the embeddings stored in this
	// collection.
	VectorSize uint64

	// APIKey is the optional Qdrant API key for authenticated clusters.
	APIKey string

	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool
}

// QdrantStore implements VectorStore backed by a Qdrant instance.
//
// Point ids are derived deterministically from the chunk id, so re-uploading
// a document overwrites the previous records for the same ids — Qdrant
// dedups by point id, unlike the in-memory store. Retrieval returns the
// last-written variant for each id.
type QdrantStore struct {
	// client is the underlying Qdrant gRPC client.
	client *qdrant.Client

	// cfg holds the resolved configuration for this store.
	cfg *QdrantConfig
}

// NewQdrantStore creates a new QdrantStore, ensuring the target collection
// exists (creating it if necessary), and returns a ready-to-use VectorStore.
func NewQdrantStore(ctx context.Context, cfg *QdrantConfig) (*QdrantStore, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}
	if cfg.Collection == "" {
		return nil, fmt.Errorf("qdrant: collection name must not be empty")
	}
	if cfg.VectorSize == 0 {
		return nil, fmt.Errorf("qdrant: vector size must not be zero")
	}

	clientCfg := &qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	}

	client, err := qdrant.NewClient(clientCfg)
	if err != nil {
		return nil, fmt.Errorf("qdrant: failed to create client: %w", err)
	}

	store := &QdrantStore{client: client, cfg: cfg}
	if err := store.ensureCollection(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

// ensureCollection creates the Qdrant collection if it does not already exist.
func (s *QdrantStore) ensureCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.cfg.Collection)
	if err != nil {
		return fmt.Errorf("qdrant: failed to check collection existence: %w: %w", ErrStoreUnavailable, err)
	}
	if exists {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.cfg.Collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     s.cfg.VectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("qdrant: failed to create collection %q: %w: %w", s.cfg.Collection, ErrStoreUnavailable, err)
	}

	return nil
}

// Upsert stores a batch of fragments with their embeddings and returns the
// number of points written. The batch is validated against the collection's
// vector size before anything is sent.
func (s *QdrantStore) Upsert(ctx context.Context, fragments []Fragment, embeddings [][]float32) (int, error) {
	if len(fragments) != len(embeddings) {
		return 0, fmt.Errorf("qdrant: %d fragments but %d embeddings", len(fragments), len(embeddings))
	}

	points := make([]*qdrant.PointStruct, 0, len(fragments))
	for i, frag := range fragments {
		vec := embeddings[i]
		if uint64(len(vec)) != s.cfg.VectorSize {
			return 0, fmt.Errorf("qdrant: vector %d has %d dimensions, want %d: %w",
				i, len(vec), s.cfg.VectorSize, ErrDimensionMismatch)
		}

		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(pointUUID(frag.ID)),
			Vectors: qdrant.NewVectors(vec...),
			Payload: qdrant.NewValueMap(map[string]any{
				"chunk_id":     frag.ID,
				"filename":     frag.Filename,
				"text":         frag.Text,
				"start_offset": frag.StartOffset,
			}),
		})
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.cfg.Collection,
		Points:         points,
	})
	if err != nil {
		return 0, fmt.Errorf("qdrant: upsert failed: %w: %w", ErrStoreUnavailable, err)
	}

	return len(points), nil
}

// Search performs a cosine similarity search and returns the top-k results.
func (s *QdrantStore) Search(ctx context.Context, queryEmbedding []float32, topK int) ([]Fragment, error) {
	if uint64(len(queryEmbedding)) != s.cfg.VectorSize {
		return nil, fmt.Errorf("qdrant: query vector has %d dimensions, want %d: %w",
			len(queryEmbedding), s.cfg.VectorSize, ErrDimensionMismatch)
	}

	limit := uint64(topK)
	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.cfg.Collection,
		Query:          qdrant.NewQuery(queryEmbedding...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: search failed: %w: %w", ErrStoreUnavailable, err)
	}

	fragments := make([]Fragment, 0, len(results))
	for _, r := range results {
		frag := Fragment{Score: r.Score}
		if p := r.Payload; p != nil {
			if v, ok := p["chunk_id"]; ok {
				frag.ID = v.GetStringValue()
			}
			if v, ok := p["filename"]; ok {
				frag.Filename = v.GetStringValue()
			}
			if v, ok := p["text"]; ok {
				frag.Text = v.GetStringValue()
			}
			if v, ok := p["start_offset"]; ok {
				frag.StartOffset = int(v.GetIntegerValue())
			}
		}
		fragments = append(fragments, frag)
	}

	return fragments, nil
}

// Count returns the exact number of points in the collection.
func (s *QdrantStore) Count(ctx context.Context) (uint64, error) {
	exact := true
	n, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: s.cfg.Collection,
		Exact:          &exact,
	})
	if err != nil {
		return 0, fmt.Errorf("qdrant: count failed: %w: %w", ErrStoreUnavailable, err)
	}
	return n, nil
}

// Clear drops the collection and recreates it empty. Dropping is a single
// atomic call under Qdrant's own consistency model; a search racing the
// clear sees either the old collection or the fresh empty one.
func (s *QdrantStore) Clear(ctx context.Context) error {
	if err := s.client.DeleteCollection(ctx, s.cfg.Collection); err != nil {
		return fmt.Errorf("qdrant: clear failed: %w: %w", ErrStoreUnavailable, err)
	}
	return s.ensureCollection(ctx)
}

// Ping calls the Qdrant HealthCheck RPC.
func (s *QdrantStore) Ping(ctx context.Context) error {
	if _, err := s.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("qdrant: health check failed: %w: %w", ErrStoreUnavailable, err)
	}
	return nil
}

// Close closes the underlying Qdrant gRPC connection.
func (s *QdrantStore) Close() error {
	return s.client.Close()
}

// pointUUID maps a chunk id onto a stable UUID-formatted string, since
// Qdrant point ids must be UUIDs or unsigned integers.
func pointUUID(chunkID string) string {
	h := sha256.Sum256([]byte(chunkID))
	return fmt.Sprintf("%x-%x-%x-%x-%x", h[0:4], h[4:6], h[6:8], h[8:10], h[10:16])
}
