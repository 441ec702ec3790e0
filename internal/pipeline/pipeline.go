// Package pipeline wires the chunker, embedder, vector store, retriever, and
// answer generator into the two top-level flows: document ingestion and
// question answering. The HTTP server and the CLI both drive this package and
// nothing else.
package pipeline

import (
	"context"
	"fmt"

	"github.com/54b3r/docqa-go/internal/answer"
	"github.com/54b3r/docqa-go/internal/catalog"
	"github.com/54b3r/docqa-go/internal/chunker"
	"github.com/54b3r/docqa-go/internal/logging"
	"github.com/54b3r/docqa-go/internal/rag"
)

// Result is the outcome of one question-answering pass.
type Result struct {
	// Answer is the generated answer text.
	Answer string `json:"answer"`
	// Sources are the retrieved fragments the answer was grounded on, in
	// ranked order. Populated even when generation fails, so callers can
	// still show what was found.
	Sources []rag.Fragment `json:"sources"`
}

// Config collects the pipeline's collaborators and tuning knobs.
type Config struct {
	// Embedder produces vectors for chunks and questions. Required.
	Embedder rag.Embedder
	// Store persists and searches chunk vectors. Required.
	Store rag.VectorStore
	// Generator produces grounded answers. Required.
	Generator answer.Generator
	// Catalog records uploads. Optional; nil disables the upload log.
	Catalog catalog.Catalog

	// ChunkSize is the chunk length in characters. Defaults to chunker.DefaultSize.
	ChunkSize int
	// ChunkOverlap is the overlap between consecutive chunks in characters.
	// Defaults to chunker.DefaultOverlap.
	ChunkOverlap int
	// DefaultTopK is the fragment count used when a query does not specify
	// one. Defaults to 3.
	DefaultTopK int
}

// Pipeline orchestrates ingestion and question answering. Safe for
// concurrent use as long as its collaborators are.
type Pipeline struct {
	embedder  rag.Embedder
	store     rag.VectorStore
	generator answer.Generator
	retriever rag.Retriever
	catalog   catalog.Catalog

	chunkSize    int
	chunkOverlap int
}

// New validates the config and constructs a Pipeline.
func New(cfg *Config) (*Pipeline, error) {
	if cfg == nil {
		return nil, fmt.Errorf("pipeline: config must not be nil")
	}
	if cfg.Embedder == nil || cfg.Store == nil || cfg.Generator == nil {
		return nil, fmt.Errorf("pipeline: embedder, store, and generator are required")
	}

	size := cfg.ChunkSize
	if size == 0 {
		size = chunker.DefaultSize
	}
	overlap := cfg.ChunkOverlap
	// Only default the overlap when the size was defaulted too; an explicit
	// size with zero overlap is a valid configuration.
	if cfg.ChunkSize == 0 && cfg.ChunkOverlap == 0 {
		overlap = chunker.DefaultOverlap
	}
	if err := chunker.Validate(size, overlap); err != nil {
		return nil, err
	}

	retriever, err := rag.NewRetriever(cfg.Embedder, cfg.Store, cfg.DefaultTopK)
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		embedder:     cfg.Embedder,
		store:        cfg.Store,
		generator:    cfg.Generator,
		retriever:    retriever,
		catalog:      cfg.Catalog,
		chunkSize:    size,
		chunkOverlap: overlap,
	}, nil
}

// Ingest chunks the document text, embeds every chunk, and upserts the
// vectors. It returns the number of chunks added. A document that chunks to
// nothing (empty or whitespace-only) is a no-op, not an error.
//
// Chunk ids are deterministic: "<filename>_<index>". Whether re-ingesting
// the same filename replaces or duplicates chunks depends on the store
// backend.
func (p *Pipeline) Ingest(ctx context.Context, filename, text string) (int, error) {
	log := logging.FromContext(ctx)

	chunks, err := chunker.Split(text, p.chunkSize, p.chunkOverlap)
	if err != nil {
		return 0, err
	}
	if len(chunks) == 0 {
		log.Info("document produced no chunks", "filename", filename)
		return 0, nil
	}

	fragments := make([]rag.Fragment, len(chunks))
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		fragments[i] = rag.Fragment{
			ID:          fmt.Sprintf("%s_%d", filename, i),
			Filename:    filename,
			Text:        c.Text,
			StartOffset: c.StartOffset,
		}
		texts[i] = c.Text
	}

	vectors, err := p.embedder.Embed(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("pipeline: embed %q: %w", filename, err)
	}

	added, err := p.store.Upsert(ctx, fragments, vectors)
	if err != nil {
		return 0, fmt.Errorf("pipeline: upsert %q: %w", filename, err)
	}

	if p.catalog != nil {
		// Catalog failure must not fail an ingestion that already landed.
		if err := p.catalog.RecordUpload(ctx, filename, added); err != nil {
			log.Warn("failed to record upload in catalog", "filename", filename, "error", err)
		}
	}

	log.Info("document ingested", "filename", filename, "chunks", added)
	return added, nil
}

// Query retrieves the topK most relevant fragments for the question and
// generates a grounded answer. When generation fails, the returned Result
// still carries the retrieved sources alongside the error.
func (p *Pipeline) Query(ctx context.Context, question string, topK int) (*Result, error) {
	fragments, err := p.retriever.Retrieve(ctx, question, topK)
	if err != nil {
		return nil, fmt.Errorf("pipeline: retrieve: %w", err)
	}

	text, err := p.generator.Generate(ctx, question, fragments)
	if err != nil {
		return &Result{Sources: fragments}, fmt.Errorf("pipeline: generate: %w", err)
	}

	return &Result{Answer: text, Sources: fragments}, nil
}

// Retrieve exposes raw retrieval without generation: the ranked fragments
// for a question, with no model call.
func (p *Pipeline) Retrieve(ctx context.Context, question string, topK int) ([]rag.Fragment, error) {
	return p.retriever.Retrieve(ctx, question, topK)
}

// Count returns the number of chunks currently indexed.
func (p *Pipeline) Count(ctx context.Context) (uint64, error) {
	return p.store.Count(ctx)
}

// Uploads lists recorded document uploads, newest first. Returns an empty
// slice when no catalog is configured.
func (p *Pipeline) Uploads(ctx context.Context) ([]catalog.Upload, error) {
	if p.catalog == nil {
		return []catalog.Upload{}, nil
	}
	return p.catalog.List(ctx)
}

// Clear removes every indexed chunk and, when a catalog is configured, every
// upload record.
func (p *Pipeline) Clear(ctx context.Context) error {
	if err := p.store.Clear(ctx); err != nil {
		return fmt.Errorf("pipeline: clear store: %w", err)
	}
	if p.catalog != nil {
		if err := p.catalog.Clear(ctx); err != nil {
			return fmt.Errorf("pipeline: clear catalog: %w", err)
		}
	}
	return nil
}
