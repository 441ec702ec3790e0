package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/54b3r/docqa-go/internal/answer"
	"github.com/54b3r/docqa-go/internal/catalog"
	"github.com/54b3r/docqa-go/internal/embedder"
	"github.com/54b3r/docqa-go/internal/extract"
	"github.com/54b3r/docqa-go/internal/pipeline"
	"github.com/54b3r/docqa-go/internal/provider"
	"github.com/54b3r/docqa-go/internal/rag"
)

// buildStore selects the vector store backend: Qdrant when QDRANT_HOST is
// set, otherwise the in-process memory store. The returned name labels the
// backend in readiness responses and logs.
func buildStore(ctx context.Context, log *slog.Logger) (rag.VectorStore, string, error) {
	dims := embedder.Dimensions()

	host := os.Getenv("QDRANT_HOST")
	if host == "" {
		log.Info("vector store: in-memory (set QDRANT_HOST for a persistent index)")
		store, err := rag.NewMemoryStore(dims)
		if err != nil {
			return nil, "", fmt.Errorf("memory store: %w", err)
		}
		return store, "memory", nil
	}

	port := getEnvInt("QDRANT_PORT", 6334)
	collection := getEnvOrDefault("QDRANT_COLLECTION", "docqa-chunks")

	store, err := rag.NewQdrantStore(ctx, &rag.QdrantConfig{
		Host:       host,
		Port:       port,
		Collection: collection,
		VectorSize: uint64(dims), //nolint:gosec // dimensions are bounded
		APIKey:     os.Getenv("QDRANT_API_KEY"),
		UseTLS:     os.Getenv("QDRANT_TLS") == "true",
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to connect to Qdrant at %s:%d: %w", host, port, err)
	}
	log.Info("qdrant store ready",
		slog.String("host", host),
		slog.Int("port", port),
		slog.String("collection", collection),
	)
	return store, "qdrant", nil
}

// openCatalog opens the upload catalog. DOCQA_CATALOG_DB overrides the
// default path (~/.docqa/catalog.db); "disabled" turns the catalog off.
// A catalog failure downgrades to a warning — the index still works without it.
func openCatalog(log *slog.Logger) catalog.Catalog {
	dbPath := os.Getenv("DOCQA_CATALOG_DB")
	if dbPath == "disabled" {
		log.Info("catalog: disabled via DOCQA_CATALOG_DB=disabled")
		return nil
	}
	if dbPath == "" {
		p, err := catalog.DefaultDBPath()
		if err != nil {
			log.Warn("catalog: could not resolve default DB path, disabling", slog.Any("error", err))
			return nil
		}
		dbPath = p
	}
	cat, err := catalog.Open(dbPath)
	if err != nil {
		log.Warn("catalog: failed to open, disabling", slog.Any("error", err))
		return nil
	}
	log.Info("catalog: opened", slog.String("path", dbPath))
	return cat
}

// buildPipeline assembles the full pipeline from environment configuration:
// embedder, vector store, chat model, answer generator, and upload catalog.
// The returned cleanup function closes every opened resource.
func buildPipeline(ctx context.Context, log *slog.Logger) (*pipeline.Pipeline, rag.VectorStore, rag.Embedder, string, func(), error) {
	if err := embedder.Validate(log); err != nil {
		return nil, nil, nil, "", nil, err
	}

	emb, err := embedder.NewFromEnv()
	if err != nil {
		return nil, nil, nil, "", nil, fmt.Errorf("failed to initialise embedder: %w", err)
	}

	store, storeName, err := buildStore(ctx, log)
	if err != nil {
		return nil, nil, nil, "", nil, err
	}

	chatModel, err := provider.NewFromEnv(ctx)
	if err != nil {
		store.Close()
		return nil, nil, nil, "", nil, fmt.Errorf("failed to initialise model provider: %w", err)
	}

	generator, err := answer.New(&answer.Config{ChatModel: chatModel})
	if err != nil {
		store.Close()
		return nil, nil, nil, "", nil, err
	}

	cat := openCatalog(log)

	pipe, err := pipeline.New(&pipeline.Config{
		Embedder:     emb,
		Store:        store,
		Generator:    generator,
		Catalog:      cat,
		ChunkSize:    getEnvInt("CHUNK_SIZE", 0),
		ChunkOverlap: getEnvInt("CHUNK_OVERLAP", 0),
		DefaultTopK:  getEnvInt("DEFAULT_TOP_K", 0),
	})
	if err != nil {
		store.Close()
		if cat != nil {
			cat.Close()
		}
		return nil, nil, nil, "", nil, err
	}

	cleanup := func() {
		_ = store.Close()
		if cat != nil {
			_ = cat.Close()
		}
	}
	return pipe, store, emb, storeName, cleanup, nil
}

// ingestFiles reads, extracts, and indexes each named file.
func ingestFiles(ctx context.Context, pipe *pipeline.Pipeline, paths []string) error {
	for _, path := range paths {
		name := filepath.Base(path)
		if !extract.Supported(name) {
			return fmt.Errorf("%s: unsupported format (want .txt, .md, .pdf, or .docx)", path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		text, err := extract.Text(name, data)
		if err != nil {
			return err
		}
		if _, err := pipe.Ingest(ctx, name, text); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	return nil
}

// getEnvOrDefault returns the value of the named environment variable, or
// fallback if the variable is unset or empty.
func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvInt returns the integer value of the named environment variable, or
// fallback if the variable is unset, empty, or not parseable.
func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

// getEnvFloat returns the float64 value of the named environment variable,
// or fallback if the variable is unset, empty, or not parseable.
func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

// getEnvInt64 returns the int64 value of the named environment variable, or
// fallback if the variable is unset, empty, or not parseable.
func getEnvInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return fallback
}
