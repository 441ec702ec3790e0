package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/54b3r/docqa-go/internal/answer"
	"github.com/54b3r/docqa-go/internal/catalog"
	"github.com/54b3r/docqa-go/internal/chunker"
	"github.com/54b3r/docqa-go/internal/rag"
)

// hashEmbedder is a deterministic embedder for tests: the vector depends only
// on the text, so identical texts always land near each other.
type hashEmbedder struct {
	err error
}

func (h *hashEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if h.err != nil {
		return nil, h.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v := make([]float32, 4)
		for j, r := range t {
			v[j%4] += float32(r % 13)
		}
		out[i] = v
	}
	return out, nil
}

// fakeGenerator echoes the fragment ids it saw, or fails.
type fakeGenerator struct {
	err  error
	seen []rag.Fragment
}

func (f *fakeGenerator) Generate(_ context.Context, _ string, fragments []rag.Fragment) (string, error) {
	f.seen = fragments
	if f.err != nil {
		return "", f.err
	}
	if len(fragments) == 0 {
		return answer.NoContextAnswer, nil
	}
	ids := make([]string, len(fragments))
	for i, fr := range fragments {
		ids[i] = fr.ID
	}
	return "answer from " + strings.Join(ids, ","), nil
}

// newMemStore builds a 4-dimension in-memory store, failing the test on error.
func newMemStore(t *testing.T) *rag.MemoryStore {
	t.Helper()
	store, err := rag.NewMemoryStore(4)
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	return store
}

func newTestPipeline(t *testing.T, gen answer.Generator) (*Pipeline, *rag.MemoryStore) {
	t.Helper()
	store := newMemStore(t)
	cat, err := catalog.Open(":memory:")
	if err != nil {
		t.Fatalf("open catalog: %v", err)
	}
	t.Cleanup(func() { _ = cat.Close() })

	p, err := New(&Config{
		Embedder:     &hashEmbedder{},
		Store:        store,
		Generator:    gen,
		Catalog:      cat,
		ChunkSize:    50,
		ChunkOverlap: 10,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p, store
}

func Test_Pipeline_IngestAddsChunks(t *testing.T) {
	t.Parallel()
	p, _ := newTestPipeline(t, &fakeGenerator{})
	ctx := context.Background()

	text := strings.Repeat("Sick leave is capped at 10 days per year. ", 4)
	added, err := p.Ingest(ctx, "policy.md", text)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if added < 2 {
		t.Fatalf("want multiple chunks for %d chars at size 50, got %d", len(text), added)
	}

	count, err := p.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != uint64(added) {
		t.Errorf("Count = %d, want %d", count, added)
	}

	uploads, err := p.Uploads(ctx)
	if err != nil {
		t.Fatalf("Uploads: %v", err)
	}
	if len(uploads) != 1 || uploads[0].Filename != "policy.md" || uploads[0].ChunksAdded != added {
		t.Errorf("catalog entry = %+v, want policy.md with %d chunks", uploads, added)
	}
}

func Test_Pipeline_IngestEmptyDocumentIsNoop(t *testing.T) {
	t.Parallel()
	p, _ := newTestPipeline(t, &fakeGenerator{})
	ctx := context.Background()

	added, err := p.Ingest(ctx, "empty.txt", "   \n\t  ")
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if added != 0 {
		t.Errorf("added = %d, want 0", added)
	}
	count, err := p.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 0 {
		t.Errorf("Count = %d, want 0", count)
	}
}

func Test_Pipeline_IngestEmbedderFailureAbortsUpload(t *testing.T) {
	t.Parallel()
	store := newMemStore(t)
	embErr := errors.New("embedding service down")
	p, err := New(&Config{
		Embedder:  &hashEmbedder{err: embErr},
		Store:     store,
		Generator: &fakeGenerator{},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := p.Ingest(context.Background(), "policy.md", "some document text"); !errors.Is(err, embErr) {
		t.Errorf("error = %v, want wrapped embedder error", err)
	}
	count, _ := store.Count(context.Background())
	if count != 0 {
		t.Errorf("store has %d chunks after failed embed, want 0", count)
	}
}

func Test_Pipeline_QueryReturnsAnswerAndSources(t *testing.T) {
	t.Parallel()
	gen := &fakeGenerator{}
	p, _ := newTestPipeline(t, gen)
	ctx := context.Background()

	if _, err := p.Ingest(ctx, "policy.md", "Sick leave is capped at 10 days per year."); err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	res, err := p.Query(ctx, "Sick leave is capped at 10 days per year.", 3)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(res.Sources) == 0 {
		t.Fatal("no sources returned")
	}
	if res.Sources[0].ID != "policy.md_0" {
		t.Errorf("top source id = %q, want policy.md_0", res.Sources[0].ID)
	}
	if !strings.Contains(res.Answer, "policy.md_0") {
		t.Errorf("generator did not see top fragment: %q", res.Answer)
	}
}

func Test_Pipeline_RetrieveReturnsRankedFragmentsWithoutGeneration(t *testing.T) {
	t.Parallel()
	gen := &fakeGenerator{}
	p, _ := newTestPipeline(t, gen)
	ctx := context.Background()

	if _, err := p.Ingest(ctx, "policy.md", "Sick leave is capped at 10 days per year."); err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	fragments, err := p.Retrieve(ctx, "Sick leave is capped at 10 days per year.", 3)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(fragments) == 0 || fragments[0].ID != "policy.md_0" {
		t.Errorf("fragments = %+v, want policy.md_0 first", fragments)
	}
	if gen.seen != nil {
		t.Error("Retrieve must not invoke the generator")
	}
}

func Test_Pipeline_RetrieveEmptyIndexYieldsEmptySlice(t *testing.T) {
	t.Parallel()
	p, _ := newTestPipeline(t, &fakeGenerator{})

	fragments, err := p.Retrieve(context.Background(), "anything?", 3)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(fragments) != 0 {
		t.Errorf("fragments = %+v, want none", fragments)
	}
}

func Test_Pipeline_QueryEmptyIndexYieldsNoContextAnswer(t *testing.T) {
	t.Parallel()
	p, _ := newTestPipeline(t, &fakeGenerator{})

	res, err := p.Query(context.Background(), "anything?", 3)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if res.Answer != answer.NoContextAnswer {
		t.Errorf("answer = %q, want the no-context answer", res.Answer)
	}
	if len(res.Sources) != 0 {
		t.Errorf("sources = %v, want none", res.Sources)
	}
}

func Test_Pipeline_QueryGenerationFailureKeepsSources(t *testing.T) {
	t.Parallel()
	genErr := fmt.Errorf("model down: %w", answer.ErrGeneration)
	p, _ := newTestPipeline(t, &fakeGenerator{err: genErr})
	ctx := context.Background()

	if _, err := p.Ingest(ctx, "policy.md", "Sick leave is capped at 10 days per year."); err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	res, err := p.Query(ctx, "Sick leave is capped at 10 days per year.", 3)
	if !errors.Is(err, answer.ErrGeneration) {
		t.Fatalf("error = %v, want ErrGeneration", err)
	}
	if res == nil || len(res.Sources) == 0 {
		t.Error("sources should be returned alongside a generation error")
	}
}

func Test_Pipeline_ClearEmptiesStoreAndCatalog(t *testing.T) {
	t.Parallel()
	p, _ := newTestPipeline(t, &fakeGenerator{})
	ctx := context.Background()

	if _, err := p.Ingest(ctx, "policy.md", "Sick leave is capped at 10 days per year."); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if err := p.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	count, _ := p.Count(ctx)
	if count != 0 {
		t.Errorf("Count = %d after clear, want 0", count)
	}
	uploads, err := p.Uploads(ctx)
	if err != nil {
		t.Fatalf("Uploads: %v", err)
	}
	if len(uploads) != 0 {
		t.Errorf("catalog has %d rows after clear, want 0", len(uploads))
	}
}

func Test_Pipeline_NewRejectsInvalidChunking(t *testing.T) {
	t.Parallel()

	_, err := New(&Config{
		Embedder:     &hashEmbedder{},
		Store:        newMemStore(t),
		Generator:    &fakeGenerator{},
		ChunkSize:    100,
		ChunkOverlap: 100,
	})
	if !errors.Is(err, chunker.ErrInvalidConfig) {
		t.Errorf("error = %v, want ErrInvalidConfig", err)
	}
}

func Test_Pipeline_NewRejectsMissingCollaborators(t *testing.T) {
	t.Parallel()

	if _, err := New(nil); err == nil {
		t.Error("expected error for nil config")
	}
	if _, err := New(&Config{Store: newMemStore(t), Generator: &fakeGenerator{}}); err == nil {
		t.Error("expected error for missing embedder")
	}
}
