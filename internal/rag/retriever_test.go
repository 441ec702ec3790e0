package rag

import (
	"context"
	"errors"
	"testing"
)

// fakeEmbedder returns a fixed vector for every input text.
type fakeEmbedder struct {
	// vec is returned once per input text.
	vec []float32
	// err, when set, fails every Embed call.
	err error
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vec
	}
	return out, nil
}

func Test_Retriever_ReturnsStoreResultsUnchanged(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := newTestStore(t)
	if _, err := store.Upsert(ctx,
		[]Fragment{frag("policy_0", "policy.txt", "Sick leave is capped at 10 days per year.")},
		[][]float32{{1, 0, 0}},
	); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	r, err := NewRetriever(&fakeEmbedder{vec: []float32{1, 0, 0}}, store, 3)
	if err != nil {
		t.Fatalf("new retriever: %v", err)
	}

	results, err := r.Retrieve(ctx, "How many sick leave days are allowed?", 3)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("want 1 fragment, got %d", len(results))
	}
	if results[0].ID != "policy_0" {
		t.Errorf("fragment id: want policy_0, got %s", results[0].ID)
	}
	if results[0].Score <= 0 {
		t.Errorf("score: want > 0, got %f", results[0].Score)
	}
}

func Test_Retriever_EmptyIndexYieldsEmptySlice(t *testing.T) {
	t.Parallel()

	r, err := NewRetriever(&fakeEmbedder{vec: []float32{1, 0, 0}}, newTestStore(t), 3)
	if err != nil {
		t.Fatalf("new retriever: %v", err)
	}

	results, err := r.Retrieve(context.Background(), "anything", 3)
	if err != nil {
		t.Fatalf("retrieve on empty index: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("want empty result, got %d", len(results))
	}
}

func Test_Retriever_DefaultTopKUsedWhenZero(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := newTestStore(t)
	frags := make([]Fragment, 4)
	vecs := make([][]float32, 4)
	for i := range frags {
		frags[i] = frag("a", "a.txt", "x")
		vecs[i] = []float32{1, 0, 0}
	}
	if _, err := store.Upsert(ctx, frags, vecs); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	r, err := NewRetriever(&fakeEmbedder{vec: []float32{1, 0, 0}}, store, 2)
	if err != nil {
		t.Fatalf("new retriever: %v", err)
	}

	results, err := r.Retrieve(ctx, "q", 0)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("want defaultTopK=2 results, got %d", len(results))
	}
}

func Test_Retriever_EmbedderFailureSurfaced(t *testing.T) {
	t.Parallel()

	embErr := errors.New("embedding backend down")
	r, err := NewRetriever(&fakeEmbedder{err: embErr}, newTestStore(t), 3)
	if err != nil {
		t.Fatalf("new retriever: %v", err)
	}

	_, err = r.Retrieve(context.Background(), "q", 3)
	if !errors.Is(err, embErr) {
		t.Errorf("want wrapped embedder error, got %v", err)
	}
}

func Test_Retriever_NilDependenciesRejected(t *testing.T) {
	t.Parallel()

	if _, err := NewRetriever(nil, newTestStore(t), 3); err == nil {
		t.Error("nil embedder accepted")
	}
	if _, err := NewRetriever(&fakeEmbedder{vec: []float32{1}}, nil, 3); err == nil {
		t.Error("nil store accepted")
	}
}
