package chunker

import (
	"errors"
	"strings"
	"testing"
)

func Test_Split_SingleChunkForShortText(t *testing.T) {
	t.Parallel()

	text := "Sick leave is capped at 10 days per year."
	chunks, err := Split(text, 1000, 200)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("want 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Text != text {
		t.Errorf("chunk text: want %q, got %q", text, chunks[0].Text)
	}
	if chunks[0].StartOffset != 0 {
		t.Errorf("start offset: want 0, got %d", chunks[0].StartOffset)
	}
}

func Test_Split_EmptyAndWhitespaceInput(t *testing.T) {
	t.Parallel()

	for _, text := range []string{"", "   ", "\n\t \n"} {
		chunks, err := Split(text, 100, 10)
		if err != nil {
			t.Fatalf("split(%q): %v", text, err)
		}
		if len(chunks) != 0 {
			t.Errorf("split(%q): want 0 chunks, got %d", text, len(chunks))
		}
	}
}

func Test_Split_InvalidConfig(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name          string
		size, overlap int
	}{
		{"overlap equals size", 100, 100},
		{"overlap exceeds size", 100, 150},
		{"zero size", 0, 0},
		{"negative size", -1, 0},
		{"negative overlap", 100, -1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := Split("some text", tc.size, tc.overlap)
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("size=%d overlap=%d: want ErrInvalidConfig, got %v", tc.size, tc.overlap, err)
			}
		})
	}
}

// Test_Split_Reconstruction verifies that concatenating the chunks with the
// overlap removed yields the original text, and that consecutive chunks
// share exactly overlap characters except at the final boundary.
func Test_Split_Reconstruction(t *testing.T) {
	t.Parallel()

	const size, overlap = 50, 10
	text := strings.Repeat("the quick brown fox jumps over the lazy dog. ", 20)

	chunks, err := Split(text, size, overlap)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("want multiple chunks, got %d", len(chunks))
	}

	var rebuilt strings.Builder
	rebuilt.WriteString(chunks[0].Text)
	for _, c := range chunks[1:] {
		rebuilt.WriteString(c.Text[overlap:])
	}
	if rebuilt.String() != text {
		t.Error("reconstruction with overlap removed did not reproduce the input")
	}

	for i := 0; i < len(chunks)-1; i++ {
		cur, next := chunks[i], chunks[i+1]
		if next.StartOffset != cur.StartOffset+size-overlap {
			t.Fatalf("chunk %d: start offset %d, want %d", i+1, next.StartOffset, cur.StartOffset+size-overlap)
		}
		if len(cur.Text) == size {
			tail := cur.Text[len(cur.Text)-overlap:]
			head := next.Text[:overlap]
			if tail != head {
				t.Errorf("chunks %d/%d: overlap mismatch %q vs %q", i, i+1, tail, head)
			}
		}
	}
}

func Test_Split_FinalChunkTruncated(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("a", 105)
	chunks, err := Split(text, 50, 10)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	// Windows start at 0, 40, 80 — the last covers 25 characters.
	if len(chunks) != 3 {
		t.Fatalf("want 3 chunks, got %d", len(chunks))
	}
	last := chunks[len(chunks)-1]
	if len(last.Text) != 25 {
		t.Errorf("final chunk length: want 25, got %d", len(last.Text))
	}
	if last.StartOffset+len(last.Text) != len(text) {
		t.Errorf("final chunk does not end at the end of the text")
	}
}

func Test_Split_ZeroOverlapAllowed(t *testing.T) {
	t.Parallel()

	chunks, err := Split(strings.Repeat("x", 30), 10, 0)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("want 3 chunks, got %d", len(chunks))
	}
}
