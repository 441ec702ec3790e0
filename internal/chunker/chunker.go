// Package chunker splits extracted document text into overlapping fixed-size
// fragments that serve as the unit of retrieval. Splitting is purely
// character-based: no word-boundary awareness, which keeps chunk offsets
// exact at the cost of occasionally splitting a token across two chunks.
package chunker

import (
	"errors"
	"strings"
)

// Default window parameters, overridable via config (CHUNK_SIZE, CHUNK_OVERLAP).
const (
	// DefaultSize is the nominal chunk length in characters.
	DefaultSize = 1000
	// DefaultOverlap is the number of trailing characters each chunk shares
	// with its successor.
	DefaultOverlap = 200
)

// ErrInvalidConfig is returned when the requested window parameters cannot
// produce a terminating sequence of chunks.
var ErrInvalidConfig = errors.New("chunker: size must be positive and overlap must be in [0, size)")

// Chunk is one window of document text. The chunk id and filename are
// attached later by the ingestion pipeline — this package only knows about
// text and offsets.
type Chunk struct {
	// Text is the raw substring of the document covered by this chunk.
	Text string

	// StartOffset is the byte offset of Text within the original document.
	StartOffset int
}

// Split slides a window of length size over text, advancing by size-overlap
// each step. The final window is truncated to the remaining length and
// emitted only if non-empty. Empty or whitespace-only input yields no chunks.
//
// Invariant: concatenating the chunks with the overlap removed reconstructs
// the input exactly, and each consecutive pair shares exactly overlap
// characters except at the final boundary.
func Split(text string, size, overlap int) ([]Chunk, error) {
	if err := Validate(size, overlap); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	var chunks []Chunk
	step := size - overlap
	for start := 0; start < len(text); start += step {
		end := start + size
		if end > len(text) {
			end = len(text)
		}
		chunks = append(chunks, Chunk{Text: text[start:end], StartOffset: start})
		if end == len(text) {
			break
		}
	}

	return chunks, nil
}

// Validate reports whether the window parameters are usable, without
// touching any text. Callers that accept size/overlap from configuration
// should validate at startup so the first upload does not fail late.
func Validate(size, overlap int) error {
	if size <= 0 || overlap < 0 || overlap >= size {
		return ErrInvalidConfig
	}
	return nil
}
