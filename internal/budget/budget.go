// Package budget provides token budget estimation and context trimming for
// the grounding prompt. Because the answer generator supports multiple LLM
// backends with different tokenizers, this package uses a conservative
// character-based heuristic: 1 token ≈ 4 characters (English prose). This
// deliberately under-estimates token counts to leave headroom for
// model-specific overhead.
package budget

import (
	"github.com/54b3r/docqa-go/internal/rag"
)

const (
	// charsPerToken is the conservative character-to-token ratio used for
	// estimation. 4 chars/token is standard for English prose; using 3
	// would be more aggressive but risks overflowing context windows.
	charsPerToken = 4

	// DefaultMaxContextTokens is the default input context budget in tokens.
	// Conservative enough to fit within 8k-context models while leaving room
	// for the answer.
	DefaultMaxContextTokens = 6000
)

// Estimate returns a rough token count for s using the character heuristic.
func Estimate(s string) int {
	n := len(s) / charsPerToken
	if n == 0 && len(s) > 0 {
		return 1
	}
	return n
}

// EstimateFragments returns the estimated total token count for a slice of
// fragments, including a small per-fragment overhead for the source label
// each fragment carries in the prompt.
func EstimateFragments(fragments []rag.Fragment) int {
	total := 0
	for _, f := range fragments {
		// Each fragment costs a label line (~12 tokens) on top of its text.
		total += 12
		total += Estimate(f.Filename)
		total += Estimate(f.Text)
	}
	return total
}

// TrimFragments drops fragments from the tail of the slice until the
// estimated token count of reserved + fragments fits within maxTokens.
// Fragments arrive sorted by descending score, so trimming the tail sheds
// the least relevant context first. reservedTokens accounts for the system
// prompt and the question, which are never trimmed.
//
// The first fragment is always kept even if it alone exceeds the budget —
// an over-long but grounded prompt beats an ungrounded one.
func TrimFragments(fragments []rag.Fragment, reservedTokens, maxTokens int) []rag.Fragment {
	for len(fragments) > 1 {
		if reservedTokens+EstimateFragments(fragments) <= maxTokens {
			break
		}
		fragments = fragments[:len(fragments)-1]
	}
	return fragments
}
