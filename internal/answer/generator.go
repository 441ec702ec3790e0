// Package answer builds the grounded answer for a question from the
// fragments the retriever produced. A single prompt carries the fragment
// texts labeled by source, the question, and an instruction to answer only
// from the provided context — grounding failure ("the context does not
// cover this") is a normal answer, not an error.
package answer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/54b3r/docqa-go/internal/budget"
	"github.com/54b3r/docqa-go/internal/rag"
)

// ErrGeneration is returned when the answer model invocation fails (network,
// quota, malformed response). It is surfaced to the caller, never retried
// here; the caller may still return the retrieved sources for partial value.
var ErrGeneration = errors.New("answer generation failed")

// NoContextAnswer is returned verbatim when the retriever produced no
// fragments. The model is not invoked — there is nothing to ground on, and
// fabricating an answer from model priors is exactly what this pipeline
// exists to prevent.
const NoContextAnswer = "I could not find any relevant context in the uploaded documents to answer this question. Upload documents first, or rephrase the question."

// systemPrompt establishes the grounding contract for every generation.
const systemPrompt = `You are a document question-answering assistant.

Answer the user's question using ONLY the context excerpts provided.
Rules:
- Base every statement on the excerpts. Do not use outside knowledge.
- When you use an excerpt, mention its source filename.
- If the excerpts do not contain enough information to answer, say so
  explicitly instead of guessing.
- Keep the answer concise and factual.`

// Generator produces a grounded answer for a question from retrieved
// fragments. Implementations must be safe to call from multiple goroutines.
type Generator interface {
	// Generate returns the answer text. An empty fragment slice yields an
	// explicit no-context answer, never an error.
	Generate(ctx context.Context, question string, fragments []rag.Fragment) (string, error)
}

// ModelGenerator implements Generator on top of an eino chat model.
type ModelGenerator struct {
	// chatModel is the LLM backend constructed by the provider factory.
	chatModel model.BaseChatModel

	// maxContextTokens is the estimated token budget for the full prompt.
	// Lowest-scored fragments are dropped to fit.
	maxContextTokens int
}

// Config holds the settings for constructing a ModelGenerator.
type Config struct {
	// ChatModel is the LLM backend. Required.
	ChatModel model.BaseChatModel

	// MaxContextTokens caps the estimated prompt size. Defaults to
	// budget.DefaultMaxContextTokens if zero.
	MaxContextTokens int
}

// New constructs a ModelGenerator from the given config.
func New(cfg *Config) (*ModelGenerator, error) {
	if cfg == nil || cfg.ChatModel == nil {
		return nil, fmt.Errorf("answer: chat model must not be nil")
	}
	maxCtx := cfg.MaxContextTokens
	if maxCtx <= 0 {
		maxCtx = budget.DefaultMaxContextTokens
	}
	return &ModelGenerator{chatModel: cfg.ChatModel, maxContextTokens: maxCtx}, nil
}

// Generate builds the grounding prompt and invokes the model once,
// returning the complete answer (no streaming).
func (g *ModelGenerator) Generate(ctx context.Context, question string, fragments []rag.Fragment) (string, error) {
	if len(fragments) == 0 {
		return NoContextAnswer, nil
	}

	reserved := budget.Estimate(systemPrompt) + budget.Estimate(question)
	fragments = budget.TrimFragments(fragments, reserved, g.maxContextTokens)

	messages := []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(buildPrompt(question, fragments)),
	}

	resp, err := g.chatModel.Generate(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("answer: model invocation failed: %w: %w", ErrGeneration, err)
	}
	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		return "", fmt.Errorf("answer: model returned empty response: %w", ErrGeneration)
	}

	return resp.Content, nil
}

// buildPrompt formats the fragments in the order received — the retriever
// already ranked them — each labeled with its source filename and chunk id,
// followed by the question.
func buildPrompt(question string, fragments []rag.Fragment) string {
	var b strings.Builder
	b.WriteString("Context excerpts:\n\n")
	for i, f := range fragments {
		fmt.Fprintf(&b, "[%d] source: %s (chunk %s)\n%s\n\n", i+1, f.Filename, f.ID, f.Text)
	}
	b.WriteString("Question: ")
	b.WriteString(question)
	return b.String()
}
