package answer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/54b3r/docqa-go/internal/rag"
)

// fakeChatModel records the messages it receives and returns a canned
// response or error.
type fakeChatModel struct {
	response *schema.Message
	err      error

	gotMessages []*schema.Message
	calls       int
}

func (f *fakeChatModel) Generate(_ context.Context, in []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	f.calls++
	f.gotMessages = in
	if f.err != nil {
		return nil, f.err
	}
	return f.response, nil
}

func (f *fakeChatModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("streaming not supported by fake")
}

func frag(id, filename, text string, score float32) rag.Fragment {
	return rag.Fragment{ID: id, Filename: filename, Text: text, Score: score}
}

func TestGenerate_GroundedPrompt(t *testing.T) {
	t.Parallel()

	fake := &fakeChatModel{response: schema.AssistantMessage("Sick leave is capped at 10 days per year.", nil)}
	gen, err := New(&Config{ChatModel: fake})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	fragments := []rag.Fragment{
		frag("policy_0", "policy.md", "Sick leave is capped at 10 days per year.", 0.91),
		frag("handbook_3", "handbook.md", "Unused sick days do not roll over.", 0.72),
	}

	got, err := gen.Generate(context.Background(), "How many sick days do I get?", fragments)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "Sick leave is capped at 10 days per year." {
		t.Errorf("unexpected answer: %q", got)
	}

	if len(fake.gotMessages) != 2 {
		t.Fatalf("expected 2 messages (system + user), got %d", len(fake.gotMessages))
	}
	if fake.gotMessages[0].Role != schema.System {
		t.Errorf("first message role = %s, want system", fake.gotMessages[0].Role)
	}
	user := fake.gotMessages[1].Content
	for _, want := range []string{"policy.md", "policy_0", "handbook.md", "handbook_3", "How many sick days do I get?"} {
		if !strings.Contains(user, want) {
			t.Errorf("user prompt missing %q", want)
		}
	}
	// Ranked order must survive into the prompt.
	if strings.Index(user, "policy_0") > strings.Index(user, "handbook_3") {
		t.Error("fragments reordered in prompt")
	}
}

func TestGenerate_EmptyFragmentsSkipsModel(t *testing.T) {
	t.Parallel()

	fake := &fakeChatModel{err: errors.New("must not be called")}
	gen, err := New(&Config{ChatModel: fake})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	got, err := gen.Generate(context.Background(), "anything", nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != NoContextAnswer {
		t.Errorf("answer = %q, want NoContextAnswer", got)
	}
	if fake.calls != 0 {
		t.Errorf("model called %d times for empty fragments, want 0", fake.calls)
	}
}

func TestGenerate_ModelFailure(t *testing.T) {
	t.Parallel()

	fake := &fakeChatModel{err: errors.New("quota exceeded")}
	gen, err := New(&Config{ChatModel: fake})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = gen.Generate(context.Background(), "q", []rag.Fragment{frag("a_0", "a.txt", "text", 0.5)})
	if !errors.Is(err, ErrGeneration) {
		t.Errorf("error = %v, want ErrGeneration", err)
	}
}

func TestGenerate_EmptyResponse(t *testing.T) {
	t.Parallel()

	fake := &fakeChatModel{response: schema.AssistantMessage("   ", nil)}
	gen, err := New(&Config{ChatModel: fake})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = gen.Generate(context.Background(), "q", []rag.Fragment{frag("a_0", "a.txt", "text", 0.5)})
	if !errors.Is(err, ErrGeneration) {
		t.Errorf("error = %v, want ErrGeneration", err)
	}
}

func TestGenerate_TrimsToBudget(t *testing.T) {
	t.Parallel()

	fake := &fakeChatModel{response: schema.AssistantMessage("ok", nil)}
	gen, err := New(&Config{ChatModel: fake, MaxContextTokens: 1200})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	big := strings.Repeat("x", 4000)
	fragments := []rag.Fragment{
		frag("keep_0", "a.txt", big, 0.9),
		frag("drop_1", "b.txt", big, 0.5),
		frag("drop_2", "c.txt", big, 0.3),
	}

	if _, err := gen.Generate(context.Background(), "q", fragments); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	user := fake.gotMessages[1].Content
	if !strings.Contains(user, "keep_0") {
		t.Error("best fragment dropped from prompt")
	}
	if strings.Contains(user, "drop_2") {
		t.Error("lowest-scored fragment not trimmed from prompt")
	}
}

func TestNew_NilModel(t *testing.T) {
	t.Parallel()

	if _, err := New(&Config{}); err == nil {
		t.Error("expected error for nil chat model")
	}
	if _, err := New(nil); err == nil {
		t.Error("expected error for nil config")
	}
}
