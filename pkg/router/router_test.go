package router

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CuriosityOS/advanced-whatsapp-llm/pkg/llms"
	"github.com/CuriosityOS/advanced-whatsapp-llm/pkg/memory"
	"github.com/CuriosityOS/advanced-whatsapp-llm/pkg/tools"
)

type capturedCall struct {
	messages []llms.Message
	opts     llms.GenerateOptions
}

// fakeProvider replays scripted results and records every call.
type fakeProvider struct {
	script []*llms.GenerateResult
	errs   []error
	calls  []capturedCall
}

func (f *fakeProvider) Generate(ctx context.Context, messages []llms.Message, opts llms.GenerateOptions) (*llms.GenerateResult, error) {
	f.calls = append(f.calls, capturedCall{messages: messages, opts: opts})
	idx := len(f.calls) - 1
	if idx < len(f.errs) && f.errs[idx] != nil {
		return nil, f.errs[idx]
	}
	if idx < len(f.script) {
		return f.script[idx], nil
	}
	return &llms.GenerateResult{Content: "default reply"}, nil
}

func (f *fakeProvider) ModelName() string { return "fake-model" }
func (f *fakeProvider) Close() error      { return nil }

func newTestRouter(t *testing.T, provider *fakeProvider) (*Router, *memory.ConversationMemory) {
	t.Helper()
	registry := tools.NewRegistry()
	require.NoError(t, tools.RegisterBuiltins(registry, nil))
	mem := memory.NewConversationMemory(20)
	r := New(provider, registry, tools.NewExecutor(registry), nil, mem)
	return r, mem
}

func TestCalculatorScenario(t *testing.T) {
	provider := &fakeProvider{
		script: []*llms.GenerateResult{
			{ToolCalls: []llms.ToolCall{{
				ID:         "call_1",
				Name:       "calculator",
				Parameters: map[string]any{"expression": "12 * 8"},
			}}},
			{Content: "12 * 8 is 96."},
		},
	}
	r, _ := newTestRouter(t, provider)

	resp := r.Route(context.Background(), "alice", "Calculate 12 * 8")

	assert.Equal(t, PathTool, resp.Path)
	assert.Contains(t, resp.Text, "96")
	assert.Contains(t, resp.Text, "calculator")
	require.Len(t, resp.ToolResults, 1)
	assert.True(t, resp.ToolResults[0].Success)
	assert.Equal(t, "96", resp.ToolResults[0].Content)

	// First pass carries the catalog with auto tool choice, second pass
	// must not offer tools.
	require.Len(t, provider.calls, 2)
	assert.NotEmpty(t, provider.calls[0].opts.Tools)
	assert.Equal(t, "auto", provider.calls[0].opts.ToolChoice)
	assert.Empty(t, provider.calls[1].opts.Tools)

	// Tool results ride back as synthetic turns.
	second := provider.calls[1].messages
	last := second[len(second)-1]
	assert.Equal(t, llms.RoleTool, last.Role)
	assert.Equal(t, "call_1", last.ToolCallID)
	assert.Equal(t, "96", last.Content)
}

func TestMetaPathSkipsProvider(t *testing.T) {
	provider := &fakeProvider{}
	r, _ := newTestRouter(t, provider)

	resp := r.Route(context.Background(), "alice", "what tools do you have?")

	assert.Equal(t, PathMeta, resp.Path)
	assert.Contains(t, resp.Text, "calculator")
	assert.Empty(t, provider.calls, "meta queries must not invoke the model")
}

func TestDirectPath(t *testing.T) {
	provider := &fakeProvider{
		script: []*llms.GenerateResult{{Content: "hello there"}},
	}
	r, _ := newTestRouter(t, provider)

	resp := r.Route(context.Background(), "alice", "tell me a joke")

	assert.Equal(t, PathDirect, resp.Path)
	assert.Equal(t, "hello there", resp.Text)
	require.Len(t, provider.calls, 1)
	assert.Empty(t, provider.calls[0].opts.Tools)
}

func TestToolPathWithoutToolCalls(t *testing.T) {
	provider := &fakeProvider{
		script: []*llms.GenerateResult{{Content: "it's around 20 degrees, I'd guess"}},
	}
	r, _ := newTestRouter(t, provider)

	resp := r.Route(context.Background(), "alice", "what's the weather in Paris")

	assert.Equal(t, PathTool, resp.Path)
	assert.Equal(t, "it's around 20 degrees, I'd guess", resp.Text)
	assert.NotContains(t, resp.Text, "Used:")
	require.Len(t, provider.calls, 1, "no second pass when the model called no tools")
}

func TestProviderFailureYieldsFallback(t *testing.T) {
	provider := &fakeProvider{errs: []error{errors.New("upstream 500")}}
	r, mem := newTestRouter(t, provider)

	resp := r.Route(context.Background(), "alice", "tell me a story")

	assert.Equal(t, fallbackMessage, resp.Text)
	assert.Empty(t, mem.History("alice"), "failed responses must not enter memory")
}

func TestSuccessUpdatesMemory(t *testing.T) {
	provider := &fakeProvider{
		script: []*llms.GenerateResult{{Content: "sure thing"}},
	}
	r, mem := newTestRouter(t, provider)

	r.Route(context.Background(), "alice", "tell me a joke")

	history := mem.History("alice")
	require.Len(t, history, 2)
	assert.Equal(t, "tell me a joke", history[0].Content)
	assert.Equal(t, "sure thing", history[1].Content)
}

func TestHistoryIsSentToProvider(t *testing.T) {
	provider := &fakeProvider{
		script: []*llms.GenerateResult{
			{Content: "first answer"},
			{Content: "second answer"},
		},
	}
	r, _ := newTestRouter(t, provider)

	r.Route(context.Background(), "alice", "first question")
	r.Route(context.Background(), "alice", "second question")

	require.Len(t, provider.calls, 2)
	msgs := provider.calls[1].messages
	require.Len(t, msgs, 3)
	assert.Equal(t, "first question", msgs[0].Content)
	assert.Equal(t, "first answer", msgs[1].Content)
	assert.Equal(t, "second question", msgs[2].Content)
}

func TestDisabledToolFailureFlowsToSecondPass(t *testing.T) {
	provider := &fakeProvider{
		script: []*llms.GenerateResult{
			{ToolCalls: []llms.ToolCall{{
				ID:         "call_1",
				Name:       "get_weather",
				Parameters: map[string]any{"location": "Paris"},
			}}},
			{Content: "I couldn't check the weather just now."},
		},
	}
	registry := tools.NewRegistry()
	require.NoError(t, tools.RegisterBuiltins(registry, nil))
	require.NoError(t, registry.Disable("get_weather"))
	mem := memory.NewConversationMemory(20)
	r := New(provider, registry, tools.NewExecutor(registry), nil, mem)

	resp := r.Route(context.Background(), "alice", "what's the weather in Paris")

	require.Len(t, provider.calls, 2)
	second := provider.calls[1].messages
	last := second[len(second)-1]
	assert.Equal(t, llms.RoleTool, last.Role)
	assert.Contains(t, last.Content, "disabled")
	assert.Contains(t, resp.Text, "couldn't check")
}

func TestMultiToolCallsPreserveOrder(t *testing.T) {
	provider := &fakeProvider{
		script: []*llms.GenerateResult{
			{ToolCalls: []llms.ToolCall{
				{ID: "c1", Name: "get_weather", Parameters: map[string]any{"location": "Paris"}},
				{ID: "c2", Name: "get_weather", Parameters: map[string]any{"location": "Tokyo"}},
			}},
			{Content: "Paris and Tokyo weather summarized."},
		},
	}
	r, _ := newTestRouter(t, provider)

	resp := r.Route(context.Background(), "alice", "weather in Paris and also Tokyo")

	require.Len(t, resp.ToolResults, 2)
	assert.Equal(t, "c1", resp.ToolResults[0].ToolCallID)
	assert.Equal(t, "c2", resp.ToolResults[1].ToolCallID)
	assert.Contains(t, resp.ToolResults[0].Content, "Paris")
	assert.Contains(t, resp.ToolResults[1].Content, "Tokyo")
	assert.Contains(t, resp.Text, "get_weather ×2")
}

var _ llms.Provider = (*fakeProvider)(nil)
