package llms

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CuriosityOS/advanced-whatsapp-llm/pkg/config"
)

func newAnthropicTestProvider(t *testing.T, handler http.HandlerFunc) *AnthropicProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p, err := NewAnthropicProviderFromConfig(&config.LLMProviderConfig{
		Type:   "anthropic",
		APIKey: "test-key",
		Host:   srv.URL,
		Model:  "claude-sonnet-4-20250514",
	})
	require.NoError(t, err)
	return p
}

func TestAnthropicGenerateText(t *testing.T) {
	var gotReq anthropicRequest
	p := newAnthropicTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		json.NewEncoder(w).Encode(anthropicResponse{
			Content: []anthropicContent{{Type: "text", Text: "hello back"}},
			Usage:   anthropicUsage{InputTokens: 10, OutputTokens: 5},
		})
	})

	result, err := p.Generate(context.Background(),
		[]Message{{Role: RoleUser, Content: "hello"}},
		GenerateOptions{SystemPrompt: "be brief"})
	require.NoError(t, err)

	assert.Equal(t, "hello back", result.Content)
	assert.Empty(t, result.ToolCalls)
	assert.Equal(t, 15, result.Usage.TotalTokens)
	assert.Equal(t, "be brief", gotReq.System)
	require.Len(t, gotReq.Messages, 1)
	assert.Equal(t, "user", gotReq.Messages[0].Role)
}

func TestAnthropicToolUse(t *testing.T) {
	var gotReq anthropicRequest
	p := newAnthropicTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		input := map[string]any{"expression": "12 * 8"}
		json.NewEncoder(w).Encode(anthropicResponse{
			Content: []anthropicContent{
				{Type: "text", Text: "Let me calculate that."},
				{Type: "tool_use", ID: "toolu_1", Name: "calculator", Input: &input},
			},
			StopReason: "tool_use",
		})
	})

	tools := []ToolDefinition{{
		Name:        "calculator",
		Description: "does math",
		Parameters:  map[string]any{"type": "object"},
	}}
	result, err := p.Generate(context.Background(),
		[]Message{{Role: RoleUser, Content: "Calculate 12 * 8"}},
		GenerateOptions{Tools: tools, ToolChoice: "auto"})
	require.NoError(t, err)

	require.Len(t, result.ToolCalls, 1)
	assert.Equal(t, "toolu_1", result.ToolCalls[0].ID)
	assert.Equal(t, "calculator", result.ToolCalls[0].Name)
	assert.Equal(t, "12 * 8", result.ToolCalls[0].Parameters["expression"])

	require.Len(t, gotReq.Tools, 1)
	assert.Equal(t, map[string]any{"type": "auto"}, gotReq.ToolChoice)
}

func TestAnthropicDropsToolCallsWhenNoToolsOffered(t *testing.T) {
	p := newAnthropicTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		input := map[string]any{"expression": "1+1"}
		json.NewEncoder(w).Encode(anthropicResponse{
			Content: []anthropicContent{
				{Type: "text", Text: "the answer is 2"},
				{Type: "tool_use", ID: "toolu_1", Name: "calculator", Input: &input},
			},
		})
	})

	result, err := p.Generate(context.Background(),
		[]Message{{Role: RoleUser, Content: "what is 1+1"}},
		GenerateOptions{})
	require.NoError(t, err)

	assert.Empty(t, result.ToolCalls)
	assert.Equal(t, "the answer is 2", result.Content)
}

func TestAnthropicToolResultRoundTrip(t *testing.T) {
	var gotReq anthropicRequest
	p := newAnthropicTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		json.NewEncoder(w).Encode(anthropicResponse{
			Content: []anthropicContent{{Type: "text", Text: "12 * 8 is 96."}},
		})
	})

	messages := []Message{
		{Role: RoleUser, Content: "Calculate 12 * 8"},
		{Role: RoleAssistant, ToolCalls: []ToolCall{{
			ID: "toolu_1", Name: "calculator",
			Parameters: map[string]any{"expression": "12 * 8"},
		}}},
		{Role: RoleTool, Content: "96", ToolCallID: "toolu_1", ToolName: "calculator"},
	}
	_, err := p.Generate(context.Background(), messages, GenerateOptions{})
	require.NoError(t, err)

	require.Len(t, gotReq.Messages, 3)
	assert.Equal(t, "assistant", gotReq.Messages[1].Role)
	// Tool results travel back as user messages with tool_result blocks.
	assert.Equal(t, "user", gotReq.Messages[2].Role)
}

func TestAnthropicErrorStatus(t *testing.T) {
	p := newAnthropicTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"type":"authentication_error","message":"invalid api key"}}`))
	})

	_, err := p.Generate(context.Background(),
		[]Message{{Role: RoleUser, Content: "hi"}}, GenerateOptions{})
	require.Error(t, err)

	var provErr *ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, http.StatusUnauthorized, provErr.StatusCode)
	assert.Equal(t, "anthropic", provErr.Provider)
}

func TestAnthropicRequiresAPIKey(t *testing.T) {
	_, err := NewAnthropicProviderFromConfig(&config.LLMProviderConfig{Type: "anthropic"})
	assert.Error(t, err)
}
