// Package llms defines the LLM provider interface consumed by the response
// router, plus the Anthropic and OpenAI implementations.
package llms

import (
	"context"
	"fmt"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	// RoleTool marks a synthetic turn carrying one tool result back to the
	// model between the two passes of a tool-augmented exchange.
	RoleTool Role = "tool"
)

// Message is a single conversation turn in provider-neutral form.
// Providers translate it to their own wire shape.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`

	// ToolCalls is set on assistant turns that requested tool invocations.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// ToolCallID and ToolName are set on RoleTool turns.
	ToolCallID string `json:"tool_call_id,omitempty"`
	ToolName   string `json:"tool_name,omitempty"`
}

// ToolCall is a structured tool invocation request emitted by the model.
// Ephemeral: produced by one Generate call, consumed once by the executor.
type ToolCall struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// ToolDefinition describes one callable tool to the model.
// Parameters is a JSON-schema object.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// GenerateOptions carries per-call generation settings. Zero values fall
// back to the provider's configured defaults.
type GenerateOptions struct {
	Model        string
	MaxTokens    int
	Temperature  *float64
	SystemPrompt string

	// Tools advertises the callable catalog. When empty, the provider must
	// never surface tool calls in the result.
	Tools      []ToolDefinition
	ToolChoice string // "auto" or "" (none)
}

type GenerateResult struct {
	Content   string
	ToolCalls []ToolCall
	Usage     Usage
}

// Provider is the LLM interface consumed by the router.
type Provider interface {
	Generate(ctx context.Context, messages []Message, opts GenerateOptions) (*GenerateResult, error)
	ModelName() string
	Close() error
}

// ProviderError is raised on transport, auth, or API failure. The router
// converts it to a generic user-facing fallback; the detail stays in logs.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s provider error (HTTP %d): %s", e.Provider, e.StatusCode, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s provider error: %s: %v", e.Provider, e.Message, e.Err)
	}
	return fmt.Sprintf("%s provider error: %s", e.Provider, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
