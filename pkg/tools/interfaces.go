package tools

import (
	"context"
	"time"
)

// ToolParameter describes one argument a tool accepts.
type ToolParameter struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

// ToolInfo is the static description of a tool, used both for listing
// and for building the definitions sent to the model.
type ToolInfo struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  []ToolParameter `json:"parameters,omitempty"`
	Category    string          `json:"category,omitempty"`
}

// ToolResult is the outcome of a single invocation.
type ToolResult struct {
	ToolCallID    string        `json:"tool_call_id"`
	ToolName      string        `json:"tool_name"`
	Success       bool          `json:"success"`
	Content       string        `json:"content"`
	Error         string        `json:"error,omitempty"`
	ExecutionTime time.Duration `json:"execution_time"`
}

// Tool is the local tool contract. Execute must be safe for concurrent
// use and should honor ctx cancellation.
type Tool interface {
	Info() ToolInfo
	Execute(ctx context.Context, args map[string]any) (string, error)
}

// Initializer is implemented by tools that need setup before first use.
type Initializer interface {
	Initialize(ctx context.Context) error
}

// Cleaner is implemented by tools that hold resources to release on
// shutdown.
type Cleaner interface {
	Cleanup() error
}
