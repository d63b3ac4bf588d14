package tools

import (
	"context"
	"fmt"
)

// RemoteTool is a tool whose implementation lives outside this process.
// Only the descriptor is held here; Handler is attached by whatever
// bridge registers the tool. Without a handler, invocation fails with a
// clear error instead of hanging.
type RemoteTool struct {
	Descriptor ToolInfo
	Handler    func(ctx context.Context, args map[string]any) (string, error)
}

func (t *RemoteTool) Info() ToolInfo {
	info := t.Descriptor
	if info.Category == "" {
		info.Category = "remote"
	}
	return info
}

func (t *RemoteTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	if t.Handler == nil {
		return "", fmt.Errorf("remote tool %q has no invocation handler", t.Descriptor.Name)
	}
	return t.Handler(ctx, args)
}

// RegisterRemote adds an externally described tool to the registry so it
// shows up in the catalog and the capability prompt alongside local
// tools.
func (r *Registry) RegisterRemote(tool *RemoteTool) error {
	if tool == nil {
		return &RegistryError{Message: "remote tool is nil"}
	}
	entry := &Entry{Tool: tool, Category: tool.Info().Category}
	entry.enabled.Store(true)

	info := tool.Descriptor
	if info.Name == "" {
		return &RegistryError{Message: "remote tool name is empty"}
	}
	if err := r.entries.Register(info.Name, entry); err != nil {
		return &RegistryError{Tool: info.Name, Message: "registration failed", Err: err}
	}
	return nil
}
