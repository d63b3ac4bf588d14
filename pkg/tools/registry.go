package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/CuriosityOS/advanced-whatsapp-llm/pkg/config"
	"github.com/CuriosityOS/advanced-whatsapp-llm/pkg/llms"
	"github.com/CuriosityOS/advanced-whatsapp-llm/pkg/ratelimit"
	"github.com/CuriosityOS/advanced-whatsapp-llm/pkg/registry"
)

// Entry is a registered tool plus its runtime state.
type Entry struct {
	Tool      Tool
	Category  string
	RateLimit *ratelimit.Limit

	enabled    atomic.Bool
	calls      atomic.Int64
	errors     atomic.Int64
	rateDenied atomic.Int64
}

func (e *Entry) Enabled() bool { return e.enabled.Load() }

// Usage reports lifetime counters for the tool.
func (e *Entry) Usage() (calls, errs, denied int64) {
	return e.calls.Load(), e.errors.Load(), e.rateDenied.Load()
}

// Registry holds the available tools and enforces per-(tool, caller)
// rate limits.
type Registry struct {
	entries *registry.BaseRegistry[*Entry]
	limiter *ratelimit.SlidingWindow
}

func NewRegistry() *Registry {
	return &Registry{
		entries: registry.NewBaseRegistry[*Entry](),
		limiter: ratelimit.NewSlidingWindow(),
	}
}

// Register validates and adds a tool. Names must be unique, non-empty,
// and free of whitespace so they survive the round trip through model
// tool-call payloads.
func (r *Registry) Register(tool Tool, cfg config.ToolConfig) error {
	info := tool.Info()
	if info.Name == "" {
		return &RegistryError{Tool: info.Name, Message: "tool name is empty"}
	}
	if strings.ContainsAny(info.Name, " \t\n") {
		return &RegistryError{Tool: info.Name, Message: "tool name contains whitespace"}
	}
	if info.Description == "" {
		return &RegistryError{Tool: info.Name, Message: "tool description is empty"}
	}

	entry := &Entry{Tool: tool, Category: cfg.Category}
	if entry.Category == "" {
		entry.Category = info.Category
	}
	if cfg.RateLimit != nil {
		entry.RateLimit = &ratelimit.Limit{
			MaxCalls: cfg.RateLimit.MaxCalls,
			Window:   cfg.RateLimit.Window(),
		}
	}
	entry.enabled.Store(cfg.Enabled == nil || *cfg.Enabled)

	if err := r.entries.Register(info.Name, entry); err != nil {
		return &RegistryError{Tool: info.Name, Message: "registration failed", Err: err}
	}
	return nil
}

// Count reports how many tools are registered.
func (r *Registry) Count() int { return r.entries.Count() }

// Initialize runs setup for every registered tool that implements
// Initializer. The first failure aborts and is returned.
func (r *Registry) Initialize(ctx context.Context) error {
	for _, entry := range r.entries.List() {
		init, ok := entry.Tool.(Initializer)
		if !ok {
			continue
		}
		if err := init.Initialize(ctx); err != nil {
			return &RegistryError{Tool: entry.Tool.Info().Name, Message: "initialization failed", Err: err}
		}
	}
	return nil
}

// Close releases resources held by tools that implement Cleaner.
// All cleanups run; the first error is returned.
func (r *Registry) Close() error {
	var firstErr error
	for _, entry := range r.entries.List() {
		cleaner, ok := entry.Tool.(Cleaner)
		if !ok {
			continue
		}
		if err := cleaner.Cleanup(); err != nil && firstErr == nil {
			firstErr = &RegistryError{Tool: entry.Tool.Info().Name, Message: "cleanup failed", Err: err}
		}
	}
	return firstErr
}

// Lookup returns the entry for name regardless of enabled state.
func (r *Registry) Lookup(name string) (*Entry, bool) {
	return r.entries.Get(name)
}

// Enable turns a tool on.
func (r *Registry) Enable(name string) error {
	return r.setEnabled(name, true)
}

// Disable turns a tool off. Disabled tools stay registered and listed.
func (r *Registry) Disable(name string) error {
	return r.setEnabled(name, false)
}

func (r *Registry) setEnabled(name string, on bool) error {
	entry, ok := r.entries.Get(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	entry.enabled.Store(on)
	return nil
}

// ListTools returns every registered tool's info, sorted by name.
func (r *Registry) ListTools() []ToolInfo {
	infos := make([]ToolInfo, 0, r.entries.Count())
	for _, entry := range r.entries.List() {
		infos = append(infos, entry.Tool.Info())
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// EnabledTools returns the info for every enabled tool, sorted by name.
func (r *Registry) EnabledTools() []ToolInfo {
	infos := make([]ToolInfo, 0, r.entries.Count())
	for _, entry := range r.entries.List() {
		if entry.Enabled() {
			infos = append(infos, entry.Tool.Info())
		}
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// Definitions converts the enabled tools to the shape the LLM providers
// send on generate requests.
func (r *Registry) Definitions() []llms.ToolDefinition {
	infos := r.EnabledTools()
	defs := make([]llms.ToolDefinition, 0, len(infos))
	for _, info := range infos {
		defs = append(defs, toDefinition(info))
	}
	return defs
}

// toDefinition builds a JSON Schema object for the tool's parameters.
func toDefinition(info ToolInfo) llms.ToolDefinition {
	properties := make(map[string]any, len(info.Parameters))
	required := make([]string, 0, len(info.Parameters))
	for _, p := range info.Parameters {
		properties[p.Name] = map[string]any{
			"type":        p.Type,
			"description": p.Description,
		}
		if p.Required {
			required = append(required, p.Name)
		}
	}

	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}

	return llms.ToolDefinition{
		Name:        info.Name,
		Description: info.Description,
		Parameters:  schema,
	}
}

// checkRateLimit records an attempt against the (tool, caller) window.
func (r *Registry) checkRateLimit(entry *Entry, toolName, caller string) ratelimit.CheckResult {
	if entry.RateLimit == nil {
		return ratelimit.CheckResult{Allowed: true}
	}
	key := toolName + "|" + caller
	res := r.limiter.Allow(key, *entry.RateLimit)
	if !res.Allowed {
		entry.rateDenied.Add(1)
	}
	return res
}
