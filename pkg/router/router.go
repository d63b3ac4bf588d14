// Package router classifies inbound messages and produces responses via
// the direct, tool-augmented, retrieval-augmented, or hybrid path.
package router

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"github.com/CuriosityOS/advanced-whatsapp-llm/pkg/llms"
	"github.com/CuriosityOS/advanced-whatsapp-llm/pkg/memory"
	"github.com/CuriosityOS/advanced-whatsapp-llm/pkg/observability"
	"github.com/CuriosityOS/advanced-whatsapp-llm/pkg/rag"
	"github.com/CuriosityOS/advanced-whatsapp-llm/pkg/tools"
)

// Response is what the router hands back to the transport. Text is
// always safe to send; internal errors never leak past the router.
type Response struct {
	Text        string
	Path        Path
	ToolResults []tools.ToolResult
}

// Router routes one message through classification, generation, and
// memory bookkeeping.
type Router struct {
	provider   llms.Provider
	registry   *tools.Registry
	executor   *tools.Executor
	retrieval  *rag.Engine // nil when retrieval is disabled
	memory     *memory.ConversationMemory
	classifier Classifier
	logger     *slog.Logger
}

func New(provider llms.Provider, registry *tools.Registry, executor *tools.Executor, retrieval *rag.Engine, mem *memory.ConversationMemory) *Router {
	return &Router{
		provider:   provider,
		registry:   registry,
		executor:   executor,
		retrieval:  retrieval,
		memory:     mem,
		classifier: NewHeuristicClassifier(),
		logger:     slog.Default().With("component", "router"),
	}
}

// WithClassifier swaps the triage rules.
func (r *Router) WithClassifier(c Classifier) *Router {
	r.classifier = c
	return r
}

// Route produces a response for one user message. Any failure along any
// path is converted into a static fallback; memory is only updated when
// a real response was produced.
func (r *Router) Route(ctx context.Context, userID, content string) *Response {
	ctx, span := observability.Tracer("router").Start(ctx, observability.SpanRouteMessage)
	defer span.End()

	cls := r.classifier.Classify(content)

	if cls.Meta {
		span.SetAttributes(attribute.String(observability.AttrRoutePath, string(PathMeta)))
		text := metaSummary(r.registry.EnabledTools(), r.retrieval != nil)
		r.remember(userID, content, text)
		return &Response{Text: text, Path: PathMeta}
	}

	path := r.pickPath(cls)
	span.SetAttributes(attribute.String(observability.AttrRoutePath, string(path)))
	if cls.MultiToolHint {
		r.logger.Info("multi-tool phrasing detected",
			"user_id", userID, "detectors", cls.Detectors)
	}

	text, toolResults, err := r.respond(ctx, path, userID, content)
	if err != nil {
		r.logger.Error("response generation failed",
			"user_id", userID, "path", path, "error", err)
		return &Response{Text: fallbackMessage, Path: path}
	}

	r.remember(userID, content, text)
	return &Response{Text: text, Path: path, ToolResults: toolResults}
}

func (r *Router) pickPath(cls Classification) Path {
	switch {
	case cls.ToolRelevant && r.retrieval != nil:
		return PathHybrid
	case cls.ToolRelevant:
		return PathTool
	case r.retrieval != nil:
		return PathRetrieval
	default:
		return PathDirect
	}
}

// respond isolates path execution so a panicking tool or provider bug
// degrades to the fallback message instead of killing the request.
func (r *Router) respond(ctx context.Context, path Path, userID, content string) (text string, toolResults []tools.ToolResult, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic during response generation: %v", rec)
		}
	}()

	switch path {
	case PathTool:
		return r.toolFlow(ctx, userID, content)
	case PathHybrid:
		text, toolResults, err = r.toolFlow(ctx, userID, content)
		if err != nil {
			return "", nil, err
		}
		// Provenance is best effort here; a retrieval failure must not
		// sink an answer the tools already produced.
		if hits, searchErr := r.search(ctx, userID, content); searchErr != nil {
			r.logger.Warn("hybrid retrieval failed, skipping provenance", "error", searchErr)
		} else {
			text += provenanceFootnote(hits)
		}
		return text, toolResults, nil
	case PathRetrieval:
		text, err = r.retrievalFlow(ctx, userID, content)
		return text, nil, err
	default:
		text, err = r.directFlow(ctx, userID, content)
		return text, nil, err
	}
}

// toolFlow is the two-pass generate loop: first with the tool catalog
// and toolChoice=auto, then, if tools were called, a second pass with no
// tools to phrase the final answer.
func (r *Router) toolFlow(ctx context.Context, userID, content string) (string, []tools.ToolResult, error) {
	msgs := append(r.memory.History(userID), llms.Message{Role: llms.RoleUser, Content: content})

	first, err := r.provider.Generate(ctx, msgs, llms.GenerateOptions{
		SystemPrompt: capabilityPrompt(r.registry.EnabledTools()),
		Tools:        r.registry.Definitions(),
		ToolChoice:   "auto",
	})
	if err != nil {
		return "", nil, fmt.Errorf("first generate pass: %w", err)
	}
	if len(first.ToolCalls) == 0 {
		return first.Content, nil, nil
	}

	results := r.executor.ExecuteAll(ctx, first.ToolCalls, userID)

	msgs = append(msgs, llms.Message{
		Role:      llms.RoleAssistant,
		Content:   first.Content,
		ToolCalls: first.ToolCalls,
	})
	for _, res := range results {
		content := res.Content
		if !res.Success {
			content = "Error: " + res.Error
		}
		msgs = append(msgs, llms.Message{
			Role:       llms.RoleTool,
			Content:    content,
			ToolCallID: res.ToolCallID,
			ToolName:   res.ToolName,
		})
	}

	second, err := r.provider.Generate(ctx, msgs, llms.GenerateOptions{
		SystemPrompt: basePrompt,
	})
	if err != nil {
		return "", nil, fmt.Errorf("second generate pass: %w", err)
	}

	return second.Content + toolUsageSummary(results), results, nil
}

func (r *Router) retrievalFlow(ctx context.Context, userID, content string) (string, error) {
	hits, err := r.search(ctx, userID, content)
	if err != nil {
		return "", fmt.Errorf("retrieval: %w", err)
	}

	prompt := basePrompt
	if len(hits) > 0 {
		prompt = retrievalPrompt(hits)
	}

	result, err := r.provider.Generate(ctx,
		append(r.memory.History(userID), llms.Message{Role: llms.RoleUser, Content: content}),
		llms.GenerateOptions{SystemPrompt: prompt})
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	return result.Content, nil
}

func (r *Router) directFlow(ctx context.Context, userID, content string) (string, error) {
	result, err := r.provider.Generate(ctx,
		append(r.memory.History(userID), llms.Message{Role: llms.RoleUser, Content: content}),
		llms.GenerateOptions{SystemPrompt: basePrompt})
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	return result.Content, nil
}

func (r *Router) search(ctx context.Context, userID, content string) ([]rag.SearchResult, error) {
	return r.retrieval.Search(ctx, content, rag.SearchOptions{
		UserScope:            userID,
		IncludeDocuments:     true,
		IncludeKnowledgeBase: true,
	})
}

func (r *Router) remember(userID, userText, assistantText string) {
	r.memory.Append(userID,
		llms.Message{Role: llms.RoleUser, Content: userText},
		llms.Message{Role: llms.RoleAssistant, Content: assistantText},
	)
}
