// Package runtime assembles the configured components into one running
// engine and owns their lifecycle.
package runtime

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/CuriosityOS/advanced-whatsapp-llm/pkg/config"
	"github.com/CuriosityOS/advanced-whatsapp-llm/pkg/embedders"
	"github.com/CuriosityOS/advanced-whatsapp-llm/pkg/ingest"
	"github.com/CuriosityOS/advanced-whatsapp-llm/pkg/llms"
	"github.com/CuriosityOS/advanced-whatsapp-llm/pkg/memory"
	"github.com/CuriosityOS/advanced-whatsapp-llm/pkg/rag"
	"github.com/CuriosityOS/advanced-whatsapp-llm/pkg/router"
	"github.com/CuriosityOS/advanced-whatsapp-llm/pkg/tools"
	"github.com/CuriosityOS/advanced-whatsapp-llm/pkg/vector"
)

// Runtime wires config into live components. Build it once at startup
// and Close it on shutdown.
type Runtime struct {
	Config    *config.Config
	Router    *router.Router
	Registry  *tools.Registry
	Pipeline  *ingest.Pipeline
	Retrieval *rag.Engine // nil when retrieval is disabled
	Memory    *memory.ConversationMemory

	llmRegistry *llms.Registry
	store       vector.Provider
	logger      *slog.Logger
}

func New(cfg *config.Config) (*Runtime, error) {
	logger := slog.Default().With("component", "runtime")

	llmRegistry := llms.NewRegistry()
	for name, providerCfg := range cfg.LLMs {
		pc := providerCfg
		if _, err := llmRegistry.CreateFromConfig(name, &pc); err != nil {
			return nil, fmt.Errorf("llm provider %q: %w", name, err)
		}
	}
	provider, err := llmRegistry.GetProvider(cfg.DefaultLLM)
	if err != nil {
		return nil, fmt.Errorf("default llm: %w", err)
	}

	registry := tools.NewRegistry()
	if err := tools.RegisterBuiltins(registry, cfg.Tools); err != nil {
		return nil, fmt.Errorf("register tools: %w", err)
	}
	if err := registry.Initialize(context.Background()); err != nil {
		return nil, fmt.Errorf("initialize tools: %w", err)
	}
	executor := tools.NewExecutor(registry)

	rt := &Runtime{
		Config:      cfg,
		Registry:    registry,
		Pipeline:    ingest.NewPipeline(cfg.Ingestion),
		Memory:      memory.NewConversationMemory(cfg.Memory.WindowSize),
		llmRegistry: llmRegistry,
		logger:      logger,
	}

	if retrievalEnabled(cfg) {
		engine, store, err := buildRetrieval(cfg)
		if err != nil {
			return nil, err
		}
		rt.Retrieval = engine
		rt.store = store
		logger.Info("retrieval enabled",
			"vector_store", cfg.VectorStore.Type, "embedder", cfg.DefaultEmbedder)
	} else {
		logger.Info("retrieval disabled")
	}

	rt.Router = router.New(provider, registry, executor, rt.Retrieval, rt.Memory)

	logger.Info("runtime assembled",
		"llm", provider.ModelName(),
		"tools", registry.Count(),
		"memory_window", cfg.Memory.WindowSize)
	return rt, nil
}

func retrievalEnabled(cfg *config.Config) bool {
	if cfg.Retrieval.Enabled != nil && !*cfg.Retrieval.Enabled {
		return false
	}
	return len(cfg.Embedders) > 0 && cfg.DefaultEmbedder != ""
}

func buildRetrieval(cfg *config.Config) (*rag.Engine, vector.Provider, error) {
	embedderRegistry := embedders.NewRegistry()
	for name, embedderCfg := range cfg.Embedders {
		ec := embedderCfg
		if _, err := embedderRegistry.CreateFromConfig(name, &ec); err != nil {
			return nil, nil, fmt.Errorf("embedder %q: %w", name, err)
		}
	}
	embedder, err := embedderRegistry.GetProvider(cfg.DefaultEmbedder)
	if err != nil {
		return nil, nil, fmt.Errorf("default embedder: %w", err)
	}

	store, err := vector.NewProvider(&cfg.VectorStore)
	if err != nil {
		return nil, nil, fmt.Errorf("vector store: %w", err)
	}

	engine, err := rag.NewEngine(cfg.Retrieval, store, embedder,
		cfg.VectorStore.DocumentCollection, cfg.VectorStore.KnowledgeCollection)
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return engine, store, nil
}

// IngestAttachment runs one attachment through extraction and, when it
// succeeds and retrieval is on, indexes its chunks for the user.
func (rt *Runtime) IngestAttachment(ctx context.Context, userID string, att ingest.Attachment) (*ingest.Result, error) {
	result := rt.Pipeline.Ingest(ctx, att)
	if !result.Success || rt.Retrieval == nil {
		return result, nil
	}
	if err := rt.Retrieval.IndexDocument(ctx, userID, result.Chunks); err != nil {
		return result, err
	}
	return result, nil
}

func (rt *Runtime) Close() error {
	var firstErr error
	if err := rt.Registry.Close(); err != nil {
		firstErr = err
	}
	if rt.Retrieval != nil {
		if err := rt.Retrieval.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if rt.store != nil {
		if err := rt.store.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	for _, p := range rt.llmRegistry.List() {
		if err := p.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
