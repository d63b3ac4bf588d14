package rag

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/CuriosityOS/advanced-whatsapp-llm/pkg/cache"
	"github.com/CuriosityOS/advanced-whatsapp-llm/pkg/config"
	"github.com/CuriosityOS/advanced-whatsapp-llm/pkg/embedders"
	"github.com/CuriosityOS/advanced-whatsapp-llm/pkg/ingest"
	"github.com/CuriosityOS/advanced-whatsapp-llm/pkg/observability"
	"github.com/CuriosityOS/advanced-whatsapp-llm/pkg/vector"
)

// Engine performs semantic search over two corpora (user documents and
// the shared knowledge base) with embedding and result caching in front
// of the vector store.
type Engine struct {
	cfg      config.RetrievalConfig
	store    vector.Provider
	embedder embedders.Provider

	docCollection string
	kbCollection  string

	embedCache  *cache.Cache[[]float32]
	searchCache *cache.Cache[[]SearchResult]

	logger *slog.Logger
}

func NewEngine(cfg config.RetrievalConfig, store vector.Provider, embedder embedders.Provider, docCollection, kbCollection string) (*Engine, error) {
	if store == nil {
		return nil, newSearchError("init", "vector store is required", nil)
	}
	if embedder == nil {
		return nil, newSearchError("init", "embedding provider is required", nil)
	}

	embedCache, err := cache.New[[]float32](cache.Options{
		DefaultTTL: -1, // embeddings are deterministic per model, no expiry
		MaxKeys:    cfg.EmbeddingCacheSize,
	})
	if err != nil {
		return nil, newSearchError("init", "embedding cache", err)
	}

	searchCache, err := cache.New[[]SearchResult](cache.Options{
		DefaultTTL: time.Duration(cfg.SearchCacheTTL) * time.Second,
		MaxKeys:    cfg.SearchCacheSize,
	})
	if err != nil {
		embedCache.Close()
		return nil, newSearchError("init", "search cache", err)
	}

	return &Engine{
		cfg:           cfg,
		store:         store,
		embedder:      embedder,
		docCollection: docCollection,
		kbCollection:  kbCollection,
		embedCache:    embedCache,
		searchCache:   searchCache,
		logger:        slog.Default().With("component", "rag"),
	}, nil
}

// Search embeds the query and runs it against the enabled corpora
// concurrently, returning results above the similarity threshold sorted
// by similarity descending. A failed corpus contributes nothing rather
// than failing the whole search; a failed embedding is fatal.
func (e *Engine) Search(ctx context.Context, query string, opts SearchOptions) ([]SearchResult, error) {
	ctx, span := observability.Tracer("rag").Start(ctx, observability.SpanRetrievalSearch,
		trace.WithAttributes(attribute.Int(observability.AttrQueryLength, len(query))))
	defer span.End()

	norm := normalizeQuery(query)
	if norm == "" {
		return nil, nil
	}
	opts = e.applyDefaults(opts)
	if !opts.IncludeDocuments && !opts.IncludeKnowledgeBase {
		return nil, nil
	}

	cacheKey := e.searchCacheKey(norm, opts)
	if cached, ok := e.searchCache.Get(cacheKey); ok {
		e.logger.Debug("search cache hit", "query_length", len(query))
		span.SetAttributes(attribute.Int(observability.AttrResultCount, len(cached)))
		return cloneResults(cached), nil
	}

	embedding, err := e.embedQuery(ctx, norm)
	if err != nil {
		return nil, newSearchError("search", "query embedding failed", err)
	}

	var docHits, kbHits []vector.Result
	g, gctx := errgroup.WithContext(ctx)

	if opts.IncludeDocuments {
		g.Go(func() error {
			filter := map[string]any{}
			if opts.UserScope != "" {
				filter["user_id"] = opts.UserScope
			}
			hits, err := e.store.Search(gctx, e.docCollection, embedding, opts.Limit, filter)
			if err != nil {
				e.logger.Warn("document search failed, continuing without documents", "error", err)
				return nil
			}
			docHits = hits
			return nil
		})
	}
	if opts.IncludeKnowledgeBase {
		g.Go(func() error {
			hits, err := e.store.Search(gctx, e.kbCollection, embedding, opts.Limit, nil)
			if err != nil {
				e.logger.Warn("knowledge base search failed, continuing without knowledge base", "error", err)
				return nil
			}
			kbHits = hits
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, newSearchError("search", "vector search failed", err)
	}

	threshold := e.cfg.DefaultThreshold
	if opts.Threshold != nil {
		threshold = *opts.Threshold
	}

	results := make([]SearchResult, 0, len(docHits)+len(kbHits))
	for _, h := range docHits {
		if float64(h.Score) >= threshold {
			results = append(results, toSearchResult(h, SourceDocument))
		}
	}
	for _, h := range kbHits {
		if float64(h.Score) >= threshold {
			results = append(results, toSearchResult(h, SourceKnowledgeBase))
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if len(results) > opts.Limit {
		results = results[:opts.Limit]
	}

	e.searchCache.Set(cacheKey, cloneResults(results))
	span.SetAttributes(attribute.Int(observability.AttrResultCount, len(results)))
	e.logger.Debug("search complete",
		"documents", len(docHits), "knowledge", len(kbHits), "returned", len(results))

	return results, nil
}

// IndexDocument embeds a document's chunks in one batch and upserts them
// into the document collection, scoped to the owning user. Cached search
// results are flushed since they may now be stale.
func (e *Engine) IndexDocument(ctx context.Context, userID string, chunks []ingest.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	vectors, err := e.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return newSearchError("index", "chunk embedding failed", err)
	}
	if len(vectors) != len(chunks) {
		return newSearchError("index",
			fmt.Sprintf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks)), nil)
	}

	for i, c := range chunks {
		metadata := map[string]any{
			"content":     c.Content,
			"document_id": c.DocumentID,
			"chunk_index": c.Index,
			"user_id":     userID,
		}
		for k, v := range c.Metadata {
			if _, reserved := metadata[k]; !reserved {
				metadata[k] = v
			}
		}

		id := fmt.Sprintf("%s_%d", c.DocumentID, c.Index)
		if err := e.store.Upsert(ctx, e.docCollection, id, vectors[i], metadata); err != nil {
			return newSearchError("index", fmt.Sprintf("upsert chunk %d", c.Index), err)
		}
	}

	e.searchCache.FlushAll()
	e.logger.Info("document indexed",
		"document_id", chunks[0].DocumentID, "chunks", len(chunks), "user_id", userID)
	return nil
}

// DeleteDocument removes every chunk of a document from the document
// collection.
func (e *Engine) DeleteDocument(ctx context.Context, documentID string) error {
	err := e.store.DeleteByFilter(ctx, e.docCollection, map[string]any{"document_id": documentID})
	if err != nil {
		return newSearchError("delete", "delete document chunks", err)
	}
	e.searchCache.FlushAll()
	return nil
}

// KnowledgeEntry is curated content authored into the shared knowledge
// base, as opposed to user-uploaded document chunks.
type KnowledgeEntry struct {
	ID      string
	Title   string
	Content string
	Source  string
	Tags    []string
}

// AddEntry stores one authored entry and returns its id, generating one
// when the entry carries none.
func (e *Engine) AddEntry(ctx context.Context, entry KnowledgeEntry) (string, error) {
	id := entry.ID
	if id == "" {
		id = uuid.NewString()
	}
	metadata := map[string]any{}
	if entry.Title != "" {
		metadata["title"] = entry.Title
	}
	if entry.Source != "" {
		metadata["source"] = entry.Source
	}
	if len(entry.Tags) > 0 {
		metadata["tags"] = strings.Join(entry.Tags, ",")
	}
	if err := e.AddKnowledgeEntry(ctx, id, entry.Content, metadata); err != nil {
		return "", err
	}
	return id, nil
}

// AddKnowledgeEntry embeds and stores one entry in the shared knowledge
// base.
func (e *Engine) AddKnowledgeEntry(ctx context.Context, id, content string, metadata map[string]any) error {
	if strings.TrimSpace(content) == "" {
		return newSearchError("knowledge", "content is empty", nil)
	}

	embedding, err := e.embedQuery(ctx, normalizeQuery(content))
	if err != nil {
		return newSearchError("knowledge", "entry embedding failed", err)
	}

	payload := map[string]any{"content": content}
	for k, v := range metadata {
		if k != "content" {
			payload[k] = v
		}
	}

	if err := e.store.Upsert(ctx, e.kbCollection, id, embedding, payload); err != nil {
		return newSearchError("knowledge", "upsert entry", err)
	}
	e.searchCache.FlushAll()
	return nil
}

// CacheStats exposes hit counters for both layers.
func (e *Engine) CacheStats() (embed, search cache.Stats) {
	return e.embedCache.Stats(), e.searchCache.Stats()
}

func (e *Engine) Close() error {
	e.embedCache.Close()
	e.searchCache.Close()
	return nil
}

// embedQuery returns the cached embedding for normalized text, computing
// and caching it on a miss. The embedding cache has no TTL but a soft
// size cap enforced with bulk oldest-first eviction.
func (e *Engine) embedQuery(ctx context.Context, norm string) ([]float32, error) {
	key := hashKey("emb", norm)
	if v, ok := e.embedCache.Get(key); ok {
		return v, nil
	}

	embedding, err := e.embedder.Embed(ctx, norm)
	if err != nil {
		return nil, err
	}

	e.embedCache.Set(key, embedding)
	if e.cfg.EmbeddingCacheKeep > 0 && e.embedCache.Len() > e.cfg.EmbeddingCacheSize {
		e.embedCache.EvictOldestBeyond(e.cfg.EmbeddingCacheKeep)
	}
	return embedding, nil
}

func (e *Engine) applyDefaults(opts SearchOptions) SearchOptions {
	if opts.Limit <= 0 {
		opts.Limit = e.cfg.DefaultLimit
	}
	return opts
}

func (e *Engine) searchCacheKey(norm string, opts SearchOptions) string {
	threshold := e.cfg.DefaultThreshold
	if opts.Threshold != nil {
		threshold = *opts.Threshold
	}
	return hashKey("search", fmt.Sprintf("%s|%s|%d|%.4f|%t|%t",
		norm, opts.UserScope, opts.Limit, threshold,
		opts.IncludeDocuments, opts.IncludeKnowledgeBase))
}

// normalizeQuery lowercases and collapses whitespace so trivially
// different phrasings share cache entries.
func normalizeQuery(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}

func hashKey(prefix, s string) string {
	sum := sha256.Sum256([]byte(s))
	return prefix + ":" + hex.EncodeToString(sum[:])
}

func toSearchResult(h vector.Result, source Source) SearchResult {
	return SearchResult{
		Content:    h.Content,
		Similarity: float64(h.Score),
		Source:     source,
		Metadata:   h.Metadata,
	}
}

// cloneResults deep-copies cached results so a caller mutating a hit's
// metadata cannot poison later cache hits.
func cloneResults(in []SearchResult) []SearchResult {
	out := make([]SearchResult, len(in))
	for i, r := range in {
		out[i] = r
		if r.Metadata != nil {
			md := make(map[string]any, len(r.Metadata))
			for k, v := range r.Metadata {
				md[k] = v
			}
			out[i].Metadata = md
		}
	}
	return out
}
