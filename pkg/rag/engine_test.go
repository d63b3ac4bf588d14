package rag

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CuriosityOS/advanced-whatsapp-llm/pkg/config"
	"github.com/CuriosityOS/advanced-whatsapp-llm/pkg/ingest"
	"github.com/CuriosityOS/advanced-whatsapp-llm/pkg/vector"
)

type fakeEmbedder struct {
	calls atomic.Int64
	fail  bool
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls.Add(1)
	if f.fail {
		return nil, errors.New("embedding backend down")
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if f.fail {
		return nil, errors.New("embedding backend down")
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.1, 0.2, 0.3}
	}
	return out, nil
}

func (f *fakeEmbedder) Dimension() int    { return 3 }
func (f *fakeEmbedder) ModelName() string { return "fake-embedder" }

type fakeStore struct {
	results  map[string][]vector.Result
	failures map[string]error
	upserts  []string
	searches atomic.Int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		results:  make(map[string][]vector.Result),
		failures: make(map[string]error),
	}
}

func (f *fakeStore) Upsert(ctx context.Context, collection, id string, vec []float32, metadata map[string]any) error {
	f.upserts = append(f.upserts, collection+"/"+id)
	return nil
}

func (f *fakeStore) Search(ctx context.Context, collection string, vec []float32, topK int, filter map[string]any) ([]vector.Result, error) {
	f.searches.Add(1)
	if err := f.failures[collection]; err != nil {
		return nil, err
	}
	return f.results[collection], nil
}

func (f *fakeStore) Delete(ctx context.Context, collection, id string) error { return nil }

func (f *fakeStore) DeleteByFilter(ctx context.Context, collection string, filter map[string]any) error {
	return nil
}

func (f *fakeStore) Name() string { return "fake" }
func (f *fakeStore) Close() error { return nil }

func testConfig() config.RetrievalConfig {
	return config.RetrievalConfig{
		DefaultLimit:       5,
		DefaultThreshold:   0.7,
		SearchCacheTTL:     1800,
		SearchCacheSize:    100,
		EmbeddingCacheSize: 100,
		EmbeddingCacheKeep: 50,
	}
}

func newTestEngine(t *testing.T, store *fakeStore, embedder *fakeEmbedder) *Engine {
	t.Helper()
	e, err := NewEngine(testConfig(), store, embedder, "docs", "kb")
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e
}

func allSources() SearchOptions {
	return SearchOptions{IncludeDocuments: true, IncludeKnowledgeBase: true}
}

func TestSearchMergesAndSorts(t *testing.T) {
	store := newFakeStore()
	store.results["docs"] = []vector.Result{
		{ID: "d1", Score: 0.81, Content: "doc hit"},
		{ID: "d2", Score: 0.72, Content: "weaker doc hit"},
	}
	store.results["kb"] = []vector.Result{
		{ID: "k1", Score: 0.92, Content: "kb hit"},
		{ID: "k2", Score: 0.62, Content: "below threshold"},
	}
	e := newTestEngine(t, store, &fakeEmbedder{})

	results, err := e.Search(context.Background(), "what is the refund policy", allSources())
	require.NoError(t, err)

	require.Len(t, results, 3)
	assert.Equal(t, "kb hit", results[0].Content)
	assert.Equal(t, SourceKnowledgeBase, results[0].Source)
	assert.Equal(t, "doc hit", results[1].Content)
	assert.Equal(t, SourceDocument, results[1].Source)
	assert.Equal(t, "weaker doc hit", results[2].Content)
}

func TestSearchRespectsLimit(t *testing.T) {
	store := newFakeStore()
	for i := 0; i < 10; i++ {
		store.results["kb"] = append(store.results["kb"], vector.Result{Score: 0.9, Content: "x"})
	}
	e := newTestEngine(t, store, &fakeEmbedder{})

	results, err := e.Search(context.Background(), "query", SearchOptions{
		Limit:                3,
		IncludeKnowledgeBase: true,
	})
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestThresholdOneFiltersEverything(t *testing.T) {
	store := newFakeStore()
	store.results["kb"] = []vector.Result{{Score: 0.99, Content: "almost perfect"}}
	e := newTestEngine(t, store, &fakeEmbedder{})

	results, err := e.Search(context.Background(), "query", SearchOptions{
		Threshold:            Float(1.0),
		IncludeKnowledgeBase: true,
	})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestEmptyQueryReturnsNothing(t *testing.T) {
	store := newFakeStore()
	embedder := &fakeEmbedder{}
	e := newTestEngine(t, store, embedder)

	results, err := e.Search(context.Background(), "   ", allSources())
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, int64(0), embedder.calls.Load(), "empty query must not hit the embedder")
}

func TestEmbeddingFailureIsFatal(t *testing.T) {
	e := newTestEngine(t, newFakeStore(), &fakeEmbedder{fail: true})

	_, err := e.Search(context.Background(), "query", allSources())
	require.Error(t, err)

	var searchErr *SearchError
	assert.ErrorAs(t, err, &searchErr)
}

func TestSubSourceFailureIsNotFatal(t *testing.T) {
	store := newFakeStore()
	store.failures["docs"] = errors.New("collection offline")
	store.results["kb"] = []vector.Result{{Score: 0.9, Content: "kb survives"}}
	e := newTestEngine(t, store, &fakeEmbedder{})

	results, err := e.Search(context.Background(), "query", allSources())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "kb survives", results[0].Content)
}

func TestSearchResultCaching(t *testing.T) {
	store := newFakeStore()
	store.results["kb"] = []vector.Result{{Score: 0.9, Content: "hit"}}
	e := newTestEngine(t, store, &fakeEmbedder{})

	_, err := e.Search(context.Background(), "Same Query", allSources())
	require.NoError(t, err)
	first := store.searches.Load()

	// Different surface form, same normalized query.
	_, err = e.Search(context.Background(), "  same   query ", allSources())
	require.NoError(t, err)

	assert.Equal(t, first, store.searches.Load(), "second search should be served from cache")
}

func TestCachedResultMetadataIsIsolated(t *testing.T) {
	store := newFakeStore()
	store.results["kb"] = []vector.Result{
		{Score: 0.9, Content: "hit", Metadata: map[string]any{"title": "original"}},
	}
	e := newTestEngine(t, store, &fakeEmbedder{})

	first, err := e.Search(context.Background(), "query", allSources())
	require.NoError(t, err)
	require.Len(t, first, 1)
	first[0].Metadata["title"] = "mutated"

	second, err := e.Search(context.Background(), "query", allSources())
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, "original", second[0].Metadata["title"])
}

func TestEmbeddingCaching(t *testing.T) {
	store := newFakeStore()
	embedder := &fakeEmbedder{}
	e := newTestEngine(t, store, embedder)

	_, err := e.Search(context.Background(), "query one", SearchOptions{IncludeKnowledgeBase: true})
	require.NoError(t, err)
	// Same query text, different options: search cache misses but the
	// embedding is reused.
	_, err = e.Search(context.Background(), "query one", SearchOptions{IncludeKnowledgeBase: true, Limit: 2})
	require.NoError(t, err)

	assert.Equal(t, int64(1), embedder.calls.Load())
}

func TestIndexDocument(t *testing.T) {
	store := newFakeStore()
	e := newTestEngine(t, store, &fakeEmbedder{})

	chunks := []ingest.Chunk{
		{DocumentID: "doc1", Index: 0, Content: "first"},
		{DocumentID: "doc1", Index: 1, Content: "second"},
	}
	require.NoError(t, e.IndexDocument(context.Background(), "alice", chunks))

	require.Len(t, store.upserts, 2)
	assert.Equal(t, "docs/doc1_0", store.upserts[0])
	assert.Equal(t, "docs/doc1_1", store.upserts[1])
}

func TestAddEntryGeneratesID(t *testing.T) {
	store := newFakeStore()
	e := newTestEngine(t, store, &fakeEmbedder{})

	id, err := e.AddEntry(context.Background(), KnowledgeEntry{
		Title:   "Refund policy",
		Content: "Refunds are issued within 14 days.",
		Source:  "handbook",
		Tags:    []string{"billing", "policy"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	require.Len(t, store.upserts, 1)
	assert.Equal(t, "kb/"+id, store.upserts[0])
}

func TestAddEntryRejectsEmptyContent(t *testing.T) {
	e := newTestEngine(t, newFakeStore(), &fakeEmbedder{})

	_, err := e.AddEntry(context.Background(), KnowledgeEntry{Title: "empty"})
	assert.Error(t, err)
}

func TestIndexDocumentEmbeddingFailure(t *testing.T) {
	e := newTestEngine(t, newFakeStore(), &fakeEmbedder{fail: true})

	err := e.IndexDocument(context.Background(), "alice",
		[]ingest.Chunk{{DocumentID: "doc1", Content: "x"}})
	assert.Error(t, err)
}
