package rag

// Source identifies which corpus a search result came from.
type Source string

const (
	SourceDocument      Source = "document"
	SourceKnowledgeBase Source = "knowledge_base"
)

// SearchResult is one scored hit from semantic search. Similarity is
// cosine similarity in [0, 1], higher is better.
type SearchResult struct {
	Content    string
	Similarity float64
	Source     Source
	Metadata   map[string]any
}

// SearchOptions tunes a single search. Zero values fall back to the
// engine's configured defaults; a nil Threshold means the default cutoff.
type SearchOptions struct {
	Limit                int
	Threshold            *float64
	UserScope            string
	IncludeDocuments     bool
	IncludeKnowledgeBase bool
}

// Threshold helper for building SearchOptions literals.
func Float(v float64) *float64 { return &v }
