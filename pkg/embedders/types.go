// Package embedders provides the text-embedding interface used by the
// retrieval engine, with OpenAI and Ollama implementations.
package embedders

import (
	"context"
	"fmt"
	"sync/atomic"
)

// Provider converts text into fixed-length vectors.
//
// All vectors produced by one provider instance have the same dimension;
// similarity search relies on that invariant.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
	ModelName() string
}

// UsageTracker accumulates token usage across embedding calls.
// Embedded by providers for accounting.
type UsageTracker struct {
	promptTokens atomic.Int64
	totalTokens  atomic.Int64
	requests     atomic.Int64
}

type UsageSnapshot struct {
	PromptTokens int64
	TotalTokens  int64
	Requests     int64
}

func (u *UsageTracker) record(promptTokens, totalTokens int) {
	u.promptTokens.Add(int64(promptTokens))
	u.totalTokens.Add(int64(totalTokens))
	u.requests.Add(1)
}

// Usage returns the accumulated counters.
func (u *UsageTracker) Usage() UsageSnapshot {
	return UsageSnapshot{
		PromptTokens: u.promptTokens.Load(),
		TotalTokens:  u.totalTokens.Load(),
		Requests:     u.requests.Load(),
	}
}

// EmbeddingError is raised when an embedding call fails. The retrieval
// engine treats it as fatal for the whole search.
type EmbeddingError struct {
	Provider string
	Message  string
	Err      error
}

func (e *EmbeddingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("embedding failed (%s): %s: %v", e.Provider, e.Message, e.Err)
	}
	return fmt.Sprintf("embedding failed (%s): %s", e.Provider, e.Message)
}

func (e *EmbeddingError) Unwrap() error {
	return e.Err
}
