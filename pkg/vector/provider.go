// Package vector abstracts the similarity stores behind one Provider
// interface. The chromem provider is the embedded zero-config default;
// the qdrant provider targets a server deployment.
package vector

import (
	"context"
	"fmt"

	"github.com/CuriosityOS/advanced-whatsapp-llm/pkg/config"
)

// Result is one similarity hit. Score is cosine similarity in [0, 1]
// (1 - cosine distance); both providers are created with the cosine
// metric so scores are comparable across collections.
type Result struct {
	ID       string
	Score    float32
	Content  string
	Metadata map[string]any
}

// Provider is the vector-store interface used by the retrieval engine.
//
// Content travels in metadata under the "content" key; providers that
// store content separately (chromem) lift it out.
type Provider interface {
	Upsert(ctx context.Context, collection string, id string, vector []float32, metadata map[string]any) error
	Search(ctx context.Context, collection string, vector []float32, topK int, filter map[string]any) ([]Result, error)
	Delete(ctx context.Context, collection string, id string) error
	DeleteByFilter(ctx context.Context, collection string, filter map[string]any) error
	Name() string
	Close() error
}

// NewProvider creates the provider named by cfg.Type.
func NewProvider(cfg *config.VectorStoreConfig) (Provider, error) {
	switch cfg.Type {
	case "", "chromem":
		return NewChromemProvider(ChromemConfig{
			PersistPath: cfg.PersistPath,
			Compress:    cfg.Compress,
		})
	case "qdrant":
		return NewQdrantProvider(cfg)
	default:
		return nil, fmt.Errorf("unsupported vector store type: %s", cfg.Type)
	}
}
