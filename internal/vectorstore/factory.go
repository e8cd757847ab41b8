// internal/vectorstore/factory.go
package vectorstore

import (
	"context"
	"fmt"

	"cv-pipeline/internal/common/config"
	"cv-pipeline/internal/common/logger"

	"github.com/elastic/go-elasticsearch/v8"
)

// NewEmbedder picks the OpenAI embedder when a key is configured and the
// hashing embedder otherwise.
func NewEmbedder(cfg *config.Config) Embedder {
	emb := cfg.APIs.Embeddings
	if emb.Provider == "openai" && cfg.APIs.OpenAI.APIKey != "" {
		return NewOpenAIEmbedder(cfg.APIs.OpenAI.BaseURL, cfg.APIs.OpenAI.APIKey, cfg.APIs.OpenAI.EmbeddingModel, emb.Dimensions)
	}
	return NewHashEmbedder(emb.Dimensions)
}

// New builds the configured store. es may be nil for the memory backend.
func New(ctx context.Context, cfg *config.Config, es *elasticsearch.Client, log logger.Logger) (Store, error) {
	embedder := NewEmbedder(cfg)

	switch cfg.VectorStore.Backend {
	case "", "memory":
		log.Info("Using in-memory vector store", map[string]interface{}{"dims": embedder.Dimensions()})
		return NewMemoryStore(embedder), nil
	case "elasticsearch":
		if es == nil {
			return nil, fmt.Errorf("vector_store.backend=elasticsearch requires an elasticsearch client")
		}
		store := NewElasticsearchStore(es, cfg.VectorStore.Index, embedder, log)
		if err := store.EnsureIndex(ctx); err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown vector store backend %q", cfg.VectorStore.Backend)
	}
}
