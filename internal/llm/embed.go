package llm

import (
	"context"
	"fmt"

	"github.com/rohankatakam/autodoc/internal/config"
)

// Embedder turns texts into vectors, one per input in the same order
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// NewEmbedder returns the embedder for cfg's embedding provider, or nil when
// embeddings are switched off
func NewEmbedder(ctx context.Context, cfg *config.Config) (Embedder, error) {
	switch Provider(cfg.Embedding.Provider) {
	case ProviderNone, "":
		return nil, nil
	case ProviderOpenAI:
		e, err := newOpenAIEmbedder(cfg.EmbeddingAPIKey(), cfg.Embedding.Model)
		if err != nil {
			return nil, err
		}
		return e, nil
	case ProviderGemini:
		e, err := newGeminiEmbedder(ctx, cfg.EmbeddingAPIKey(), cfg.Embedding.Model)
		if err != nil {
			return nil, err
		}
		return e, nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Embedding.Provider)
	}
}
