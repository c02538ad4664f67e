// Package vectorstore keeps chunk embeddings for retrieval-augmented prompts.
package vectorstore

import (
	"context"

	"github.com/rohankatakam/autodoc/internal/models"
)

// Hit is one search result
type Hit struct {
	ChunkID string
	Score   float64
	Text    string
	Rag     models.RagData
}

// Store persists chunk text alongside its RagData and finds similar chunks.
// Both operations are best-effort for callers: a store that cannot embed
// returns false or no hits rather than failing the pipeline.
type Store interface {
	Save(ctx context.Context, project, text string, rag models.RagData) (bool, error)
	Search(ctx context.Context, project, query string, k int) ([]Hit, error)
	Close() error
}

// Noop is the embedder-off store
type Noop struct{}

func (Noop) Save(context.Context, string, string, models.RagData) (bool, error) { return false, nil }

func (Noop) Search(context.Context, string, string, int) ([]Hit, error) { return nil, nil }

func (Noop) Close() error { return nil }

// ToSearchHits converts store hits into the form attached to RagData
func ToSearchHits(hits []Hit) []models.SearchHit {
	out := make([]models.SearchHit, len(hits))
	for i, h := range hits {
		out[i] = models.SearchHit{ChunkID: h.ChunkID, Score: h.Score, Text: h.Text}
	}
	return out
}
