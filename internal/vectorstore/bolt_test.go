package vectorstore

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohankatakam/autodoc/internal/models"
)

// keywordEmbedder maps text onto a fixed vocabulary so similarity is predictable
type keywordEmbedder struct {
	vocab []string
	fail  int
	calls int
}

func (e *keywordEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	e.calls++
	if e.fail > 0 {
		e.fail--
		return nil, fmt.Errorf("embedding service unavailable")
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec := make([]float32, len(e.vocab))
		for j, w := range e.vocab {
			vec[j] = float32(strings.Count(t, w))
		}
		out[i] = vec
	}
	return out, nil
}

func rag(id string) models.RagData {
	return models.RagData{Metadata: models.RagMetadata{ChunkID: id, FileLocation: id + ".go"}}
}

func openTestStore(t *testing.T, e *keywordEmbedder) *BoltStore {
	t.Helper()
	s, err := OpenBolt(filepath.Join(t.TempDir(), "vectors.db"), e, WithRetries(1, 0))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndSearch(t *testing.T) {
	e := &keywordEmbedder{vocab: []string{"cart", "invoice", "user"}}
	s := openTestStore(t, e)
	ctx := context.Background()

	for id, text := range map[string]string{
		"a": "cart cart total",
		"b": "invoice pdf invoice",
		"c": "user login user",
	} {
		ok, err := s.Save(ctx, "shop", text, rag(id))
		require.NoError(t, err)
		assert.True(t, ok)
	}

	hits, err := s.Search(ctx, "shop", "render the invoice", 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "b", hits[0].ChunkID)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-9)
	assert.Equal(t, "b.go", hits[0].Rag.Metadata.FileLocation)

	n, err := s.Count("shop")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestProjectsAreIsolated(t *testing.T) {
	e := &keywordEmbedder{vocab: []string{"cart"}}
	s := openTestStore(t, e)
	ctx := context.Background()

	_, err := s.Save(ctx, "one", "cart", rag("x"))
	require.NoError(t, err)

	hits, err := s.Search(ctx, "two", "cart", 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSaveSkipsEmpty(t *testing.T) {
	e := &keywordEmbedder{vocab: []string{"cart"}}
	s := openTestStore(t, e)

	ok, err := s.Save(context.Background(), "p", "", rag("x"))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, e.calls)
}

func TestEmbeddingRetry(t *testing.T) {
	e := &keywordEmbedder{vocab: []string{"cart"}, fail: 1}
	s := openTestStore(t, e)

	ok, err := s.Save(context.Background(), "p", "cart", rag("x"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, e.calls)

	e.fail = 2
	_, err = s.Search(context.Background(), "p", "cart", 1)
	assert.Error(t, err)
}

func TestCosine(t *testing.T) {
	q := []float32{1, 0}
	assert.InDelta(t, 1.0, cosine(q, []float32{2, 0}, norm(q)), 1e-9)
	assert.InDelta(t, 0.0, cosine(q, []float32{0, 3}, norm(q)), 1e-9)
	assert.Equal(t, 0.0, cosine(q, []float32{1}, norm(q)))
	assert.Equal(t, 0.0, cosine(q, []float32{0, 0}, norm(q)))
}

func TestNoop(t *testing.T) {
	var s Store = Noop{}
	ok, err := s.Save(context.Background(), "p", "text", rag("x"))
	assert.NoError(t, err)
	assert.False(t, ok)
	hits, err := s.Search(context.Background(), "p", "q", 3)
	assert.NoError(t, err)
	assert.Nil(t, hits)
}

func TestOpenRequiresEmbedder(t *testing.T) {
	_, err := OpenBolt(filepath.Join(t.TempDir(), "v.db"), nil)
	assert.Error(t, err)
}
