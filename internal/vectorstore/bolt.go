package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/rohankatakam/autodoc/internal/errors"
	"github.com/rohankatakam/autodoc/internal/logging"
	"github.com/rohankatakam/autodoc/internal/llm"
	"github.com/rohankatakam/autodoc/internal/models"
)

const bucketPrefix = "project:"

// record is the persisted form of one chunk
type record struct {
	Vector []float32      `json:"vector"`
	Text   string         `json:"text"`
	Rag    models.RagData `json:"rag"`
}

// BoltStore keeps one bucket per project keyed by chunk ID
type BoltStore struct {
	db       *bolt.DB
	embedder llm.Embedder
	retries  int
	backoff  time.Duration
	logger   *slog.Logger
}

// BoltOption configures a BoltStore
type BoltOption func(*BoltStore)

// WithRetries retries a failed embedding call n more times
func WithRetries(n int, backoff time.Duration) BoltOption {
	return func(s *BoltStore) {
		s.retries = n
		s.backoff = backoff
	}
}

// OpenBolt opens (creating if needed) the database at path
func OpenBolt(path string, embedder llm.Embedder, opts ...BoltOption) (*BoltStore, error) {
	if embedder == nil {
		return nil, errors.ConfigError("vector store requires an embedder")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.FileSystemError(err, "create vector store directory")
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, errors.StorageError(err, fmt.Sprintf("open vector store %s", path))
	}

	s := &BoltStore{
		db:       db,
		embedder: embedder,
		retries:  1,
		backoff:  time.Second,
		logger:   logging.Component("vectorstore"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Save embeds text and stores it under the chunk ID. Empty text is skipped.
func (s *BoltStore) Save(ctx context.Context, project, text string, rag models.RagData) (bool, error) {
	if text == "" || rag.Metadata.ChunkID == "" {
		return false, nil
	}

	vec, err := s.embedOne(ctx, text)
	if err != nil {
		return false, err
	}

	data, err := json.Marshal(record{Vector: vec, Text: text, Rag: rag})
	if err != nil {
		return false, fmt.Errorf("encode vector record: %w", err)
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(bucketName(project))
		if err != nil {
			return err
		}
		return bucket.Put([]byte(rag.Metadata.ChunkID), data)
	})
	if err != nil {
		return false, errors.StorageError(err, "save vector record")
	}
	return true, nil
}

// Search returns the k stored chunks most similar to query
func (s *BoltStore) Search(ctx context.Context, project, query string, k int) ([]Hit, error) {
	if query == "" || k <= 0 {
		return nil, nil
	}

	qvec, err := s.embedOne(ctx, query)
	if err != nil {
		return nil, err
	}
	qnorm := norm(qvec)

	var hits []Hit
	err = s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketName(project))
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(key, value []byte) error {
			var rec record
			if err := json.Unmarshal(value, &rec); err != nil {
				s.logger.Warn("skipping unreadable vector record", "chunk", string(key), "error", err)
				return nil
			}
			hits = append(hits, Hit{
				ChunkID: string(key),
				Score:   cosine(qvec, rec.Vector, qnorm),
				Text:    rec.Text,
				Rag:     rec.Rag,
			})
			return nil
		})
	})
	if err != nil {
		return nil, errors.StorageError(err, "search vector store")
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Count returns the number of records stored for project
func (s *BoltStore) Count(project string) (int, error) {
	n := 0
	err := s.db.View(func(tx *bolt.Tx) error {
		if bucket := tx.Bucket(bucketName(project)); bucket != nil {
			n = bucket.Stats().KeyN
		}
		return nil
	})
	return n, err
}

// Close releases the database file lock
func (s *BoltStore) Close() error {
	return s.db.Close()
}

func (s *BoltStore) embedOne(ctx context.Context, text string) ([]float32, error) {
	var lastErr error
	for attempt := 0; attempt <= s.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(s.backoff):
			}
		}
		vecs, err := s.embedder.Embed(ctx, []string{text})
		if err == nil && len(vecs) == 1 && len(vecs[0]) > 0 {
			return vecs[0], nil
		}
		if err == nil {
			err = fmt.Errorf("embedder returned %d vectors", len(vecs))
		}
		lastErr = err
		s.logger.Debug("embedding failed", "attempt", attempt+1, "error", err)
	}
	return nil, errors.LLMError(lastErr, "embed text")
}

func bucketName(project string) []byte {
	return []byte(bucketPrefix + project)
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// cosine similarity; vectors of different length or zero norm score 0
func cosine(q, v []float32, qnorm float64) float64 {
	if len(q) != len(v) || qnorm == 0 {
		return 0
	}
	vnorm := norm(v)
	if vnorm == 0 {
		return 0
	}
	var dot float64
	for i := range q {
		dot += float64(q[i]) * float64(v[i])
	}
	return dot / (qnorm * vnorm)
}
