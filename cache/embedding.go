package cache

import (
	"context"
	"time"

	"github.com/foliolabs/folio"
)

// DefaultEmbeddingTTL is a day. Embeddings for a given text only change
// when the model changes, so a long TTL is safe.
const DefaultEmbeddingTTL = 24 * time.Hour

// EmbeddingCache caches embedding vectors keyed by their input text.
// Vectors are copied on the way in and out, so callers may mutate what
// they pass and what they receive without corrupting cached entries.
type EmbeddingCache struct {
	cache *Cache[[]float32]
}

var _ folio.EmbeddingCache = (*EmbeddingCache)(nil)

// NewEmbeddingCache creates an EmbeddingCache with a 24h default TTL.
// Options are applied on top, so WithTTL and WithStore work as for New.
func NewEmbeddingCache(opts ...Option) (*EmbeddingCache, error) {
	all := append([]Option{WithTTL(DefaultEmbeddingTTL)}, opts...)
	c, err := New[[]float32](all...)
	if err != nil {
		return nil, err
	}
	return &EmbeddingCache{cache: c}, nil
}

// GetEmbedding returns the cached vector for text, if live.
func (e *EmbeddingCache) GetEmbedding(ctx context.Context, text string) ([]float32, bool) {
	vec, ok := e.cache.Get(ctx, Key("embedding", text))
	if !ok {
		return nil, false
	}
	return cloneVector(vec), true
}

// SetEmbedding stores the vector for text.
func (e *EmbeddingCache) SetEmbedding(ctx context.Context, text string, embedding []float32) {
	e.cache.Set(ctx, Key("embedding", text), cloneVector(embedding))
}

// GetBatch returns vectors for all texts or nothing. If any single text
// is missing, the whole batch reports a miss so the caller recomputes
// uniformly instead of stitching partial results.
func (e *EmbeddingCache) GetBatch(ctx context.Context, texts []string) ([][]float32, bool) {
	vecs := make([][]float32, len(texts))
	for i, text := range texts {
		vec, ok := e.cache.Get(ctx, Key("embedding", text))
		if !ok {
			return nil, false
		}
		vecs[i] = cloneVector(vec)
	}
	return vecs, true
}

// SetBatch stores one vector per text. Extra entries in the longer slice
// are ignored.
func (e *EmbeddingCache) SetBatch(ctx context.Context, texts []string, embeddings [][]float32) {
	n := len(texts)
	if len(embeddings) < n {
		n = len(embeddings)
	}
	for i := 0; i < n; i++ {
		e.cache.Set(ctx, Key("embedding", texts[i]), cloneVector(embeddings[i]))
	}
}

// Stats reports per-tier entry counts.
func (e *EmbeddingCache) Stats(ctx context.Context) folio.CacheStats {
	return e.cache.Stats(ctx)
}

// Clear empties both tiers.
func (e *EmbeddingCache) Clear(ctx context.Context) error {
	return e.cache.Clear(ctx)
}

func cloneVector(src []float32) []float32 {
	if len(src) == 0 {
		return nil
	}
	dst := make([]float32, len(src))
	copy(dst, src)
	return dst
}
