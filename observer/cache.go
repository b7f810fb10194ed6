package observer

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/metric"

	"github.com/foliolabs/folio"
	"github.com/foliolabs/folio/cache"
)

// ObservedCache wraps a folio.EmbeddingCache with hit and miss counters.
// Cache operations are sub-millisecond and high-frequency, so they get
// counters rather than spans.
type ObservedCache struct {
	inner folio.EmbeddingCache
	inst  *Instruments
}

// WrapCache returns an instrumented embedding cache.
func WrapCache(inner folio.EmbeddingCache, inst *Instruments) *ObservedCache {
	return &ObservedCache{inner: inner, inst: inst}
}

func (o *ObservedCache) GetEmbedding(ctx context.Context, text string) ([]float32, bool) {
	vec, ok := o.inner.GetEmbedding(ctx, text)
	o.count(ctx, "get_embedding", ok)
	return vec, ok
}

func (o *ObservedCache) SetEmbedding(ctx context.Context, text string, embedding []float32) {
	o.inner.SetEmbedding(ctx, text, embedding)
}

func (o *ObservedCache) GetBatch(ctx context.Context, texts []string) ([][]float32, bool) {
	vecs, ok := o.inner.GetBatch(ctx, texts)
	o.count(ctx, "get_batch", ok)
	return vecs, ok
}

func (o *ObservedCache) SetBatch(ctx context.Context, texts []string, embeddings [][]float32) {
	o.inner.SetBatch(ctx, texts, embeddings)
}

func (o *ObservedCache) count(ctx context.Context, op string, hit bool) {
	attrs := metric.WithAttributes(
		AttrCacheOp.String(op),
		AttrCacheTier.String("cache"),
	)
	if hit {
		o.inst.CacheHits.Add(ctx, 1, attrs)
	} else {
		o.inst.CacheMisses.Add(ctx, 1, attrs)
	}
}

// ObservedStore wraps a cache.Store with tier-level counters. A
// successful read is counted as a promotion, since the two-tier cache
// reads the persistent tier only to move an entry toward memory.
type ObservedStore struct {
	inner cache.Store
	tier  string
	inst  *Instruments
}

// WrapStore returns an instrumented persistent tier. The tier label
// distinguishes backends in metrics (e.g. "fs", "sqlite", "redis").
func WrapStore(inner cache.Store, tier string, inst *Instruments) *ObservedStore {
	return &ObservedStore{inner: inner, tier: tier, inst: inst}
}

func (o *ObservedStore) Read(ctx context.Context, key string) ([]byte, int64, error) {
	payload, createdAt, err := o.inner.Read(ctx, key)
	attrs := metric.WithAttributes(
		AttrCacheOp.String("read"),
		AttrCacheTier.String(o.tier),
	)
	switch {
	case err == nil:
		o.inst.CacheHits.Add(ctx, 1, attrs)
		o.inst.CachePromotions.Add(ctx, 1, metric.WithAttributes(AttrCacheTier.String(o.tier)))
	case errors.Is(err, cache.ErrNotFound):
		o.inst.CacheMisses.Add(ctx, 1, attrs)
	}
	return payload, createdAt, err
}

func (o *ObservedStore) Write(ctx context.Context, key string, payload []byte, createdAt int64) error {
	return o.inner.Write(ctx, key, payload, createdAt)
}

func (o *ObservedStore) Delete(ctx context.Context, key string) error {
	return o.inner.Delete(ctx, key)
}

func (o *ObservedStore) Len(ctx context.Context) (int, error) {
	return o.inner.Len(ctx)
}

func (o *ObservedStore) Clear(ctx context.Context) error {
	return o.inner.Clear(ctx)
}

// compile-time checks
var (
	_ folio.EmbeddingCache = (*ObservedCache)(nil)
	_ cache.Store          = (*ObservedStore)(nil)
)
