package folio

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Retriever finds the chunks most relevant to a natural-language query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int) ([]ScoredChunk, error)
}

// RetrieverOption configures a VectorRetriever.
type RetrieverOption func(*retrieverConfig)

type retrieverConfig struct {
	minScore float32
	cache    EmbeddingCache
	logger   *slog.Logger
}

// WithMinScore drops results scoring below the threshold. Zero keeps
// everything the index returns.
func WithMinScore(score float32) RetrieverOption {
	return func(c *retrieverConfig) { c.minScore = score }
}

// WithQueryCache reuses cached query embeddings instead of calling the
// provider on every Retrieve.
func WithQueryCache(cache EmbeddingCache) RetrieverOption {
	return func(c *retrieverConfig) { c.cache = cache }
}

// WithRetrieverLogger sets the logger for retrieval debug output.
func WithRetrieverLogger(logger *slog.Logger) RetrieverOption {
	return func(c *retrieverConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// VectorRetriever embeds the query and runs a similarity search against
// the index. The requested result count is clamped to the index size, so
// callers may ask for more results than exist without error.
type VectorRetriever struct {
	index     Index
	embedding EmbeddingProvider
	cfg       retrieverConfig
}

var _ Retriever = (*VectorRetriever)(nil)

// NewRetriever builds a VectorRetriever over the given index and
// embedding provider.
func NewRetriever(index Index, embedding EmbeddingProvider, opts ...RetrieverOption) *VectorRetriever {
	cfg := retrieverConfig{logger: nopLogger}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &VectorRetriever{index: index, embedding: embedding, cfg: cfg}
}

// Retrieve returns up to topK chunks ranked by similarity to the query.
// An empty index yields an empty result, not an error.
func (r *VectorRetriever) Retrieve(ctx context.Context, query string, topK int) ([]ScoredChunk, error) {
	start := time.Now()

	count, err := r.index.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count index: %w", err)
	}
	topK = NormalizeResultCount(topK, count)
	if topK == 0 {
		return nil, nil
	}

	vec, err := r.embedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	results, err := r.index.Search(ctx, vec, topK)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}
	if r.cfg.minScore > 0 {
		kept := results[:0]
		for _, sc := range results {
			if sc.Score >= r.cfg.minScore {
				kept = append(kept, sc)
			}
		}
		results = kept
	}

	r.cfg.logger.Debug("retrieved chunks",
		"query_len", len(query),
		"top_k", topK,
		"results", len(results),
		"duration", time.Since(start))
	return results, nil
}

func (r *VectorRetriever) embedQuery(ctx context.Context, query string) ([]float32, error) {
	if r.cfg.cache != nil {
		if vec, ok := r.cfg.cache.GetEmbedding(ctx, query); ok {
			return vec, nil
		}
	}
	vecs, err := r.embedding.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 {
		return nil, &ErrEmbedding{Provider: r.embedding.Name(), Message: fmt.Sprintf("expected 1 embedding, got %d", len(vecs))}
	}
	if r.cfg.cache != nil {
		r.cfg.cache.SetEmbedding(ctx, query, vecs[0])
	}
	return vecs[0], nil
}
