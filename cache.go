package folio

import "context"

// EmbeddingCache stores computed embeddings keyed by their input text so
// repeated ingestion and repeated queries skip the provider round trip.
//
// Writes never fail from the caller's perspective. Implementations log
// and swallow storage errors, because a cache that cannot persist is
// still a working cache.
type EmbeddingCache interface {
	// GetEmbedding returns the cached embedding for text, if present.
	GetEmbedding(ctx context.Context, text string) ([]float32, bool)

	// SetEmbedding stores the embedding for text.
	SetEmbedding(ctx context.Context, text string, embedding []float32)

	// GetBatch returns embeddings for all texts, or ok=false if any
	// single text is missing. Partial hits are not returned.
	GetBatch(ctx context.Context, texts []string) ([][]float32, bool)

	// SetBatch stores one embedding per text. Both slices must have the
	// same length.
	SetBatch(ctx context.Context, texts []string, embeddings [][]float32)
}
