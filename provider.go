package folio

import "context"

// EmbeddingProvider abstracts text embedding.
// Embed must return one vector per input text, in input order; anything
// else is a provider error and is surfaced to the caller.
type EmbeddingProvider interface {
	// Embed returns embedding vectors for the given texts.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	// Dimensions returns the embedding vector size.
	Dimensions() int
	// Name returns the provider name.
	Name() string
}
