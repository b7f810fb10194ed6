package folio

import "context"

// Index abstracts the vector index that stores chunks and answers
// nearest-neighbor queries. Implementations live in store/sqlite and
// store/postgres.
type Index interface {
	// Init creates any required schema. Safe to call multiple times.
	Init(ctx context.Context) error

	// Add stores a document and all its chunks atomically.
	// Chunks are expected to carry embeddings.
	Add(ctx context.Context, doc Document, chunks []Chunk) error

	// Search returns the topK chunks nearest to the query embedding,
	// sorted by score descending.
	Search(ctx context.Context, embedding []float32, topK int) ([]ScoredChunk, error)

	// Count returns the number of chunks currently indexed.
	Count(ctx context.Context) (int, error)

	// Documents returns up to limit documents, most recent first.
	Documents(ctx context.Context, limit int) ([]Document, error)

	// ChunkCount returns the number of chunks belonging to a document.
	ChunkCount(ctx context.Context, documentID string) (int, error)

	// DeleteDocument removes a document and all its chunks.
	DeleteDocument(ctx context.Context, id string) error

	// Clear removes all documents and chunks.
	Clear(ctx context.Context) error

	Close() error
}
