package folio

import "time"

// --- Domain types (index records) ---

// Document is an ingested source text.
type Document struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Source    string `json:"source"`
	Content   string `json:"content"`
	CreatedAt int64  `json:"created_at"`
}

// Chunk is an ordered unit of text produced by a chunker.
// ChunkIndex is assigned sequentially starting at 0 per document.
type Chunk struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"document_id"`
	Content    string    `json:"content"`
	ChunkIndex int       `json:"chunk_index"`
	Embedding  []float32 `json:"-"`
}

// ScoredChunk pairs a chunk with its similarity score.
// Score is in [0, 1]; higher means more relevant.
type ScoredChunk struct {
	Chunk
	Score float32 `json:"score"`
}

// ChunkMeta is the positional metadata attached to each chunk when
// batches are prepared for the index.
type ChunkMeta struct {
	Source     string `json:"source"`
	ChunkIndex int    `json:"chunk_index"`
	Length     int    `json:"length"`
}

// CacheStats reports per-tier entry counts for a keyed cache.
type CacheStats struct {
	MemoryItems     int `json:"memory_items"`
	PersistentItems int `json:"persistent_items"`
}

// IngestResult summarizes one completed ingestion.
type IngestResult struct {
	Document   Document      `json:"document"`
	ChunkCount int           `json:"chunk_count"`
	Cached     int           `json:"cached"` // embeddings served from cache
	Duration   time.Duration `json:"duration"`
}
