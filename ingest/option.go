package ingest

import (
	"log/slog"

	"github.com/foliolabs/folio"
)

// Option configures an Ingestor.
type Option func(*Ingestor)

// WithChunker replaces the default semantic chunker.
func WithChunker(c Chunker) Option {
	return func(ing *Ingestor) {
		if c != nil {
			ing.chunker = c
		}
	}
}

// WithExtractor registers an extractor for a content type, replacing
// any existing registration.
func WithExtractor(ct ContentType, e Extractor) Option {
	return func(ing *Ingestor) {
		if e != nil {
			ing.extractors[ct] = e
		}
	}
}

// WithEmbeddingCache puts a cache in front of the embedding provider.
func WithEmbeddingCache(c folio.EmbeddingCache) Option {
	return func(ing *Ingestor) {
		ing.cache = c
	}
}

// WithBatchSize sets how many chunks are embedded and inserted per
// batch. Zero or negative means the default batch size.
func WithBatchSize(n int) Option {
	return func(ing *Ingestor) {
		ing.batchSize = n
	}
}

// WithLogger sets the logger for pipeline progress output.
func WithLogger(logger *slog.Logger) Option {
	return func(ing *Ingestor) {
		if logger != nil {
			ing.logger = logger
		}
	}
}
