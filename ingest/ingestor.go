package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/foliolabs/folio"
)

// nopLogger discards all output. Used when WithLogger is not set.
var nopLogger = slog.New(discardHandler{})

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }

// Ingestor runs the full ingestion pipeline: extract text from raw
// file content, normalize and chunk it, embed the chunks in batches
// through an optional cache, and store everything in the index.
type Ingestor struct {
	index      folio.Index
	provider   folio.EmbeddingProvider
	chunker    Chunker
	extractors map[ContentType]Extractor
	cache      folio.EmbeddingCache
	batchSize  int
	logger     *slog.Logger
}

var _ folio.Ingestor = (*Ingestor)(nil)

// NewIngestor returns an Ingestor wired to the given index and
// embedding provider. By default it chunks semantically with the
// default size and overlap, handles plain text, Markdown and HTML,
// and runs without an embedding cache. PDF support lives in the pdf
// subpackage and is registered with WithExtractor.
func NewIngestor(index folio.Index, provider folio.EmbeddingProvider, opts ...Option) *Ingestor {
	ing := &Ingestor{
		index:    index,
		provider: provider,
		chunker:  &SemanticChunker{size: DefaultChunkSize, overlap: DefaultChunkOverlap},
		extractors: map[ContentType]Extractor{
			TypePlainText: PlainTextExtractor{},
			TypeHTML:      HTMLExtractor{},
			TypeMarkdown:  NewMarkdownExtractor(),
		},
		logger: nopLogger,
	}
	for _, opt := range opts {
		opt(ing)
	}
	return ing
}

// Ingest extracts, chunks, embeds, and indexes one file. The filename
// determines the extractor and is recorded as the document source.
func (ing *Ingestor) Ingest(ctx context.Context, content []byte, filename string) (*folio.IngestResult, error) {
	start := time.Now()

	ct := ContentTypeFromExtension(filepath.Ext(filename))
	extractor, ok := ing.extractors[ct]
	if !ok {
		return nil, fmt.Errorf("no extractor registered for content type %s", ct)
	}
	raw, err := extractor.Extract(content)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", filename, err)
	}
	ing.logger.Debug("ingest: extracted text",
		"source", filename, "content_type", string(ct), "bytes", len(raw))

	return ing.ingestText(ctx, Normalize(raw), filename, start)
}

// IngestText indexes already extracted text under the given source
// name, skipping content type detection and extraction.
func (ing *Ingestor) IngestText(ctx context.Context, text, source string) (*folio.IngestResult, error) {
	return ing.ingestText(ctx, Normalize(text), source, time.Now())
}

func (ing *Ingestor) ingestText(ctx context.Context, text, source string, start time.Time) (*folio.IngestResult, error) {
	if text == "" {
		return nil, fmt.Errorf("no text content in %s", source)
	}

	doc := folio.Document{
		ID:        folio.NewID(),
		Title:     filepath.Base(source),
		Source:    source,
		Content:   text,
		CreatedAt: folio.NowUnix(),
	}

	chunkTexts := ing.chunker.Chunk(text)
	if len(chunkTexts) == 0 {
		return nil, fmt.Errorf("no chunks produced for %s", source)
	}

	chunks := make([]folio.Chunk, 0, len(chunkTexts))
	cached := 0
	for _, batch := range folio.PrepareBatches(chunkTexts, doc.ID, ing.batchSize) {
		embeddings, fromCache, err := ing.embedBatch(ctx, batch.Texts)
		if err != nil {
			return nil, fmt.Errorf("embed chunks for %s: %w", source, err)
		}
		if fromCache {
			cached += batch.Len()
		}
		for i := range batch.Texts {
			chunks = append(chunks, folio.Chunk{
				ID:         batch.IDs[i],
				DocumentID: doc.ID,
				Content:    batch.Texts[i],
				ChunkIndex: batch.Metas[i].ChunkIndex,
				Embedding:  embeddings[i],
			})
		}
	}

	if err := ing.index.Add(ctx, doc, chunks); err != nil {
		return nil, fmt.Errorf("index %s: %w", source, err)
	}

	result := &folio.IngestResult{
		Document:   doc,
		ChunkCount: len(chunks),
		Cached:     cached,
		Duration:   time.Since(start),
	}
	ing.logger.Info("ingest: document indexed",
		"doc_id", doc.ID,
		"source", doc.Source,
		"chunks", result.ChunkCount,
		"cached", result.Cached,
		"duration", result.Duration)
	return result, nil
}

// embedBatch embeds one batch of texts, serving the whole batch from
// cache when every text is present. Fresh embeddings are written back
// so the next run with the same content skips the provider.
func (ing *Ingestor) embedBatch(ctx context.Context, texts []string) ([][]float32, bool, error) {
	if ing.cache != nil {
		if embeddings, ok := ing.cache.GetBatch(ctx, texts); ok {
			return embeddings, true, nil
		}
	}
	embeddings, err := ing.provider.Embed(ctx, texts)
	if err != nil {
		return nil, false, err
	}
	if len(embeddings) != len(texts) {
		return nil, false, &folio.ErrEmbedding{
			Provider: ing.provider.Name(),
			Message:  fmt.Sprintf("got %d embeddings for %d texts", len(embeddings), len(texts)),
		}
	}
	if ing.cache != nil {
		ing.cache.SetBatch(ctx, texts, embeddings)
	}
	return embeddings, false, nil
}
