package folio

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Ingestor turns raw file content into indexed, embedded chunks. The
// canonical implementation lives in the ingest package.
type Ingestor interface {
	Ingest(ctx context.Context, content []byte, filename string) (*IngestResult, error)
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithEngineLogger sets the logger for engine lifecycle output.
func WithEngineLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// Engine is the top-level handle over a wired pipeline: an index, the
// ingestor that fills it, and the retriever that queries it. Build one
// Engine at startup and pass it to every call site.
//
// The index schema is initialized lazily. The first operation to need it
// runs Index.Init exactly once; concurrent first callers block until
// that single initialization finishes and all of them observe its
// outcome. A failed initialization is sticky, so a broken index surfaces
// the same error on every call instead of retrying behind the caller's
// back.
type Engine struct {
	index     Index
	ingestor  Ingestor
	retriever Retriever
	logger    *slog.Logger

	initOnce sync.Once
	initErr  error
}

// NewEngine wires an Engine from its three components. The components
// should share the same index value, but the Engine does not check this.
func NewEngine(index Index, ingestor Ingestor, retriever Retriever, opts ...EngineOption) *Engine {
	e := &Engine{
		index:     index,
		ingestor:  ingestor,
		retriever: retriever,
		logger:    nopLogger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Init initializes the index schema eagerly. Calling it is optional;
// every operation initializes on first use.
func (e *Engine) Init(ctx context.Context) error {
	return e.ensureInit(ctx)
}

func (e *Engine) ensureInit(ctx context.Context) error {
	e.initOnce.Do(func() {
		e.initErr = e.index.Init(ctx)
		if e.initErr != nil {
			e.logger.Error("index init failed", "error", e.initErr)
		}
	})
	return e.initErr
}

// Ingest extracts, chunks, embeds, and indexes one file.
func (e *Engine) Ingest(ctx context.Context, content []byte, filename string) (*IngestResult, error) {
	if err := e.ensureInit(ctx); err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}
	return e.ingestor.Ingest(ctx, content, filename)
}

// Ask returns the topK chunks most relevant to the query.
func (e *Engine) Ask(ctx context.Context, query string, topK int) ([]ScoredChunk, error) {
	if err := e.ensureInit(ctx); err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}
	return e.retriever.Retrieve(ctx, query, topK)
}

// Documents lists up to limit ingested documents, newest first.
func (e *Engine) Documents(ctx context.Context, limit int) ([]Document, error) {
	if err := e.ensureInit(ctx); err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}
	return e.index.Documents(ctx, limit)
}

// ChunkCount returns the number of chunks stored for one document.
func (e *Engine) ChunkCount(ctx context.Context, documentID string) (int, error) {
	if err := e.ensureInit(ctx); err != nil {
		return 0, fmt.Errorf("init index: %w", err)
	}
	return e.index.ChunkCount(ctx, documentID)
}

// DeleteDocument removes a document and its chunks from the index.
func (e *Engine) DeleteDocument(ctx context.Context, id string) error {
	if err := e.ensureInit(ctx); err != nil {
		return fmt.Errorf("init index: %w", err)
	}
	return e.index.DeleteDocument(ctx, id)
}

// Count returns the number of indexed chunks.
func (e *Engine) Count(ctx context.Context) (int, error) {
	if err := e.ensureInit(ctx); err != nil {
		return 0, fmt.Errorf("init index: %w", err)
	}
	return e.index.Count(ctx)
}

// Clear removes every document and chunk from the index.
func (e *Engine) Clear(ctx context.Context) error {
	if err := e.ensureInit(ctx); err != nil {
		return fmt.Errorf("init index: %w", err)
	}
	return e.index.Clear(ctx)
}

// Close releases the underlying index.
func (e *Engine) Close() error {
	return e.index.Close()
}
