package observer

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/foliolabs/folio/ingest"
)

// ObservedChunker wraps an ingest.Chunker with a duration histogram.
// Chunking takes no context, so measurements attach to the background
// context.
type ObservedChunker struct {
	inner    ingest.Chunker
	inst     *Instruments
	strategy string
}

// WrapChunker returns an instrumented chunker. The strategy label
// identifies the algorithm in metrics (e.g. "semantic", "recursive").
func WrapChunker(inner ingest.Chunker, strategy string, inst *Instruments) *ObservedChunker {
	return &ObservedChunker{inner: inner, inst: inst, strategy: strategy}
}

func (o *ObservedChunker) Chunk(text string) []string {
	start := time.Now()
	chunks := o.inner.Chunk(text)
	o.inst.ChunkDuration.Record(context.Background(), float64(time.Since(start).Milliseconds()),
		metric.WithAttributes(AttrChunkStrategy.String(o.strategy)))
	return chunks
}

var _ ingest.Chunker = (*ObservedChunker)(nil)
