package observer

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/foliolabs/folio"
)

// ObservedIndex wraps a folio.Index with OTEL instrumentation on the hot
// operations (Add and Search); the rest delegate untouched.
type ObservedIndex struct {
	inner   folio.Index
	inst    *Instruments
	backend string
}

// WrapIndex returns an instrumented index. The backend label identifies
// the implementation in spans and metrics (e.g. "sqlite", "postgres").
func WrapIndex(inner folio.Index, backend string, inst *Instruments) *ObservedIndex {
	return &ObservedIndex{inner: inner, inst: inst, backend: backend}
}

func (o *ObservedIndex) Add(ctx context.Context, doc folio.Document, chunks []folio.Chunk) error {
	ctx, span := o.inst.Tracer.Start(ctx, "index.add", trace.WithAttributes(
		AttrIndexBackend.String(o.backend),
		AttrIndexChunks.Int(len(chunks)),
	))
	defer span.End()
	start := time.Now()

	err := o.inner.Add(ctx, doc, chunks)

	durationMs := float64(time.Since(start).Milliseconds())
	status := "ok"
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	o.inst.IndexRequests.Add(ctx, 1, metric.WithAttributes(
		AttrIndexBackend.String(o.backend),
		AttrIndexOp.String("add"),
		AttrStatus.String(status),
	))
	o.inst.IndexAddDuration.Record(ctx, durationMs, metric.WithAttributes(
		AttrIndexBackend.String(o.backend),
	))
	return err
}

func (o *ObservedIndex) Search(ctx context.Context, embedding []float32, topK int) ([]folio.ScoredChunk, error) {
	ctx, span := o.inst.Tracer.Start(ctx, "index.search", trace.WithAttributes(
		AttrIndexBackend.String(o.backend),
		AttrIndexTopK.Int(topK),
	))
	defer span.End()
	start := time.Now()

	results, err := o.inner.Search(ctx, embedding, topK)

	durationMs := float64(time.Since(start).Milliseconds())
	status := "ok"
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(AttrIndexResults.Int(len(results)))
	}
	o.inst.IndexRequests.Add(ctx, 1, metric.WithAttributes(
		AttrIndexBackend.String(o.backend),
		AttrIndexOp.String("search"),
		AttrStatus.String(status),
	))
	o.inst.SearchDuration.Record(ctx, durationMs, metric.WithAttributes(
		AttrIndexBackend.String(o.backend),
	))
	return results, err
}

func (o *ObservedIndex) Init(ctx context.Context) error { return o.inner.Init(ctx) }

func (o *ObservedIndex) Count(ctx context.Context) (int, error) { return o.inner.Count(ctx) }

func (o *ObservedIndex) Documents(ctx context.Context, limit int) ([]folio.Document, error) {
	return o.inner.Documents(ctx, limit)
}

func (o *ObservedIndex) ChunkCount(ctx context.Context, documentID string) (int, error) {
	return o.inner.ChunkCount(ctx, documentID)
}

func (o *ObservedIndex) DeleteDocument(ctx context.Context, id string) error {
	return o.inner.DeleteDocument(ctx, id)
}

func (o *ObservedIndex) Clear(ctx context.Context) error { return o.inner.Clear(ctx) }

func (o *ObservedIndex) Close() error { return o.inner.Close() }

var _ folio.Index = (*ObservedIndex)(nil)
