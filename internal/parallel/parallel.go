// Package parallel provides a bounded, order-preserving fan-out helper
// shared by PDF page extraction and multi-file ingestion.
package parallel

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Map applies fn to every input on up to workers goroutines and returns
// the results in input order. Each goroutine writes only its own result
// slot, so completion order never reorders the output. The first error
// cancels the context passed to the remaining calls and is returned.
// A workers value below one means no concurrency limit.
func Map[In, Out any](ctx context.Context, workers int, inputs []In, fn func(ctx context.Context, i int, in In) (Out, error)) ([]Out, error) {
	out := make([]Out, len(inputs))
	if len(inputs) == 0 {
		return out, nil
	}

	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, in := range inputs {
		g.Go(func() error {
			res, err := fn(ctx, i, in)
			if err != nil {
				return err
			}
			out[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
