package engine

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Parallel runs worker over every item concurrently, bounded by limit
// (0 means unbounded), and returns the per-item results in input order.
// A failing item never cancels its siblings; errors are collected and
// returned joined.
//
// Grounded on the teacher's ai/rag/pipeline.go retrieveByQuery/
// retrieveByQueries pattern: errgroup.WithContext + SetLimit, results
// collected under a mutex and reassembled in order. Used by the
// screener and evidence extractor to fan out per-paper/per-batch LLM
// calls, and by the external-source clients to invoke source A and B
// concurrently.
func Parallel[I, O any](ctx context.Context, items []I, limit int, worker Processor[I, O]) ([]O, error) {
	results := make([]O, len(items))
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	var (
		mu     sync.Mutex
		errs   []error
	)

	for idx, item := range items {
		g.Go(func() error {
			out, err := worker(gctx, item)
			if err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("item %d: %w", idx, err))
				mu.Unlock()
				return nil // partial failure: don't cancel siblings
			}
			results[idx] = out
			return nil
		})
	}

	_ = g.Wait()

	if len(errs) > 0 {
		joined := errs[0]
		for _, e := range errs[1:] {
			joined = fmt.Errorf("%w; %w", joined, e)
		}
		return results, joined
	}
	return results, nil
}
