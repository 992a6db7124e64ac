// Package engine generalizes the teacher's generic flow-composition
// library into the engine that drives the pipeline orchestrator's
// phase sequence and the plan executor's per-step fan-out.
//
// A Chain sequences Nodes; Branch selects between the QUICK and FULL phase
// templates; Parallel fans out per-paper screening/extraction calls;
// Loop drives the citation-audit repair pass.
package engine

import "context"

// Processor transforms an input into an output, same shape as the
// teacher's flow.Processor[any, any] but kept generic here so callers
// get compile-time typed phase/step functions instead of casting any.
type Processor[I, O any] func(ctx context.Context, in I) (O, error)

// Node is the uniform execution unit a Flow chains together.
type Node[I, O any] interface {
	Run(ctx context.Context, in I) (O, error)
}

// processorNode adapts a bare Processor into a Node.
type processorNode[I, O any] struct {
	fn Processor[I, O]
}

func (p processorNode[I, O]) Run(ctx context.Context, in I) (O, error) {
	return p.fn(ctx, in)
}

// NodeFunc wraps a Processor as a Node.
func NodeFunc[I, O any](fn Processor[I, O]) Node[I, O] {
	return processorNode[I, O]{fn: fn}
}
