package engine

import "context"

// Chain sequences same-typed Nodes, the way the orchestrator chains
// phase runners (each phase runner is Node[*model.Session, *model.Session]).
// It mirrors the teacher's Flow.Then()/Run() chaining but is typed
// rather than erased to `any`, since every phase in this domain shares
// one input/output type.
type Chain[T any] struct {
	nodes []Node[T, T]
}

// NewChain builds a Chain from an ordered list of nodes.
func NewChain[T any](nodes ...Node[T, T]) *Chain[T] {
	return &Chain[T]{nodes: nodes}
}

// Append adds a node to the end of the chain and returns the chain for
// fluent construction, mirroring the teacher's Flow.Then() ergonomics.
func (c *Chain[T]) Append(n Node[T, T]) *Chain[T] {
	c.nodes = append(c.nodes, n)
	return c
}

// Run executes each node in order, feeding each node's output as the
// next node's input, stopping at the first error.
func (c *Chain[T]) Run(ctx context.Context, in T) (T, error) {
	cur := in
	for _, n := range c.nodes {
		out, err := n.Run(ctx, cur)
		if err != nil {
			return out, err
		}
		cur = out
	}
	return cur, nil
}
