package engine

import (
	"context"
	"fmt"
)

// RouteSelector inspects the input and returns the route key to follow,
// the same signature shape as the teacher's
// BranchNodeBuilder.WithRouteSelector.
type RouteSelector[T any] func(ctx context.Context, in T) (string, error)

// Branch picks one of several same-typed Nodes by route key. The
// orchestrator uses Branch to select the QUICK or FULL phase chain for
// a session.
type Branch[T any] struct {
	selector RouteSelector[T]
	routes   map[string]Node[T, T]
}

// NewBranch creates a Branch keyed by selector, with no routes yet.
func NewBranch[T any](selector RouteSelector[T]) *Branch[T] {
	return &Branch[T]{selector: selector, routes: map[string]Node[T, T]{}}
}

// AddRoute registers the node to run when selector returns route.
func (b *Branch[T]) AddRoute(route string, n Node[T, T]) *Branch[T] {
	b.routes[route] = n
	return b
}

// Run evaluates the selector then runs the matching route.
func (b *Branch[T]) Run(ctx context.Context, in T) (T, error) {
	route, err := b.selector(ctx, in)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("branch: route selection failed: %w", err)
	}
	n, ok := b.routes[route]
	if !ok {
		var zero T
		return zero, fmt.Errorf("branch: no route registered for %q", route)
	}
	return n.Run(ctx, in)
}
