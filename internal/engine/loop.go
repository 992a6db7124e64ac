package engine

import "context"

// StopCondition examines the iteration count and the input/output of
// the most recent iteration to decide whether to stop, same shape as
// the teacher's LoopNodeBuilder.WithStopCondition. The citation
// auditor's repair pass uses a Loop capped at one repair iteration.
type StopCondition[T any] func(ctx context.Context, iteration int, in, out T) (bool, error)

// Loop repeatedly runs body, feeding each iteration's output back in as
// the next iteration's input, until stop returns true or body errors.
type Loop[T any] struct {
	body Node[T, T]
	stop StopCondition[T]
}

// NewLoop creates a Loop around body with the given stop condition.
func NewLoop[T any](body Node[T, T], stop StopCondition[T]) *Loop[T] {
	return &Loop[T]{body: body, stop: stop}
}

// Run iterates body starting from in.
func (l *Loop[T]) Run(ctx context.Context, in T) (T, error) {
	cur := in
	for i := 0; ; i++ {
		out, err := l.body.Run(ctx, cur)
		if err != nil {
			return out, err
		}
		done, err := l.stop(ctx, i, cur, out)
		if err != nil {
			return out, err
		}
		cur = out
		if done {
			return cur, nil
		}
	}
}
