package llm

import (
	"context"
	"errors"

	"github.com/cenkalti/backoff/v4"
)

// WithRetry wraps a Capability so that transient failures are retried
// with exponential backoff up to 3 attempts (spec §7 category 1);
// permanent failures and contract violations pass straight through
// unretried.
//
// Grounded on the teacher's evaluator-call shape (ai/evaluation) for
// "one call, one typed result" plus github.com/cenkalti/backoff/v4,
// already present indirectly in the pack's vectorstores/go.mod.
func WithRetry(c Capability) Capability {
	return &retrying{inner: c}
}

type retrying struct {
	inner Capability
}

func (r *retrying) Generate(ctx context.Context, req Request) (string, error) {
	var out string
	op := func() error {
		var err error
		out, err = r.inner.Generate(ctx, req)
		if err != nil && errors.Is(err, ErrTransient) {
			return err
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}

	// Two retries after the first call: 3 attempts in all.
	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2)
	err := backoff.Retry(op, backoff.WithContext(policy, ctx))
	return out, err
}

func (r *retrying) GenerateStream(ctx context.Context, req Request) func(func(string, error) bool) {
	// Streaming responses are not restarted mid-stream (spec §9); a
	// transient failure mid-stream is surfaced to the consumer as-is.
	return r.inner.GenerateStream(ctx, req)
}

func (r *retrying) CountTokens(text string) int {
	return r.inner.CountTokens(text)
}
