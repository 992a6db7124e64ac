package sources

import (
	"context"

	"github.com/researchmesh/citeforge/internal/engine"
	"github.com/researchmesh/citeforge/internal/llm"
	"github.com/researchmesh/citeforge/internal/model"
)

// CollectResult is the outcome of invoking every configured client for
// one query.
type CollectResult struct {
	Query    string
	Papers   []*model.Paper
	Errs     []error
}

// Collect invokes every client in clients against query in parallel
// and returns the concatenated raw papers, per spec §4.3 ("both are
// invoked in parallel per query, their results awaited together").
// A client's own search-quality refinement loop runs inline within its
// call.
func Collect(ctx context.Context, clients []Client, query string, capability llm.Capability) CollectResult {
	outcomes, _ := engine.Parallel(ctx, clients, len(clients), func(ctx context.Context, c Client) (CollectResult, error) {
		papers, _, err := SearchWithRefinement(ctx, c, query, capability)
		if err != nil {
			return CollectResult{Query: query, Errs: []error{err}}, nil
		}
		return CollectResult{Query: query, Papers: papers}, nil
	})

	merged := CollectResult{Query: query}
	for _, o := range outcomes {
		merged.Papers = append(merged.Papers, o.Papers...)
		merged.Errs = append(merged.Errs, o.Errs...)
	}
	return merged
}
