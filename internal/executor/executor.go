// Package executor implements the plan executor of spec §2 component
// 9: it walks a Plan's steps in order, invoking the registered tool
// for each research step and feeding results forward as collected
// papers. Analysis/synthesis steps are no-ops here; later phases
// consume the accumulated papers directly.
//
// Grounded on internal/engine.Chain for "run these nodes in sequence,
// threading one piece of state through", generalized from
// Tangerg-lynx/flow's Sequence node.
package executor

import (
	"context"

	"github.com/researchmesh/citeforge/internal/llm"
	"github.com/researchmesh/citeforge/internal/model"
	"github.com/researchmesh/citeforge/internal/sources"
)

// ToolInvoker dispatches one research step's queries to the right
// source client(s) and returns the papers collected.
type ToolInvoker func(ctx context.Context, tool string, queries []string) ([]*model.Paper, error)

// NewToolInvoker builds a ToolInvoker that fans a step's queries out
// to clients (source A, source B) in parallel, one query at a time,
// merging every client's and every query's results.
func NewToolInvoker(clients []sources.Client, capability llm.Capability) ToolInvoker {
	return func(ctx context.Context, _ string, queries []string) ([]*model.Paper, error) {
		var all []*model.Paper
		for _, q := range queries {
			if err := ctx.Err(); err != nil {
				return all, err
			}
			result := sources.Collect(ctx, clients, q, capability)
			all = append(all, result.Papers...)
		}
		return all, nil
	}
}

// Run executes every research step of plan in order, returning the
// concatenated collected papers. Non-research steps are skipped: they
// carry no tool to invoke at this stage (spec §4.2/§4.9+ consume the
// analysis/synthesis steps' intent implicitly via later phases, not
// via tool dispatch).
func Run(ctx context.Context, plan *model.Plan, invoke ToolInvoker) ([]*model.Paper, error) {
	var collected []*model.Paper
	for i := range plan.Steps {
		step := &plan.Steps[i]
		if step.Action != model.ActionResearch || step.Tool == nil {
			continue
		}
		papers, err := invoke(ctx, *step.Tool, step.Queries)
		if err != nil {
			return collected, err
		}
		collected = append(collected, papers...)
		step.Completed = true
	}
	return collected, nil
}
