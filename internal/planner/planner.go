// Package planner implements the plan generator and query parser of
// spec §4.2: given a topic, it selects QUICK or FULL mode and
// synthesizes an ordered Plan of steps, each either a research step
// (search tool + queries) or an analysis/synthesis step.
//
// Grounded on Tangerg-lynx/ai/rag's query_expander_multi.go /
// query_transformer_rewrite.go shape (LLM call that turns one query
// into several, or rewrites a query) for the query-parsing half, and
// on internal/engine.Branch for mode-driven template selection.
package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/researchmesh/citeforge/internal/llm"
	"github.com/researchmesh/citeforge/internal/model"
)

// registeredTools is the closed vocabulary of tool names a step may
// reference (spec §4.2). Any other name is coerced to nil.
var registeredTools = map[string]struct{}{
	"search_source_a": {},
	"search_source_b": {},
	"fetch_pdf":       {},
}

// ToolAllowed reports whether name is a registered tool.
func ToolAllowed(name string) bool {
	_, ok := registeredTools[name]
	return ok
}

type rawStep struct {
	Action         string   `json:"action"`
	Title          string   `json:"title"`
	Tool           *string  `json:"tool"`
	Queries        []string `json:"queries"`
	ExpectedOutput string   `json:"expected_output"`
}

// Generate produces a Plan for topic. Internal search queries are
// always generated in English, regardless of the requested output
// language (spec §4.2), by instructing the LLM accordingly.
func Generate(ctx context.Context, capability llm.Capability, sessionID, topic, outputLanguage string) (*model.Plan, error) {
	mode := SelectMode(topic)

	system := fmt.Sprintf(
		"You are a research planner. Produce a JSON array of steps for the topic below. "+
			"Each step has: action (one of research, analyze, synthesize), title, tool "+
			"(one of %s, or null), queries (array of strings, English only even if the "+
			"final report language is %q), expected_output. Research steps must come "+
			"before analyze/synthesize steps. Respond with JSON only.",
		strings.Join(toolNames(), ", "), outputLanguage,
	)

	out, err := capability.Generate(ctx, llm.Request{System: system, Prompt: topic, JSONMode: true})
	if err != nil {
		return nil, err
	}

	var raw []rawStep
	if err := json.Unmarshal([]byte(out), &raw); err != nil {
		return nil, fmt.Errorf("planner: parse steps: %w", err)
	}

	steps := validate(raw)
	return &model.Plan{SessionID: sessionID, Mode: mode, Steps: steps}, nil
}

// validate coerces invalid tool names to nil and demotes such steps to
// analysis-only, and reorders so every research step precedes every
// analyze/synthesize step (spec §4.2 contract).
func validate(raw []rawStep) []model.Step {
	steps := make([]model.Step, 0, len(raw))
	for i, r := range raw {
		action := model.Action(r.Action)
		tool := r.Tool
		if tool != nil && !ToolAllowed(*tool) {
			tool = nil
		}
		if tool == nil && action == model.ActionResearch {
			action = model.ActionAnalyze
		}
		steps = append(steps, model.Step{
			ID:             i + 1,
			Action:         action,
			Title:          r.Title,
			Tool:           tool,
			Queries:        r.Queries,
			ExpectedOutput: r.ExpectedOutput,
		})
	}
	return reorderResearchFirst(steps)
}

// reorderResearchFirst is a stable partition: all research steps
// first (original relative order preserved), then everything else.
func reorderResearchFirst(steps []model.Step) []model.Step {
	research := make([]model.Step, 0, len(steps))
	rest := make([]model.Step, 0, len(steps))
	for _, s := range steps {
		if s.Action == model.ActionResearch {
			research = append(research, s)
		} else {
			rest = append(rest, s)
		}
	}
	out := append(research, rest...)
	for i := range out {
		out[i].ID = i + 1
	}
	return out
}

func toolNames() []string {
	names := make([]string, 0, len(registeredTools))
	for n := range registeredTools {
		names = append(names, n)
	}
	return names
}
