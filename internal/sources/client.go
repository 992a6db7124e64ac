// Package sources implements the rate-limited adapters to the two
// external academic-search backends (spec §4.3): a primary academic
// index (source A) and a broader metadata index (source B). Both are
// invoked in parallel per query and their raw results merged before
// deduplication.
//
// Grounded on Tangerg-lynx/ai/rag's parallel retrieveByQueries fan-out
// shape, reused here through internal/engine.Parallel.
package sources

import (
	"context"
	"strings"

	"github.com/researchmesh/citeforge/internal/llm"
	"github.com/researchmesh/citeforge/internal/model"
	"github.com/researchmesh/citeforge/pkg/strutil"
)

// Client is one external search backend.
type Client interface {
	// Name identifies the client in logs and blocklist decisions.
	Name() string
	// Search runs a single query against the backend and returns raw
	// papers (Status left unset; the caller assigns model.StatusRaw).
	Search(ctx context.Context, query string) ([]*model.Paper, error)
}

// maxRefinementRounds bounds the query-quality refinement loop (spec
// §4.3: "maximum 2 refinement rounds per search step").
const maxRefinementRounds = 2

// qualityThreshold is the fraction of returned titles that must share
// no keyword with the query before a refinement is triggered (spec
// §4.3: "≥ 80% of returned titles share no keyword token with the
// query").
const qualityThreshold = 0.8

// SearchWithRefinement runs query against client, and if the result
// set fails the query-quality check, attempts up to maxRefinementRounds
// reformulations: first an LLM-proposed rewrite, then on failure a
// heuristic cascade (spec §4.3).
func SearchWithRefinement(ctx context.Context, client Client, query string, capability llm.Capability) ([]*model.Paper, string, error) {
	current := query
	var results []*model.Paper
	var err error

	for round := 0; round <= maxRefinementRounds; round++ {
		results, err = client.Search(ctx, current)
		if err != nil {
			return nil, current, err
		}
		if !queryQualityPoor(current, results) {
			return results, current, nil
		}
		if round == maxRefinementRounds {
			break
		}
		current, err = refineQuery(ctx, current, capability)
		if err != nil {
			current = heuristicRefine(current, round)
		}
	}
	return results, current, nil
}

// queryQualityPoor reports whether at least qualityThreshold of the
// returned titles share no significant token with the query.
func queryQualityPoor(query string, results []*model.Paper) bool {
	if len(results) == 0 {
		return false
	}
	queryTokens := strutil.SignificantTokens(query)
	if len(queryTokens) == 0 {
		return false
	}
	qset := make(map[string]struct{}, len(queryTokens))
	for _, t := range queryTokens {
		qset[t] = struct{}{}
	}

	miss := 0
	for _, p := range results {
		overlap := false
		for _, t := range strutil.SignificantTokens(p.Title) {
			if _, ok := qset[t]; ok {
				overlap = true
				break
			}
		}
		if !overlap {
			miss++
		}
	}
	return float64(miss)/float64(len(results)) >= qualityThreshold
}

// refineQuery asks the LLM for one reformulation of query.
func refineQuery(ctx context.Context, query string, capability llm.Capability) (string, error) {
	if capability == nil {
		return "", llm.ErrPermanent
	}
	out, err := capability.Generate(ctx, llm.Request{
		System: "Rewrite the search query to return more relevant academic papers. Reply with only the rewritten query, no explanation.",
		Prompt: query,
	})
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", llm.ErrPermanent
	}
	return out, nil
}

// heuristicRefine applies the fallback cascade of spec §4.3: strip
// version suffixes on round 0, try each adjacent 2-word pair, then
// append "survey" as a last resort.
func heuristicRefine(query string, round int) string {
	fields := strings.Fields(query)

	switch round {
	case 0:
		stripped := stripVersionSuffix(fields)
		if pair := adjacentPair(stripped); pair != "" {
			return pair
		}
		return strings.Join(stripped, " ")
	default:
		return query + " survey"
	}
}

func stripVersionSuffix(fields []string) []string {
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		lower := strings.ToLower(f)
		if strings.HasPrefix(lower, "v") && len(lower) > 1 && isAllDigits(lower[1:]) {
			continue
		}
		out = append(out, f)
	}
	return out
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

func adjacentPair(fields []string) string {
	if len(fields) < 2 {
		return ""
	}
	return fields[0] + " " + fields[1]
}

// CondenseForSourceB reduces a query to at most 4 significant tokens,
// since source B's title-and-abstract search is conjunctive (spec
// §4.3).
func CondenseForSourceB(query string) string {
	tokens := strutil.SignificantTokens(query)
	if len(tokens) > 4 {
		tokens = tokens[:4]
	}
	return strings.Join(tokens, " ")
}
