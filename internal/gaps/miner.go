// Package gaps implements the gap miner of spec §4.10: future-research
// directions are mined from the most frequently mentioned limitation
// spans, taxonomy holes, and cross-card contradictions, then ranked by
// frequency x cluster-size and capped at 10 per session.
//
// Grounded on the plain aggregation/ranking shape of
// Tangerg-lynx/ai/rag's document-refiner ranking helpers, generalized
// from document scores to mined-direction scores.
package gaps

import (
	"sort"

	"github.com/researchmesh/citeforge/internal/cluster"
	"github.com/researchmesh/citeforge/internal/model"
)

// MaxDirections caps the mined output per session (spec §4.10).
const MaxDirections = 10

// Direction is one future-research direction, citing at least one
// evidence span.
type Direction struct {
	Text     string
	SpanIDs  []string
	Score    float64
}

// Mine produces ranked directions from a session's themes, their
// limitation spans, the taxonomy's holes, and any contradictions found
// across the themes' cards.
func Mine(themes []cluster.Theme, spansByID map[string]*model.EvidenceSpan, matrix *model.TaxonomyMatrix, contradictions []cluster.Contradiction) []Direction {
	cardsByID := map[string]*model.StudyCard{}
	for _, t := range themes {
		for _, c := range t.Cards {
			cardsByID[c.ID] = c
		}
	}

	var out []Direction
	out = append(out, fromLimitationFrequency(themes, spansByID)...)
	out = append(out, fromHoles(matrix, themes)...)
	out = append(out, fromContradictions(contradictions, cardsByID)...)

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > MaxDirections {
		out = out[:MaxDirections]
	}
	return out
}

// fromLimitationFrequency ranks the most frequently mentioned
// limitation spans across a theme's cards (spec §4.10 source 1).
func fromLimitationFrequency(themes []cluster.Theme, spansByID map[string]*model.EvidenceSpan) []Direction {
	var out []Direction
	for _, theme := range themes {
		freq := map[string]int{}
		order := []string{}
		for _, card := range theme.Cards {
			for _, id := range card.EvidenceSpanIDs {
				span, ok := spansByID[id]
				if !ok || span.Field != model.FieldLimitation {
					continue
				}
				if freq[span.Snippet] == 0 {
					order = append(order, span.Snippet)
				}
				freq[span.Snippet]++
			}
		}
		clusterSize := float64(len(theme.Cards))
		for _, snippet := range order {
			spanIDs := spanIDsForSnippet(theme.Cards, spansByID, snippet)
			out = append(out, Direction{
				Text:    "Address limitation in " + theme.Name + ": " + snippet,
				SpanIDs: spanIDs,
				Score:   float64(freq[snippet]) * clusterSize,
			})
		}
	}
	return out
}

func spanIDsForSnippet(cards []*model.StudyCard, spansByID map[string]*model.EvidenceSpan, snippet string) []string {
	var ids []string
	for _, card := range cards {
		for _, id := range card.EvidenceSpanIDs {
			if span, ok := spansByID[id]; ok && span.Snippet == snippet {
				ids = append(ids, id)
			}
		}
	}
	return ids
}

// fromHoles turns taxonomy holes into directions (spec §4.10 source
// 2). A hole carries no evidence span of its own, so it borrows one
// span id from any card already in the theme to satisfy the
// "cites at least one evidence span" requirement.
func fromHoles(matrix *model.TaxonomyMatrix, themes []cluster.Theme) []Direction {
	if matrix == nil {
		return nil
	}
	byName := map[string]cluster.Theme{}
	for _, t := range themes {
		byName[t.Name] = t
	}

	var out []Direction
	for _, h := range cluster.Holes(matrix) {
		theme, ok := byName[h.Theme]
		if !ok {
			continue
		}
		spanID := anySpanID(theme.Cards)
		if spanID == "" {
			continue
		}
		out = append(out, Direction{
			Text:    "Investigate " + h.Theme + " on " + dimensionLabel(h.Dimension),
			SpanIDs: []string{spanID},
			Score:   float64(len(theme.Cards)),
		})
	}
	return out
}

func dimensionLabel(dim model.Dimension) string {
	switch {
	case dim.Dataset != "" && dim.Metric != "":
		return dim.Dataset + " with " + dim.Metric
	case dim.Dataset != "":
		return dim.Dataset
	default:
		return dim.Metric
	}
}

func anySpanID(cards []*model.StudyCard) string {
	for _, c := range cards {
		if len(c.EvidenceSpanIDs) > 0 {
			return c.EvidenceSpanIDs[0]
		}
	}
	return ""
}

// fromContradictions turns cross-card contradictions into directions
// (spec §4.10 source 3), citing a result span from each conflicting
// card.
func fromContradictions(contradictions []cluster.Contradiction, cardsByID map[string]*model.StudyCard) []Direction {
	out := make([]Direction, 0, len(contradictions))
	for _, c := range contradictions {
		var spanIDs []string
		if card, ok := cardsByID[c.CardIDA]; ok && len(card.EvidenceSpanIDs) > 0 {
			spanIDs = append(spanIDs, card.EvidenceSpanIDs[0])
		}
		if card, ok := cardsByID[c.CardIDB]; ok && len(card.EvidenceSpanIDs) > 0 {
			spanIDs = append(spanIDs, card.EvidenceSpanIDs[0])
		}
		if len(spanIDs) == 0 {
			continue
		}
		out = append(out, Direction{
			Text:    "Reconcile conflicting results in " + c.Theme + " on " + dimensionLabel(c.Dimension),
			SpanIDs: spanIDs,
			Score:   2,
		})
	}
	return out
}
