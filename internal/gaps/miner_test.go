package gaps

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/researchmesh/citeforge/internal/cluster"
	"github.com/researchmesh/citeforge/internal/model"
)

func span(id, paperID string, field model.FieldTag, snippet string) *model.EvidenceSpan {
	return &model.EvidenceSpan{ID: id, PaperID: paperID, Field: field, Snippet: snippet}
}

func TestMine_RanksLimitationsByFrequencyTimesClusterSize(t *testing.T) {
	cards := []*model.StudyCard{
		{ID: "c1", EvidenceSpanIDs: []string{"s1"}},
		{ID: "c2", EvidenceSpanIDs: []string{"s2"}},
		{ID: "c3", EvidenceSpanIDs: []string{"s3"}},
	}
	spansByID := map[string]*model.EvidenceSpan{
		"s1": span("s1", "p1", model.FieldLimitation, "does not scale to large graphs"),
		"s2": span("s2", "p2", model.FieldLimitation, "does not scale to large graphs"),
		"s3": span("s3", "p3", model.FieldLimitation, "requires labeled data"),
	}
	themes := []cluster.Theme{{Name: "graph-learning", Cards: cards}}

	out := Mine(themes, spansByID, nil, nil)
	require.NotEmpty(t, out)
	assert.Contains(t, out[0].Text, "does not scale to large graphs", "the more frequently mentioned limitation should rank first")
}

func TestMine_CapsAtMaxDirections(t *testing.T) {
	cards := []*model.StudyCard{}
	spansByID := map[string]*model.EvidenceSpan{}
	for i := 0; i < 15; i++ {
		id := "c" + string(rune('a'+i))
		spanID := "s" + string(rune('a'+i))
		cards = append(cards, &model.StudyCard{ID: id, EvidenceSpanIDs: []string{spanID}})
		spansByID[spanID] = span(spanID, id, model.FieldLimitation, "limitation "+string(rune('a'+i)))
	}
	themes := []cluster.Theme{{Name: "t", Cards: cards}}

	out := Mine(themes, spansByID, nil, nil)
	assert.LessOrEqual(t, len(out), MaxDirections)
}

func TestMine_HolesProduceDirectionsCitingASpan(t *testing.T) {
	cards := []*model.StudyCard{
		{ID: "c1", Datasets: []string{"cora"}, Metrics: []string{"accuracy"}, EvidenceSpanIDs: []string{"s1"}},
		{ID: "c2", Datasets: []string{"pubmed"}, Metrics: []string{"accuracy"}, EvidenceSpanIDs: []string{"s2"}},
		{ID: "c3", Datasets: []string{"cora"}, Metrics: []string{"f1"}, EvidenceSpanIDs: []string{"s3"}},
	}
	themes := []cluster.Theme{{Name: "graph-learning", Cards: cards}}
	matrix := cluster.BuildTaxonomy("s1", themes)

	out := Mine(themes, map[string]*model.EvidenceSpan{}, matrix, nil)
	found := false
	for _, d := range out {
		if len(d.SpanIDs) > 0 {
			found = true
		}
	}
	assert.True(t, found, "every direction must cite at least one evidence span")
}

func TestMine_ContradictionsCiteBothCardsSpans(t *testing.T) {
	cards := []*model.StudyCard{
		{ID: "c1", EvidenceSpanIDs: []string{"s1"}},
		{ID: "c2", EvidenceSpanIDs: []string{"s2"}},
	}
	themes := []cluster.Theme{{Name: "graph-learning", Cards: cards}}
	contradictions := []cluster.Contradiction{
		{Theme: "graph-learning", Dimension: model.Dimension{Dataset: "cora", Metric: "accuracy"}, CardIDA: "c1", CardIDB: "c2"},
	}

	out := Mine(themes, map[string]*model.EvidenceSpan{}, nil, contradictions)
	require.Len(t, out, 1)
	assert.ElementsMatch(t, []string{"s1", "s2"}, out[0].SpanIDs)
}
