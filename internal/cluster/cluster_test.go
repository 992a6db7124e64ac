package cluster

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/researchmesh/citeforge/internal/model"
)

// fakeEmbedder returns a fixed vector per problem string, so tests can
// control which cards land in the same cluster without a real model.
type fakeEmbedder struct {
	vectors map[string][]float64
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return []float64{0, 0, 1}, nil
}

func card(id, problem, method string, datasets, metrics []string) *model.StudyCard {
	return &model.StudyCard{
		ID:       id,
		Problem:  problem,
		Method:   method,
		Datasets: datasets,
		Metrics:  metrics,
	}
}

func TestCluster_GroupsSimilarCardsAboveThreshold(t *testing.T) {
	cards := []*model.StudyCard{
		card("c1", "node classification", "message passing", nil, nil),
		card("c2", "node classification", "message passing", nil, nil),
		card("c3", "node classification", "message passing", nil, nil),
	}
	embedder := &fakeEmbedder{vectors: map[string][]float64{
		"node classification message passing": {1, 0, 0},
	}}

	themes, err := Cluster(context.Background(), embedder, cards)
	require.NoError(t, err)
	require.Len(t, themes, 1)
	assert.Len(t, themes[0].Cards, 3)
	assert.NotEqual(t, MiscellaneousTheme, themes[0].Name)
}

func TestCluster_SmallGroupsFoldIntoMiscellaneous(t *testing.T) {
	cards := []*model.StudyCard{
		card("c1", "problem A", "method A", nil, nil),
		card("c2", "problem B", "method B", nil, nil),
	}
	embedder := &fakeEmbedder{vectors: map[string][]float64{
		"problem A method A": {1, 0, 0},
		"problem B method B": {0, 1, 0},
	}}

	themes, err := Cluster(context.Background(), embedder, cards)
	require.NoError(t, err)
	require.Len(t, themes, 1)
	assert.Equal(t, MiscellaneousTheme, themes[0].Name)
	assert.Len(t, themes[0].Cards, 2)
}

func TestCluster_EmptyInputReturnsNil(t *testing.T) {
	themes, err := Cluster(context.Background(), &fakeEmbedder{}, nil)
	require.NoError(t, err)
	assert.Nil(t, themes)
}

func TestBuildTaxonomy_PopulatesDatasetMetricCells(t *testing.T) {
	themes := []Theme{
		{
			Name: "graph-learning",
			Cards: []*model.StudyCard{
				card("c1", "p", "m", []string{"Cora"}, []string{"Accuracy"}),
				card("c2", "p", "m", []string{"Cora"}, []string{"F1"}),
			},
		},
	}

	matrix := BuildTaxonomy("s1", themes)
	cell := matrix.Cell("graph-learning", model.Dimension{Dataset: "cora", Metric: "accuracy"})
	require.NotNil(t, cell)
	assert.Equal(t, []string{"c1"}, cell.CardIDs)
	assert.Equal(t, 2, matrix.ThemeCardCount("graph-learning"))
}

func TestHoles_OnlyReportedForQualifyingThemes(t *testing.T) {
	themes := []Theme{
		{
			Name: "graph-learning",
			Cards: []*model.StudyCard{
				card("c1", "p", "m", []string{"Cora"}, []string{"Accuracy"}),
				card("c2", "p", "m", []string{"PubMed"}, []string{"Accuracy"}),
				card("c3", "p", "m", []string{"Cora"}, []string{"F1"}),
			},
		},
		{
			Name: "too-small",
			Cards: []*model.StudyCard{
				card("c4", "p", "m", []string{"X"}, []string{"Y"}),
			},
		},
	}

	matrix := BuildTaxonomy("s1", themes)
	holes := Holes(matrix)

	found := false
	for _, h := range holes {
		if h.Theme == "graph-learning" && h.Dimension == (model.Dimension{Dataset: "pubmed", Metric: "f1"}) {
			found = true
		}
		assert.NotEqual(t, "too-small", h.Theme, "a theme with fewer than MinClusterSize cards must never report holes")
	}
	assert.True(t, found, "expected a hole at the unpopulated (pubmed, f1) cell")
}

func TestContradictions_FlagsOpposingDirectionsSameDimension(t *testing.T) {
	dim := model.Dimension{Dataset: "cora", Metric: "accuracy"}
	results := []NumericResult{
		{CardID: "c1", Dimension: dim, Direction: 1},
		{CardID: "c2", Dimension: dim, Direction: -1},
		{CardID: "c3", Dimension: model.Dimension{Dataset: "pubmed", Metric: "f1"}, Direction: 1},
	}

	contradictions := Contradictions("graph-learning", results)
	require.Len(t, contradictions, 1)
	assert.Equal(t, dim, contradictions[0].Dimension)
}

func TestContradictions_NoConflictWhenDirectionsAgree(t *testing.T) {
	dim := model.Dimension{Dataset: "cora", Metric: "accuracy"}
	results := []NumericResult{
		{CardID: "c1", Dimension: dim, Direction: 1},
		{CardID: "c2", Dimension: dim, Direction: 1},
	}
	assert.Empty(t, Contradictions("graph-learning", results))
}
