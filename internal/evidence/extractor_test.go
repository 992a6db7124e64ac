package evidence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/researchmesh/citeforge/internal/llm"
	"github.com/researchmesh/citeforge/internal/model"
)

const sourceText = "We study graph neural networks for node classification. " +
	"Our method uses message passing over a learned adjacency structure. " +
	"We evaluate on the Cora dataset using accuracy. " +
	"A key limitation is scalability to very large graphs."

func TestExtract_KeepsOnlyVerbatimSpans(t *testing.T) {
	fake := llm.NewFake(llm.FakeResponse{Text: `{
		"problem": "node classification",
		"method": "message passing",
		"results": "",
		"limitations": "scalability to very large graphs",
		"datasets": ["Cora"],
		"metrics": ["accuracy"],
		"spans": [
			{"field":"problem","snippet":"node classification","confidence":0.9},
			{"field":"limitation","snippet":"scalability to very large graphs","confidence":0.8},
			{"field":"method","snippet":"this text is not in the source","confidence":0.9}
		]
	}`})

	paper := &model.Paper{ID: "p1"}
	card, spans, err := Extract(context.Background(), fake, paper, sourceText, "https://example.com/p1")
	require.NoError(t, err)
	require.Len(t, spans, 2)
	assert.Equal(t, "node classification", card.Problem)
	assert.Empty(t, card.Method, "method field dropped: its only span was not verbatim")
	assert.Empty(t, card.Datasets, "datasets dropped: no supporting dataset-tagged span")
	assert.Empty(t, card.Metrics, "metrics dropped: no supporting metric-tagged span")
}

func TestExtract_KeepsDatasetsAndMetricsOnlyWithSupportingSpans(t *testing.T) {
	fake := llm.NewFake(llm.FakeResponse{Text: `{
		"datasets": ["Cora"],
		"metrics": ["accuracy"],
		"spans": [
			{"field":"dataset","snippet":"Cora dataset","confidence":0.9},
			{"field":"metric","snippet":"using accuracy","confidence":0.9}
		]
	}`})

	paper := &model.Paper{ID: "p1"}
	card, spans, err := Extract(context.Background(), fake, paper, sourceText, "")
	require.NoError(t, err)
	require.Len(t, spans, 2)
	assert.Equal(t, []string{"Cora"}, card.Datasets)
	assert.Equal(t, []string{"accuracy"}, card.Metrics)
}

func TestExtract_MergesDuplicateSpanIDsKeepingHigherConfidence(t *testing.T) {
	fake := llm.NewFake(llm.FakeResponse{Text: `{
		"spans": [
			{"field":"problem","snippet":"node classification","confidence":0.5},
			{"field":"problem","snippet":"node classification","confidence":0.95}
		]
	}`})

	paper := &model.Paper{ID: "p1"}
	_, spans, err := Extract(context.Background(), fake, paper, sourceText, "")
	require.NoError(t, err)
	require.Len(t, spans, 1)
	assert.Equal(t, 0.95, spans[0].Confidence)
}

func TestExtract_KeepsNumericResultOnlyForVerifiedDatasetAndMetric(t *testing.T) {
	fake := llm.NewFake(llm.FakeResponse{Text: `{
		"datasets": ["Cora"],
		"metrics": ["accuracy"],
		"numeric_results": [
			{"dataset":"Cora","metric":"accuracy","direction":1},
			{"dataset":"ImageNet","metric":"accuracy","direction":-1}
		],
		"spans": [
			{"field":"dataset","snippet":"Cora dataset","confidence":0.9},
			{"field":"metric","snippet":"using accuracy","confidence":0.9}
		]
	}`})

	paper := &model.Paper{ID: "p1"}
	card, _, err := Extract(context.Background(), fake, paper, sourceText, "")
	require.NoError(t, err)
	require.Len(t, card.NumericResults, 1)
	assert.Equal(t, "cora", card.NumericResults[0].Dataset)
	assert.Equal(t, "accuracy", card.NumericResults[0].Metric)
	assert.Equal(t, 1, card.NumericResults[0].Direction)
}

func TestExtract_RetriesOnceThenFails(t *testing.T) {
	fake := llm.NewFake(
		llm.FakeResponse{Text: "not json"},
		llm.FakeResponse{Text: "still not json"},
	)
	paper := &model.Paper{ID: "p1"}
	_, _, err := Extract(context.Background(), fake, paper, sourceText, "")
	require.ErrorIs(t, err, ErrExtractionFailed)
	assert.Len(t, fake.Calls, 2)
}
