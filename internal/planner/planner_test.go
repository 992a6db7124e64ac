package planner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/researchmesh/citeforge/internal/llm"
	"github.com/researchmesh/citeforge/internal/model"
)

func TestSelectMode_QuickTrigger(t *testing.T) {
	assert.Equal(t, model.ModeQuick, SelectMode("just find some papers about transformers"))
}

func TestSelectMode_DefaultsFull(t *testing.T) {
	assert.Equal(t, model.ModeFull, SelectMode("transformers in computer vision"))
}

func TestGenerate_CoercesInvalidToolAndReorders(t *testing.T) {
	badTool := "delete_everything"
	fake := llm.NewFake(llm.FakeResponse{Text: `[
		{"action":"analyze","title":"summarize","expected_output":"summary"},
		{"action":"research","title":"search","tool":"search_source_a","queries":["graph neural networks"],"expected_output":"papers"},
		{"action":"research","title":"bad","tool":"delete_everything","queries":["x"],"expected_output":"y"}
	]`})
	_ = badTool

	plan, err := Generate(context.Background(), fake, "sess-1", "graph neural networks", "en")
	require.NoError(t, err)
	require.Len(t, plan.Steps, 3)

	// research steps (valid tool first, coerced-to-analyze step last)
	assert.Equal(t, model.ActionResearch, plan.Steps[0].Action)
	assert.NotNil(t, plan.Steps[0].Tool)
	assert.Equal(t, "search_source_a", *plan.Steps[0].Tool)

	for _, s := range plan.Steps[1:] {
		assert.NotEqual(t, model.ActionResearch, s.Action)
	}
}

func TestValidate_DemotesResearchWithoutTool(t *testing.T) {
	raw := []rawStep{{Action: "research", Title: "no tool"}}
	steps := validate(raw)
	require.Len(t, steps, 1)
	assert.Equal(t, model.ActionAnalyze, steps[0].Action)
}
