package executor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/researchmesh/citeforge/internal/model"
)

func TestRun_SkipsNonResearchSteps(t *testing.T) {
	tool := "search_source_a"
	plan := &model.Plan{
		SessionID: "s1",
		Steps: []model.Step{
			{ID: 1, Action: model.ActionResearch, Tool: &tool, Queries: []string{"q1"}},
			{ID: 2, Action: model.ActionAnalyze},
		},
	}

	var invoked []string
	invoke := func(_ context.Context, toolName string, queries []string) ([]*model.Paper, error) {
		invoked = append(invoked, toolName)
		return []*model.Paper{{ID: "p1"}}, nil
	}

	papers, err := Run(context.Background(), plan, invoke)
	require.NoError(t, err)
	assert.Len(t, papers, 1)
	assert.Equal(t, []string{"search_source_a"}, invoked)
	assert.True(t, plan.Steps[0].Completed)
	assert.False(t, plan.Steps[1].Completed)
}

func TestRun_StopsOnError(t *testing.T) {
	tool := "search_source_a"
	plan := &model.Plan{
		Steps: []model.Step{
			{ID: 1, Action: model.ActionResearch, Tool: &tool, Queries: []string{"q1"}},
			{ID: 2, Action: model.ActionResearch, Tool: &tool, Queries: []string{"q2"}},
		},
	}
	calls := 0
	invoke := func(_ context.Context, _ string, _ []string) ([]*model.Paper, error) {
		calls++
		return nil, assertErr
	}

	_, err := Run(context.Background(), plan, invoke)
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

var assertErr = errTest{}

type errTest struct{}

func (errTest) Error() string { return "boom" }
