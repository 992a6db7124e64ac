package screening

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/researchmesh/citeforge/internal/llm"
	"github.com/researchmesh/citeforge/internal/model"
)

func TestScreen_ParsesBatchAndEchoesPaperID(t *testing.T) {
	fake := llm.NewFake(llm.FakeResponse{Text: `[
		{"paper_id":"p1","tier":"core","reason_code":"relevant","rationale":"on topic","scored_relevance":8},
		{"paper_id":"p2","tier":"exclude","reason_code":"out_of_scope","rationale":"unrelated","scored_relevance":1}
	]`})
	papers := []*model.Paper{
		{ID: "p1", Title: "A", Abstract: "a"},
		{ID: "p2", Title: "B", Abstract: "b"},
	}

	recs, err := Screen(context.Background(), fake, "s1", "topic", papers, 15)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, model.TierCore, recs[0].Tier)
	assert.True(t, recs[0].Selected())
	assert.Equal(t, model.TierExclude, recs[1].Tier)
	assert.False(t, recs[1].Selected())
}

func TestScreen_DegradesOnParseFailure(t *testing.T) {
	fake := llm.NewFake(llm.FakeResponse{Text: "not json at all"})
	papers := []*model.Paper{{ID: "p1", Title: "A"}}

	recs, err := Screen(context.Background(), fake, "s1", "topic", papers, 15)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, model.TierCore, recs[0].Tier)
	assert.Equal(t, model.ReasonParseFailure, recs[0].Reason)
}

func TestScreen_DegradesMissingEcho(t *testing.T) {
	fake := llm.NewFake(llm.FakeResponse{Text: `[{"paper_id":"p1","tier":"core","reason_code":"relevant"}]`})
	papers := []*model.Paper{
		{ID: "p1", Title: "A"},
		{ID: "p2", Title: "B"},
	}

	recs, err := Screen(context.Background(), fake, "s1", "topic", papers, 15)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, model.ReasonParseFailure, recs[1].Reason)
}

func TestScreen_BatchesBySize(t *testing.T) {
	fake := llm.NewFake(llm.FakeResponse{Text: `[{"paper_id":"p1","tier":"core","reason_code":"relevant"}]`})
	papers := []*model.Paper{{ID: "p1"}, {ID: "p2"}, {ID: "p3"}}

	recs, err := Screen(context.Background(), fake, "s1", "topic", papers, 1)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Len(t, fake.Calls, 3)
}
