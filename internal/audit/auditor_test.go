package audit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/researchmesh/citeforge/internal/llm"
	"github.com/researchmesh/citeforge/internal/model"
)

func TestRun_PassingClaimCountsTowardPassRate(t *testing.T) {
	fake := llm.NewFake(llm.FakeResponse{Text: `{"verdict":"pass","rewrite":""}`})
	claims := []*model.Claim{{ID: "c1", Text: "X improves accuracy.", Salience: 0.9, EvidenceSpanIDs: []string{"s1"}}}
	spans := map[string]*model.EvidenceSpan{"s1": {ID: "s1", Snippet: "X improves accuracy by 3 points."}}

	result, err := Run(context.Background(), fake, claims, spans, 0.8)
	require.NoError(t, err)
	assert.Equal(t, 1.0, result.PassRate)
	assert.True(t, result.FloorMet)
}

func TestRun_MinorFailRepairedAndCountsAsPassed(t *testing.T) {
	fake := llm.NewFake(llm.FakeResponse{Text: `{"verdict":"minor_fail","rewrite":"Some work suggests X improves accuracy."}`})
	claims := []*model.Claim{{ID: "c1", Text: "X improves accuracy.", Salience: 0.9, EvidenceSpanIDs: []string{"s1"}}}
	spans := map[string]*model.EvidenceSpan{"s1": {ID: "s1", Snippet: "weak correlation"}}

	result, err := Run(context.Background(), fake, claims, spans, 0.8)
	require.NoError(t, err)
	require.Len(t, result.RepairedSet, 1)
	assert.True(t, result.RepairedSet[0].Uncertain)
	assert.Equal(t, "Some work suggests X improves accuracy.", result.RepairedSet[0].Text)
	assert.Equal(t, 1.0, result.PassRate)
}

func TestRun_MajorFailNeverCountsAsPassed(t *testing.T) {
	fake := llm.NewFake(llm.FakeResponse{Text: `{"verdict":"major_fail","rewrite":"The evidence only shows a correlation, not causation."}`})
	claims := []*model.Claim{{ID: "c1", Text: "X causes better accuracy.", Salience: 0.9, EvidenceSpanIDs: []string{"s1"}}}
	spans := map[string]*model.EvidenceSpan{"s1": {ID: "s1", Snippet: "correlation observed"}}

	result, err := Run(context.Background(), fake, claims, spans, 0.8)
	require.NoError(t, err)
	assert.Equal(t, 0.0, result.PassRate)
	assert.False(t, result.FloorMet)
	assert.Equal(t, "The evidence only shows a correlation, not causation.", result.RepairedSet[0].Text)
}

func TestRun_SamplesOnlyAboveSalienceFloorWhenManyClaims(t *testing.T) {
	fake := llm.NewFake(repeatResponses(25, `{"verdict":"pass","rewrite":""}`)...)
	claims := make([]*model.Claim, 0, 25)
	for i := 0; i < 25; i++ {
		salience := 0.1
		if i%2 == 0 {
			salience = 0.9
		}
		claims = append(claims, &model.Claim{ID: string(rune('a' + i)), Salience: salience})
	}

	result, err := Run(context.Background(), fake, claims, map[string]*model.EvidenceSpan{}, 0.8)
	require.NoError(t, err)
	assert.Len(t, result.Judgments, 13)
}

func repeatResponses(n int, text string) []llm.FakeResponse {
	out := make([]llm.FakeResponse, n)
	for i := range out {
		out[i] = llm.FakeResponse{Text: text}
	}
	return out
}
