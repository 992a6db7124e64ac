package claims

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/researchmesh/citeforge/internal/llm"
	"github.com/researchmesh/citeforge/internal/model"
)

func TestGenerate_ValidatesSpanIDsAgainstSessionSet(t *testing.T) {
	fake := llm.NewFake(llm.FakeResponse{Text: `[
		{"text":"Method X improves accuracy on Cora.","evidence_span_ids":["s1","s2"],"salience":0.8},
		{"text":"Unsupported claim.","evidence_span_ids":["unknown-span"],"salience":0.5}
	]`})
	valid := map[string]struct{}{"s1": {}, "s2": {}}

	out, err := Generate(context.Background(), fake, "theme-1", nil, valid)
	require.NoError(t, err)
	require.Len(t, out, 1, "the claim referencing only an unknown span id must be dropped")
	assert.Equal(t, []string{"s1", "s2"}, out[0].EvidenceSpanIDs)
	assert.Equal(t, "theme-1", out[0].ThemeID)
}

func TestGenerate_FlagsUncertainOnThinSupport(t *testing.T) {
	fake := llm.NewFake(llm.FakeResponse{Text: `[
		{"text":"A clear finding.","evidence_span_ids":["s1"],"salience":0.6}
	]`})
	valid := map[string]struct{}{"s1": {}}

	out, err := Generate(context.Background(), fake, "theme-1", nil, valid)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.True(t, out[0].Uncertain, "fewer than 2 supporting spans must set the uncertainty flag")
}

func TestGenerate_FlagsUncertainOnHedgedLanguage(t *testing.T) {
	fake := llm.NewFake(llm.FakeResponse{Text: `[
		{"text":"The method might improve accuracy in some settings.","evidence_span_ids":["s1","s2"],"salience":0.4}
	]`})
	valid := map[string]struct{}{"s1": {}, "s2": {}}

	out, err := Generate(context.Background(), fake, "theme-1", nil, valid)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.True(t, out[0].Uncertain, "hedged language must set the uncertainty flag even with enough spans")
}

func TestGenerate_ConfidentClaimNotFlagged(t *testing.T) {
	fake := llm.NewFake(llm.FakeResponse{Text: `[
		{"text":"Method X improves accuracy on Cora by 3 points.","evidence_span_ids":["s1","s2"],"salience":0.9}
	]`})
	valid := map[string]struct{}{"s1": {}, "s2": {}}

	out, err := Generate(context.Background(), fake, "theme-1", nil, valid)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.False(t, out[0].Uncertain)
}
