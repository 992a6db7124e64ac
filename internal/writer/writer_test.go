package writer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/researchmesh/citeforge/internal/cluster"
	"github.com/researchmesh/citeforge/internal/gaps"
	"github.com/researchmesh/citeforge/internal/model"
)

func TestWrite_RendersSectionsInFixedOrder(t *testing.T) {
	in := Input{SessionID: "s1", Topic: "graph learning", Language: "en"}
	report := Write(in)

	order := []string{
		"## Scope & Search Strategy",
		"## Theme Map",
		"## Per-theme Synthesis",
		"## Comparative Table",
		"## Limitations",
		"## Future Directions",
		"## References",
	}
	last := -1
	for _, section := range order {
		idx := strings.Index(report.Content, section)
		require.GreaterOrEqual(t, idx, 0, "missing section %s", section)
		assert.Greater(t, idx, last, "section %s out of order", section)
		last = idx
	}
}

func TestWrite_EmptyThemeEmitsInsufficientEvidencePlaceholder(t *testing.T) {
	in := Input{
		SessionID: "s1",
		Topic:     "x",
		Themes:    []cluster.Theme{{Name: "empty-theme", Cards: nil}},
	}
	report := Write(in)
	assert.Contains(t, report.Content, "### empty-theme")
	assert.Contains(t, report.Content, insufficientEvidence)
}

func TestWrite_ClaimsRenderedWithCitationMarkerAndReference(t *testing.T) {
	paper := &model.Paper{ID: "p1", Title: "Graph Nets", Authors: []string{"A. Author"}, LandingURL: "https://example.com/p1"}
	span := &model.EvidenceSpan{ID: "sp1", PaperID: "p1"}
	claim := &model.Claim{ID: "c1", Text: "Graph nets improve accuracy.", ThemeID: "graph-learning", EvidenceSpanIDs: []string{"sp1"}}

	in := Input{
		SessionID: "s1",
		Topic:     "graph learning",
		Themes:    []cluster.Theme{{Name: "graph-learning"}},
		Claims:    []*model.Claim{claim},
		Papers:    map[string]*model.Paper{"p1": paper},
		Spans:     map[string]*model.EvidenceSpan{"sp1": span},
	}
	report := Write(in)

	assert.Contains(t, report.Content, "[Cc1]")
	assert.Contains(t, report.Content, "Graph Nets — A. Author (https://example.com/p1)")
	assert.Equal(t, []string{"c1"}, report.ClaimIDs)
}

func TestWrite_UncertainClaimListedUnderLimitations(t *testing.T) {
	claim := &model.Claim{ID: "c1", Text: "Might generalize.", ThemeID: "theme-a", Uncertain: true}
	in := Input{
		SessionID: "s1",
		Topic:     "x",
		Themes:    []cluster.Theme{{Name: "theme-a"}},
		Claims:    []*model.Claim{claim},
	}
	report := Write(in)

	limSection := report.Content[strings.Index(report.Content, "## Limitations"):strings.Index(report.Content, "## Future Directions")]
	assert.Contains(t, limSection, "Might generalize.")
}

func TestWrite_DirectionsListedInFutureDirectionsSection(t *testing.T) {
	in := Input{
		SessionID:  "s1",
		Topic:      "x",
		Directions: []gaps.Direction{{Text: "Study scalability further.", SpanIDs: []string{"sp1"}}},
	}
	report := Write(in)
	assert.Contains(t, report.Content, "Study scalability further.")
}
