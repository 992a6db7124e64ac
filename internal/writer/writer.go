// Package writer implements the grounded writer of spec §4.11: it
// assembles a Markdown report from a fixed section skeleton, where
// every factual statement is a cited Claim and any gap in evidence
// renders an explicit "(insufficient evidence)" placeholder rather than
// an invented sentence.
//
// Grounded on Tangerg-lynx/ai/core/chat's prompt-template composition
// style (named sections joined with strings.Builder), generalized from
// a single prompt into a multi-section Markdown document, and on
// pkg/strutil.TrimAdjacentBlankLines (itself grounded on
// Tangerg-lynx/pkg/strings) for final whitespace cleanup.
package writer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/researchmesh/citeforge/internal/cluster"
	"github.com/researchmesh/citeforge/internal/gaps"
	"github.com/researchmesh/citeforge/internal/model"
	"github.com/researchmesh/citeforge/pkg/strutil"
)

// insufficientEvidence is emitted in place of any prose statement that
// would otherwise lack a supporting claim (spec §4.11).
const insufficientEvidence = "(insufficient evidence)"

// Input bundles everything the writer needs to compose a report; it
// takes no LLM capability because every sentence must trace back to an
// already-produced Claim rather than freshly generated prose.
type Input struct {
	SessionID   string
	Topic       string
	Language    string
	Papers      map[string]*model.Paper
	Spans       map[string]*model.EvidenceSpan
	Themes      []cluster.Theme
	Claims      []*model.Claim
	Matrix      *model.TaxonomyMatrix
	Directions  []gaps.Direction
	SearchNotes string
}

// Write assembles the Markdown report and the list of claim ids it
// actually cited.
func Write(in Input) *model.Report {
	claimsByTheme := groupByTheme(in.Claims)

	var b strings.Builder
	b.WriteString("# Research Synthesis: " + in.Topic + "\n\n")

	writeScope(&b, in)
	writeThemeMap(&b, in.Themes)
	writePerThemeSynthesis(&b, in.Themes, claimsByTheme)
	writeComparativeTable(&b, in.Matrix)
	writeLimitations(&b, in.Themes, claimsByTheme)
	writeFutureDirections(&b, in.Directions)
	citedIDs := writeReferences(&b, in.Claims, in.Spans, in.Papers)

	content := strutil.TrimAdjacentBlankLines(b.String())
	return &model.Report{
		SessionID: in.SessionID,
		Content:   content,
		ClaimIDs:  citedIDs,
		Language:  in.Language,
	}
}

func groupByTheme(claims []*model.Claim) map[string][]*model.Claim {
	out := map[string][]*model.Claim{}
	for _, c := range claims {
		out[c.ThemeID] = append(out[c.ThemeID], c)
	}
	return out
}

func writeScope(b *strings.Builder, in Input) {
	b.WriteString("## Scope & Search Strategy\n\n")
	if in.SearchNotes != "" {
		b.WriteString(in.SearchNotes + "\n\n")
	} else {
		b.WriteString(insufficientEvidence + "\n\n")
	}
}

func writeThemeMap(b *strings.Builder, themes []cluster.Theme) {
	b.WriteString("## Theme Map\n\n")
	if len(themes) == 0 {
		b.WriteString(insufficientEvidence + "\n\n")
		return
	}
	for _, t := range themes {
		fmt.Fprintf(b, "- **%s** (%d papers)\n", t.Name, len(t.Cards))
	}
	b.WriteString("\n")
}

func writePerThemeSynthesis(b *strings.Builder, themes []cluster.Theme, claimsByTheme map[string][]*model.Claim) {
	b.WriteString("## Per-theme Synthesis\n\n")
	for _, t := range themes {
		fmt.Fprintf(b, "### %s\n\n", t.Name)
		claims := claimsByTheme[t.Name]
		if len(claims) == 0 {
			b.WriteString(insufficientEvidence + "\n\n")
			continue
		}
		sort.SliceStable(claims, func(i, j int) bool { return claims[i].Salience > claims[j].Salience })
		for _, c := range claims {
			fmt.Fprintf(b, "%s [C%s]\n\n", sentence(c), c.ID)
		}
	}
}

func sentence(c *model.Claim) string {
	if c.Uncertain {
		return c.Text + " (uncertain)"
	}
	return c.Text
}

func writeComparativeTable(b *strings.Builder, matrix *model.TaxonomyMatrix) {
	b.WriteString("## Comparative Table\n\n")
	if matrix == nil || len(matrix.Themes) == 0 {
		b.WriteString(insufficientEvidence + "\n\n")
		return
	}
	dims := matrix.Dimensions()
	b.WriteString("| Theme |")
	for _, d := range dims {
		b.WriteString(" " + dimensionLabel(d) + " |")
	}
	b.WriteString("\n|---|")
	for range dims {
		b.WriteString("---|")
	}
	b.WriteString("\n")
	for _, theme := range matrix.Themes {
		b.WriteString("| " + theme + " |")
		for _, d := range dims {
			cell := matrix.Cell(theme, d)
			if cell == nil || len(cell.CardIDs) == 0 {
				b.WriteString(" - |")
			} else {
				fmt.Fprintf(b, " %d papers |", len(cell.CardIDs))
			}
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

func dimensionLabel(d model.Dimension) string {
	switch {
	case d.Dataset != "" && d.Metric != "":
		return d.Dataset + "/" + d.Metric
	case d.Dataset != "":
		return d.Dataset
	default:
		return d.Metric
	}
}

func writeLimitations(b *strings.Builder, themes []cluster.Theme, claimsByTheme map[string][]*model.Claim) {
	b.WriteString("## Limitations\n\n")
	found := false
	for _, t := range themes {
		for _, c := range claimsByTheme[t.Name] {
			if c.Uncertain {
				fmt.Fprintf(b, "- %s [C%s]\n", c.Text, c.ID)
				found = true
			}
		}
	}
	if !found {
		b.WriteString(insufficientEvidence + "\n")
	}
	b.WriteString("\n")
}

func writeFutureDirections(b *strings.Builder, directions []gaps.Direction) {
	b.WriteString("## Future Directions\n\n")
	if len(directions) == 0 {
		b.WriteString(insufficientEvidence + "\n\n")
		return
	}
	for _, d := range directions {
		b.WriteString("- " + d.Text + "\n")
	}
	b.WriteString("\n")
}

// writeReferences emits the References section, mapping each claim id
// back to the paper(s) behind its supporting spans, and returns every
// claim id actually cited in the body.
func writeReferences(b *strings.Builder, claims []*model.Claim, spans map[string]*model.EvidenceSpan, papers map[string]*model.Paper) []string {
	b.WriteString("## References\n\n")
	ids := make([]string, 0, len(claims))
	for _, c := range claims {
		ids = append(ids, c.ID)
		refPapers := papersForClaim(c, spans, papers)
		if len(refPapers) == 0 {
			fmt.Fprintf(b, "- [C%s] %s\n", c.ID, insufficientEvidence)
			continue
		}
		for _, paper := range refPapers {
			fmt.Fprintf(b, "- [C%s] %s — %s (%s)\n", c.ID, paper.Title, strings.Join(paper.Authors, ", "), referenceURL(paper))
		}
	}
	return ids
}

func referenceURL(p *model.Paper) string {
	if p.LandingURL != "" {
		return p.LandingURL
	}
	return p.PDFURL
}

// papersForClaim resolves the distinct papers backing a claim's
// supporting spans, in first-seen order.
func papersForClaim(c *model.Claim, spans map[string]*model.EvidenceSpan, papers map[string]*model.Paper) []*model.Paper {
	seen := map[string]struct{}{}
	var out []*model.Paper
	for _, spanID := range c.EvidenceSpanIDs {
		span, ok := spans[spanID]
		if !ok {
			continue
		}
		if _, dup := seen[span.PaperID]; dup {
			continue
		}
		paper, ok := papers[span.PaperID]
		if !ok {
			continue
		}
		seen[span.PaperID] = struct{}{}
		out = append(out, paper)
	}
	return out
}
