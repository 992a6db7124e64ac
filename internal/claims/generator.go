// Package claims implements the claim generator of spec §4.9: per
// theme, an LLM call proposes 3-8 atomic claims, each backed by at
// least one validated evidence-span-id, with salience scored in [0,1]
// and an uncertainty flag set on hedged language or thin support.
//
// Grounded on the same prompt-then-parse call shape as
// internal/evidence, generalized from a single study card to a list of
// claims per theme.
package claims

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/researchmesh/citeforge/internal/llm"
	"github.com/researchmesh/citeforge/internal/model"
	"github.com/researchmesh/citeforge/pkg/strutil"
)

const (
	minClaimsPerTheme = 3
	maxClaimsPerTheme = 8
	minSupportingSpans = 2
)

var hedgeWords = []string{"may", "might", "could", "possibly", "appears to", "suggests", "unclear", "likely"}

type rawClaim struct {
	Text            string   `json:"text"`
	EvidenceSpanIDs []string `json:"evidence_span_ids"`
	Salience        float64  `json:"salience"`
}

// Generate produces validated claims for one theme. validSpanIDs is
// the session's full span set (spec §4.9: "rejects claims that
// reference a span id not present in the session's span set").
func Generate(ctx context.Context, capability llm.Capability, themeID string, cards []*model.StudyCard, validSpanIDs map[string]struct{}) ([]*model.Claim, error) {
	system := fmt.Sprintf("Write between %d and %d atomic, citable claims summarizing the study "+
		"cards for one research theme. Each claim must be a single factual statement directly "+
		"supported by the evidence span ids listed in the cards. Output a JSON array of objects "+
		"with fields: text, evidence_span_ids (array of span ids copied from the cards), and "+
		"salience (a number from 0 to 1 reflecting how central the claim is to the theme).",
		minClaimsPerTheme, maxClaimsPerTheme)

	out, err := capability.Generate(ctx, llm.Request{System: system, Prompt: cardsPrompt(cards), JSONMode: true})
	if err != nil {
		return nil, fmt.Errorf("claims: generate: %w", err)
	}

	var raws []rawClaim
	if err := json.Unmarshal([]byte(strutil.StripMarkdownFence(out)), &raws); err != nil {
		return nil, fmt.Errorf("claims: parse: %w", err)
	}

	claims := make([]*model.Claim, 0, len(raws))
	for _, r := range raws {
		validated := validateSpanIDs(r.EvidenceSpanIDs, validSpanIDs)
		if len(validated) == 0 || len(validated) != len(r.EvidenceSpanIDs) {
			continue
		}
		claims = append(claims, &model.Claim{
			ID:              model.NewID(),
			Text:            r.Text,
			EvidenceSpanIDs: validated,
			ThemeID:         themeID,
			Salience:        r.Salience,
			Uncertain:       isUncertain(r.Text, validated),
		})
	}
	return claims, nil
}

// validateSpanIDs drops any span id not present in the session's span
// set (spec §4.9 referential-integrity rule; see spec §5's persistence
// invariant repeated for claims).
func validateSpanIDs(ids []string, validSpanIDs map[string]struct{}) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := validSpanIDs[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

// isUncertain flags a claim when its text uses hedged language or when
// fewer than minSupportingSpans spans back it (spec §4.9).
func isUncertain(text string, spanIDs []string) bool {
	if len(spanIDs) < minSupportingSpans {
		return true
	}
	lower := strings.ToLower(text)
	for _, h := range hedgeWords {
		if strings.Contains(lower, h) {
			return true
		}
	}
	return false
}

func cardsPrompt(cards []*model.StudyCard) string {
	var b strings.Builder
	for _, c := range cards {
		fmt.Fprintf(&b, "card %s: problem=%q method=%q results=%q limitations=%q spans=%v\n",
			c.ID, c.Problem, c.Method, c.Results, c.Limitations, c.EvidenceSpanIDs)
	}
	return b.String()
}
