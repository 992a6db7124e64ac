// Package audit implements the citation auditor of spec §4.12: claims
// above a salience floor are judged by an LLM against their supporting
// evidence, classified pass/minor-fail/major-fail, repaired once, and
// the post-repair pass rate is checked against a configurable floor.
//
// Grounded on Tangerg-lynx/ai/evaluation's Evaluator/Request/Response
// judge shape, generalized from a single boolean Pass to the tri-state
// verdict this audit needs; the judge-then-repair pass itself runs
// through internal/engine.Loop, capped at one iteration.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/researchmesh/citeforge/internal/engine"
	"github.com/researchmesh/citeforge/internal/llm"
	"github.com/researchmesh/citeforge/internal/model"
	"github.com/researchmesh/citeforge/pkg/strutil"
)

// salienceFloor is the minimum salience a claim needs to be sampled
// for audit, unless fewer than sampleCeiling claims exist in total
// (spec §4.12).
const salienceFloor = 0.3

// sampleCeiling: below this many total claims, every claim is audited.
const sampleCeiling = 20

// DefaultPassRateFloor is the default minimum post-repair pass rate
// (spec §4.12, §6).
const DefaultPassRateFloor = 0.8

// Verdict is the tri-state judgment for one claim.
type Verdict string

const (
	Pass      Verdict = "pass"
	MinorFail Verdict = "minor_fail"
	MajorFail Verdict = "major_fail"
)

// Judgment is one claim's audit outcome, with the repaired claim when
// a repair was applied.
type Judgment struct {
	ClaimID  string
	Verdict  Verdict
	Repaired *model.Claim
}

// Result is the audit's final outcome: the repaired claim set, the
// post-repair pass rate, and whether the floor was met.
type Result struct {
	Judgments   []Judgment
	PassRate    float64
	FloorMet    bool
	RepairedSet []*model.Claim
}

type rawVerdict struct {
	Verdict string `json:"verdict"`
	Rewrite string `json:"rewrite"`
}

// passState is the value threaded through the engine.Loop that drives
// the audit's judge-then-repair pass: one iteration judges every
// sampled claim and repairs the failures, same shape whether it runs
// once (the current policy) or is later extended to re-judge repaired
// claims.
type passState struct {
	sampled      []*model.Claim
	spansByID    map[string]*model.EvidenceSpan
	judgments    []Judgment
	repairedByID map[string]*model.Claim
}

// Run samples claims at or above salienceFloor (or all claims, if the
// session has fewer than sampleCeiling total), judges each, repairs
// minor/major failures once, and evaluates the pass-rate floor.
func Run(ctx context.Context, capability llm.Capability, claims []*model.Claim, spansByID map[string]*model.EvidenceSpan, passRateFloor float64) (*Result, error) {
	if passRateFloor <= 0 {
		passRateFloor = DefaultPassRateFloor
	}

	body := engine.NodeFunc(func(ctx context.Context, st passState) (passState, error) {
		for _, c := range st.sampled {
			verdict, err := judgeClaim(ctx, capability, c, st.spansByID)
			if err != nil {
				return st, fmt.Errorf("audit: judge claim %s: %w", c.ID, err)
			}
			j := Judgment{ClaimID: c.ID, Verdict: verdict.Verdict}
			if verdict.Verdict != Pass {
				repaired := repairClaim(c, verdict)
				j.Repaired = repaired
				st.repairedByID[c.ID] = repaired
			}
			st.judgments = append(st.judgments, j)
		}
		return st, nil
	})

	// One repair iteration only (spec §4.12): the loop exists so a
	// future re-judge-after-repair pass is a StopCondition change, not
	// a restructure.
	loop := engine.NewLoop(body, func(_ context.Context, iteration int, _, _ passState) (bool, error) {
		return iteration == 0, nil
	})

	final, err := loop.Run(ctx, passState{
		sampled:      sampleClaims(claims),
		spansByID:    spansByID,
		repairedByID: map[string]*model.Claim{},
	})
	if err != nil {
		return nil, err
	}

	finalSet := applyRepairs(claims, final.repairedByID)
	passRate := computePassRate(final.judgments)

	return &Result{
		Judgments:   final.judgments,
		PassRate:    passRate,
		FloorMet:    passRate >= passRateFloor,
		RepairedSet: finalSet,
	}, nil
}

func sampleClaims(claims []*model.Claim) []*model.Claim {
	if len(claims) < sampleCeiling {
		return claims
	}
	out := make([]*model.Claim, 0, len(claims))
	for _, c := range claims {
		if c.Salience >= salienceFloor {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Salience > out[j].Salience })
	return out
}

func judgeClaim(ctx context.Context, capability llm.Capability, c *model.Claim, spansByID map[string]*model.EvidenceSpan) (*rawVerdict, error) {
	system := "Judge whether the cited evidence snippets support the claim. Respond with JSON " +
		"{\"verdict\": \"pass\"|\"minor_fail\"|\"major_fail\", \"rewrite\": \"...\"}. Use minor_fail " +
		"when the wording is imprecise but directionally correct (rewrite should hedge, e.g. " +
		"'some work suggests ...'). Use major_fail when the evidence does not support the claim " +
		"(rewrite should describe conservatively what the evidence actually says)."

	prompt := fmt.Sprintf("claim: %s\nevidence:\n%s", c.Text, snippetsFor(c, spansByID))
	out, err := capability.Generate(ctx, llm.Request{System: system, Prompt: prompt, JSONMode: true})
	if err != nil {
		return nil, err
	}

	var v rawVerdict
	if err := json.Unmarshal([]byte(strutil.StripMarkdownFence(out)), &v); err != nil {
		return nil, fmt.Errorf("parse verdict: %w", err)
	}
	return &v, nil
}

func snippetsFor(c *model.Claim, spansByID map[string]*model.EvidenceSpan) string {
	out := ""
	for _, id := range c.EvidenceSpanIDs {
		if span, ok := spansByID[id]; ok {
			out += "- " + span.Snippet + "\n"
		}
	}
	return out
}

// repairClaim rewrites a claim per its verdict (spec §4.12): minor
// failures get hedged wording and the uncertainty flag; major failures
// are replaced with the judge's conservative rewrite.
func repairClaim(c *model.Claim, v *rawVerdict) *model.Claim {
	repaired := *c
	if v.Rewrite != "" {
		repaired.Text = v.Rewrite
	}
	if Verdict(v.Verdict) == MinorFail {
		repaired.Uncertain = true
	}
	return &repaired
}

// applyRepairs substitutes repaired claims into the full set, in
// original order.
func applyRepairs(claims []*model.Claim, repairedByID map[string]*model.Claim) []*model.Claim {
	out := make([]*model.Claim, len(claims))
	for i, c := range claims {
		if repaired, ok := repairedByID[c.ID]; ok {
			out[i] = repaired
		} else {
			out[i] = c
		}
	}
	return out
}

// computePassRate implements spec §5's "passed_claims / audited_claims
// computed post-repair": a minor-fail claim counts toward passed_claims
// once its hedge-and-flag repair has been applied, since it now
// accurately represents what the evidence supports; a major-fail claim
// never counts as passed even after its conservative rewrite, since
// the rewrite is a damage-repair step rather than a demonstration that
// the original extraction was sound.
func computePassRate(judgments []Judgment) float64 {
	if len(judgments) == 0 {
		return 1
	}
	passed := 0
	for _, j := range judgments {
		if j.Verdict == Pass || j.Verdict == MinorFail {
			passed++
		}
	}
	return float64(passed) / float64(len(judgments))
}
