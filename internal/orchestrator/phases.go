package orchestrator

import (
	"context"
	"fmt"
	"net/url"
	"sort"

	"github.com/researchmesh/citeforge/internal/audit"
	"github.com/researchmesh/citeforge/internal/claims"
	"github.com/researchmesh/citeforge/internal/cluster"
	"github.com/researchmesh/citeforge/internal/dedup"
	"github.com/researchmesh/citeforge/internal/evidence"
	"github.com/researchmesh/citeforge/internal/events"
	"github.com/researchmesh/citeforge/internal/executor"
	"github.com/researchmesh/citeforge/internal/gaps"
	"github.com/researchmesh/citeforge/internal/gate"
	"github.com/researchmesh/citeforge/internal/model"
	"github.com/researchmesh/citeforge/internal/planner"
	"github.com/researchmesh/citeforge/internal/repository"
	"github.com/researchmesh/citeforge/internal/screening"
	"github.com/researchmesh/citeforge/internal/writer"
)

var (
	errEmptyCorpus     = fmt.Errorf("orchestrator: empty corpus")
	errGateCancelled   = fmt.Errorf("orchestrator: approval gate cancelled")
	errAuditFloorUnmet = fmt.Errorf("orchestrator: citation audit pass rate below floor")
)

func (o *Orchestrator) planPhase(ctx context.Context, state *pipelineState) (*pipelineState, error) {
	if err := checkCancelled(ctx); err != nil {
		return state, err
	}
	o.advance(state, model.PhasePlanning)

	plan, err := planner.Generate(ctx, o.deps.LLM, state.session.ID, state.session.Topic, state.session.Language)
	if err != nil {
		return state, err
	}
	state.session.Plan = plan
	state.budget.Charge(state.budget.Estimate(state.session.Topic))
	o.publish(state, events.KindPlan, plan)
	return state, nil
}

func (o *Orchestrator) collectPhase(ctx context.Context, state *pipelineState) (*pipelineState, error) {
	if err := checkCancelled(ctx); err != nil {
		return state, err
	}
	o.advance(state, model.PhaseCollection)

	invoke := executor.NewToolInvoker(o.deps.Clients, o.deps.LLM)
	papers, err := executor.Run(ctx, state.session.Plan, invoke)
	if err != nil {
		return state, err
	}
	state.papers = papers
	o.publish(state, events.KindPapersCollected, len(papers))
	return state, nil
}

func (o *Orchestrator) dedupPhase(ctx context.Context, state *pipelineState) (*pipelineState, error) {
	if err := checkCancelled(ctx); err != nil {
		return state, err
	}
	o.advance(state, model.PhaseDedup)

	state.papers = dedup.Dedup(state.papers)
	if limit := o.deps.Options.MaxPapersTotal; limit > 0 && len(state.papers) > limit {
		state.papers = truncateLowestRelevanceFirst(state.papers, limit)
	}
	return state, nil
}

// truncateLowestRelevanceFirst keeps the top limit papers by
// relevance-score, dropping the rest (spec §6: "excess are truncated
// lowest-relevance-first"). A paper with no score yet (pre-screening)
// sorts below any scored paper.
func truncateLowestRelevanceFirst(papers []*model.Paper, limit int) []*model.Paper {
	sorted := append([]*model.Paper(nil), papers...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return relevanceOf(sorted[i]) > relevanceOf(sorted[j])
	})
	return sorted[:limit]
}

func relevanceOf(p *model.Paper) float64 {
	if p.RelevanceScore == nil {
		return -1
	}
	return *p.RelevanceScore
}

// themeNumericResults flattens a theme's cards' verified numeric
// results (spec §4.7) into the per-dimension results
// internal/cluster.Contradictions compares, the signal spec §4.8b's
// "contradictions" derived quantity and spec §4.10 source 3 need.
func themeNumericResults(theme cluster.Theme) []cluster.NumericResult {
	var out []cluster.NumericResult
	for _, card := range theme.Cards {
		for _, nr := range card.NumericResults {
			out = append(out, cluster.NumericResult{
				CardID:    card.ID,
				Dimension: model.Dimension{Dataset: nr.Dataset, Metric: nr.Metric},
				Direction: nr.Direction,
			})
		}
	}
	return out
}

func (o *Orchestrator) persistPhase(ctx context.Context, state *pipelineState) (*pipelineState, error) {
	if err := checkCancelled(ctx); err != nil {
		return state, err
	}
	o.advance(state, model.PhasePersist)

	// Zero papers collected is a FAILED empty_corpus termination in FULL
	// mode, but QUICK mode's contract is just a paper list (spec §8: "zero
	// papers collected: pipeline must terminate cleanly in COMPLETE (QUICK)
	// or FAILED with cause empty_corpus (FULL)"), so persistPhase — shared
	// by both chains — only fails for FULL.
	if state.mode == model.ModeFull && emptyCorpus(state) {
		state.session.Termination = &model.Termination{Cause: model.CauseEmptyCorpus, Phase: model.PhasePersist}
		return state, errEmptyCorpus
	}

	ids := make([]string, 0, len(state.papers))
	for _, p := range state.papers {
		if err := o.deps.Repo.Papers().Put(ctx, p); err != nil {
			return state, err
		}
		ids = append(ids, p.ID)
	}
	state.session.PaperIDs = ids
	o.checkpoint(repository.Checkpoint{SessionID: state.session.ID, Phase: model.PhasePersist, PaperIDs: ids})
	return state, nil
}

func (o *Orchestrator) completePhase(ctx context.Context, state *pipelineState) (*pipelineState, error) {
	if err := checkCancelled(ctx); err != nil {
		return state, err
	}
	o.advance(state, model.PhaseComplete)
	o.publish(state, events.KindComplete, state.session.ID)
	return state, nil
}

func (o *Orchestrator) screeningPhase(ctx context.Context, state *pipelineState) (*pipelineState, error) {
	if err := checkCancelled(ctx); err != nil {
		return state, err
	}
	o.advance(state, model.PhaseScreening)

	batchSize := o.deps.Options.ScreeningBatchSize
	if batchSize <= 0 {
		batchSize = screening.DefaultBatchSize
	}
	records, err := screening.Screen(ctx, o.deps.LLM, state.session.ID, state.session.Topic, state.papers, batchSize)
	if err != nil {
		return state, err
	}

	for _, p := range state.papers {
		state.budget.Charge(state.budget.Estimate(p.Title + " " + p.Abstract))
	}

	byPaper := map[string]*model.ScreeningRecord{}
	for _, r := range records {
		byPaper[r.PaperID] = r
		if err := o.deps.Repo.Screenings().Put(ctx, state.session.ID, r.PaperID, r); err != nil {
			return state, err
		}
	}

	var selected []*model.Paper
	for _, p := range state.papers {
		r, ok := byPaper[p.ID]
		if !ok || !r.Selected() {
			continue
		}
		score := r.Relevance
		p.RelevanceScore = &score
		selected = append(selected, p)
	}
	state.papers = selected
	o.publish(state, events.KindScreeningSummary, len(selected))

	if emptyCorpus(state) {
		state.session.Termination = &model.Termination{Cause: model.CauseEmptyCorpus, Phase: model.PhaseScreening}
		return state, errEmptyCorpus
	}
	return state, nil
}

// gatePDFPhase evaluates all three approval-gate predicates of spec
// §4.13 in sequence: external_crawl first (it can shrink the corpus
// before the download-size estimate is computed), then pdf_download,
// then token_budget. All three are "triggered by a predicate evaluated
// after screening", so they share one phase and one PhaseGatePDF state
// rather than three separate phase transitions.
func (o *Orchestrator) gatePDFPhase(ctx context.Context, state *pipelineState) (*pipelineState, error) {
	if err := checkCancelled(ctx); err != nil {
		return state, err
	}
	o.advance(state, model.PhaseGatePDF)

	if state, err := o.runExternalCrawlGate(ctx, state); err != nil {
		return state, err
	}
	if state, err := o.runPDFDownloadGate(ctx, state); err != nil {
		return state, err
	}
	return o.runTokenBudgetGate(ctx, state)
}

func (o *Orchestrator) runExternalCrawlGate(ctx context.Context, state *pipelineState) (*pipelineState, error) {
	fired, gateCtx := gate.EvaluateExternalCrawl(paperHosts(state.papers), o.deps.SafeHosts)
	if !fired {
		return state, nil
	}

	outcome := o.waitOnGate(ctx, state, gate.KindExternalCrawl, gateCtx)
	switch outcome.Decision {
	case gate.DecisionCancel:
		state.session.Termination = &model.Termination{Cause: model.CauseCancelled, Phase: model.PhaseGatePDF, Reason: "external_crawl gate: " + string(outcome.Decision)}
		return state, errGateCancelled
	case gate.DecisionSkip:
		state.papers = keepSafeHostPapers(state.papers, o.deps.SafeHosts)
	}
	return state, nil
}

func (o *Orchestrator) runPDFDownloadGate(ctx context.Context, state *pipelineState) (*pipelineState, error) {
	threshold := int64(o.deps.Options.MaxPDFDownload)
	fired, gateCtx := gate.EvaluatePDFDownload(len(state.papers), expectedBytesPerPaper, threshold*expectedBytesPerPaper)
	if !fired {
		return state, nil
	}

	outcome := o.waitOnGate(ctx, state, gate.KindPDFDownload, gateCtx)
	switch outcome.Decision {
	case gate.DecisionCancel:
		state.session.Termination = &model.Termination{Cause: model.CauseCancelled, Phase: model.PhaseGatePDF, Reason: "pdf_download gate: " + string(outcome.Decision)}
		return state, errGateCancelled
	case gate.DecisionSkip:
		limit := o.deps.Options.MaxPDFDownload
		if limit > 0 && len(state.papers) > limit {
			state.papers = truncateLowestRelevanceFirst(state.papers, limit)
		}
	}
	return state, nil
}

func (o *Orchestrator) runTokenBudgetGate(ctx context.Context, state *pipelineState) (*pipelineState, error) {
	budget := o.deps.Options.TokenBudget
	if budget <= 0 {
		return state, nil
	}

	projection := o.projectedTokenUse(state)
	projection["already_spent"] = state.budget.Spent()
	fired, gateCtx := gate.EvaluateTokenBudget(projection, budget)
	if !fired {
		return state, nil
	}

	outcome := o.waitOnGate(ctx, state, gate.KindTokenBudget, gateCtx)
	switch outcome.Decision {
	case gate.DecisionCancel:
		state.session.Termination = &model.Termination{Cause: model.CauseCancelled, Phase: model.PhaseGatePDF, Reason: "token_budget gate: " + string(outcome.Decision)}
		return state, errGateCancelled
	case gate.DecisionSkip:
		// Degraded input for an over-budget projection means auditing
		// fewer claims downstream; the audit phase already samples a
		// salience-ranked subset, so skip needs no extra truncation here.
	}
	return state, nil
}

// waitOnGate opens a gate of kind, publishes approval_required, blocks
// for a decision, and clears the session's pending-approval record.
func (o *Orchestrator) waitOnGate(ctx context.Context, state *pipelineState, kind gate.Kind, gateCtx map[string]any) gate.Outcome {
	g := gate.New(kind, gateCtx, o.deps.Options.GateTimeout(), o.deps.Options.GateAutoApprove)
	o.mu.Lock()
	o.gates[state.session.ID] = g
	o.mu.Unlock()

	pending := g.PendingApproval()
	state.session.PendingApproval = &pending
	o.publish(state, events.KindApprovalRequired, events.ApprovalRequiredPayload{GateKind: string(kind), Context: gateCtx})

	outcome := g.Wait(ctx)
	state.session.PendingApproval = nil
	return outcome
}

// paperHosts collects the distinct hosts a paper's PDF would be
// fetched from, for the external_crawl gate predicate.
func paperHosts(papers []*model.Paper) []string {
	seen := map[string]struct{}{}
	var hosts []string
	for _, p := range papers {
		host := hostOf(p.PDFURL)
		if host == "" {
			host = hostOf(p.LandingURL)
		}
		if host == "" {
			continue
		}
		if _, ok := seen[host]; ok {
			continue
		}
		seen[host] = struct{}{}
		hosts = append(hosts, host)
	}
	return hosts
}

func hostOf(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// keepSafeHostPapers degrades the corpus to papers whose crawl target
// is a known-safe host, the "skip" decision's effect for the
// external_crawl gate (spec §4.13: "continue with degraded inputs").
func keepSafeHostPapers(papers []*model.Paper, safeHosts map[string]struct{}) []*model.Paper {
	var out []*model.Paper
	for _, p := range papers {
		host := hostOf(p.PDFURL)
		if host == "" {
			host = hostOf(p.LandingURL)
		}
		if host == "" {
			out = append(out, p)
			continue
		}
		if _, ok := safeHosts[host]; ok {
			out = append(out, p)
		}
	}
	return out
}

// projectedTokenUse estimates token spend across the remaining
// evidence-extraction through grounded-writing phases from corpus size.
// Combined with state.budget.Spent() (actual plan/screening charges
// recorded so far this session), it gives gate.EvaluateTokenBudget the
// full projected total for the token_budget predicate. Evidence
// extraction dominates the remaining spend (one full-text pass per
// paper); later phases work over the resulting cards and are charged
// as fractions of that pass.
func (o *Orchestrator) projectedTokenUse(state *pipelineState) map[string]int {
	var corpusTokens int
	for _, p := range state.papers {
		text := p.FullText
		if text == "" {
			text = p.Abstract
		}
		corpusTokens += o.deps.LLM.CountTokens(text)
	}
	return map[string]int{
		"evidence_extraction": corpusTokens,
		"claim_generation":    corpusTokens / 2,
		"citation_audit":      corpusTokens / 4,
		"grounded_writing":    corpusTokens / 4,
	}
}

// expectedBytesPerPaper approximates a typical PDF's size for the
// pdf_download gate's cost estimate (spec §4.13).
const expectedBytesPerPaper = 2_000_000

func (o *Orchestrator) pdfLoadingPhase(ctx context.Context, state *pipelineState) (*pipelineState, error) {
	if err := checkCancelled(ctx); err != nil {
		return state, err
	}
	o.advance(state, model.PhasePDFLoading)

	for _, p := range state.papers {
		if p.PDFURL == "" {
			continue
		}
		result, err := o.deps.Loader.Load(ctx, p.PDFURL)
		if err != nil {
			return state, err
		}
		if result.Unavailable {
			continue
		}
		p.FullText = result.FullText
		p.PageMap = result.PageMap
		p.PDFHash = result.PDFHash
		p.Status = model.StatusFullText
		if err := o.deps.Repo.Papers().Put(ctx, p); err != nil {
			return state, err
		}
	}
	return state, nil
}

func (o *Orchestrator) evidenceExtractionPhase(ctx context.Context, state *pipelineState) (*pipelineState, error) {
	if err := checkCancelled(ctx); err != nil {
		return state, err
	}
	o.advance(state, model.PhaseEvidenceExtraction)

	var cards []*model.StudyCard
	spanIDs := make([]string, 0)
	for _, p := range state.papers {
		text := p.FullText
		if text == "" {
			text = p.Abstract
		}
		if text == "" {
			continue
		}
		card, spans, err := evidence.Extract(ctx, o.deps.LLM, p, text, p.LandingURL)
		if err != nil {
			continue // spec §4.7: extraction_failed excludes the paper, phase continues
		}
		cards = append(cards, card)
		if err := o.deps.Repo.Cards().Put(ctx, state.session.ID, card.ID, card); err != nil {
			return state, err
		}
		for _, s := range spans {
			state.spans[s.ID] = s
			spanIDs = append(spanIDs, s.ID)
			if err := o.deps.Repo.Spans().Put(ctx, state.session.ID, s.ID, s); err != nil {
				return state, err
			}
		}
		p.Status = model.StatusExtracted
	}
	state.cards = cards
	o.checkpoint(repository.Checkpoint{SessionID: state.session.ID, Phase: model.PhaseEvidenceExtraction, PaperIDs: state.session.PaperIDs, SpanIDs: spanIDs})
	return state, nil
}

func (o *Orchestrator) clusteringPhase(ctx context.Context, state *pipelineState) (*pipelineState, error) {
	if err := checkCancelled(ctx); err != nil {
		return state, err
	}
	o.advance(state, model.PhaseClustering)

	themes, err := cluster.ClusterWithIndex(ctx, o.deps.Embedder, state.cards, o.deps.VectorIndex)
	if err != nil {
		return state, err
	}
	state.themes = themes
	return state, nil
}

func (o *Orchestrator) taxonomyPhase(ctx context.Context, state *pipelineState) (*pipelineState, error) {
	if err := checkCancelled(ctx); err != nil {
		return state, err
	}
	o.advance(state, model.PhaseTaxonomy)

	state.matrix = cluster.BuildTaxonomy(state.session.ID, state.themes)
	o.publish(state, events.KindTaxonomy, state.matrix)
	return state, nil
}

func (o *Orchestrator) claimGenerationPhase(ctx context.Context, state *pipelineState) (*pipelineState, error) {
	if err := checkCancelled(ctx); err != nil {
		return state, err
	}
	o.advance(state, model.PhaseClaimGeneration)

	validSpanIDs := make(map[string]struct{}, len(state.spans))
	for id := range state.spans {
		validSpanIDs[id] = struct{}{}
	}

	claimIDs := make([]string, 0)
	var allClaims []*model.Claim
	for _, theme := range state.themes {
		themeClaims, err := claims.Generate(ctx, o.deps.LLM, theme.Name, theme.Cards, validSpanIDs)
		if err != nil {
			return state, err
		}
		for _, c := range themeClaims {
			if err := o.deps.Repo.Claims().Put(ctx, state.session.ID, c.ID, c); err != nil {
				return state, err
			}
			claimIDs = append(claimIDs, c.ID)
		}
		allClaims = append(allClaims, themeClaims...)
	}
	state.claims = allClaims
	o.publish(state, events.KindClaims, len(allClaims))
	o.checkpoint(repository.Checkpoint{SessionID: state.session.ID, Phase: model.PhaseClaimGeneration, ClaimIDs: claimIDs})
	return state, nil
}

func (o *Orchestrator) gapMiningPhase(ctx context.Context, state *pipelineState) (*pipelineState, error) {
	if err := checkCancelled(ctx); err != nil {
		return state, err
	}
	o.advance(state, model.PhaseGapMining)

	var contradictions []cluster.Contradiction
	for _, theme := range state.themes {
		contradictions = append(contradictions, cluster.Contradictions(theme.Name, themeNumericResults(theme))...)
	}
	state.directions = gaps.Mine(state.themes, state.spans, state.matrix, contradictions)
	o.publish(state, events.KindGapMining, len(state.directions))
	return state, nil
}

func (o *Orchestrator) groundedWritingPhase(ctx context.Context, state *pipelineState) (*pipelineState, error) {
	if err := checkCancelled(ctx); err != nil {
		return state, err
	}
	o.advance(state, model.PhaseGroundedWriting)

	state.report = writer.Write(o.writerInput(state))
	return state, nil
}

func (o *Orchestrator) writerInput(state *pipelineState) writer.Input {
	papers := make(map[string]*model.Paper, len(state.papers))
	for _, p := range state.papers {
		papers[p.ID] = p
	}
	return writer.Input{
		SessionID:  state.session.ID,
		Topic:      state.session.Topic,
		Language:   state.session.Language,
		Papers:     papers,
		Spans:      state.spans,
		Themes:     state.themes,
		Claims:     state.claims,
		Matrix:     state.matrix,
		Directions: state.directions,
	}
}

func (o *Orchestrator) citationAuditPhase(ctx context.Context, state *pipelineState) (*pipelineState, error) {
	if err := checkCancelled(ctx); err != nil {
		return state, err
	}
	o.advance(state, model.PhaseCitationAudit)

	floor := o.deps.Options.AuditPassRateFloor
	result, err := audit.Run(ctx, o.deps.LLM, state.claims, state.spans, floor)
	if err != nil {
		return state, err
	}
	state.claims = result.RepairedSet
	state.report = writer.Write(o.writerInput(state))

	if !result.FloorMet {
		state.session.Termination = &model.Termination{Cause: model.CauseAuditFloorUnmet, Phase: model.PhaseCitationAudit}
		return state, errAuditFloorUnmet
	}
	return state, nil
}

func (o *Orchestrator) publishPhase(ctx context.Context, state *pipelineState) (*pipelineState, error) {
	if err := checkCancelled(ctx); err != nil {
		return state, err
	}
	o.advance(state, model.PhasePublish)

	if err := o.deps.Repo.Sessions().PutReport(ctx, state.report); err != nil {
		return state, err
	}
	for _, p := range state.papers {
		p.Status = model.StatusReported
		_ = o.deps.Repo.Papers().Put(ctx, p)
	}
	return state, nil
}
