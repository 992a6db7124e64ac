// Package orchestrator drives the phase state machine of spec §4.1: it
// sequences every stage from planning through publish, checkpoints
// after the persist, evidence-extraction and claim-generation phases,
// emits progress events, pauses at approval gates, and supports
// cooperative cancellation and resume (a re-run of the session that
// first rehydrates state from its checkpoint).
//
// Grounded on Tangerg-lynx/core/job.StreamJob's Start/Stop lifecycle
// (a context.CancelFunc stashed per running job, an atomic running
// flag) adapted from one long-running worker loop into one phase
// chain per session; phase sequencing itself is built on
// internal/engine.Chain/Branch.
package orchestrator

import (
	"context"
	"fmt"
	"sync"

	"github.com/researchmesh/citeforge/internal/cluster"
	"github.com/researchmesh/citeforge/internal/config"
	"github.com/researchmesh/citeforge/internal/engine"
	"github.com/researchmesh/citeforge/internal/events"
	"github.com/researchmesh/citeforge/internal/gaps"
	"github.com/researchmesh/citeforge/internal/gate"
	"github.com/researchmesh/citeforge/internal/llm"
	"github.com/researchmesh/citeforge/internal/model"
	"github.com/researchmesh/citeforge/internal/pdfload"
	"github.com/researchmesh/citeforge/internal/planner"
	"github.com/researchmesh/citeforge/internal/repository"
	"github.com/researchmesh/citeforge/internal/sources"
	"github.com/researchmesh/citeforge/internal/tokenbudget"
)

// Deps bundles every external collaborator the orchestrator needs.
// Every field is a narrow interface or concrete adapter the caller
// wires up (spec §1: persistence, LLM, sources, and the PDF
// fetch/parse pair are all external collaborators).
type Deps struct {
	Repo      repository.Repository
	Checkpoints *repository.CheckpointStore
	LLM       llm.Capability
	Clients   []sources.Client
	Loader    *pdfload.Loader
	Embedder  cluster.Embedder
	VectorIndex cluster.VectorIndex
	SafeHosts map[string]struct{}
	Options   config.Options
}

// Orchestrator runs sessions against a fixed set of Deps.
type Orchestrator struct {
	deps Deps

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	buses   map[string]*events.Bus
	gates   map[string]*gate.Gate
}

// New builds an Orchestrator.
func New(deps Deps) *Orchestrator {
	return &Orchestrator{
		deps:    deps,
		cancels: map[string]context.CancelFunc{},
		buses:   map[string]*events.Bus{},
		gates:   map[string]*gate.Gate{},
	}
}

// Bus returns the event bus for a running or completed session, if
// one has been created, so callers can subscribe for progress events.
func (o *Orchestrator) Bus(sessionID string) (*events.Bus, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	b, ok := o.buses[sessionID]
	return b, ok
}

// Cancel requests cooperative cancellation of a running session. The
// session transitions to CANCELLED once the current phase observes
// ctx.Err() (spec §4.1).
func (o *Orchestrator) Cancel(sessionID string) {
	o.mu.Lock()
	cancel, ok := o.cancels[sessionID]
	o.mu.Unlock()
	if ok {
		cancel()
	}
}

// Decide resolves a pending approval gate for a session (spec §4.13).
func (o *Orchestrator) Decide(sessionID string, decision gate.Decision) bool {
	o.mu.Lock()
	g, ok := o.gates[sessionID]
	o.mu.Unlock()
	if !ok {
		return false
	}
	g.Resolve(decision)
	return true
}

// pipelineState is the single typed value threaded through the phase
// chain (internal/engine.Chain requires one input/output type per
// node).
type pipelineState struct {
	session *model.Session
	mode    model.Mode
	bus     *events.Bus
	budget  *tokenbudget.Counter

	papers     []*model.Paper
	spans      map[string]*model.EvidenceSpan
	cards      []*model.StudyCard
	themes     []cluster.Theme
	matrix     *model.TaxonomyMatrix
	claims     []*model.Claim
	directions []gaps.Direction
	report     *model.Report
}

// Run starts a fresh session for topic and runs it to completion (or
// to a terminal FAILED/CANCELLED state), returning the final session.
func (o *Orchestrator) Run(ctx context.Context, topic string) (*model.Session, error) {
	mode := o.deps.Options.Mode
	if mode == "" {
		mode = planner.SelectMode(topic)
	}

	session := model.NewSession(topic, o.deps.Options.OutputLanguage)
	bus := events.NewBus(session.ID, nil)

	runCtx, cancel := context.WithCancel(ctx)
	o.mu.Lock()
	o.cancels[session.ID] = cancel
	o.buses[session.ID] = bus
	o.mu.Unlock()
	defer cancel()

	state := &pipelineState{session: session, bus: bus, spans: map[string]*model.EvidenceSpan{}, budget: tokenbudget.NewCounter(o.deps.Options.TokenBudget, o.deps.LLM)}
	return o.runFrom(runCtx, state, mode)
}

// Resume re-runs a session under its mode's phase template, starting
// again from PLANNING. Before the run it rehydrates papers, spans,
// cards and claims from the checkpoint stored for the session's current
// phase, if there is one; phases that already completed are not
// skipped.
func (o *Orchestrator) Resume(ctx context.Context, sessionID string) (*model.Session, error) {
	session, ok, err := o.deps.Repo.Sessions().GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("orchestrator: session %s not found", sessionID)
	}

	bus := events.NewBus(session.ID, nil)
	runCtx, cancel := context.WithCancel(ctx)
	o.mu.Lock()
	o.cancels[session.ID] = cancel
	o.buses[session.ID] = bus
	o.mu.Unlock()
	defer cancel()

	state := &pipelineState{session: session, bus: bus, spans: map[string]*model.EvidenceSpan{}, budget: tokenbudget.NewCounter(o.deps.Options.TokenBudget, o.deps.LLM)}
	if cp, ok := o.deps.Checkpoints.Read(session.ID, session.Phase); ok {
		o.hydrateFromCheckpoint(runCtx, state, cp)
	}
	return o.runFrom(runCtx, state, resumeMode(session))
}

// resumeMode recovers the mode a resumed session was running under. A
// session that never reached PLANNING has no Plan yet; it restarts
// under the mode its topic would select fresh.
func resumeMode(session *model.Session) model.Mode {
	if session.Plan != nil {
		return session.Plan.Mode
	}
	return planner.SelectMode(session.Topic)
}

func (o *Orchestrator) hydrateFromCheckpoint(ctx context.Context, state *pipelineState, cp repository.Checkpoint) {
	for _, id := range cp.PaperIDs {
		if p, ok, _ := o.deps.Repo.Papers().Get(ctx, id); ok {
			state.papers = append(state.papers, p)
		}
	}
	for _, id := range cp.SpanIDs {
		if s, ok, _ := o.deps.Repo.Spans().Get(ctx, state.session.ID, id); ok {
			state.spans[id] = s
		}
	}
	for _, id := range cp.CardIDs {
		if c, ok, _ := o.deps.Repo.Cards().Get(ctx, state.session.ID, id); ok {
			state.cards = append(state.cards, c)
		}
	}
	for _, id := range cp.ClaimIDs {
		if c, ok, _ := o.deps.Repo.Claims().Get(ctx, state.session.ID, id); ok {
			state.claims = append(state.claims, c)
		}
	}
}

func (o *Orchestrator) runFrom(ctx context.Context, state *pipelineState, mode model.Mode) (*model.Session, error) {
	defer state.bus.Close()

	state.mode = mode
	chain := o.buildChain(mode)
	out, err := chain.Run(ctx, state)
	session := out.session

	switch {
	case ctx.Err() != nil:
		session.Termination = &model.Termination{Cause: model.CauseCancelled, Phase: session.Phase, Reason: ctx.Err().Error()}
		session.Advance(model.PhaseCancelled)
		state.bus.Publish(events.KindDone, events.DonePayload{State: string(model.CauseCancelled)})
	case err != nil:
		if session.Termination == nil {
			session.Termination = &model.Termination{Cause: model.CauseFailed, Phase: session.Phase, Reason: err.Error()}
		}
		session.Advance(model.PhaseFailed)
		state.bus.Publish(events.KindError, events.ErrorPayload{Message: err.Error()})
	default:
		if session.Termination == nil {
			session.Termination = &model.Termination{Cause: model.CauseCompleted, Phase: session.Phase}
		}
	}

	if putErr := o.deps.Repo.Sessions().PutSession(ctx, session); putErr != nil && err == nil {
		err = putErr
	}
	return session, err
}

// buildChain builds a Branch that selects the abbreviated QUICK
// template or the full citation-synthesis template for mode (spec
// §4.1/§4.2). The route is fixed before the first phase runs, so the
// selector ignores the in-flight pipelineState and closes over mode
// directly.
func (o *Orchestrator) buildChain(mode model.Mode) engine.Node[*pipelineState, *pipelineState] {
	common := func() []engine.Node[*pipelineState, *pipelineState] {
		return []engine.Node[*pipelineState, *pipelineState]{
			engine.NodeFunc(o.planPhase),
			engine.NodeFunc(o.collectPhase),
			engine.NodeFunc(o.dedupPhase),
			engine.NodeFunc(o.persistPhase),
		}
	}

	quick := engine.NewChain(common()...)
	quick.Append(engine.NodeFunc(o.completePhase))

	full := engine.NewChain(common()...)
	full.Append(engine.NodeFunc(o.screeningPhase))
	full.Append(engine.NodeFunc(o.gatePDFPhase))
	full.Append(engine.NodeFunc(o.pdfLoadingPhase))
	full.Append(engine.NodeFunc(o.evidenceExtractionPhase))
	full.Append(engine.NodeFunc(o.clusteringPhase))
	full.Append(engine.NodeFunc(o.taxonomyPhase))
	full.Append(engine.NodeFunc(o.claimGenerationPhase))
	full.Append(engine.NodeFunc(o.gapMiningPhase))
	full.Append(engine.NodeFunc(o.groundedWritingPhase))
	full.Append(engine.NodeFunc(o.citationAuditPhase))
	full.Append(engine.NodeFunc(o.publishPhase))
	full.Append(engine.NodeFunc(o.completePhase))

	branch := engine.NewBranch[*pipelineState](func(context.Context, *pipelineState) (string, error) {
		return string(mode), nil
	})
	branch.AddRoute(string(model.ModeQuick), quick)
	branch.AddRoute(string(model.ModeFull), full)
	return branch
}

// checkCancelled returns ctx.Err() wrapped for early-exit at the top
// of every phase, implementing cooperative cancellation (spec §4.1).
func checkCancelled(ctx context.Context) error {
	return ctx.Err()
}

func (o *Orchestrator) checkpoint(cp repository.Checkpoint) {
	o.deps.Checkpoints.Write(cp)
}

func (o *Orchestrator) publish(state *pipelineState, kind events.Kind, payload any) {
	state.bus.Publish(kind, payload)
}

func (o *Orchestrator) advance(state *pipelineState, phase model.Phase) {
	from := state.session.Phase
	state.session.Advance(phase)
	o.publish(state, events.KindStateChange, events.StateChangePayload{From: string(from), To: string(phase)})
}

// emptyCorpus checks the spec's empty-corpus termination: zero papers
// survive collection+dedup.
func emptyCorpus(state *pipelineState) bool {
	return len(state.papers) == 0
}
