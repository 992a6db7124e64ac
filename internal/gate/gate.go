// Package gate implements the approval-gate manager of spec §4.13:
// three gate kinds (pdf_download, external_crawl, token_budget), each
// triggered by a predicate evaluated after screening, pause the
// pipeline and wait for an external decision (approve, skip, cancel)
// or time out.
//
// Grounded on Tangerg-lynx/core/job.Job's Start/Stop cooperative-pause
// lifecycle shape, adapted from a worker's run/stop signal into a
// pause-for-external-decision signal backed by pkg/xsync.Future.
package gate

import (
	"context"
	"time"

	"github.com/researchmesh/citeforge/internal/model"
	"github.com/researchmesh/citeforge/pkg/xsync"
)

// Kind names one of the three gate predicates (spec §4.13).
type Kind string

const (
	KindPDFDownload   Kind = "pdf_download"
	KindExternalCrawl Kind = "external_crawl"
	KindTokenBudget   Kind = "token_budget"
)

// DefaultTimeout is the decision timeout applied when none is
// configured (spec §4.13).
const DefaultTimeout = time.Hour

// Decision is an external response to a pending gate.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionSkip    Decision = "skip"
	DecisionCancel  Decision = "cancel"
)

// Outcome is the result of waiting on a gate: the decision made (or
// implied by timeout) and whether the caller should degrade inputs.
type Outcome struct {
	Decision Decision
	TimedOut bool
}

// Gate is one pending approval point. Resolve is called by an external
// actor (an API handler, a CLI prompt); Wait blocks the pipeline
// goroutine until Resolve is called, ctx is cancelled, or the timeout
// elapses.
type Gate struct {
	Kind      Kind
	Context   map[string]any
	future    *xsync.Future[Decision]
	timeout   time.Duration
	autoApprove bool
}

// New creates a pending gate. When autoApprove is true, a timeout
// resolves to approve instead of cancel (spec §4.13: "unless an
// auto-approve flag is configured").
func New(kind Kind, gateContext map[string]any, timeout time.Duration, autoApprove bool) *Gate {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Gate{
		Kind:        kind,
		Context:     gateContext,
		future:      xsync.NewFuture[Decision](),
		timeout:     timeout,
		autoApprove: autoApprove,
	}
}

// Resolve records an external decision. Only the first call has any
// effect.
func (g *Gate) Resolve(d Decision) {
	g.future.Resolve(d, nil)
}

// Wait blocks until a decision is made, the timeout elapses, or ctx is
// cancelled. A timeout resolves to cancel, or to approve when the gate
// was opened with autoApprove.
func (g *Gate) Wait(ctx context.Context) Outcome {
	timeoutCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	decision, err := g.future.GetWithContext(timeoutCtx)
	if err == nil {
		return Outcome{Decision: decision}
	}
	if g.autoApprove {
		return Outcome{Decision: DecisionApprove, TimedOut: true}
	}
	return Outcome{Decision: DecisionCancel, TimedOut: true}
}

// PendingApproval renders the gate as the Session-visible record (spec
// §3, §4.13).
func (g *Gate) PendingApproval() model.PendingApproval {
	return model.PendingApproval{
		GateKind:  string(g.Kind),
		Context:   g.Context,
		OpenedAt:  time.Now(),
		TimeoutAt: time.Now().Add(g.timeout),
	}
}

// EvaluatePDFDownload is the pdf_download gate predicate (spec §4.13):
// fires when the expected download cost exceeds threshold.
func EvaluatePDFDownload(includedPaperCount int, expectedBytesPerPaper, thresholdBytes int64) (bool, map[string]any) {
	estimated := int64(includedPaperCount) * expectedBytesPerPaper
	if estimated <= thresholdBytes {
		return false, nil
	}
	return true, map[string]any{
		"count":           includedPaperCount,
		"estimated_bytes": estimated,
	}
}

// EvaluateExternalCrawl is the external_crawl gate predicate (spec
// §4.13): fires when any source URL host is outside the known-safe
// set.
func EvaluateExternalCrawl(hosts []string, safeHosts map[string]struct{}) (bool, map[string]any) {
	var unsafe []string
	for _, h := range hosts {
		if _, ok := safeHosts[h]; !ok {
			unsafe = append(unsafe, h)
		}
	}
	if len(unsafe) == 0 {
		return false, nil
	}
	return true, map[string]any{"hosts": unsafe}
}

// EvaluateTokenBudget is the token_budget gate predicate (spec §4.13):
// fires when the projected token use across remaining phases exceeds
// budget.
func EvaluateTokenBudget(projectedByPhase map[string]int, budget int) (bool, map[string]any) {
	total := 0
	for _, v := range projectedByPhase {
		total += v
	}
	if total <= budget {
		return false, nil
	}
	return true, map[string]any{"projection": projectedByPhase, "total": total, "budget": budget}
}
