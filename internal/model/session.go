package model

import "time"

// Phase is one state in the orchestrator's totally-ordered sequence
// (spec §4.1).
type Phase string

const (
	PhaseIdle               Phase = "IDLE"
	PhasePlanning           Phase = "PLANNING"
	PhaseCollection         Phase = "COLLECTION"
	PhaseDedup              Phase = "DEDUP"
	PhasePersist            Phase = "PERSIST"
	PhaseScreening          Phase = "SCREENING"
	PhaseGatePDF            Phase = "GATE_PDF"
	PhasePDFLoading         Phase = "PDF_LOADING"
	PhaseEvidenceExtraction Phase = "EVIDENCE_EXTRACTION"
	PhaseClustering         Phase = "CLUSTERING"
	PhaseTaxonomy           Phase = "TAXONOMY"
	PhaseClaimGeneration    Phase = "CLAIM_GENERATION"
	PhaseGapMining          Phase = "GAP_MINING"
	PhaseGroundedWriting    Phase = "GROUNDED_WRITING"
	PhaseCitationAudit      Phase = "CITATION_AUDIT"
	PhasePublish            Phase = "PUBLISH"
	PhaseComplete           Phase = "COMPLETE"
	PhaseFailed             Phase = "FAILED"
	PhaseCancelled          Phase = "CANCELLED"
)

// FullSequence is the totally-ordered FULL-mode phase template.
func FullSequence() []Phase {
	return []Phase{
		PhasePlanning, PhaseCollection, PhaseDedup, PhasePersist,
		PhaseScreening, PhaseGatePDF, PhasePDFLoading,
		PhaseEvidenceExtraction, PhaseClustering, PhaseTaxonomy,
		PhaseClaimGeneration, PhaseGapMining, PhaseGroundedWriting,
		PhaseCitationAudit, PhasePublish, PhaseComplete,
	}
}

// QuickSequence is the abbreviated QUICK-mode phase template.
func QuickSequence() []Phase {
	return []Phase{
		PhasePlanning, PhaseCollection, PhaseDedup, PhasePersist,
		PhaseComplete,
	}
}

// SequenceFor returns the phase template for a mode.
func SequenceFor(mode Mode) []Phase {
	if mode == ModeQuick {
		return QuickSequence()
	}
	return FullSequence()
}

// TerminationCause classifies how a session ended.
type TerminationCause string

const (
	CauseCompleted        TerminationCause = "completed"
	CauseCancelled        TerminationCause = "cancelled"
	CauseFailed           TerminationCause = "failed"
	CauseEmptyCorpus      TerminationCause = "empty_corpus"
	CauseAuditFloorUnmet  TerminationCause = "audit_floor_unmet"
)

// Termination records why and where a session stopped.
type Termination struct {
	Cause  TerminationCause `json:"cause"`
	Phase  Phase            `json:"phase"`
	Reason string           `json:"reason,omitempty"`
}

// PendingApproval describes an active approval gate (spec §4.13).
type PendingApproval struct {
	GateKind  string         `json:"gate_kind"`
	Context   map[string]any `json:"context"`
	OpenedAt  time.Time      `json:"opened_at"`
	TimeoutAt time.Time      `json:"timeout_at"`
}

// CacheMetrics tracks cache effectiveness for a session, surfaced in
// progress events.
type CacheMetrics struct {
	Hits   int `json:"hits"`
	Misses int `json:"misses"`
	Writes int `json:"writes"`
}

// Session is a research run (spec §3): the source of truth for resume.
type Session struct {
	ID               string            `json:"id"`
	Topic            string            `json:"topic"`
	Language         string            `json:"language"`
	Phase            Phase             `json:"phase"`
	PhaseHistory     []Phase           `json:"phase_history"`
	Plan             *Plan             `json:"plan,omitempty"`
	PaperIDs         []string          `json:"paper_ids"`
	CacheMetrics     CacheMetrics      `json:"cache_metrics"`
	PendingApproval  *PendingApproval  `json:"pending_approval,omitempty"`
	Termination      *Termination      `json:"termination,omitempty"`
	CostEstimateUSD  float64           `json:"cost_estimate_usd"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// NewSession creates a fresh IDLE session for a topic.
func NewSession(topic, language string) *Session {
	now := timeNow()
	return &Session{
		ID:           NewID(),
		Topic:        topic,
		Language:     language,
		Phase:        PhaseIdle,
		PhaseHistory: []Phase{PhaseIdle},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Advance appends phase to the history and sets it as current. It is
// the only mutator of Phase/PhaseHistory, so the "phase history is a
// prefix of the declared sequence" invariant (spec §8) holds by
// construction as long as callers only ever advance along SequenceFor.
func (s *Session) Advance(phase Phase) {
	s.Phase = phase
	s.PhaseHistory = append(s.PhaseHistory, phase)
	s.UpdatedAt = timeNow()
}

// Report is the final artifact (spec §3).
type Report struct {
	SessionID  string    `json:"session_id"`
	Content    string    `json:"content"`
	ClaimIDs   []string  `json:"claim_ids"`
	Language   string    `json:"language"`
	CreatedAt  time.Time `json:"created_at"`
}

// timeNow is indirected so tests can freeze time without reaching for
// a global monkeypatch; production code always calls it unmodified.
var timeNow = time.Now
