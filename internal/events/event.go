// Package events implements the per-session progress event bus (spec
// §4.14): one producer, many consumers, FIFO per producer, with
// bounded per-consumer queues that drop rather than block a slow
// reader.
//
// Adapted from the teacher's sse package, generalized from a single SSE
// writer into a multi-consumer bus (events are plain values; no pooling
// is used); sse.Writer/Encoder is kept as the optional external
// HTTP-SSE drain in writer.go.
package events

import "time"

// Kind enumerates the event kinds of spec §4.14.
type Kind string

const (
	KindProgress         Kind = "progress"
	KindStateChange      Kind = "state_change"
	KindMessage          Kind = "message"
	KindTokenStream      Kind = "token_stream"
	KindPlan             Kind = "plan"
	KindPapersCollected   Kind = "papers_collected"
	KindScreeningSummary Kind = "screening_summary"
	KindEvidence         Kind = "evidence"
	KindTaxonomy         Kind = "taxonomy"
	KindClaims           Kind = "claims"
	KindGapMining        Kind = "gap_mining"
	KindApprovalRequired Kind = "approval_required"
	KindComplete         Kind = "complete"
	KindError            Kind = "error"
	KindDone             Kind = "done"
)

// Event is one item posted to the bus. Payload carries the kind-specific
// body (e.g. a progress{phase,...} struct) as `any`, matching the
// teacher's Message's opaque Data []byte philosophy but kept typed for
// in-process consumers — the optional SSE drain (writer.go) is the
// place serialization to bytes happens.
type Event struct {
	SessionID string    `json:"session_id"`
	Kind      Kind      `json:"kind"`
	Seq       uint64    `json:"seq"`
	At        time.Time `json:"at"`
	Payload   any       `json:"payload"`
}

// ProgressPayload backs KindProgress.
type ProgressPayload struct {
	Phase      string `json:"phase"`
	PhaseIndex int    `json:"phase_index"`
	Current    int    `json:"current"`
	Total      int    `json:"total"`
	Message    string `json:"message"`
	Slow       bool   `json:"slow,omitempty"`
	Warn       bool   `json:"warn,omitempty"`
}

// StateChangePayload backs KindStateChange.
type StateChangePayload struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// DonePayload backs KindDone.
type DonePayload struct {
	State string `json:"state"`
}

// ErrorPayload backs KindError.
type ErrorPayload struct {
	Message string `json:"message"`
}

// ApprovalRequiredPayload backs KindApprovalRequired.
type ApprovalRequiredPayload struct {
	GateKind string         `json:"gate_kind"`
	Context  map[string]any `json:"context"`
}
