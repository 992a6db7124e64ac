// Package model defines the citation-first data model shared by every
// pipeline stage: Paper, ScreeningRecord, EvidenceSpan, StudyCard,
// Claim, TaxonomyMatrix, Plan, Session, and Report (spec §3).
//
// Entities reference each other by id only, never by pointer, so the
// graph stays an acyclic, trivially-persistable set of string keys
// (spec §9 design note).
package model

import (
	"crypto/sha1"
	"encoding/hex"

	"github.com/google/uuid"
)

// NewID returns a fresh opaque identifier for sessions, plans, cards
// and claims, where no deterministic derivation is required.
func NewID() string {
	return uuid.NewString()
}

// SpanID deterministically derives an EvidenceSpan id from its paper
// and (possibly truncated) snippet: "{paper_id}#{first 8 hex of
// SHA1(snippet)}". Reproducible across runs on the same inputs (spec
// §3, §8 determinism law).
func SpanID(paperID, snippet string) string {
	sum := sha1.Sum([]byte(snippet))
	return paperID + "#" + hex.EncodeToString(sum[:])[:8]
}

// TruncateSnippet clamps a snippet to the 300-char limit before it is
// used to derive a span id, per the EvidenceSpan invariant in spec §3.
func TruncateSnippet(s string) string {
	const maxLen = 300
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen])
}
