package repository

import (
	"github.com/researchmesh/citeforge/internal/cache"
	"github.com/researchmesh/citeforge/internal/model"
)

// Checkpoint is the advisory restart record the orchestrator writes
// after the persist, evidence-extraction and claim-generation phases;
// the other phases write none.
type Checkpoint struct {
	SessionID   string      `json:"session_id"`
	Phase       model.Phase `json:"phase"`
	PaperIDs    []string    `json:"paper_ids,omitempty"`
	SpanIDs     []string    `json:"span_ids,omitempty"`
	CardIDs     []string    `json:"card_ids,omitempty"`
	ClaimIDs    []string    `json:"claim_ids,omitempty"`
	Cancelled   bool        `json:"cancelled,omitempty"`
}

// CheckpointStore persists Checkpoints in the cache's "ckpt" namespace.
// Checkpoints are advisory: a missing, expired or corrupt entry is a
// miss (Read reports false), never a hard failure; Resume then re-runs
// the session without rehydrated state.
type CheckpointStore struct {
	cache *cache.Store
}

// NewCheckpointStore wraps a cache.Store for checkpoint storage.
func NewCheckpointStore(c *cache.Store) *CheckpointStore {
	return &CheckpointStore{cache: c}
}

// Write stores a checkpoint for (session, phase).
func (s *CheckpointStore) Write(cp Checkpoint) bool {
	key := cache.CheckpointKey(cp.SessionID, string(cp.Phase))
	return s.cache.Set(key, cp, cache.TTLCheckpoint)
}

// Read retrieves the checkpoint for (session, phase), if present and
// not expired/corrupt.
func (s *CheckpointStore) Read(sessionID string, phase model.Phase) (Checkpoint, bool) {
	var cp Checkpoint
	ok := s.cache.Get(cache.CheckpointKey(sessionID, string(phase)), &cp)
	return cp, ok
}
