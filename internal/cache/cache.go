// Package cache implements the best-effort, keyed TTL cache of spec
// §4.4: three logical namespaces (tool result, pdf content, session
// checkpoint) sharing one store. A read miss or a write failure is
// never surfaced as a pipeline error — callers get (nil, false) or
// silently proceed.
//
// No direct teacher analogue exists for a cache store; this is built
// from the teacher's pkg/codec (versioned blob encoding) and the
// "explicit initialize/teardown singleton" shape the source's design
// notes (§9) require of process-wide collaborators.
package cache

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	"github.com/researchmesh/citeforge/pkg/codec"
)

// Namespace is a logical key prefix with its own default TTL.
type Namespace string

const (
	NamespaceToolResult Namespace = "tool"
	NamespacePDFText    Namespace = "pdf"
	NamespacePDFPages   Namespace = "pdfpages"
	NamespaceCheckpoint Namespace = "ckpt"
)

const (
	TTLSearch       = time.Hour
	TTLTrending     = 30 * time.Minute
	TTLURLIngest    = 24 * time.Hour
	TTLPDF          = 7 * 24 * time.Hour
	TTLCheckpoint   = 24 * time.Hour
)

type entry struct {
	codecVersion string
	blob         []byte
	expiresAt    time.Time
}

// Store is a process-wide, best-effort TTL cache.
type Store struct {
	codec codec.Codec

	mu   sync.RWMutex
	data map[string]entry
}

// New creates an empty Store using the default JSON codec.
func New() *Store {
	return &Store{codec: codec.Default(), data: make(map[string]entry)}
}

// ToolResultKey builds the "tool:<tool>:<md5(args)>" key shape of spec §4.4.
func ToolResultKey(tool string, args any) string {
	argBytes, _ := json.Marshal(args)
	sum := md5.Sum(argBytes)
	return string(NamespaceToolResult) + ":" + tool + ":" + hex.EncodeToString(sum[:])
}

// PDFTextKey builds the "pdf:<url>" key shape.
func PDFTextKey(url string) string { return string(NamespacePDFText) + ":" + url }

// PDFPagesKey builds the "pdfpages:<url>" key shape.
func PDFPagesKey(url string) string { return string(NamespacePDFPages) + ":" + url }

// CheckpointKey builds the "ckpt:<session>:<phase>" key shape.
func CheckpointKey(sessionID, phase string) string {
	return string(NamespaceCheckpoint) + ":" + sessionID + ":" + phase
}

// Set stores v under key with the given TTL. Encode failures are
// logged-and-ignored by the caller's convention (best-effort per spec);
// Set itself simply reports whether the write happened.
func (s *Store) Set(key string, v any, ttl time.Duration) bool {
	blob, err := s.codec.Marshal(v)
	if err != nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = entry{
		codecVersion: s.codec.Version(),
		blob:         blob,
		expiresAt:    time.Now().Add(ttl),
	}
	return true
}

// Get decodes the value stored under key into dst. It returns false on
// any miss: absent key, expired entry, or codec-version mismatch —
// callers must treat a false return as "go fetch it again", never as
// an error.
func (s *Store) Get(key string, dst any) bool {
	s.mu.RLock()
	e, ok := s.data[key]
	s.mu.RUnlock()
	if !ok {
		return false
	}
	if time.Now().After(e.expiresAt) {
		s.mu.Lock()
		delete(s.data, key)
		s.mu.Unlock()
		return false
	}
	if e.codecVersion != s.codec.Version() {
		return false
	}
	return s.codec.Unmarshal(e.blob, dst) == nil
}

// Delete removes key unconditionally (used to invalidate a checkpoint
// after a cancelled or failed phase restarts it).
func (s *Store) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
}

// Sweep removes all expired entries; callers may run it periodically
// to bound memory, but correctness never depends on it since Get
// already treats expired entries as misses.
func (s *Store) Sweep() {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, e := range s.data {
		if now.After(e.expiresAt) {
			delete(s.data, k)
		}
	}
}
