// Package repository defines the persistence interfaces the core
// treats as an external collaborator (spec §1, §6) plus an in-memory
// reference implementation used by tests and cmd/citeforged. Every
// operation is idempotent on (session_id, entity_id), per spec §6.
//
// Grounded on the teacher's core/message id-keyed store shape and
// core/job's Start/Stop lifecycle convention for the store's
// init/teardown surface.
package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/researchmesh/citeforge/internal/model"
)

// Papers is the process-wide paper registry: papers may be referenced
// by many sessions and outlive any one of them (spec §3 ownership note).
type Papers interface {
	Put(ctx context.Context, p *model.Paper) error
	Get(ctx context.Context, id string) (*model.Paper, bool, error)
	UpdateStatus(ctx context.Context, id string, status model.PaperStatus) error
	ByMetadataHash(ctx context.Context, hash string) (*model.Paper, bool, error)
}

// SessionScoped is the per-session collection shape: plans, screening
// records, evidence spans, study cards, and claims are owned by the
// session by value and cannot outlive it logically (spec §3).
type SessionScoped[T any] interface {
	Put(ctx context.Context, sessionID string, id string, v T) error
	Get(ctx context.Context, sessionID, id string) (T, bool, error)
	ListBySession(ctx context.Context, sessionID string) ([]T, error)
}

// Sessions stores Session and Report records.
type Sessions interface {
	PutSession(ctx context.Context, s *model.Session) error
	GetSession(ctx context.Context, id string) (*model.Session, bool, error)
	PutReport(ctx context.Context, r *model.Report) error
	GetReport(ctx context.Context, sessionID string) (*model.Report, bool, error)
}

// Repository bundles every collection the core depends on.
type Repository interface {
	Papers() Papers
	Screenings() SessionScoped[*model.ScreeningRecord]
	Spans() SessionScoped[*model.EvidenceSpan]
	Cards() SessionScoped[*model.StudyCard]
	Claims() SessionScoped[*model.Claim]
	Sessions() Sessions
}

// ErrNotFound is returned by callers that choose to surface a miss as
// an error instead of a boolean (most call sites prefer the boolean
// form to keep "not found" on the happy path).
var ErrNotFound = fmt.Errorf("repository: not found")

// inMemory is a simple, lock-protected reference implementation. It
// exists so the orchestrator, tests, and cmd/citeforged can run without
// a real database, exactly as spec §1 treats persistence as an
// external collaborator the core merely depends on an interface for.
type inMemory struct {
	mu sync.RWMutex

	papers       map[string]*model.Paper
	papersByHash map[string]string

	screenings map[string]map[string]*model.ScreeningRecord
	spans      map[string]map[string]*model.EvidenceSpan
	cards      map[string]map[string]*model.StudyCard
	claims     map[string]map[string]*model.Claim

	sessions map[string]*model.Session
	reports  map[string]*model.Report
}

// NewInMemory creates an in-memory Repository.
func NewInMemory() Repository {
	return &inMemory{
		papers:       map[string]*model.Paper{},
		papersByHash: map[string]string{},
		screenings:   map[string]map[string]*model.ScreeningRecord{},
		spans:        map[string]map[string]*model.EvidenceSpan{},
		cards:        map[string]map[string]*model.StudyCard{},
		claims:       map[string]map[string]*model.Claim{},
		sessions:     map[string]*model.Session{},
		reports:      map[string]*model.Report{},
	}
}

func (m *inMemory) Papers() Papers     { return (*papersRepo)(m) }
func (m *inMemory) Sessions() Sessions { return (*sessionsRepo)(m) }

func (m *inMemory) Screenings() SessionScoped[*model.ScreeningRecord] {
	return &scoped[*model.ScreeningRecord]{mu: &m.mu, data: m.screenings}
}
func (m *inMemory) Spans() SessionScoped[*model.EvidenceSpan] {
	return &scoped[*model.EvidenceSpan]{mu: &m.mu, data: m.spans}
}
func (m *inMemory) Cards() SessionScoped[*model.StudyCard] {
	return &scoped[*model.StudyCard]{mu: &m.mu, data: m.cards}
}
func (m *inMemory) Claims() SessionScoped[*model.Claim] {
	return &scoped[*model.Claim]{mu: &m.mu, data: m.claims}
}

type papersRepo inMemory

func (p *papersRepo) Put(_ context.Context, paper *model.Paper) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.papers[paper.ID] = paper
	if paper.MetadataHash != "" {
		p.papersByHash[paper.MetadataHash] = paper.ID
	}
	return nil
}

func (p *papersRepo) Get(_ context.Context, id string) (*model.Paper, bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := p.papers[id]
	return v, ok, nil
}

func (p *papersRepo) UpdateStatus(_ context.Context, id string, status model.PaperStatus) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.papers[id]
	if !ok {
		return ErrNotFound
	}
	v.Status = status
	return nil
}

func (p *papersRepo) ByMetadataHash(_ context.Context, hash string) (*model.Paper, bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	id, ok := p.papersByHash[hash]
	if !ok {
		return nil, false, nil
	}
	v, ok := p.papers[id]
	return v, ok, nil
}

type sessionsRepo inMemory

func (s *sessionsRepo) PutSession(_ context.Context, sess *model.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
	return nil
}

func (s *sessionsRepo) GetSession(_ context.Context, id string) (*model.Session, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.sessions[id]
	return v, ok, nil
}

func (s *sessionsRepo) PutReport(_ context.Context, r *model.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports[r.SessionID] = r
	return nil
}

func (s *sessionsRepo) GetReport(_ context.Context, sessionID string) (*model.Report, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.reports[sessionID]
	return v, ok, nil
}

type scoped[T any] struct {
	mu   *sync.RWMutex
	data map[string]map[string]T
}

func (s *scoped[T]) Put(_ context.Context, sessionID, id string, v T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	bucket, ok := s.data[sessionID]
	if !ok {
		bucket = map[string]T{}
		s.data[sessionID] = bucket
	}
	bucket[id] = v
	return nil
}

func (s *scoped[T]) Get(_ context.Context, sessionID, id string) (T, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var zero T
	bucket, ok := s.data[sessionID]
	if !ok {
		return zero, false, nil
	}
	v, ok := bucket[id]
	return v, ok, nil
}

func (s *scoped[T]) ListBySession(_ context.Context, sessionID string) ([]T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bucket := s.data[sessionID]
	out := make([]T, 0, len(bucket))
	for _, v := range bucket {
		out = append(out, v)
	}
	return out, nil
}
