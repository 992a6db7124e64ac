package sources

import (
	"context"
	"time"

	"github.com/researchmesh/citeforge/internal/model"
)

// sourceAPaceDelay is the minimum interval between calls to source A
// (spec §4.3: "one request per 3.5 seconds").
const sourceAPaceDelay = 3500 * time.Millisecond

// RawFetcher performs the actual network call to a backend's search
// endpoint and returns raw papers. Injected so this package never
// depends on a concrete HTTP client or wire format, matching the
// spec's external-collaborator boundary for anything outside pipeline
// logic.
type RawFetcher func(ctx context.Context, query string) ([]*model.Paper, error)

// SourceA is the primary academic index client: arxiv-like, strictly
// paced to one in-flight request with a trailing delay.
type SourceA struct {
	fetch   RawFetcher
	limiter *pacedLimiter
}

// NewSourceA builds a SourceA client around fetch.
func NewSourceA(fetch RawFetcher) *SourceA {
	return &SourceA{fetch: fetch, limiter: newPacedLimiter(sourceAPaceDelay)}
}

func (s *SourceA) Name() string { return "source_a" }

func (s *SourceA) Search(ctx context.Context, query string) ([]*model.Paper, error) {
	var papers []*model.Paper
	err := s.limiter.Do(ctx, func(ctx context.Context) error {
		fetched, err := s.fetch(ctx, query)
		if err != nil {
			return err
		}
		papers = fetched
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, p := range papers {
		p.Source = model.SourceArxiv
	}
	return papers, nil
}
