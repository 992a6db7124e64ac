package sources

import (
	"context"

	"github.com/researchmesh/citeforge/internal/model"
)

// SourceB is the broader metadata index client: openalex-like, a
// conjunctive title-and-abstract search, rate-limited to the polite
// pool when a contact email is configured (spec §4.3).
type SourceB struct {
	fetch   RawFetcher
	limiter *budgetLimiter
}

// NewSourceB builds a SourceB client. contactEmail, when non-empty,
// unlocks the 10 req/s polite pool; otherwise calls are capped at 100
// per day.
func NewSourceB(fetch RawFetcher, contactEmail string) *SourceB {
	return &SourceB{fetch: fetch, limiter: newBudgetLimiter(contactEmail)}
}

func (s *SourceB) Name() string { return "source_b" }

func (s *SourceB) Search(ctx context.Context, query string) ([]*model.Paper, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	condensed := CondenseForSourceB(query)
	papers, err := s.fetch(ctx, condensed)
	if err != nil {
		return nil, err
	}
	for _, p := range papers {
		p.Source = model.SourceOpenAlex
	}
	return papers, nil
}
