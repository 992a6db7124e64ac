package sources

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/researchmesh/citeforge/internal/model"
)

func TestSourceA_TagsSourceAndPaces(t *testing.T) {
	calls := 0
	fetch := func(_ context.Context, query string) ([]*model.Paper, error) {
		calls++
		return []*model.Paper{{ID: "p1", Title: query}}, nil
	}
	src := NewSourceA(fetch)
	src.limiter.delay = time.Millisecond // keep test fast

	papers, err := src.Search(context.Background(), "graph neural networks")
	require.NoError(t, err)
	require.Len(t, papers, 1)
	assert.Equal(t, model.SourceArxiv, papers[0].Source)
}

func TestSourceA_HoldsPermitForFullFetchDuration(t *testing.T) {
	var inFlight, maxInFlight int32
	fetch := func(_ context.Context, query string) ([]*model.Paper, error) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			max := atomic.LoadInt32(&maxInFlight)
			if n <= max || atomic.CompareAndSwapInt32(&maxInFlight, max, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return []*model.Paper{{ID: "p1", Title: query}}, nil
	}
	src := NewSourceA(fetch)
	src.limiter.delay = time.Millisecond

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := src.Search(context.Background(), "graph neural networks")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&maxInFlight), "at most one source A fetch should be in flight at a time")
}

func TestSourceB_CondensesQueryAndTagsSource(t *testing.T) {
	var seenQuery string
	fetch := func(_ context.Context, query string) ([]*model.Paper, error) {
		seenQuery = query
		return []*model.Paper{{ID: "p1", Title: query}}, nil
	}
	src := NewSourceB(fetch, "researcher@example.com")
	src.limiter.perSecond.delay = time.Millisecond

	papers, err := src.Search(context.Background(), "a survey of graph neural network architectures for node classification")
	require.NoError(t, err)
	require.Len(t, papers, 1)
	assert.Equal(t, model.SourceOpenAlex, papers[0].Source)
	assert.LessOrEqual(t, len(splitWords(seenQuery)), 4)
}

func TestBudgetLimiter_DailyCapWithoutEmail(t *testing.T) {
	b := newBudgetLimiter("")
	b.dailyMax = 2

	require.NoError(t, b.Wait(context.Background()))
	require.NoError(t, b.Wait(context.Background()))
	assert.ErrorIs(t, b.Wait(context.Background()), errDailyBudgetExhausted)
}

func TestIsBlockedPDFURL(t *testing.T) {
	assert.True(t, IsBlockedPDFURL("https://www.sciencedirect.com/science/article/pii/123"))
	assert.False(t, IsBlockedPDFURL("https://arxiv.org/pdf/1234.5678"))
}

func TestQueryQualityPoor(t *testing.T) {
	results := []*model.Paper{
		{Title: "Completely unrelated topic about cooking"},
		{Title: "Another unrelated gardening article"},
	}
	assert.True(t, queryQualityPoor("graph neural networks", results))

	results2 := []*model.Paper{
		{Title: "Graph neural networks for node classification"},
	}
	assert.False(t, queryQualityPoor("graph neural networks", results2))
}

func TestHeuristicRefine_StripsVersionAndPairs(t *testing.T) {
	out := heuristicRefine("transformers v2 attention is all you need", 0)
	assert.NotContains(t, out, "v2")
}

func TestHeuristicRefine_AppendsSurveyOnLastRound(t *testing.T) {
	out := heuristicRefine("graph neural networks", 1)
	assert.Contains(t, out, "survey")
}

func splitWords(s string) []string {
	var out []string
	word := ""
	for _, r := range s {
		if r == ' ' {
			if word != "" {
				out = append(out, word)
				word = ""
			}
			continue
		}
		word += string(r)
	}
	if word != "" {
		out = append(out, word)
	}
	return out
}
