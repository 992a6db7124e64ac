package orchestrator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/researchmesh/citeforge/internal/cache"
	"github.com/researchmesh/citeforge/internal/config"
	"github.com/researchmesh/citeforge/internal/gate"
	"github.com/researchmesh/citeforge/internal/llm"
	"github.com/researchmesh/citeforge/internal/model"
	"github.com/researchmesh/citeforge/internal/repository"
	"github.com/researchmesh/citeforge/internal/sources"
)

const quickPlanJSON = `[{"action":"research","title":"search","tool":"search_source_a","queries":["graph neural networks"],"expected_output":"papers"}]`

type fakeClient struct {
	name  string
	title string
}

func (c fakeClient) Name() string { return c.name }

func (c fakeClient) Search(_ context.Context, query string) ([]*model.Paper, error) {
	return []*model.Paper{
		{
			ID:       model.NewID(),
			Title:    c.title + " " + query,
			Abstract: "an abstract about " + query,
			Source:   model.SourceTag(c.name),
		},
	}, nil
}

func newOrchestrator(fake *llm.Fake, clients []sources.Client, mode model.Mode) *Orchestrator {
	store := cache.New()
	opts := config.Defaults()
	opts.Mode = mode
	return New(Deps{
		Repo:        repository.NewInMemory(),
		Checkpoints: repository.NewCheckpointStore(store),
		LLM:         fake,
		Clients:     clients,
		Options:     opts,
	})
}

func TestRun_QuickModeCompletesThroughPersistence(t *testing.T) {
	fake := llm.NewFake(llm.FakeResponse{Text: quickPlanJSON})
	clients := []sources.Client{fakeClient{name: "source_a", title: "Graph Neural Networks Survey"}}
	orch := newOrchestrator(fake, clients, model.ModeQuick)

	session, err := orch.Run(context.Background(), "quick overview of graph neural networks")
	require.NoError(t, err)
	assert.Equal(t, model.PhaseComplete, session.Phase)
	assert.Equal(t, model.CauseCompleted, session.Termination.Cause)
	assert.NotEmpty(t, session.PaperIDs)
}

// TestRun_QuickModeEmptyCorpusCompletes: spec §8's empty-corpus
// boundary case only fails in FULL mode; QUICK mode's contract is
// just a paper list, so zero papers collected still reaches COMPLETE.
func TestRun_QuickModeEmptyCorpusCompletes(t *testing.T) {
	fake := llm.NewFake(llm.FakeResponse{Text: quickPlanJSON})
	orch := newOrchestrator(fake, nil, model.ModeQuick)

	session, err := orch.Run(context.Background(), "quick overview of an empty topic")
	require.NoError(t, err)
	require.NotNil(t, session.Termination)
	assert.Equal(t, model.CauseCompleted, session.Termination.Cause)
	assert.Equal(t, model.PhaseComplete, session.Phase)
}

func TestRun_FullModeEmptyCorpusTerminatesAsFailed(t *testing.T) {
	fake := llm.NewFake(llm.FakeResponse{Text: quickPlanJSON})
	orch := newOrchestrator(fake, nil, model.ModeFull)

	session, err := orch.Run(context.Background(), "a comprehensive survey of an empty topic")
	require.Error(t, err)
	require.NotNil(t, session.Termination)
	assert.Equal(t, model.CauseEmptyCorpus, session.Termination.Cause)
	assert.Equal(t, model.PhaseFailed, session.Phase)
}

func TestCancel_StopsRunningSessionCooperatively(t *testing.T) {
	fake := llm.NewFake(llm.FakeResponse{Text: quickPlanJSON})
	clients := []sources.Client{fakeClient{name: "source_a", title: "Graph Neural Networks"}}
	orch := newOrchestrator(fake, clients, model.ModeQuick)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	session, err := orch.Run(ctx, "quick topic")
	require.Error(t, err)
	require.NotNil(t, session.Termination)
	assert.Equal(t, model.CauseCancelled, session.Termination.Cause)
}

func TestDecide_ReturnsFalseForUnknownSession(t *testing.T) {
	orch := newOrchestrator(llm.NewFake(), nil, model.ModeFull)
	assert.False(t, orch.Decide("no-such-session", gate.DecisionApprove))
}

func TestResumeMode_FallsBackToSelectModeWhenPlanNil(t *testing.T) {
	session := model.NewSession("quick topic", "en")
	assert.Equal(t, model.ModeQuick, resumeMode(session))
}
