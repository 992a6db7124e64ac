package gate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGate_ResolveApprove(t *testing.T) {
	g := New(KindPDFDownload, map[string]any{"count": 50}, time.Second, false)
	go g.Resolve(DecisionApprove)

	out := g.Wait(context.Background())
	assert.Equal(t, DecisionApprove, out.Decision)
	assert.False(t, out.TimedOut)
}

func TestGate_TimeoutWithoutAutoApproveCancels(t *testing.T) {
	g := New(KindExternalCrawl, nil, 10*time.Millisecond, false)
	out := g.Wait(context.Background())
	assert.Equal(t, DecisionCancel, out.Decision)
	assert.True(t, out.TimedOut)
}

func TestGate_TimeoutWithAutoApproveApproves(t *testing.T) {
	g := New(KindTokenBudget, nil, 10*time.Millisecond, true)
	out := g.Wait(context.Background())
	assert.Equal(t, DecisionApprove, out.Decision)
	assert.True(t, out.TimedOut)
}

func TestGate_ContextCancellationCancels(t *testing.T) {
	g := New(KindPDFDownload, nil, time.Hour, false)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out := g.Wait(ctx)
	assert.Equal(t, DecisionCancel, out.Decision)
}

func TestEvaluatePDFDownload_FiresAboveThreshold(t *testing.T) {
	fired, ctx := EvaluatePDFDownload(100, 1_000_000, 50_000_000)
	require.True(t, fired)
	assert.Equal(t, 100, ctx["count"])

	fired, _ = EvaluatePDFDownload(10, 1_000_000, 50_000_000)
	assert.False(t, fired)
}

func TestEvaluateExternalCrawl_FiresOnUnsafeHost(t *testing.T) {
	safe := map[string]struct{}{"arxiv.org": {}}
	fired, ctx := EvaluateExternalCrawl([]string{"arxiv.org", "evil.example.com"}, safe)
	require.True(t, fired)
	assert.Equal(t, []string{"evil.example.com"}, ctx["hosts"])

	fired, _ = EvaluateExternalCrawl([]string{"arxiv.org"}, safe)
	assert.False(t, fired)
}

func TestEvaluateTokenBudget_FiresAboveBudget(t *testing.T) {
	fired, _ := EvaluateTokenBudget(map[string]int{"a": 60_000, "b": 50_000}, 100_000)
	assert.True(t, fired)

	fired, _ = EvaluateTokenBudget(map[string]int{"a": 10_000}, 100_000)
	assert.False(t, fired)
}
