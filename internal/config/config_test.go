package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/researchmesh/citeforge/internal/model"
)

func TestDefaults_MatchSpecDefaults(t *testing.T) {
	d := Defaults()
	assert.Equal(t, model.ModeFull, d.Mode)
	assert.Equal(t, 0.8, d.AuditPassRateFloor)
	assert.False(t, d.GateAutoApprove)
	assert.Equal(t, 3600, d.GateTimeoutSeconds)
	assert.Equal(t, 3, d.MinClusterSize)
	assert.Equal(t, 15, d.ScreeningBatchSize)
	assert.Equal(t, time.Hour, d.GateTimeout())
}

func TestLoad_OverridesOnlySpecifiedFields(t *testing.T) {
	yaml := []byte("mode: QUICK\nmax_papers_total: 50\n")
	opts, err := Load(yaml)
	require.NoError(t, err)
	assert.Equal(t, model.ModeQuick, opts.Mode)
	assert.Equal(t, 50, opts.MaxPapersTotal)
	assert.Equal(t, 0.8, opts.AuditPassRateFloor, "unspecified fields must keep their default")
}
