package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTickMetrics_Observe(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewTickMetrics(reg)

	m.Observe(TickSample{Duration: 2 * time.Millisecond, InputsApplied: 3, ChunksGenerated: 27, Players: 1, LoadedChunks: 27})
	m.Observe(TickSample{Duration: time.Millisecond, InputsApplied: 2, Players: 2, LoadedChunks: 54})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ticks))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.inputsApplied))
	assert.Equal(t, 27.0, testutil.ToFloat64(m.chunksGenerated))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.players))
	assert.Equal(t, 54.0, testutil.ToFloat64(m.loadedChunks))

	n, err := testutil.GatherAndCount(reg, "blockverse_tick_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestTickMetrics_NilSafe(t *testing.T) {
	var m *TickMetrics
	assert.NotPanics(t, func() { m.Observe(TickSample{}) })
}
