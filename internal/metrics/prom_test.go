package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chrissnell/tidewatch/internal/ingest"
	"github.com/chrissnell/tidewatch/internal/types"
)

var _ ingest.Recorder = (*PromRecorder)(nil)

func TestPromRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r, err := NewPromRecorderWithRegistry(reg)
	require.NoError(t, err)

	r.ReadingIngested("pilote-norden", 2.1)
	r.ReadingIngested("pilote-norden", 2.3)
	r.SurgeTransition("pilote-norden", types.NotificationSurgeStarted)
	r.SurgeState("pilote-norden", types.SurgeState{Active: true, PeakHeight: 2.3})
	r.PersistFailed("pilote-norden", "history")
	r.NotificationDropped("kafka")

	expected := `
# HELP tidewatch_readings_total Total number of readings ingested
# TYPE tidewatch_readings_total counter
tidewatch_readings_total{station="pilote-norden"} 2
`
	assert.NoError(t, testutil.CollectAndCompare(r.readings, strings.NewReader(expected)))

	assert.Equal(t, 2.3, testutil.ToFloat64(r.height.WithLabelValues("pilote-norden")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.surgeActive.WithLabelValues("pilote-norden")))
	assert.Equal(t, 2.3, testutil.ToFloat64(r.surgePeak.WithLabelValues("pilote-norden")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.transitions.WithLabelValues("pilote-norden", "surge_started")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.persistFailures.WithLabelValues("pilote-norden", "history")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.dropped.WithLabelValues("kafka")))

	r.SurgeState("pilote-norden", types.SurgeState{Active: false, PeakHeight: 2.3})
	assert.Equal(t, 0.0, testutil.ToFloat64(r.surgeActive.WithLabelValues("pilote-norden")))
}

func TestPromRecorderReRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewPromRecorderWithRegistry(reg)
	require.NoError(t, err)
	second, err := NewPromRecorderWithRegistry(reg)
	require.NoError(t, err)

	first.ReadingIngested("san-fernando", 1.0)
	assert.Equal(t, 1.0, testutil.ToFloat64(second.readings.WithLabelValues("san-fernando")))
}
