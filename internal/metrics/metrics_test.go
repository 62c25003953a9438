package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func value(t *testing.T, m prometheus.Metric) float64 {
	t.Helper()
	var pb dto.Metric
	require.NoError(t, m.Write(&pb))
	if pb.Counter != nil {
		return pb.Counter.GetValue()
	}
	return pb.Gauge.GetValue()
}

func TestMetrics_Record(t *testing.T) {
	m := New()

	m.ObserveStage("coder", 120*time.Millisecond)
	m.ObserveStage("coder", 80*time.Millisecond)
	m.Tier("coder", "direct")
	m.File("coder", "completed")
	m.File("coder", "failed")
	m.Iteration(2)
	m.RunStarted()
	m.RunFinished("DONE")

	assert.Equal(t, 2.0, value(t, m.StageInvocations.WithLabelValues("coder")))
	assert.Equal(t, 1.0, value(t, m.FallbackTiers.WithLabelValues("coder", "direct")))
	assert.Equal(t, 1.0, value(t, m.FileDispositions.WithLabelValues("coder", "failed")))
	assert.Equal(t, 1.0, value(t, m.RunsTotal.WithLabelValues("DONE")))
	assert.Equal(t, 0.0, value(t, m.RunsInFlight))
}

func TestMetrics_NilIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveStage("planner", time.Second)
		m.Tier("planner", "structured")
		m.File("fixer", "fixed")
		m.Iteration(1)
		m.RunStarted()
		m.RunFinished("FAILED")
	})
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.ObserveStage("reviewer", time.Second)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `builder_stage_invocations_total{stage="reviewer"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
