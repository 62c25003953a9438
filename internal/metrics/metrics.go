// Package metrics exposes Prometheus collectors for pipeline runs.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors for one process. All methods are safe on a
// nil receiver so stages can run without instrumentation.
//
// Metrics:
//   - builder_stage_invocations_total{stage}
//   - builder_stage_duration_seconds{stage}
//   - builder_fallback_tier_total{stage,tier}
//   - builder_file_dispositions_total{stage,outcome}
//   - builder_review_iterations
//   - builder_runs_total{status}
//   - builder_runs_in_flight
type Metrics struct {
	registry *prometheus.Registry

	StageInvocations *prometheus.CounterVec
	StageDuration    *prometheus.HistogramVec
	FallbackTiers    *prometheus.CounterVec
	FileDispositions *prometheus.CounterVec
	ReviewIterations prometheus.Histogram
	RunsTotal        *prometheus.CounterVec
	RunsInFlight     prometheus.Gauge
}

// New creates collectors on a private registry, along with the Go runtime
// and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		StageInvocations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "builder_stage_invocations_total",
				Help: "Number of times each pipeline stage ran",
			},
			[]string{"stage"},
		),
		StageDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "builder_stage_duration_seconds",
				Help:    "Duration of pipeline stage invocations",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 12), // 50ms to ~100s
			},
			[]string{"stage"},
		),
		FallbackTiers: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "builder_fallback_tier_total",
				Help: "Which generation tier produced a stage result",
			},
			[]string{"stage", "tier"},
		),
		FileDispositions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "builder_file_dispositions_total",
				Help: "Per-file outcomes recorded by stages",
			},
			[]string{"stage", "outcome"},
		),
		ReviewIterations: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "builder_review_iterations",
				Help:    "Review iteration reached by each review pass",
				Buckets: prometheus.LinearBuckets(0, 1, 10),
			},
		),
		RunsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "builder_runs_total",
				Help: "Completed pipeline runs by final status",
			},
			[]string{"status"},
		),
		RunsInFlight: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "builder_runs_in_flight",
				Help: "Pipeline runs currently executing",
			},
		),
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveStage records one stage invocation.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.StageInvocations.WithLabelValues(stage).Inc()
	m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// Tier records which generation tier produced a result.
func (m *Metrics) Tier(stage, tier string) {
	if m == nil {
		return
	}
	m.FallbackTiers.WithLabelValues(stage, tier).Inc()
}

// File records a per-file outcome such as completed, failed, passed or fixed.
func (m *Metrics) File(stage, outcome string) {
	if m == nil {
		return
	}
	m.FileDispositions.WithLabelValues(stage, outcome).Inc()
}

// Iteration records the review iteration reached.
func (m *Metrics) Iteration(n int) {
	if m == nil {
		return
	}
	m.ReviewIterations.Observe(float64(n))
}

// RunStarted marks a run as in flight.
func (m *Metrics) RunStarted() {
	if m == nil {
		return
	}
	m.RunsInFlight.Inc()
}

// RunFinished records a run's final status.
func (m *Metrics) RunFinished(status string) {
	if m == nil {
		return
	}
	m.RunsInFlight.Dec()
	m.RunsTotal.WithLabelValues(status).Inc()
}
