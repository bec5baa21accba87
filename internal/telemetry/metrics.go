// Package telemetry defines the Prometheus metrics recorded by indexing runs.
// Metrics are registered on a caller-supplied registerer so tests and
// multiple servers in one process do not collide on the default registry.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "callgraph"

// File outcomes
const (
	OutcomeIndexed = "indexed"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

// Result labels for functions, batches and runs
const (
	ResultOK      = "ok"
	ResultFailed  = "failed"
	ResultAborted = "aborted"
)

// Metrics holds the indexing metrics
type Metrics struct {
	// FilesTotal counts processed files. Labels: outcome (indexed, skipped, failed)
	FilesTotal *prometheus.CounterVec

	// FunctionsTotal counts function records written. Labels: result (ok, failed)
	FunctionsTotal *prometheus.CounterVec

	// BatchesTotal counts grouped submissions. Labels: result (ok, failed)
	BatchesTotal *prometheus.CounterVec

	// RunsTotal counts project runs. Labels: result (ok, aborted)
	RunsTotal *prometheus.CounterVec

	// RunDurationSeconds measures whole-project runs
	RunDurationSeconds prometheus.Histogram
}

// NewMetrics creates the metrics and registers them on reg. A nil reg
// creates unregistered collectors, which is what most tests want.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		FilesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "index",
			Name:      "files_total",
			Help:      "Files seen by indexing runs, by outcome",
		}, []string{"outcome"}),

		FunctionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "index",
			Name:      "functions_total",
			Help:      "Function records written, by result",
		}, []string{"result"}),

		BatchesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "index",
			Name:      "batches_total",
			Help:      "Grouped batch submissions, by result",
		}, []string{"result"}),

		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "index",
			Name:      "runs_total",
			Help:      "Project indexing runs, by result",
		}, []string{"result"}),

		RunDurationSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "index",
			Name:      "run_duration_seconds",
			Help:      "Duration of project indexing runs in seconds",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
		}),
	}
}

// File records one file outcome
func (m *Metrics) File(outcome string) {
	if m == nil {
		return
	}
	m.FilesTotal.WithLabelValues(outcome).Inc()
}

// Functions records indexed and failed function counts
func (m *Metrics) Functions(indexed, failed int) {
	if m == nil {
		return
	}
	m.FunctionsTotal.WithLabelValues(ResultOK).Add(float64(indexed))
	m.FunctionsTotal.WithLabelValues(ResultFailed).Add(float64(failed))
}

// Batch records one batch submission
func (m *Metrics) Batch(ok bool) {
	if m == nil {
		return
	}
	if ok {
		m.BatchesTotal.WithLabelValues(ResultOK).Inc()
		return
	}
	m.BatchesTotal.WithLabelValues(ResultFailed).Inc()
}

// Run records a finished project run
func (m *Metrics) Run(result string, seconds float64) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(result).Inc()
	m.RunDurationSeconds.Observe(seconds)
}
