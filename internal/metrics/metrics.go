// Package metrics exposes Prometheus instrumentation for refinement runs.
//
// All methods are safe on a nil *Metrics, which records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/MorganMind/penrose/internal/model"
)

const namespace = "penrose"

// Metrics holds the refinement counters and histograms
type Metrics struct {
	// RunsTotal counts finished runs by enforcement outcome.
	// Labels: outcome, retried (true, false)
	RunsTotal *prometheus.CounterVec

	// CandidatesTotal counts generated candidates.
	// Labels: phase (initial, enforcement_retry), class
	CandidatesTotal *prometheus.CounterVec

	// SemanticFallbacksTotal counts evaluations scored without embeddings
	SemanticFallbacksTotal prometheus.Counter

	// DriftAlertsTotal counts drift alerts by kind.
	// Labels: kind (similarity_drop, variance_spike)
	DriftAlertsTotal *prometheus.CounterVec

	// GenerationSeconds measures provider latency.
	// Labels: provider, status (success, error)
	GenerationSeconds *prometheus.HistogramVec

	// ProfileContributionsTotal counts samples folded into profiles.
	// Labels: status (building, active)
	ProfileContributionsTotal *prometheus.CounterVec
}

// New creates and registers all metrics on reg
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Refinement runs by enforcement outcome",
		}, []string{"outcome", "retried"}),
		CandidatesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "candidates_total",
			Help:      "Generated candidates by phase and enforcement class",
		}, []string{"phase", "class"}),
		SemanticFallbacksTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "semantic_fallbacks_total",
			Help:      "Evaluations that used the heuristic semantic score",
		}),
		DriftAlertsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "drift_alerts_total",
			Help:      "Drift alerts raised by kind",
		}, []string{"kind"}),
		GenerationSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_seconds",
			Help:      "Text generation latency in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"provider", "status"}),
		ProfileContributionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "profile_contributions_total",
			Help:      "Samples contributed to voice profiles by resulting status",
		}, []string{"status"}),
	}
}

// RecordRun counts a finished run
func (m *Metrics) RecordRun(outcome model.EnforcementOutcome, retried bool) {
	if m == nil {
		return
	}
	r := "false"
	if retried {
		r = "true"
	}
	m.RunsTotal.WithLabelValues(string(outcome), r).Inc()
}

// RecordCandidate counts a scored candidate and its semantic fallback, if any
func (m *Metrics) RecordCandidate(phase model.Phase, class model.EnforcementClass, semanticFallback bool) {
	if m == nil {
		return
	}
	m.CandidatesTotal.WithLabelValues(string(phase), string(class)).Inc()
	if semanticFallback {
		m.SemanticFallbacksTotal.Inc()
	}
}

// RecordDriftAlert counts a drift alert
func (m *Metrics) RecordDriftAlert(kind model.DriftKind) {
	if m == nil {
		return
	}
	m.DriftAlertsTotal.WithLabelValues(string(kind)).Inc()
}

// ObserveGeneration records one provider call
func (m *Metrics) ObserveGeneration(provider string, d time.Duration, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.GenerationSeconds.WithLabelValues(provider, status).Observe(d.Seconds())
}

// RecordContribution counts a profile sample
func (m *Metrics) RecordContribution(status model.ProfileStatus) {
	if m == nil {
		return
	}
	m.ProfileContributionsTotal.WithLabelValues(string(status)).Inc()
}

// WriteTextfile writes every metric in g to path in the Prometheus text format,
// for the node exporter textfile collector
func WriteTextfile(path string, g prometheus.Gatherer) error {
	return prometheus.WriteToTextfile(path, g)
}
