// Package metrics exposes replay and recording counters to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/codeready-toolchain/dialogreplay/pkg/models"
)

const namespace = "dialogreplay"

// Outcome label values of dialogreplay_run_outcomes_total.
const (
	OutcomePass      = "pass"
	OutcomeFail      = "fail"
	OutcomeAbandoned = "abandoned"
)

// Metrics holds the service collectors on a dedicated registry.
// It implements the runner's Observer interface.
type Metrics struct {
	registry *prometheus.Registry

	sessions    prometheus.Counter
	runsStarted prometheus.Counter
	runOutcomes *prometheus.CounterVec
	failures    *prometheus.CounterVec
	activeRuns  prometheus.Gauge
	recordings  prometheus.Counter
}

// New creates the collectors and registers them, together with the Go and
// process collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		sessions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "replay_sessions_total",
			Help:      "Replay sessions started; each discards the statuses of the previous one.",
		}),
		runsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_started_total",
			Help:      "Scenario replays started.",
		}),
		runOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "run_outcomes_total",
			Help:      "Scenario replays finished, by outcome.",
		}, []string{"outcome"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "run_failures_total",
			Help:      "Failed scenario replays, by mismatch reason.",
		}, []string{"reason"}),
		activeRuns: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_runs",
			Help:      "Scenario replays currently in progress.",
		}),
		recordings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recordings_total",
			Help:      "Recordings stopped with at least one step.",
		}),
	}

	m.registry.MustRegister(
		m.sessions,
		m.runsStarted,
		m.runOutcomes,
		m.failures,
		m.activeRuns,
		m.recordings,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ReplayStarted counts a new replay session.
func (m *Metrics) ReplayStarted() {
	m.sessions.Inc()
}

// RunStarted counts a started replay.
func (m *Metrics) RunStarted(string) {
	m.runsStarted.Inc()
	m.activeRuns.Inc()
}

// RunFinished counts a finished replay. A run that ends while still pending was abandoned.
func (m *Metrics) RunFinished(_ string, status models.RunStatus, reason string) {
	m.activeRuns.Dec()
	switch status {
	case models.RunStatusPass:
		m.runOutcomes.WithLabelValues(OutcomePass).Inc()
	case models.RunStatusFail:
		m.runOutcomes.WithLabelValues(OutcomeFail).Inc()
		m.failures.WithLabelValues(reason).Inc()
	default:
		m.runOutcomes.WithLabelValues(OutcomeAbandoned).Inc()
	}
}

// RecordingSaved counts a completed recording.
func (m *Metrics) RecordingSaved() {
	m.recordings.Inc()
}
