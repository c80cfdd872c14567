// Package metrics exposes match counters for Prometheus scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iammadab/chessbench/internal/domain"
)

const namespace = "chessbench"

// Metrics is safe to use as a nil pointer; every method becomes a no-op.
type Metrics struct {
	registry *prometheus.Registry

	active   prometheus.Gauge
	started  prometheus.Counter
	finished *prometheus.CounterVec
	plies    prometheus.Counter
	rejected *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "matches_active",
			Help:      "Matches currently being played.",
		}),
		started: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "matches_started_total",
			Help:      "Matches accepted for play.",
		}),
		finished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "matches_finished_total",
			Help:      "Matches that reached a terminal state, by status and reason.",
		}, []string{"status", "reason"}),
		plies: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plies_total",
			Help:      "Half-moves applied across all matches.",
		}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "matches_rejected_total",
			Help:      "Match creation requests refused, by cause.",
		}, []string{"cause"}),
	}
	m.registry.MustRegister(m.active, m.started, m.finished, m.plies, m.rejected)
	m.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return m
}

func (m *Metrics) MatchStarted() {
	if m == nil {
		return
	}
	m.started.Inc()
	m.active.Inc()
}

func (m *Metrics) MatchFinished(state domain.MatchState) {
	if m == nil {
		return
	}
	reason := domain.ReasonError
	if state.Result != nil {
		reason = state.Result.Reason
	}
	m.finished.WithLabelValues(string(state.Status), string(reason)).Inc()
	m.active.Dec()
}

func (m *Metrics) PlyApplied() {
	if m == nil {
		return
	}
	m.plies.Inc()
}

func (m *Metrics) MatchRejected(cause string) {
	if m == nil {
		return
	}
	m.rejected.WithLabelValues(cause).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
