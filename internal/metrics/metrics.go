// Package metrics provides Prometheus metrics for the anti-forgery service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	DecisionsTotal      *prometheus.CounterVec
	TokensIssuedTotal   prometheus.Counter
	DegradedPassesTotal prometheus.Counter
	CleanupRunsTotal    *prometheus.CounterVec
	CleanupDeletedTotal prometheus.Counter

	registry *prometheus.Registry
}

// New creates and registers all metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		DecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "antiforgery_decisions_total",
				Help: "Guard decisions by outcome and reason.",
			},
			[]string{"outcome", "reason"},
		),
		TokensIssuedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "antiforgery_tokens_issued_total",
				Help: "Anti-forgery tokens issued.",
			},
		),
		DegradedPassesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "antiforgery_degraded_passes_total",
				Help: "Validations passed on the length-only check while the store was unreachable.",
			},
		),
		CleanupRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "antiforgery_cleanup_runs_total",
				Help: "Opportunistic cleanup sweeps by result.",
			},
			[]string{"result"},
		),
		CleanupDeletedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "antiforgery_cleanup_deleted_total",
				Help: "Expired token records removed by cleanup sweeps.",
			},
		),
		registry: reg,
	}

	reg.MustRegister(m.DecisionsTotal)
	reg.MustRegister(m.TokensIssuedTotal)
	reg.MustRegister(m.DegradedPassesTotal)
	reg.MustRegister(m.CleanupRunsTotal)
	reg.MustRegister(m.CleanupDeletedTotal)

	return m
}

// Handler returns an http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordDecision increments the decision counter.
func (m *Metrics) RecordDecision(outcome, reason string) {
	if m == nil {
		return
	}
	m.DecisionsTotal.WithLabelValues(outcome, reason).Inc()
}

// RecordIssued increments the issued token counter.
func (m *Metrics) RecordIssued() {
	if m == nil {
		return
	}
	m.TokensIssuedTotal.Inc()
}

// RecordDegradedPass increments the degraded validation counter.
func (m *Metrics) RecordDegradedPass() {
	if m == nil {
		return
	}
	m.DegradedPassesTotal.Inc()
}

// RecordCleanup records a sweep outcome and the rows it removed.
func (m *Metrics) RecordCleanup(result string, deleted int64) {
	if m == nil {
		return
	}
	m.CleanupRunsTotal.WithLabelValues(result).Inc()
	if deleted > 0 {
		m.CleanupDeletedTotal.Add(float64(deleted))
	}
}
