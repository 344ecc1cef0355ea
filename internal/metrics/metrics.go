// Package metrics holds the Prometheus instrumentation for the client.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Cache request outcomes.
const (
	OutcomeLive  = "live"
	OutcomeStale = "stale"
	OutcomeMiss  = "miss"
)

// Metrics holds all Prometheus metrics for the AgriConnect client.
// Pass to components that need to record metrics. A nil *Metrics is
// valid and records nothing, so hosts without a metrics endpoint can
// skip registration entirely.
type Metrics struct {
	CacheRequests    *prometheus.CounterVec
	SessionRefreshes *prometheus.CounterVec
	AuthTransitions  prometheus.Counter
}

// New creates and registers all metrics with the given registry.
func New(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		CacheRequests: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "agriclient",
				Name:      "cache_requests_total",
				Help:      "Cache-first fetch results by outcome",
			},
			[]string{"outcome"}, // outcome=live/stale/miss
		),
		SessionRefreshes: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "agriclient",
				Name:      "session_refreshes_total",
				Help:      "Token refresh attempts by outcome",
			},
			[]string{"outcome"}, // outcome=ok/error
		),
		AuthTransitions: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "agriclient",
				Name:      "auth_transitions_total",
				Help:      "Auth state transitions delivered to subscribers",
			},
		),
	}
}

// RecordCache counts one cache-first fetch outcome.
func (m *Metrics) RecordCache(outcome string) {
	if m == nil {
		return
	}
	m.CacheRequests.WithLabelValues(outcome).Inc()
}

// RecordRefresh counts one token refresh attempt.
func (m *Metrics) RecordRefresh(ok bool) {
	if m == nil {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	m.SessionRefreshes.WithLabelValues(outcome).Inc()
}

// RecordTransition counts one delivered auth state transition.
func (m *Metrics) RecordTransition() {
	if m == nil {
		return
	}
	m.AuthTransitions.Inc()
}
