// Package metrics exposes Prometheus instrumentation for the connect
// endpoint.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels recorded per action.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeError   = "error"
)

// Metrics holds the gateway's Prometheus collectors.
type Metrics struct {
	actionsTotal  *prometheus.CounterVec
	lockoutsTotal prometheus.Counter
}

// New registers the gateway collectors against reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		actionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "linkgate",
			Name:      "actions_total",
			Help:      "Connect actions processed, by action name and outcome.",
		}, []string{"action", "outcome"}),
		lockoutsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "linkgate",
			Name:      "locked_account_rejections_total",
			Help:      "Requests rejected because the account exhausted its daily failure budget.",
		}),
	}
}

// RecordAction counts one processed action.
func (m *Metrics) RecordAction(action, outcome string) {
	m.actionsTotal.WithLabelValues(action, outcome).Inc()
}

// RecordLockout counts one request rejected by the lockout guard.
func (m *Metrics) RecordLockout() {
	m.lockoutsTotal.Inc()
}

// Handler serves the collectors registered on reg.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
