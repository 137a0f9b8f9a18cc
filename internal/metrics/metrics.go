// Package metrics provides Prometheus instrumentation for the client and the
// mock API server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RemoteDuration tracks facade call latency as seen by the client.
	RemoteDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kingchat_remote_request_duration_seconds",
			Help:    "Remote service call duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"operation", "outcome"},
	)

	// RemoteTotal counts facade calls by outcome (ok or an error kind).
	RemoteTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kingchat_remote_requests_total",
			Help: "Total remote service calls",
		},
		[]string{"operation", "outcome"},
	)

	// ReconcileTotal counts settled optimistic mutations.
	ReconcileTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kingchat_reconcile_total",
			Help: "Optimistic mutations settled, by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	// InFlight tracks requests issued by the reconciler that have not settled.
	InFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "kingchat_reconcile_in_flight",
			Help: "Optimistic mutations awaiting a server response",
		},
	)

	// RequestDuration tracks mock API request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kingchat_api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "route", "status"},
	)

	// RequestsTotal counts mock API requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kingchat_api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "route", "status"},
	)
)

// Outcomes recorded by ReconcileTotal.
const (
	OutcomeConfirmed  = "confirmed"
	OutcomeFailed     = "failed"
	OutcomeRolledBack = "rolled_back"
	OutcomeRejected   = "rejected"
	OutcomePartial    = "partial"
)

// RecordRemote records one facade call.
func RecordRemote(operation, outcome string, seconds float64) {
	RemoteDuration.WithLabelValues(operation, outcome).Observe(seconds)
	RemoteTotal.WithLabelValues(operation, outcome).Inc()
}

// RecordReconcile records the settlement of an optimistic mutation.
func RecordReconcile(operation, outcome string) {
	ReconcileTotal.WithLabelValues(operation, outcome).Inc()
}

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, route, status string, seconds float64) {
	RequestDuration.WithLabelValues(method, route, status).Observe(seconds)
	RequestsTotal.WithLabelValues(method, route, status).Inc()
}
