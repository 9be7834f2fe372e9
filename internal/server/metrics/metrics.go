// Package metrics holds the Prometheus collectors exported by the server and
// the side server that exposes them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "romvault"

// Result label values.
const (
	ResultOK           = "ok"
	ResultUnauthorized = "unauthorized"
	ResultBadRequest   = "bad_request"
	ResultNotFound     = "not_found"
	ResultError        = "error"
)

type Metrics struct {
	Logins          *prometheus.CounterVec
	Refreshes       *prometheus.CounterVec
	GuardRejections prometheus.Counter
	StorageOps      *prometheus.CounterVec
	HTTPDuration    *prometheus.HistogramVec
}

// New registers all collectors with reg. Pass prometheus.DefaultRegisterer in
// production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Logins: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "logins_total", Help: "Login attempts by result.",
		}, []string{"result"}),
		Refreshes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "refreshes_total", Help: "Access token refreshes by result.",
		}, []string{"result"}),
		GuardRejections: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "guard_rejections_total", Help: "Requests rejected for a missing or invalid bearer token.",
		}),
		StorageOps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "storage_operations_total", Help: "Object store calls by kind, operation and result.",
		}, []string{"kind", "op", "result"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "http_request_duration_seconds", Help: "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}

// NewNop returns collectors bound to a private registry.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}
