// Package metrics provides Prometheus metrics for the ledger operations.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for OperationsTotal.
const (
	OutcomeOK         = "ok"
	OutcomeValidation = "validation"
	OutcomeConflict   = "conflict"
	OutcomeNotFound   = "not_found"
	OutcomeError      = "error"
)

// Metrics holds all application metrics.
type Metrics struct {
	OperationsTotal   *prometheus.CounterVec
	OperationDuration prometheus.Histogram
}

// New creates and registers all metrics on its own registry, so repeated
// construction in tests does not collide.
func New() (*Metrics, *prometheus.Registry) {
	m := &Metrics{
		OperationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "records_operations_total",
			Help: "Ledger operations by name and outcome",
		}, []string{"operation", "outcome"}),
		OperationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "records_operation_duration_seconds",
			Help:    "Ledger operation duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}),
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(m.OperationsTotal, m.OperationDuration)
	return m, reg
}

// Handler returns the Prometheus HTTP handler for a registry.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
