package metrics

import (
	"net/http"

	"github.com/azizikri/coupon-registry/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	OpCreate = "create"
	OpDelete = "delete"
	OpList   = "list"

	OutcomeSuccess  = "success"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
)

type Recorder struct {
	operations *prometheus.CounterVec
	gatherer   prometheus.Gatherer
}

func NewRecorder(reg *prometheus.Registry) *Recorder {
	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "coupon",
		Name:      "operations_total",
		Help:      "Coupon operations by operation and outcome.",
	}, []string{"operation", "outcome"})
	reg.MustRegister(operations)
	return &Recorder{operations: operations, gatherer: reg}
}

// Observe counts one operation. A nil Recorder is a no-op.
func (r *Recorder) Observe(operation, outcome string) {
	if r == nil {
		return
	}
	r.operations.WithLabelValues(operation, outcome).Inc()
}

// ObserveErr derives the outcome from err: success, or the domain error kind.
func (r *Recorder) ObserveErr(operation string, err error) {
	switch {
	case err == nil:
		r.Observe(operation, OutcomeSuccess)
	case domain.KindOf(err) != domain.KindUnknown:
		r.Observe(operation, domain.KindOf(err).String())
	default:
		r.Observe(operation, OutcomeError)
	}
}

func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})
}
