package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Admitted *prometheus.CounterVec
	Rejected *prometheus.CounterVec
}

// New registers the admission metrics with reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		Admitted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "calc_ratelimit_admitted_total",
			Help: "Total number of requests admitted, by limiter",
		}, []string{"limiter"}),
		Rejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "calc_ratelimit_rejected_total",
			Help: "Total number of requests rejected, by limiter",
		}, []string{"limiter"}),
	}
}

func (m *Metrics) IncAdmitted(limiter string) {
	if m == nil {
		return
	}
	m.Admitted.WithLabelValues(limiter).Inc()
}

func (m *Metrics) IncRejected(limiter string) {
	if m == nil {
		return
	}
	m.Rejected.WithLabelValues(limiter).Inc()
}
