package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Drop reasons.
const (
	ReasonBufferFull     = "buffer_full"
	ReasonCircuitOpen    = "circuit_open"
	ReasonRecorderClosed = "recorder_closed"
)

// Metrics holds Prometheus metrics for the audit recorder.
type Metrics struct {
	Recorded            prometheus.Counter
	Dropped             *prometheus.CounterVec
	WriteFailures       prometheus.Counter
	WriteLatency        prometheus.Histogram
	QueueDepth          prometheus.Gauge
	CircuitBreakerState prometheus.Gauge
}

// New registers the audit metrics with reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		Recorded: factory.NewCounter(prometheus.CounterOpts{
			Name: "calc_audit_recorded_total",
			Help: "Total number of audit records persisted",
		}),
		Dropped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "calc_audit_dropped_total",
			Help: "Total number of audit records dropped without a write attempt",
		}, []string{"reason"}),
		WriteFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "calc_audit_write_failures_total",
			Help: "Total number of failed audit record writes",
		}),
		WriteLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "calc_audit_write_duration_seconds",
			Help:    "Latency of audit record writes",
			Buckets: prometheus.DefBuckets,
		}),
		QueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "calc_audit_queue_depth",
			Help: "Audit records waiting for a worker",
		}),
		CircuitBreakerState: factory.NewGauge(prometheus.GaugeOpts{
			Name: "calc_audit_circuit_breaker_state",
			Help: "Current circuit breaker state (0=closed/healthy, 1=open/unhealthy)",
		}),
	}
}

func (m *Metrics) IncRecorded() {
	if m == nil {
		return
	}
	m.Recorded.Inc()
}

func (m *Metrics) IncDropped(reason string) {
	if m == nil {
		return
	}
	m.Dropped.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncWriteFailure() {
	if m == nil {
		return
	}
	m.WriteFailures.Inc()
}

func (m *Metrics) ObserveWrite(durationSeconds float64) {
	if m == nil {
		return
	}
	m.WriteLatency.Observe(durationSeconds)
}

func (m *Metrics) SetQueueDepth(depth int) {
	if m == nil {
		return
	}
	m.QueueDepth.Set(float64(depth))
}

// SetCircuitOpen records the breaker state.
func (m *Metrics) SetCircuitOpen(open bool) {
	if m == nil {
		return
	}
	if open {
		m.CircuitBreakerState.Set(1)
		return
	}
	m.CircuitBreakerState.Set(0)
}
