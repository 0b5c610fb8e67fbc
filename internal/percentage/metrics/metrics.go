package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	UpstreamAttempts     prometheus.Counter
	UpstreamFailures     prometheus.Counter
	UpstreamLatency      prometheus.Histogram
	CacheFallbacks       prometheus.Counter
	Unavailable          prometheus.Counter
	CacheWriteFailures   prometheus.Counter
	ResolveAttemptsTotal prometheus.Histogram
}

// New registers the resolver metrics with reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		UpstreamAttempts: factory.NewCounter(prometheus.CounterOpts{
			Name: "calc_percentage_upstream_attempts_total",
			Help: "Total number of calls made to the percentage source",
		}),
		UpstreamFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "calc_percentage_upstream_failures_total",
			Help: "Total number of failed calls to the percentage source",
		}),
		UpstreamLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "calc_percentage_upstream_duration_seconds",
			Help:    "Latency of calls to the percentage source",
			Buckets: prometheus.DefBuckets,
		}),
		CacheFallbacks: factory.NewCounter(prometheus.CounterOpts{
			Name: "calc_percentage_cache_fallbacks_total",
			Help: "Total number of resolutions served from the cache after upstream exhaustion",
		}),
		Unavailable: factory.NewCounter(prometheus.CounterOpts{
			Name: "calc_percentage_unavailable_total",
			Help: "Total number of resolutions that failed with no usable cached value",
		}),
		CacheWriteFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "calc_percentage_cache_write_failures_total",
			Help: "Total number of failed cache writes after a successful upstream call",
		}),
		ResolveAttemptsTotal: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "calc_percentage_resolve_attempts",
			Help:    "Upstream attempts used per resolution",
			Buckets: []float64{1, 2, 3, 5, 10},
		}),
	}
}

func (m *Metrics) ObserveUpstreamCall(durationSeconds float64, failed bool) {
	if m == nil {
		return
	}
	m.UpstreamAttempts.Inc()
	m.UpstreamLatency.Observe(durationSeconds)
	if failed {
		m.UpstreamFailures.Inc()
	}
}

func (m *Metrics) IncCacheFallback() {
	if m == nil {
		return
	}
	m.CacheFallbacks.Inc()
}

func (m *Metrics) IncUnavailable() {
	if m == nil {
		return
	}
	m.Unavailable.Inc()
}

func (m *Metrics) IncCacheWriteFailure() {
	if m == nil {
		return
	}
	m.CacheWriteFailures.Inc()
}

func (m *Metrics) ObserveAttempts(attempts int) {
	if m == nil {
		return
	}
	m.ResolveAttemptsTotal.Observe(float64(attempts))
}
