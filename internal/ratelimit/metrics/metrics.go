package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	RateLimitExceeded  *prometheus.CounterVec
	StoreDegradedTotal prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		RateLimitExceeded: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "eventgate_ratelimit_exceeded_total",
			Help: "Total number of requests denied by the rate limiter",
		}, []string{"class"}),
		StoreDegradedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "eventgate_ratelimit_store_degraded_total",
			Help: "Total number of rate limit checks that failed open because the counter store was unreachable",
		}),
	}
}

func (m *Metrics) RecordExceeded(class string) {
	m.RateLimitExceeded.WithLabelValues(class).Inc()
}

func (m *Metrics) RecordStoreDegraded() {
	m.StoreDegradedTotal.Inc()
}
