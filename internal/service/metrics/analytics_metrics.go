package metrics

import (
	pkgmetrics "PriceCast/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
)

// AnalyticsMetrics tracks per-endpoint latency and errors of the prediction API.
type AnalyticsMetrics struct {
	Latency *prometheus.HistogramVec
	Errors  *prometheus.CounterVec
}

// NewAnalyticsMetrics registers on reg, or the default registerer when nil.
func NewAnalyticsMetrics(reg prometheus.Registerer) *AnalyticsMetrics {
	return &AnalyticsMetrics{
		Latency: pkgmetrics.Register(reg, prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "pricecast",
				Subsystem: "analytics",
				Name:      "latency_seconds",
				Help:      "Latency of analytics endpoints",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		)),
		Errors: pkgmetrics.Register(reg, prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pricecast",
				Subsystem: "analytics",
				Name:      "errors_total",
				Help:      "Errors by analytics endpoint",
			},
			[]string{"endpoint", "code"},
		)),
	}
}

func (m *AnalyticsMetrics) Observe(endpoint string, seconds float64) {
	m.Latency.WithLabelValues(endpoint).Observe(seconds)
}

func (m *AnalyticsMetrics) Error(endpoint, code string) {
	m.Errors.WithLabelValues(endpoint, code).Inc()
}
