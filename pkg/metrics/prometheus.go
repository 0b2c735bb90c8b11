package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Register registers c on reg, returning the collector that was already
// registered under the same descriptor if there is one. A nil reg uses the
// default registerer.
func Register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

// Recorder implements domain repository.Metrics using Prometheus.
type Recorder struct {
	predictions     *prometheus.CounterVec
	recommendations *prometheus.CounterVec
	confidence      prometheus.Histogram
	ingested        *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
	latency         *prometheus.HistogramVec
}

// New creates a recorder on the default registerer.
func New() *Recorder {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer creates a recorder on reg; tests pass a fresh registry.
func NewWithRegisterer(reg prometheus.Registerer) *Recorder {
	return &Recorder{
		predictions: Register(reg, prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pricecast_predictions_total",
				Help: "Predictions served by forecasting model and analysis type",
			},
			[]string{"model", "analysis_type"},
		)),
		recommendations: Register(reg, prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pricecast_recommendations_total",
				Help: "Recommendations by basis (forecast or historical)",
			},
			[]string{"basis"},
		)),
		confidence: Register(reg, prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "pricecast_recommendation_confidence",
				Help:    "Distribution of recommendation confidence",
				Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
			},
		)),
		ingested: Register(reg, prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pricecast_price_points_ingested_total",
				Help: "Price points appended to the store by source",
			},
			[]string{"source"},
		)),
		errorsTotal: Register(reg, prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pricecast_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		)),
		latency: Register(reg, prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pricecast_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		)),
	}
}

func (r *Recorder) RecordPrediction(model, analysisType string) {
	r.predictions.WithLabelValues(model, analysisType).Inc()
}

func (r *Recorder) RecordRecommendation(basis string, confidence float64) {
	r.recommendations.WithLabelValues(basis).Inc()
	r.confidence.Observe(confidence)
}

func (r *Recorder) RecordIngested(source string, n int) {
	r.ingested.WithLabelValues(source).Add(float64(n))
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
