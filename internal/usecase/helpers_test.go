package usecase

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"sync"
	"testing"
	"time"

	"PriceCast/internal/domain/models"
	"PriceCast/internal/domain/service"
	"PriceCast/internal/services/analytics"
	"PriceCast/pkg/cache"

	"github.com/stretchr/testify/require"
)

var day0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func f64(v float64) *float64 { return &v }

func requestHistory(prices ...float64) []models.PricePointRequest {
	out := make([]models.PricePointRequest, len(prices))
	for i, p := range prices {
		out[i] = models.PricePointRequest{Date: day0.AddDate(0, 0, i).Format(time.DateOnly), Price: f64(p)}
	}
	return out
}

func dailyPoints(prices ...float64) []models.PricePoint {
	out := make([]models.PricePoint, len(prices))
	for i, p := range prices {
		out[i] = models.PricePoint{Date: day0.AddDate(0, 0, i), Price: p, Source: "api"}
	}
	return out
}

// driftSeries oscillates around 100 with +0.5/day drift and ±5% noise.
func driftSeries(n int) []float64 {
	r := rand.New(rand.NewSource(7))
	out := make([]float64, n)
	for i := range out {
		base := 100 + 0.5*float64(i) + 2*math.Sin(2*math.Pi*float64(i)/30)
		out[i] = base * (1 + (r.Float64()*2-1)*0.05)
	}
	return out
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*models.PredictionEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev *models.PredictionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

type recordingMetrics struct {
	mu          sync.Mutex
	predictions int
	errors      map[string]int
	ingested    map[string]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{errors: map[string]int{}, ingested: map[string]int{}}
}

func (m *recordingMetrics) RecordPrediction(string, string) {
	m.mu.Lock()
	m.predictions++
	m.mu.Unlock()
}
func (m *recordingMetrics) RecordRecommendation(string, float64) {}
func (m *recordingMetrics) RecordIngested(source string, n int) {
	m.mu.Lock()
	m.ingested[source] += n
	m.mu.Unlock()
}
func (m *recordingMetrics) RecordError(kind string) {
	m.mu.Lock()
	m.errors[kind]++
	m.mu.Unlock()
}
func (m *recordingMetrics) RecordLatency(string, float64) {}

// countingForecaster wraps a forecaster and counts fits.
type countingForecaster struct {
	service.Forecaster
	mu    sync.Mutex
	calls int
}

func (c *countingForecaster) Forecast(t models.FeatureTable, h int) (models.Forecast, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	return c.Forecaster.Forecast(t, h)
}

type failingForecaster struct{}

func (failingForecaster) Name() string        { return "failing" }
func (failingForecaster) Deterministic() bool { return true }
func (failingForecaster) Forecast(models.FeatureTable, int) (models.Forecast, error) {
	return models.Forecast{}, models.NewComputationError("forecast", "singular design")
}

type slowForecaster struct{ d time.Duration }

func (s slowForecaster) Name() string        { return "slow" }
func (s slowForecaster) Deterministic() bool { return false }
func (s slowForecaster) Forecast(models.FeatureTable, int) (models.Forecast, error) {
	time.Sleep(s.d)
	return models.Forecast{}, errors.New("too late")
}

type testDeps struct {
	pub     *recordingPublisher
	metrics *recordingMetrics
	cache   *cache.MemoryCache
}

func newTestPredictor(t *testing.T, f service.Forecaster, cfg PredictorConfig) (*Predictor, *testDeps) {
	t.Helper()
	d := &testDeps{
		pub:     &recordingPublisher{},
		metrics: newRecordingMetrics(),
		cache:   cache.NewMemoryCache(),
	}
	t.Cleanup(func() { _ = d.cache.Close() })
	if f == nil {
		f = analytics.NewRegressionForecaster()
	}
	p := NewPredictor(
		f,
		analytics.NewTrendAnalyzer(),
		analytics.NewSeasonalityDetector(),
		analytics.NewRecommendationEngine(),
		d.cache,
		d.pub,
		d.metrics,
		nil,
		cfg,
	)
	require.NotNil(t, p)
	return p, d
}
