package analytics

import (
	"math"
	"math/rand"
	"time"

	"PriceCast/internal/domain/models"
	"PriceCast/internal/services/features"
	"PriceCast/pkg/util"
)

const (
	ModelSimple = "simple"

	seasonalAmplitude = 0.1
	seasonalPeriod    = 30.0
	noiseDamping      = 0.1
	lowerBoundRatio   = 0.5
	upperBoundRatio   = 2.0

	confidenceSaturation = 30.0
	defaultConfidence    = 0.5
	failedConfidence     = 0.1
)

// SimpleOption configures SimpleForecaster.
type SimpleOption func(*SimpleForecaster)

// WithSeed makes every call draw noise from a fresh source seeded with seed.
func WithSeed(seed int64) SimpleOption {
	return func(f *SimpleForecaster) {
		f.newRand = func() *rand.Rand { return rand.New(rand.NewSource(seed)) }
		f.seeded = true
	}
}

// WithRandFactory injects the noise source. The factory is called once per
// forecast and the returned generator is not shared across calls.
func WithRandFactory(fn func() *rand.Rand, deterministic bool) SimpleOption {
	return func(f *SimpleForecaster) {
		if fn != nil {
			f.newRand = fn
			f.seeded = deterministic
		}
	}
}

// SimpleForecaster extrapolates a least-squares line over elapsed days,
// modulated by a 30-day sine and small volatility-scaled noise, clamped to
// [0.5, 2] times the last known price. It also scores its own confidence.
type SimpleForecaster struct {
	newRand func() *rand.Rand
	seeded  bool
}

func NewSimpleForecaster(opts ...SimpleOption) *SimpleForecaster {
	f := &SimpleForecaster{
		newRand: func() *rand.Rand { return rand.New(rand.NewSource(time.Now().UnixNano())) },
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *SimpleForecaster) Name() string        { return ModelSimple }
func (f *SimpleForecaster) Deterministic() bool { return f.seeded }

// Forecast returns the documented default confidence alongside any error:
// 0.5 when there is too little history, 0.1 when the computation fails.
func (f *SimpleForecaster) Forecast(table models.FeatureTable, horizon int) (models.Forecast, error) {
	if horizon <= 0 {
		return withConfidence(defaultConfidence), models.NewValidationError("forecast", "horizon must be positive, got %d", horizon)
	}
	n := len(table)
	if n < features.MinPointsTrend {
		return withConfidence(defaultConfidence), models.NewInsufficientDataError("forecast", n, features.MinPointsTrend)
	}

	x, prices := table.Days(), table.Prices()
	intercept, slope := features.FitLine(x, prices)
	volatility := features.PopStd(features.Tail(prices, 7))
	current := prices[n-1]
	if current <= 0 || math.IsNaN(slope) || math.IsNaN(volatility) {
		return withConfidence(failedConfidence), models.NewComputationError("forecast", "degenerate series (last price %.2f)", current)
	}

	rng := f.newRand()
	ratio := volatility / current
	lo, hi := current*lowerBoundRatio, current*upperBoundRatio
	lastX := table.Last().DaysSinceStart
	start := table.Start()

	points := make([]models.ForecastPoint, 0, horizon)
	for i := 1; i <= horizon; i++ {
		futureX := lastX + i
		trend := slope*float64(futureX) + intercept
		seasonal := 1 + seasonalAmplitude*math.Sin(2*math.Pi*float64(i)/seasonalPeriod)
		noise := 1 + uniform(rng, -ratio, ratio)*noiseDamping

		p := util.Clamp(trend*seasonal*noise, lo, hi)
		points = append(points, models.ForecastPoint{
			Date:           truncateDay(start.AddDate(0, 0, futureX)),
			PredictedPrice: util.Clamp(util.Round2(p), lo, hi),
		})
	}

	conf := simpleConfidence(prices, volatility)
	return models.Forecast{Model: ModelSimple, Points: points, Confidence: &conf}, nil
}

// simpleConfidence blends data sufficiency (saturating at 30 points) with
// price stability: 0.6*min(n/30,1) + 0.4*max(1-vol/mean, 0.1).
func simpleConfidence(prices []float64, volatility float64) float64 {
	dataConf := math.Min(float64(len(prices))/confidenceSaturation, 1)
	ratio := 1.0
	if avg := features.Mean(prices); avg > 0 {
		ratio = volatility / avg
	}
	volConf := math.Max(1-ratio, 0.1)
	return util.Clamp(util.Round2(0.6*dataConf+0.4*volConf), 0, 1)
}

func uniform(r *rand.Rand, a, b float64) float64 {
	return a + (b-a)*r.Float64()
}

func withConfidence(c float64) models.Forecast {
	return models.Forecast{Model: ModelSimple, Confidence: &c}
}
