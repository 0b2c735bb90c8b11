package analytics

import (
	"math"

	"PriceCast/internal/domain/models"
	"PriceCast/internal/services/features"
	"PriceCast/pkg/util"
)

// Slope thresholds in price units per day.
const (
	increasingSlope = 0.1
	decreasingSlope = -0.1
)

// TrendAnalyzer fits price against days_since_start.
type TrendAnalyzer struct{}

func NewTrendAnalyzer() *TrendAnalyzer { return &TrendAnalyzer{} }

// Analyze never fails; a degenerate fit reports stable with zero slope.
func (a *TrendAnalyzer) Analyze(table models.FeatureTable) models.TrendResult {
	if len(table) < features.MinPointsTrend {
		return stableTrend()
	}
	x, y := table.Days(), table.Prices()
	intercept, slope := features.FitLine(x, y)
	if math.IsNaN(slope) || math.IsInf(slope, 0) {
		return stableTrend()
	}

	dir := models.TrendStable
	switch {
	case slope > increasingSlope:
		dir = models.TrendIncreasing
	case slope < decreasingSlope:
		dir = models.TrendDecreasing
	}
	return models.TrendResult{
		Direction:  dir,
		Slope:      util.Round(slope, 4),
		FitQuality: util.Round(features.RSquared(x, y, intercept, slope), 3),
	}
}

func stableTrend() models.TrendResult {
	return models.TrendResult{Direction: models.TrendStable}
}

// Summarize is the lightweight trend view: change from first to last
// price with ±5% bands, trailing volatility and a 7-point average. Points
// are ordered by date before summarising.
func Summarize(history []models.PricePoint) models.TrendSummary {
	if len(history) < features.MinPointsTrend {
		ma := 0.0
		if len(history) == 1 {
			ma = history[0].Price
		}
		return models.TrendSummary{Trend: models.TrendInsufficientData, MovingAverage7: ma}
	}

	table, err := features.BuildFeatureTable(history, features.MinPointsTrend)
	if err != nil {
		return models.TrendSummary{Trend: models.TrendInsufficientData}
	}
	prices := table.Prices()
	first, last := prices[0], prices[len(prices)-1]

	change := 0.0
	if first != 0 {
		change = (last - first) / first * 100
	}
	dir := models.TrendStable
	switch {
	case change > 5:
		dir = models.TrendIncreasing
	case change < -5:
		dir = models.TrendDecreasing
	}

	recent := features.Tail(prices, 7)
	lo, hi := features.MinMax(prices)
	return models.TrendSummary{
		Trend:          dir,
		ChangePercent:  util.Round2(change),
		Volatility:     util.Round2(features.PopStd(recent)),
		MovingAverage7: util.Round2(features.Mean(recent)),
		PriceRange: &models.PriceRange{
			Min: lo,
			Max: hi,
			Avg: util.Round2(features.Mean(prices)),
		},
		DataPoints: len(prices),
	}
}
