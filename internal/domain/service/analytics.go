package service

import (
	"PriceCast/internal/domain/models"
)

// Forecaster produces a forecast for the next horizon days. Implementations
// fit fresh on every call and hold no per-fit state.
type Forecaster interface {
	Name() string
	// Deterministic reports whether identical input always yields identical output.
	Deterministic() bool
	Forecast(table models.FeatureTable, horizon int) (models.Forecast, error)
}

// TrendAnalyzer classifies the direction of a price series.
type TrendAnalyzer interface {
	Analyze(table models.FeatureTable) models.TrendResult
}

// SeasonalityDetector detects monthly cyclicality.
type SeasonalityDetector interface {
	Detect(table models.FeatureTable) models.SeasonalityResult
}

// Recommender turns a forecast into a buy-timing decision.
type Recommender interface {
	Recommend(table models.FeatureTable, forecast []models.ForecastPoint, currentPrice float64) models.Recommendation
	Fallback(table models.FeatureTable, currentPrice float64) models.Recommendation
}
