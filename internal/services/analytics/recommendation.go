package analytics

import (
	"fmt"
	"math"

	"PriceCast/internal/domain/models"
	"PriceCast/internal/services/features"
	"PriceCast/pkg/util"
)

const (
	largeSavingsPct    = 10.0
	moderateSavingsPct = 5.0
	lowPricePercentile = 0.25
	buyNowBoost        = 0.1
	buyNowCap          = 0.9
	nearLowRatio       = 1.1
)

// RecommendationEngine converts a forecast into a buy-timing decision.
type RecommendationEngine struct{}

func NewRecommendationEngine() *RecommendationEngine { return &RecommendationEngine{} }

// Recommend always produces a decision. An empty forecast or a degenerate
// history goes to the historical fallback.
func (e *RecommendationEngine) Recommend(table models.FeatureTable, forecast []models.ForecastPoint, currentPrice float64) models.Recommendation {
	if len(forecast) == 0 || len(table) == 0 || currentPrice <= 0 {
		return e.Fallback(table, currentPrice)
	}
	prices := table.Prices()
	mean := features.Mean(prices)
	if mean <= 0 || math.IsNaN(mean) {
		return e.Fallback(table, currentPrice)
	}

	predicted := make([]float64, len(forecast))
	for i, p := range forecast {
		predicted[i] = p.PredictedPrice
	}
	k := features.ArgMin(predicted)
	minPrice := predicted[k]
	days := k + 1
	savings := (currentPrice - minPrice) / currentPrice * 100

	confidence := volatilityConfidence(features.PopStd(prices) / mean)

	rec := models.Recommendation{
		ExpectedPrice: util.Round2(minPrice),
		Basis:         models.BasisForecast,
	}
	switch {
	case savings > largeSavingsPct:
		rec.Message = fmt.Sprintf("Wait %d days for potential %.1f%% savings", days, savings)
		rec.BestBuyTime = fmt.Sprintf("In %d days", days)
		rec.DaysToWait = days
	case savings > moderateSavingsPct:
		rec.Message = fmt.Sprintf("Consider waiting %d days for %.1f%% savings", days, savings)
		rec.BestBuyTime = fmt.Sprintf("In %d days", days)
		rec.DaysToWait = days
	case currentPrice <= features.Percentile(prices, lowPricePercentile):
		rec.Message = "Good time to buy! Current price is in the lower 25% of historical range"
		rec.BestBuyTime = "Now"
		confidence = math.Min(confidence+buyNowBoost, buyNowCap)
	default:
		rec.Message = "Price is stable. Buy when convenient"
		rec.BestBuyTime = "Anytime in the next 2 weeks"
	}
	rec.Confidence = util.Clamp(util.Round2(confidence), 0, 1)
	rec.SavingsPercentage = util.Round2(math.Max(0, savings))
	return rec
}

func volatilityConfidence(ratio float64) float64 {
	switch {
	case ratio < 0.1:
		return 0.8
	case ratio < 0.2:
		return 0.7
	default:
		return 0.6
	}
}

// Fallback decides from historical statistics alone. Unlike the forecast
// path, savings above the historical mean are reported unfloored and can be
// negative.
func (e *RecommendationEngine) Fallback(table models.FeatureTable, currentPrice float64) models.Recommendation {
	rec := models.Recommendation{Basis: models.BasisHistorical}
	if len(table) == 0 {
		rec.BestBuyTime = "Now"
		rec.Confidence = 0.5
		rec.ExpectedPrice = util.Round2(currentPrice)
		rec.Message = "Not enough price history. Buy when convenient"
		return rec
	}

	prices := table.Prices()
	avg := features.Mean(prices)
	lo, _ := features.MinMax(prices)

	switch {
	case currentPrice <= lo*nearLowRatio:
		rec.BestBuyTime = "Now"
		rec.Confidence = 0.7
		rec.ExpectedPrice = util.Round2(currentPrice)
		rec.Message = "Good time to buy! Price is near historical low"
	case currentPrice <= avg:
		rec.BestBuyTime = "Within 1 week"
		rec.Confidence = 0.6
		rec.ExpectedPrice = util.Round2(currentPrice * 0.98)
		rec.SavingsPercentage = 2
		rec.Message = "Decent time to buy. Price is below average"
		rec.DaysToWait = 3
	default:
		rec.BestBuyTime = "Wait 2-4 weeks"
		rec.Confidence = 0.5
		rec.ExpectedPrice = util.Round2(avg)
		if currentPrice != 0 {
			rec.SavingsPercentage = util.Round2((currentPrice - avg) / currentPrice * 100)
		}
		rec.Message = "Consider waiting. Price is above average"
		rec.DaysToWait = 14
	}
	return rec
}
