package models

import (
	"encoding/json"
	"time"
)

type TrendDirection string

const (
	TrendIncreasing       TrendDirection = "increasing"
	TrendDecreasing       TrendDirection = "decreasing"
	TrendStable           TrendDirection = "stable"
	TrendInsufficientData TrendDirection = "insufficient_data"
)

// TrendResult is the outcome of a linear fit of price over elapsed days.
type TrendResult struct {
	Direction  TrendDirection `json:"trend"`
	Slope      float64        `json:"slope"`
	FitQuality float64        `json:"r2_score"`
}

type SeasonalityStatus string

const (
	SeasonalityDetected     SeasonalityStatus = "detected"
	SeasonalityNotDetected  SeasonalityStatus = "not_detected"
	SeasonalityInsufficient SeasonalityStatus = "insufficient_data"
)

// SeasonalityResult keeps "insufficient data" distinct from "no seasonality".
type SeasonalityResult struct {
	Status               SeasonalityStatus `json:"status"`
	HasSeasonality       bool              `json:"has_seasonality"`
	BestMonths           []int             `json:"best_months,omitempty"`
	WorstMonths          []int             `json:"worst_months,omitempty"`
	VariationCoefficient *float64          `json:"variation_coefficient,omitempty"`
}

// ForecastPoint is a single predicted day.
type ForecastPoint struct {
	Date           time.Time
	PredictedPrice float64
}

type forecastPointJSON struct {
	Date           string  `json:"date"`
	PredictedPrice float64 `json:"predicted_price"`
}

func (p ForecastPoint) MarshalJSON() ([]byte, error) {
	return json.Marshal(forecastPointJSON{
		Date:           p.Date.Format(time.DateOnly),
		PredictedPrice: p.PredictedPrice,
	})
}

func (p *ForecastPoint) UnmarshalJSON(b []byte) error {
	var raw forecastPointJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	d, err := time.Parse(time.DateOnly, raw.Date)
	if err != nil {
		return err
	}
	p.Date = d
	p.PredictedPrice = raw.PredictedPrice
	return nil
}

// Forecast is the output of a forecasting strategy. Confidence is only set
// by strategies that score their own output.
type Forecast struct {
	Model      string
	Points     []ForecastPoint
	Confidence *float64
}

// Prices returns the predicted price column.
func (f Forecast) Prices() []float64 {
	out := make([]float64, len(f.Points))
	for i, p := range f.Points {
		out[i] = p.PredictedPrice
	}
	return out
}

type RecommendationBasis string

const (
	BasisForecast   RecommendationBasis = "forecast"
	BasisHistorical RecommendationBasis = "historical"
)

// Recommendation is a buy-timing decision.
type Recommendation struct {
	BestBuyTime       string              `json:"best_buy_time"`
	Confidence        float64             `json:"confidence"`
	ExpectedPrice     float64             `json:"expected_price"`
	SavingsPercentage float64             `json:"savings_percentage"`
	Message           string              `json:"recommendation"`
	DaysToWait        int                 `json:"days_to_wait"`
	Basis             RecommendationBasis `json:"basis"`
}

// PriceRange is the min/max/avg block of a trend summary.
type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
	Avg float64 `json:"avg"`
}

// TrendSummary is the lightweight analyze_trend result.
type TrendSummary struct {
	Trend          TrendDirection `json:"trend"`
	ChangePercent  float64        `json:"change_percent"`
	Volatility     float64        `json:"volatility"`
	MovingAverage7 float64        `json:"moving_average_7"`
	PriceRange     *PriceRange    `json:"price_range,omitempty"`
	DataPoints     int            `json:"data_points,omitempty"`
}
