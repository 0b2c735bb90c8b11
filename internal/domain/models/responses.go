package models

import "time"

// PredictionResult is the predict response body. Embedded structs flatten
// into the top level.
type PredictionResult struct {
	ProductID    string `json:"product_id,omitempty"`
	ProductName  string `json:"product_name"`
	AnalysisType string `json:"analysis_type"`
	TrendResult
	Seasonality *SeasonalityResult `json:"seasonality,omitempty"`
	*Recommendation
	FuturePredictions  []ForecastPoint `json:"future_predictions,omitempty"`
	Volatility         *float64        `json:"volatility,omitempty"`
	Model              string          `json:"model,omitempty"`
	HorizonDays        int             `json:"horizon_days,omitempty"`
	ForecastConfidence *float64        `json:"forecast_confidence,omitempty"`
	Warnings           []string        `json:"warnings,omitempty"`
}

type BatchItemResult struct {
	ProductID   string `json:"product_id,omitempty"`
	ProductName string `json:"product_name"`
	TrendResult
	Recommendation
}

type BatchItemError struct {
	Index     int    `json:"index"`
	ProductID string `json:"product_id,omitempty"`
	Error     string `json:"error"`
}

type BatchResult struct {
	Results        []BatchItemResult `json:"results"`
	Errors         []BatchItemError  `json:"errors"`
	TotalProcessed int               `json:"total_processed"`
	TotalErrors    int               `json:"total_errors"`
}

type HealthStatus struct {
	Status    string    `json:"status"`
	Service   string    `json:"service"`
	Version   string    `json:"version"`
	Model     string    `json:"model"`
	Timestamp time.Time `json:"timestamp"`
}

type ProductHistory struct {
	ProductID string       `json:"product_id"`
	Points    []PricePoint `json:"price_history"`
	Stats     PriceStats   `json:"stats"`
	Trend     TrendSummary `json:"trend"`
}

type AppendResult struct {
	ProductID string `json:"product_id"`
	Stored    int    `json:"stored"`
}

// PredictionEvent is published after every full prediction.
type PredictionEvent struct {
	ID                string         `json:"id"`
	ProductID         string         `json:"product_id,omitempty"`
	ProductName       string         `json:"product_name"`
	Model             string         `json:"model"`
	Trend             TrendDirection `json:"trend"`
	BestBuyTime       string         `json:"best_buy_time"`
	Confidence        float64        `json:"confidence"`
	ExpectedPrice     float64        `json:"expected_price"`
	SavingsPercentage float64        `json:"savings_percentage"`
	Trigger           string         `json:"trigger"`
	GeneratedAt       time.Time      `json:"generated_at"`
}

// PriceObservation is the Kafka ingest message schema.
type PriceObservation struct {
	ProductID string   `json:"product_id"`
	Date      string   `json:"date"`
	Price     *float64 `json:"price"`
	Source    string   `json:"source,omitempty"`
}
