package models

import (
	"PriceCast/pkg/util"
)

// Requests for the prediction HTTP endpoints. Defined in domain for reuse by
// the batch usecase and the CLI.

type PricePointRequest struct {
	Date   string   `json:"date" validate:"required"`
	Price  *float64 `json:"price" validate:"required,gte=0"`
	Source string   `json:"source,omitempty"`
}

type PredictRequest struct {
	ProductID    string              `json:"product_id,omitempty"`
	ProductName  string              `json:"product_name" validate:"required"`
	PriceHistory []PricePointRequest `json:"price_history" validate:"required,min=5,dive"`
	CurrentPrice *float64            `json:"current_price" validate:"required,gt=0"`
	AnalysisType string              `json:"analysis_type" default:"full" validate:"oneof=trend seasonal full"`
	HorizonDays  int                 `json:"horizon_days,omitempty" validate:"omitempty,gte=1,lte=365"`
	Timeframe    string              `json:"timeframe,omitempty" validate:"omitempty,oneof=1m 3m 6m 1y"`
}

// BatchItemRequest is validated per item so one bad entry cannot fail the batch.
type BatchItemRequest struct {
	ProductID    string              `json:"product_id,omitempty"`
	ProductName  string              `json:"product_name" validate:"required"`
	PriceHistory []PricePointRequest `json:"price_history" validate:"required,min=2,dive"`
	CurrentPrice *float64            `json:"current_price" validate:"required,gt=0"`
}

type BatchPredictRequest struct {
	Products []BatchItemRequest `json:"products" validate:"required,min=1,max=10"`
}

type AnalyzeTrendRequest struct {
	PriceHistory []PricePointRequest `json:"price_history" validate:"required,min=1,dive"`
}

type AppendPricesRequest struct {
	Prices []PricePointRequest `json:"prices" validate:"required,min=1,max=500,dive"`
}

type ProductPredictRequest struct {
	AnalysisType string `json:"analysis_type" query:"analysis_type" default:"full" validate:"oneof=trend seasonal full"`
	HorizonDays  int    `json:"horizon_days,omitempty" query:"horizon_days" validate:"omitempty,gte=1,lte=365"`
	Timeframe    string `json:"timeframe,omitempty" query:"timeframe" validate:"omitempty,oneof=1m 3m 6m 1y"`
}

var timeframeDays = map[string]int{
	"1m": 30,
	"3m": 90,
	"6m": 180,
	"1y": 365,
}

// ResolveHorizon picks horizon_days, then timeframe, then def.
func ResolveHorizon(horizonDays int, timeframe string, def int) int {
	if horizonDays > 0 {
		return horizonDays
	}
	if d, ok := timeframeDays[timeframe]; ok {
		return d
	}
	return def
}

// ToPriceHistory converts transport points into typed domain points.
func ToPriceHistory(in []PricePointRequest, defaultSource string) ([]PricePoint, error) {
	out := make([]PricePoint, 0, len(in))
	for i, p := range in {
		d, ok := util.ParseTime(p.Date)
		if !ok {
			return nil, NewValidationError("price_history", "invalid date %q at index %d", p.Date, i)
		}
		if p.Price == nil {
			return nil, NewValidationError("price_history", "missing price at index %d", i)
		}
		if *p.Price < 0 {
			return nil, NewValidationError("price_history", "negative price at index %d", i)
		}
		src := p.Source
		if src == "" {
			src = defaultSource
		}
		out = append(out, PricePoint{Date: d, Price: *p.Price, Source: src})
	}
	return out, nil
}
