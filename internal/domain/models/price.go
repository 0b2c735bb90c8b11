package models

import "time"

// PricePoint is one recorded observation of a product price.
type PricePoint struct {
	Date   time.Time `json:"date"`
	Price  float64   `json:"price"`
	Source string    `json:"source,omitempty"`
}

// FeatureRow is derived from a PricePoint and never persisted.
type FeatureRow struct {
	Date               time.Time
	Price              float64
	DaysSinceStart     int
	DayOfWeek          int // Monday=0
	Month              int
	WeekOfYear         int
	MovingAvg7         float64
	MovingAvg30        float64
	PctChange          float64
	RollingVolatility7 float64
}

// FeatureTable is sorted ascending by date.
type FeatureTable []FeatureRow

// Prices returns the price column.
func (t FeatureTable) Prices() []float64 {
	out := make([]float64, len(t))
	for i, r := range t {
		out[i] = r.Price
	}
	return out
}

// Days returns days_since_start as float64 for regression.
func (t FeatureTable) Days() []float64 {
	out := make([]float64, len(t))
	for i, r := range t {
		out[i] = float64(r.DaysSinceStart)
	}
	return out
}

// Last returns the most recent row. Callers must check len first.
func (t FeatureTable) Last() FeatureRow { return t[len(t)-1] }

// Start is the minimum date of the table.
func (t FeatureTable) Start() time.Time {
	if len(t) == 0 {
		return time.Time{}
	}
	return t[0].Date
}

// PriceStats summarises a stored history.
type PriceStats struct {
	Min        float64 `json:"min"`
	Max        float64 `json:"max"`
	Avg        float64 `json:"avg"`
	Current    float64 `json:"current"`
	DataPoints int     `json:"data_points"`
}
