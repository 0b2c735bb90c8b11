package features

import (
	"math"
	"sort"

	"PriceCast/internal/domain/models"
	"PriceCast/pkg/util"
)

const (
	MinPointsFull  = 5
	MinPointsTrend = 2

	maShortWindow  = 7
	maLongWindow   = 30
	volatilityWndw = 7
)

// BuildFeatureTable sorts history by date and derives calendar and moving
// window features. Windows shrink to the series length so short series
// degrade instead of failing. Undefined edge values are back-filled and
// then forward-filled.
func BuildFeatureTable(history []models.PricePoint, minPoints int) (models.FeatureTable, error) {
	if len(history) < minPoints {
		return nil, models.NewInsufficientDataError("preprocess", len(history), minPoints)
	}
	if len(history) == 0 {
		return models.FeatureTable{}, nil
	}

	pts := make([]models.PricePoint, len(history))
	copy(pts, history)
	sort.SliceStable(pts, func(i, j int) bool { return pts[i].Date.Before(pts[j].Date) })

	n := len(pts)
	prices := make([]float64, n)
	for i, p := range pts {
		prices[i] = p.Price
	}

	ma7 := CenteredMean(prices, min(maShortWindow, n))
	ma30 := CenteredMean(prices, min(maLongWindow, n))
	pct := PctChange(prices)
	vol := TrailingStd(prices, min(volatilityWndw, n))
	for _, col := range [][]float64{ma7, ma30, pct, vol} {
		FillMissing(col)
	}

	start := pts[0].Date
	table := make(models.FeatureTable, n)
	for i, p := range pts {
		table[i] = models.FeatureRow{
			Date:               p.Date,
			Price:              p.Price,
			DaysSinceStart:     util.DaysBetween(start, p.Date),
			DayOfWeek:          util.WeekdayIndex(p.Date),
			Month:              int(p.Date.Month()),
			WeekOfYear:         util.ISOWeek(p.Date),
			MovingAvg7:         ma7[i],
			MovingAvg30:        ma30[i],
			PctChange:          pct[i],
			RollingVolatility7: vol[i],
		}
	}
	return table, nil
}

// CenteredMean computes a centered rolling mean with a full-window
// requirement. For even windows the extra element sits on the left. Rows
// whose window falls outside the series are NaN.
func CenteredMean(x []float64, window int) []float64 {
	n := len(x)
	out := make([]float64, n)
	offset := (window - 1) / 2
	for i := range x {
		end := i + 1 + offset
		start := end - window
		if window <= 0 || start < 0 || end > n {
			out[i] = math.NaN()
			continue
		}
		sum := 0.0
		for _, v := range x[start:end] {
			sum += v
		}
		out[i] = sum / float64(window)
	}
	return out
}

// TrailingStd computes a trailing sample standard deviation; the first
// window-1 rows are NaN.
func TrailingStd(x []float64, window int) []float64 {
	out := make([]float64, len(x))
	for i := range x {
		if window <= 0 || i < window-1 {
			out[i] = math.NaN()
			continue
		}
		out[i] = SampleStd(x[i-window+1 : i+1])
	}
	return out
}

// PctChange returns (x[i]-x[i-1])/x[i-1]. The first row and any row after
// a zero price are NaN.
func PctChange(x []float64) []float64 {
	out := make([]float64, len(x))
	for i := range x {
		if i == 0 || x[i-1] == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = (x[i] - x[i-1]) / x[i-1]
	}
	return out
}

// FillMissing back-fills then forward-fills NaN values in place. A column
// with no valid value becomes all zeros.
func FillMissing(col []float64) {
	next := math.NaN()
	for i := len(col) - 1; i >= 0; i-- {
		if math.IsNaN(col[i]) {
			col[i] = next
		} else {
			next = col[i]
		}
	}
	prev := math.NaN()
	for i := range col {
		if math.IsNaN(col[i]) {
			col[i] = prev
		} else {
			prev = col[i]
		}
	}
	for i := range col {
		if math.IsNaN(col[i]) {
			col[i] = 0
		}
	}
}
