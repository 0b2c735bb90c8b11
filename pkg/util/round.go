package util

import (
	"math"

	"github.com/shopspring/decimal"
)

// Round rounds v to the given number of decimal places using decimal
// arithmetic so that values such as 2.675 are not skewed by their binary
// representation. NaN and ±Inf are returned unchanged.
func Round(v float64, places int32) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

// Round2 is shorthand for prices and percentages.
func Round2(v float64) float64 { return Round(v, 2) }

// Clamp bounds v into [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
