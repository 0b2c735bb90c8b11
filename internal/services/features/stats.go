package features

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Mean returns the arithmetic mean, NaN for an empty slice.
func Mean(x []float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	return stat.Mean(x, nil)
}

// PopStd is the population standard deviation (ddof=0).
// A single value has zero spread.
func PopStd(x []float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	if len(x) == 1 {
		return 0
	}
	_, std := stat.PopMeanStdDev(x, nil)
	return std
}

// SampleStd is the sample standard deviation (ddof=1), NaN below two values.
func SampleStd(x []float64) float64 {
	if len(x) < 2 {
		return math.NaN()
	}
	return stat.StdDev(x, nil)
}

// Tail returns the last n elements (all of x when shorter).
func Tail(x []float64, n int) []float64 {
	if n >= len(x) {
		return x
	}
	return x[len(x)-n:]
}

// MinMax returns the extremes of x. x must not be empty.
func MinMax(x []float64) (lo, hi float64) {
	lo, hi = x[0], x[0]
	for _, v := range x[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

// Percentile uses linear interpolation between closest ranks
// (h = (n-1)p), the default numpy method. p is in [0,1].
func Percentile(x []float64, p float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	s := append([]float64(nil), x...)
	sort.Float64s(s)
	h := float64(len(s)-1) * p
	lo := math.Floor(h)
	hi := math.Ceil(h)
	if lo == hi {
		return s[int(lo)]
	}
	return s[int(lo)] + (h-lo)*(s[int(hi)]-s[int(lo)])
}

// ArgMin returns the index of the first minimum.
func ArgMin(x []float64) int {
	idx := 0
	for i, v := range x {
		if v < x[idx] {
			idx = i
		}
	}
	return idx
}

// FitLine is an ordinary least-squares fit of y on x. When x has no spread
// the slope is 0 and the intercept is the mean of y.
func FitLine(x, y []float64) (intercept, slope float64) {
	if len(x) == 0 {
		return 0, 0
	}
	if len(x) < 2 || stat.Variance(x, nil) == 0 {
		return Mean(y), 0
	}
	return stat.LinearRegression(x, y, nil, false)
}

// RSquared is the coefficient of determination of a fitted line, reported
// in [0,1]. A series with no variance explains nothing and scores 0.
func RSquared(x, y []float64, intercept, slope float64) float64 {
	if len(y) < 2 || PopStd(y) == 0 {
		return 0
	}
	r2 := stat.RSquared(x, y, nil, intercept, slope)
	if math.IsNaN(r2) || r2 < 0 {
		return 0
	}
	if r2 > 1 {
		return 1
	}
	return r2
}
