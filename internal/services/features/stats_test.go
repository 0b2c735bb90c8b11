package features

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPercentileLinear(t *testing.T) {
	cases := []struct {
		x    []float64
		p    float64
		want float64
	}{
		{[]float64{1, 2, 3, 4}, 0.25, 1.75},
		{[]float64{4, 3, 2, 1}, 0.5, 2.5},
		{[]float64{90, 95, 100, 105, 110}, 0.25, 95},
		{[]float64{7}, 0.25, 7},
	}
	for _, c := range cases {
		assert.InDelta(t, c.want, Percentile(c.x, c.p), 1e-12)
	}
	assert.True(t, math.IsNaN(Percentile(nil, 0.5)))
}

func TestStdVariants(t *testing.T) {
	x := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	assert.InDelta(t, 2, PopStd(x), 1e-12)
	assert.InDelta(t, math.Sqrt(32.0/7), SampleStd(x), 1e-12)
	assert.Equal(t, 0.0, PopStd([]float64{3}))
	assert.True(t, math.IsNaN(SampleStd([]float64{3})))
}

func TestFitLine(t *testing.T) {
	b, m := FitLine([]float64{0, 1, 2, 3}, []float64{1, 3, 5, 7})
	assert.InDelta(t, 1, b, 1e-9)
	assert.InDelta(t, 2, m, 1e-9)
	assert.InDelta(t, 1, RSquared([]float64{0, 1, 2, 3}, []float64{1, 3, 5, 7}, b, m), 1e-9)

	b, m = FitLine([]float64{5, 5, 5}, []float64{1, 2, 3})
	assert.Equal(t, 0.0, m)
	assert.InDelta(t, 2, b, 1e-12)
}

func TestArgMinFirstOccurrence(t *testing.T) {
	assert.Equal(t, 1, ArgMin([]float64{3, 1, 2, 1}))
	assert.Equal(t, 0, ArgMin([]float64{1}))
}

func TestTailAndMinMax(t *testing.T) {
	assert.Equal(t, []float64{3, 4}, Tail([]float64{1, 2, 3, 4}, 2))
	assert.Equal(t, []float64{1, 2}, Tail([]float64{1, 2}, 7))
	lo, hi := MinMax([]float64{3, 9, -1, 4})
	assert.Equal(t, -1.0, lo)
	assert.Equal(t, 9.0, hi)
}
