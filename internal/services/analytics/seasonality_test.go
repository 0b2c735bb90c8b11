package analytics

import (
	"testing"
	"time"

	"PriceCast/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func monthlyTable(t *testing.T, prices [12]float64) models.FeatureTable {
	t.Helper()
	h := make([]models.PricePoint, 0, 12)
	for m, p := range prices {
		h = append(h, models.PricePoint{Date: time.Date(2023, time.Month(m+1), 15, 0, 0, 0, 0, time.UTC), Price: p})
	}
	return mustTableFrom(t, h)
}

func TestSeasonalityInsufficientIsDistinct(t *testing.T) {
	res := NewSeasonalityDetector().Detect(mustTable(t, constant(11, 100)...))
	assert.Equal(t, models.SeasonalityInsufficient, res.Status)
	assert.False(t, res.HasSeasonality)
	assert.NotEqual(t, models.SeasonalityNotDetected, res.Status)
}

func TestSeasonalityDetected(t *testing.T) {
	res := NewSeasonalityDetector().Detect(monthlyTable(t, [12]float64{50, 60, 70, 100, 100, 100, 100, 100, 100, 140, 150, 160}))
	require.Equal(t, models.SeasonalityDetected, res.Status)
	assert.True(t, res.HasSeasonality)
	assert.Equal(t, []int{1, 2, 3}, res.BestMonths)
	assert.Equal(t, []int{12, 11, 10}, res.WorstMonths)
	require.NotNil(t, res.VariationCoefficient)
	assert.Greater(t, *res.VariationCoefficient, 0.1)
}

func TestSeasonalityTiesKeepMonthOrder(t *testing.T) {
	res := NewSeasonalityDetector().Detect(monthlyTable(t, [12]float64{50, 50, 80, 100, 100, 100, 100, 100, 100, 150, 200, 200}))
	require.True(t, res.HasSeasonality)
	assert.Equal(t, []int{1, 2, 3}, res.BestMonths)
	assert.Equal(t, []int{11, 12, 10}, res.WorstMonths)
}

func TestSeasonalityNotDetected(t *testing.T) {
	res := NewSeasonalityDetector().Detect(monthlyTable(t, [12]float64{100, 101, 99, 100, 102, 98, 100, 101, 99, 100, 100, 100}))
	assert.Equal(t, models.SeasonalityNotDetected, res.Status)
	assert.False(t, res.HasSeasonality)
	assert.Empty(t, res.BestMonths)
	assert.Nil(t, res.VariationCoefficient)
}

func TestSeasonalitySingleMonth(t *testing.T) {
	res := NewSeasonalityDetector().Detect(mustTable(t, linear(20, 10, 10)...))
	assert.Equal(t, models.SeasonalityNotDetected, res.Status)
}

func TestSeasonalityFewerThanThreeMonths(t *testing.T) {
	h := make([]models.PricePoint, 0, 14)
	for i := 0; i < 7; i++ {
		h = append(h, models.PricePoint{Date: time.Date(2023, 1, 1+i, 0, 0, 0, 0, time.UTC), Price: 50})
		h = append(h, models.PricePoint{Date: time.Date(2023, 6, 1+i, 0, 0, 0, 0, time.UTC), Price: 150})
	}
	res := NewSeasonalityDetector().Detect(mustTableFrom(t, h))
	require.True(t, res.HasSeasonality)
	assert.Equal(t, []int{1, 6}, res.BestMonths)
	assert.Equal(t, []int{6, 1}, res.WorstMonths)
}
