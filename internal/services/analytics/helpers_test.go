package analytics

import (
	"testing"
	"time"

	"PriceCast/internal/domain/models"
	"PriceCast/internal/services/features"

	"github.com/stretchr/testify/require"
)

var day0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func dailyHistory(prices ...float64) []models.PricePoint {
	out := make([]models.PricePoint, len(prices))
	for i, p := range prices {
		out[i] = models.PricePoint{Date: day0.AddDate(0, 0, i), Price: p}
	}
	return out
}

func linear(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + step*float64(i)
	}
	return out
}

func constant(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func mustTable(t *testing.T, prices ...float64) models.FeatureTable {
	t.Helper()
	table, err := features.BuildFeatureTable(dailyHistory(prices...), 1)
	require.NoError(t, err)
	return table
}

func points(prices ...float64) []models.ForecastPoint {
	out := make([]models.ForecastPoint, len(prices))
	for i, p := range prices {
		out[i] = models.ForecastPoint{Date: day0.AddDate(0, 0, 100+i), PredictedPrice: p}
	}
	return out
}

func mustTableFrom(t *testing.T, h []models.PricePoint) models.FeatureTable {
	t.Helper()
	table, err := features.BuildFeatureTable(h, 1)
	require.NoError(t, err)
	return table
}
