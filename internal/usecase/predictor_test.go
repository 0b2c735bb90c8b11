package usecase

import (
	"context"
	"testing"
	"time"

	"PriceCast/internal/domain/models"
	"PriceCast/internal/services/analytics"
	"PriceCast/internal/services/features"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPredict_DriftExample(t *testing.T) {
	p, d := newTestPredictor(t, nil, PredictorConfig{Version: "test"})
	prices := driftSeries(90)

	res, err := p.Predict(context.Background(), &models.PredictRequest{
		ProductID:    "sku-1",
		ProductName:  "Kettle",
		PriceHistory: requestHistory(prices...),
		CurrentPrice: f64(prices[len(prices)-1]),
		AnalysisType: AnalysisFull,
	})
	require.NoError(t, err)

	assert.Equal(t, models.TrendIncreasing, res.Direction)
	assert.Greater(t, res.Slope, 0.4)
	require.NotNil(t, res.Seasonality)
	require.NotNil(t, res.Recommendation)
	assert.GreaterOrEqual(t, res.Confidence, 0.5)
	assert.LessOrEqual(t, res.Confidence, 0.9)
	assert.Equal(t, models.BasisForecast, res.Basis)
	assert.Equal(t, 30, res.HorizonDays)
	assert.Equal(t, analytics.ModelRegression, res.Model)
	require.NotNil(t, res.Volatility)

	require.Len(t, res.FuturePredictions, 7)
	first := day0.AddDate(0, 0, 90)
	for i, fp := range res.FuturePredictions {
		assert.True(t, fp.Date.Equal(first.AddDate(0, 0, i)), "point %d", i)
	}

	require.Equal(t, 1, d.pub.count())
	ev := d.pub.events[0]
	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, "sku-1", ev.ProductID)
	assert.Equal(t, TriggerAPI, ev.Trigger)
	assert.Equal(t, res.BestBuyTime, ev.BestBuyTime)
}

func TestPredict_FullHorizonForecast(t *testing.T) {
	table, err := features.BuildFeatureTable(dailyPoints(driftSeries(90)...), features.MinPointsFull)
	require.NoError(t, err)
	res, err := analytics.NewRegressionForecaster().Forecast(table, 30)
	require.NoError(t, err)
	require.Len(t, res.Points, 30)
	for i := 1; i < len(res.Points); i++ {
		assert.True(t, res.Points[i].Date.After(res.Points[i-1].Date))
	}
}

func TestPredict_AnalysisTypes(t *testing.T) {
	p, d := newTestPredictor(t, nil, PredictorConfig{})
	base := models.PredictRequest{
		ProductName:  "Lamp",
		PriceHistory: requestHistory(10, 11, 12, 13, 14, 15),
		CurrentPrice: f64(15),
	}

	trendReq := base
	trendReq.AnalysisType = AnalysisTrend
	res, err := p.Predict(context.Background(), &trendReq)
	require.NoError(t, err)
	assert.Equal(t, models.TrendIncreasing, res.Direction)
	assert.Nil(t, res.Seasonality)
	assert.Nil(t, res.Recommendation)
	assert.Empty(t, res.FuturePredictions)

	seasonalReq := base
	seasonalReq.AnalysisType = AnalysisSeasonal
	res, err = p.Predict(context.Background(), &seasonalReq)
	require.NoError(t, err)
	require.NotNil(t, res.Seasonality)
	assert.Equal(t, models.SeasonalityInsufficient, res.Seasonality.Status)
	assert.Nil(t, res.Recommendation)

	assert.Zero(t, d.pub.count(), "only full predictions publish events")
}

func TestPredict_Timeframe(t *testing.T) {
	p, _ := newTestPredictor(t, nil, PredictorConfig{})
	res, err := p.Predict(context.Background(), &models.PredictRequest{
		ProductName:  "Lamp",
		PriceHistory: requestHistory(10, 11, 12, 13, 14),
		CurrentPrice: f64(14),
		AnalysisType: AnalysisFull,
		Timeframe:    "3m",
	})
	require.NoError(t, err)
	assert.Equal(t, 90, res.HorizonDays)
	assert.Len(t, res.FuturePredictions, 7)
}

func TestPredict_ClientErrors(t *testing.T) {
	p, d := newTestPredictor(t, nil, PredictorConfig{})
	ctx := context.Background()

	_, err := p.Predict(ctx, &models.PredictRequest{
		ProductName:  "Short",
		PriceHistory: requestHistory(1, 2, 3, 4),
		CurrentPrice: f64(4),
		AnalysisType: AnalysisFull,
	})
	assert.ErrorIs(t, err, models.ErrInsufficientData)
	assert.True(t, models.IsClientError(err))

	_, err = p.Predict(ctx, &models.PredictRequest{
		ProductName:  "BadDate",
		PriceHistory: []models.PricePointRequest{{Date: "yesterday", Price: f64(1)}},
		CurrentPrice: f64(1),
	})
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = p.Run(ctx, PredictInput{ProductName: "x", History: dailyPoints(1, 2, 3, 4, 5), CurrentPrice: 0}, TriggerAPI)
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = p.Run(ctx, PredictInput{ProductName: "x", History: dailyPoints(1, 2, 3, 4, 5), CurrentPrice: 5, AnalysisType: "weekly"}, TriggerAPI)
	assert.ErrorIs(t, err, models.ErrValidation)

	assert.Equal(t, 1, d.metrics.errors["insufficient_data"])
	assert.Equal(t, 3, d.metrics.errors["validation"])
}

func TestPredict_ForecastFailureFallsBack(t *testing.T) {
	p, _ := newTestPredictor(t, failingForecaster{}, PredictorConfig{})
	res, err := p.Run(context.Background(), PredictInput{
		ProductName:  "Fan",
		History:      dailyPoints(100, 90, 95, 105, 110, 100),
		CurrentPrice: 92,
		AnalysisType: AnalysisFull,
	}, TriggerAPI)
	require.NoError(t, err)
	require.NotNil(t, res.Recommendation)
	assert.Equal(t, models.BasisHistorical, res.Basis)
	assert.Equal(t, "Now", res.BestBuyTime)
	assert.Empty(t, res.FuturePredictions)
	assert.NotEmpty(t, res.Warnings)
}

func TestPredict_Timeout(t *testing.T) {
	p, d := newTestPredictor(t, slowForecaster{d: 300 * time.Millisecond}, PredictorConfig{Timeout: 20 * time.Millisecond})
	_, err := p.Run(context.Background(), PredictInput{
		ProductName:  "Slow",
		History:      dailyPoints(1, 2, 3, 4, 5),
		CurrentPrice: 5,
	}, TriggerAPI)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, d.metrics.errors["timeout"])
}

func TestPredict_CachesDeterministicResults(t *testing.T) {
	cf := &countingForecaster{Forecaster: analytics.NewRegressionForecaster()}
	p, d := newTestPredictor(t, cf, PredictorConfig{})
	in := PredictInput{
		ProductName:  "Chair",
		History:      dailyPoints(50, 52, 51, 53, 55, 54, 56),
		CurrentPrice: 56,
	}

	first, err := p.Run(context.Background(), in, TriggerAPI)
	require.NoError(t, err)
	second, err := p.Run(context.Background(), in, TriggerAPI)
	require.NoError(t, err)

	assert.Equal(t, 1, cf.calls)
	assert.Equal(t, first.TrendResult, second.TrendResult)
	assert.Equal(t, first.ExpectedPrice, second.ExpectedPrice)
	require.Len(t, second.FuturePredictions, len(first.FuturePredictions))
	for i := range first.FuturePredictions {
		assert.True(t, first.FuturePredictions[i].Date.Equal(second.FuturePredictions[i].Date))
		assert.Equal(t, first.FuturePredictions[i].PredictedPrice, second.FuturePredictions[i].PredictedPrice)
	}
	assert.Equal(t, 1, d.pub.count())

	in.SkipCache = true
	_, err = p.Run(context.Background(), in, TriggerScheduler)
	require.NoError(t, err)
	assert.Equal(t, 2, cf.calls)
}

func TestPredict_UnseededSimpleModelIsNotCached(t *testing.T) {
	cf := &countingForecaster{Forecaster: analytics.NewSimpleForecaster()}
	p, _ := newTestPredictor(t, cf, PredictorConfig{})
	in := PredictInput{ProductName: "Desk", History: dailyPoints(5, 6, 7, 8, 9), CurrentPrice: 9}

	for i := 0; i < 2; i++ {
		res, err := p.Run(context.Background(), in, TriggerAPI)
		require.NoError(t, err)
		require.NotNil(t, res.ForecastConfidence)
	}
	assert.Equal(t, 2, cf.calls)
}

func TestPredict_SeededRunsAreIdentical(t *testing.T) {
	seed := int64(42)
	mk := func() *Predictor {
		f, err := analytics.NewForecaster(analytics.ModelSimple, &seed)
		require.NoError(t, err)
		p, _ := newTestPredictor(t, f, PredictorConfig{})
		return p
	}
	in := PredictInput{ProductName: "Desk", History: dailyPoints(driftSeries(40)...), CurrentPrice: 110}

	a, err := mk().Run(context.Background(), in, TriggerAPI)
	require.NoError(t, err)
	b, err := mk().Run(context.Background(), in, TriggerAPI)
	require.NoError(t, err)
	assert.Equal(t, a.TrendResult, b.TrendResult)
	assert.Equal(t, a.Seasonality, b.Seasonality)
	assert.Equal(t, a.FuturePredictions, b.FuturePredictions)
}

func TestAnalyzeTrend(t *testing.T) {
	p, _ := newTestPredictor(t, nil, PredictorConfig{})

	sum, err := p.AnalyzeTrend(context.Background(), &models.AnalyzeTrendRequest{PriceHistory: requestHistory(100)})
	require.NoError(t, err)
	assert.Equal(t, models.TrendInsufficientData, sum.Trend)

	sum, err = p.AnalyzeTrend(context.Background(), &models.AnalyzeTrendRequest{PriceHistory: requestHistory(100, 101, 102, 110)})
	require.NoError(t, err)
	assert.Equal(t, models.TrendIncreasing, sum.Trend)
	assert.Equal(t, 10.0, sum.ChangePercent)
	assert.Equal(t, 4, sum.DataPoints)
}

func TestHealth(t *testing.T) {
	p, _ := newTestPredictor(t, nil, PredictorConfig{Version: "1.2.3"})
	h := p.Health()
	assert.Equal(t, "healthy", h.Status)
	assert.Equal(t, ServiceName, h.Service)
	assert.Equal(t, "1.2.3", h.Version)
	assert.Equal(t, analytics.ModelRegression, h.Model)
	assert.False(t, h.Timestamp.IsZero())
}
