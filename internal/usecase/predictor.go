package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"PriceCast/internal/domain/models"
	domrepo "PriceCast/internal/domain/repository"
	"PriceCast/internal/domain/service"
	"PriceCast/internal/services/analytics"
	"PriceCast/internal/services/features"
	"PriceCast/pkg/cache"
	applogger "PriceCast/pkg/logger"
	"PriceCast/pkg/util"

	"github.com/google/uuid"
)

const (
	ServiceName = "pricecast"

	AnalysisTrend    = "trend"
	AnalysisSeasonal = "seasonal"
	AnalysisFull     = "full"

	TriggerAPI       = "api"
	TriggerProduct   = "product"
	TriggerScheduler = "scheduler"

	defaultSource = "api"
)

// PredictorConfig tunes the prediction pipeline.
type PredictorConfig struct {
	HorizonDays int
	PreviewDays int
	Timeout     time.Duration
	CacheTTL    time.Duration
	Version     string
}

// PredictInput is a fully typed prediction request.
type PredictInput struct {
	ProductID    string
	ProductName  string
	History      []models.PricePoint
	CurrentPrice float64
	AnalysisType string
	HorizonDays  int
	// SkipCache forces a fresh computation.
	SkipCache bool `json:"-"`
}

// Predictor runs the trend, seasonality and forecast analyses and turns them
// into a buy-timing recommendation. It holds no per-request state.
type Predictor struct {
	forecaster  service.Forecaster
	trend       service.TrendAnalyzer
	seasonality service.SeasonalityDetector
	recommender service.Recommender
	cache       cache.Service
	publisher   domrepo.PredictionPublisher
	metrics     domrepo.Metrics
	logger      *applogger.Logger
	cfg         PredictorConfig
	now         func() time.Time
}

func NewPredictor(
	forecaster service.Forecaster,
	trend service.TrendAnalyzer,
	seasonality service.SeasonalityDetector,
	recommender service.Recommender,
	c cache.Service,
	publisher domrepo.PredictionPublisher,
	metrics domrepo.Metrics,
	l *applogger.Logger,
	cfg PredictorConfig,
) *Predictor {
	if cfg.HorizonDays <= 0 {
		cfg.HorizonDays = 30
	}
	if cfg.PreviewDays <= 0 {
		cfg.PreviewDays = 7
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if publisher == nil {
		publisher = noopPublisher{}
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if l == nil {
		l = applogger.Nop()
	}
	return &Predictor{
		forecaster:  forecaster,
		trend:       trend,
		seasonality: seasonality,
		recommender: recommender,
		cache:       c,
		publisher:   publisher,
		metrics:     metrics,
		logger:      l,
		cfg:         cfg,
		now:         time.Now,
	}
}

// Model returns the active forecasting strategy name.
func (p *Predictor) Model() string { return p.forecaster.Name() }

// Predict converts a transport request and runs the pipeline.
func (p *Predictor) Predict(ctx context.Context, req *models.PredictRequest) (*models.PredictionResult, error) {
	history, err := models.ToPriceHistory(req.PriceHistory, defaultSource)
	if err != nil {
		p.metrics.RecordError(errorKind(err))
		return nil, err
	}
	if req.CurrentPrice == nil {
		p.metrics.RecordError("validation")
		return nil, models.NewValidationError("predict", "current_price is required")
	}
	return p.Run(ctx, PredictInput{
		ProductID:    req.ProductID,
		ProductName:  req.ProductName,
		History:      history,
		CurrentPrice: *req.CurrentPrice,
		AnalysisType: req.AnalysisType,
		HorizonDays:  models.ResolveHorizon(req.HorizonDays, req.Timeframe, p.cfg.HorizonDays),
	}, TriggerAPI)
}

// Run executes the pipeline on typed input. Deterministic results are
// served from the cache when one is configured.
func (p *Predictor) Run(ctx context.Context, in PredictInput, trigger string) (*models.PredictionResult, error) {
	if in.AnalysisType == "" {
		in.AnalysisType = AnalysisFull
	}
	if in.HorizonDays <= 0 {
		in.HorizonDays = p.cfg.HorizonDays
	}
	if err := validateInput(in); err != nil {
		p.metrics.RecordError("validation")
		return nil, err
	}

	key := ""
	if p.cache != nil && p.forecaster.Deterministic() && !in.SkipCache {
		key = p.cacheKey(in)
		var cached models.PredictionResult
		if err := p.cache.Get(ctx, key, &cached); err == nil {
			p.logger.Debug("predict cache hit", applogger.String("key", key))
			return &cached, nil
		} else if !errors.Is(err, cache.ErrCacheMiss) {
			p.logger.Warn("predict cache read failed", applogger.String("key", key), applogger.Error(err))
		}
	}

	start := time.Now()
	res, err := p.compute(ctx, in)
	p.metrics.RecordLatency("predict", time.Since(start).Seconds())
	if err != nil {
		p.metrics.RecordError(errorKind(err))
		return nil, err
	}
	p.metrics.RecordPrediction(res.Model, in.AnalysisType)
	if res.Recommendation != nil {
		p.metrics.RecordRecommendation(string(res.Recommendation.Basis), res.Recommendation.Confidence)
		p.publish(ctx, res, trigger)
	}

	if key != "" {
		if err := p.cache.Set(ctx, key, res, p.cfg.CacheTTL); err != nil {
			p.logger.Warn("predict cache write failed", applogger.String("key", key), applogger.Error(err))
		}
	}
	return res, nil
}

func validateInput(in PredictInput) error {
	switch {
	case in.ProductName == "":
		return models.NewValidationError("predict", "product_name is required")
	case in.CurrentPrice <= 0:
		return models.NewValidationError("predict", "current_price must be greater than 0")
	case in.HorizonDays > 365:
		return models.NewValidationError("predict", "horizon_days must be at most 365")
	}
	switch in.AnalysisType {
	case AnalysisTrend, AnalysisSeasonal, AnalysisFull:
		return nil
	default:
		return models.NewValidationError("predict", "analysis_type must be one of trend, seasonal, full")
	}
}

type part struct {
	name string
	val  interface{}
	err  error
}

func (p *Predictor) compute(ctx context.Context, in PredictInput) (*models.PredictionResult, error) {
	table, err := features.BuildFeatureTable(in.History, features.MinPointsFull)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	ch := make(chan part, 3)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		ch <- part{"trend", p.trend.Analyze(table), nil}
	}()
	if in.AnalysisType != AnalysisTrend {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ch <- part{"seasonality", p.seasonality.Detect(table), nil}
		}()
	}
	if in.AnalysisType == AnalysisFull {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := p.forecaster.Forecast(table, in.HorizonDays)
			ch <- part{"forecast", v, err}
		}()
	}
	go func() { wg.Wait(); close(ch) }()

	res := &models.PredictionResult{
		ProductID:    in.ProductID,
		ProductName:  in.ProductName,
		AnalysisType: in.AnalysisType,
	}
	var (
		forecast    models.Forecast
		forecastErr error
	)
collect:
	for {
		select {
		case it, ok := <-ch:
			if !ok {
				break collect
			}
			switch it.name {
			case "trend":
				res.TrendResult = it.val.(models.TrendResult)
			case "seasonality":
				v := it.val.(models.SeasonalityResult)
				res.Seasonality = &v
			case "forecast":
				forecast, forecastErr = it.val.(models.Forecast), it.err
			}
		case <-ctx.Done():
			return nil, fmt.Errorf("predict %s: %w", in.ProductName, ctx.Err())
		}
	}

	if in.AnalysisType != AnalysisFull {
		return res, nil
	}

	if forecastErr != nil {
		p.logger.Warn("forecast failed, using historical fallback",
			applogger.String("product", in.ProductName),
			applogger.String("model", p.forecaster.Name()),
			applogger.Error(forecastErr),
		)
		// keep the strategy's default confidence, drop any partial points
		forecast.Points = nil
		res.Warnings = append(res.Warnings, "forecast unavailable; recommendation based on historical prices")
	}

	rec := p.recommender.Recommend(table, forecast.Points, in.CurrentPrice)
	res.Recommendation = &rec
	res.FuturePredictions = preview(forecast.Points, p.cfg.PreviewDays)
	res.Model = p.forecaster.Name()
	res.HorizonDays = in.HorizonDays
	if forecast.Confidence != nil {
		c := *forecast.Confidence
		res.ForecastConfidence = &c
	}

	prices := table.Prices()
	if mean := features.Mean(prices); mean > 0 {
		v := util.Round(features.PopStd(prices)/mean, 3)
		res.Volatility = &v
	}
	return res, nil
}

func preview(points []models.ForecastPoint, n int) []models.ForecastPoint {
	if len(points) > n {
		points = points[:n]
	}
	out := make([]models.ForecastPoint, len(points))
	copy(out, points)
	return out
}

func (p *Predictor) publish(ctx context.Context, res *models.PredictionResult, trigger string) {
	ev := &models.PredictionEvent{
		ID:                uuid.NewString(),
		ProductID:         res.ProductID,
		ProductName:       res.ProductName,
		Model:             res.Model,
		Trend:             res.Direction,
		BestBuyTime:       res.BestBuyTime,
		Confidence:        res.Confidence,
		ExpectedPrice:     res.ExpectedPrice,
		SavingsPercentage: res.SavingsPercentage,
		Trigger:           trigger,
		GeneratedAt:       p.now().UTC(),
	}
	if err := p.publisher.Publish(ctx, ev); err != nil {
		p.metrics.RecordError("publish")
		p.logger.Error("publish prediction event failed",
			applogger.String("event_id", ev.ID),
			applogger.String("product", res.ProductName),
			applogger.Error(err),
		)
	}
}

func (p *Predictor) cacheKey(in PredictInput) string {
	h, err := cache.HashValue(in)
	if err != nil {
		h = fmt.Sprintf("%s:%d", in.ProductName, len(in.History))
	}
	return cache.GenerateKey(predictCachePrefix(in.ProductID), p.forecaster.Name(), h)
}

func predictCachePrefix(productID string) string {
	if productID == "" {
		return cache.GenerateKey("predict", "adhoc")
	}
	return cache.GenerateKey("predict", "product", productID)
}

// AnalyzeTrend returns the lightweight summary. Fewer than two points yield
// the insufficient_data label rather than an error.
func (p *Predictor) AnalyzeTrend(_ context.Context, req *models.AnalyzeTrendRequest) (models.TrendSummary, error) {
	start := time.Now()
	defer func() { p.metrics.RecordLatency("analyze_trend", time.Since(start).Seconds()) }()

	history, err := models.ToPriceHistory(req.PriceHistory, defaultSource)
	if err != nil {
		p.metrics.RecordError(errorKind(err))
		return models.TrendSummary{}, err
	}
	return analytics.Summarize(history), nil
}

// Health reports liveness. It never touches engine state.
func (p *Predictor) Health() models.HealthStatus {
	return models.HealthStatus{
		Status:    "healthy",
		Service:   ServiceName,
		Version:   p.cfg.Version,
		Model:     p.forecaster.Name(),
		Timestamp: p.now().UTC(),
	}
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, models.ErrValidation):
		return "validation"
	case errors.Is(err, models.ErrInsufficientData):
		return "insufficient_data"
	case errors.Is(err, models.ErrNotFound):
		return "not_found"
	case errors.Is(err, models.ErrComputation):
		return "computation"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "timeout"
	default:
		return "internal"
	}
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, *models.PredictionEvent) error { return nil }
func (noopPublisher) Close() error                                          { return nil }

type noopMetrics struct{}

func (noopMetrics) RecordPrediction(string, string)       {}
func (noopMetrics) RecordRecommendation(string, float64) {}
func (noopMetrics) RecordIngested(string, int)           {}
func (noopMetrics) RecordError(string)                   {}
func (noopMetrics) RecordLatency(string, float64)        {}
