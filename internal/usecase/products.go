package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"PriceCast/internal/domain/models"
	domrepo "PriceCast/internal/domain/repository"
	"PriceCast/internal/services/analytics"
	"PriceCast/internal/services/features"
	"PriceCast/pkg/cache"
	applogger "PriceCast/pkg/logger"
	"PriceCast/pkg/util"
)

// ProductService manages stored price histories and predictions over them.
type ProductService struct {
	store     domrepo.PriceStore
	predictor *Predictor
	cache     cache.Service
	metrics   domrepo.Metrics
	logger    *applogger.Logger
}

func NewProductService(store domrepo.PriceStore, predictor *Predictor, c cache.Service, metrics domrepo.Metrics, l *applogger.Logger) *ProductService {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if l == nil {
		l = applogger.Nop()
	}
	return &ProductService{store: store, predictor: predictor, cache: c, metrics: metrics, logger: l}
}

// Append stores new observations and returns how many were written.
func (s *ProductService) Append(ctx context.Context, productID string, req *models.AppendPricesRequest) (*models.AppendResult, error) {
	points, err := models.ToPriceHistory(req.Prices, defaultSource)
	if err != nil {
		s.metrics.RecordError(errorKind(err))
		return nil, err
	}
	if err := s.Ingest(ctx, productID, points); err != nil {
		return nil, err
	}
	return &models.AppendResult{ProductID: productID, Stored: len(points)}, nil
}

// Ingest writes typed points and drops cached predictions for the product.
func (s *ProductService) Ingest(ctx context.Context, productID string, points []models.PricePoint) error {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return models.NewValidationError("append_prices", "product id is required")
	}
	if len(points) == 0 {
		return nil
	}

	start := time.Now()
	err := s.store.Append(ctx, productID, points)
	s.metrics.RecordLatency("store_append", time.Since(start).Seconds())
	if err != nil {
		s.metrics.RecordError("store")
		return fmt.Errorf("append prices for %s: %w", productID, err)
	}

	bySource := map[string]int{}
	for _, p := range points {
		bySource[p.Source]++
	}
	for src, n := range bySource {
		s.metrics.RecordIngested(src, n)
	}

	if s.cache != nil {
		pattern := cache.BuildPattern(predictCachePrefix(productID) + ":")
		if err := s.cache.DeleteByPattern(ctx, pattern); err != nil {
			s.logger.Warn("invalidate prediction cache failed", applogger.String("pattern", pattern), applogger.Error(err))
		}
	}
	return nil
}

func (s *ProductService) history(ctx context.Context, productID string, limit int) ([]models.PricePoint, error) {
	points, err := s.store.History(ctx, productID, limit)
	if err != nil {
		s.metrics.RecordError("store")
		return nil, fmt.Errorf("load history for %s: %w", productID, err)
	}
	if len(points) == 0 {
		return nil, &models.AnalysisError{Kind: models.ErrNotFound, Op: "product", Msg: fmt.Sprintf("product %q has no price history", productID)}
	}
	return points, nil
}

// History returns the stored series with stats and a trend summary. A positive
// limit keeps only the most recent points.
func (s *ProductService) History(ctx context.Context, productID string, limit int) (*models.ProductHistory, error) {
	if limit < 0 {
		limit = 0
	}
	points, err := s.history(ctx, productID, limit)
	if err != nil {
		return nil, err
	}
	return &models.ProductHistory{
		ProductID: productID,
		Points:    points,
		Stats:     priceStats(points),
		Trend:     analytics.Summarize(points),
	}, nil
}

func priceStats(points []models.PricePoint) models.PriceStats {
	prices := make([]float64, len(points))
	for i, p := range points {
		prices[i] = p.Price
	}
	lo, hi := features.MinMax(prices)
	return models.PriceStats{
		Min:        lo,
		Max:        hi,
		Avg:        util.Round2(features.Mean(prices)),
		Current:    prices[len(prices)-1],
		DataPoints: len(prices),
	}
}

// PredictProduct predicts over the stored history using the latest stored
// price as the current price.
func (s *ProductService) PredictProduct(ctx context.Context, productID string, req *models.ProductPredictRequest) (*models.PredictionResult, error) {
	points, err := s.history(ctx, productID, 0)
	if err != nil {
		return nil, err
	}
	return s.predictor.Run(ctx, PredictInput{
		ProductID:    productID,
		ProductName:  productID,
		History:      points,
		CurrentPrice: points[len(points)-1].Price,
		AnalysisType: req.AnalysisType,
		HorizonDays:  models.ResolveHorizon(req.HorizonDays, req.Timeframe, 0),
	}, TriggerProduct)
}

// RefreshAll re-runs a full prediction for every product with enough
// history. Per-product failures are logged and skipped.
func (s *ProductService) RefreshAll(ctx context.Context) (int, error) {
	ids, err := s.store.Products(ctx)
	if err != nil {
		return 0, fmt.Errorf("list products: %w", err)
	}

	refreshed := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return refreshed, err
		}
		points, err := s.store.History(ctx, id, 0)
		if err != nil {
			s.logger.Warn("refresh: load history failed", applogger.String("product_id", id), applogger.Error(err))
			continue
		}
		if len(points) < features.MinPointsFull {
			continue
		}
		_, err = s.predictor.Run(ctx, PredictInput{
			ProductID:    id,
			ProductName:  id,
			History:      points,
			CurrentPrice: points[len(points)-1].Price,
			AnalysisType: AnalysisFull,
			SkipCache:    true,
		}, TriggerScheduler)
		if err != nil {
			s.logger.Warn("refresh: predict failed", applogger.String("product_id", id), applogger.Error(err))
			continue
		}
		refreshed++
	}
	return refreshed, nil
}

// Ready reports whether the price store is reachable.
func (s *ProductService) Ready(ctx context.Context) error {
	return s.store.Health(ctx)
}
