package usecase

import (
	"context"
	"sync"
	"time"

	"PriceCast/internal/domain/models"
	"PriceCast/internal/services/features"
	xhttp "PriceCast/pkg/http"
	applogger "PriceCast/pkg/logger"
)

// BatchPredict analyses every product independently. A failing item is
// recorded in Errors and never fails its siblings or the call.
func (p *Predictor) BatchPredict(ctx context.Context, req *models.BatchPredictRequest) (*models.BatchResult, error) {
	start := time.Now()
	defer func() { p.metrics.RecordLatency("batch_predict", time.Since(start).Seconds()) }()

	type outcome struct {
		res *models.BatchItemResult
		err error
	}
	outs := make([]outcome, len(req.Products))

	var wg sync.WaitGroup
	for i := range req.Products {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := p.batchItem(ctx, &req.Products[i])
			outs[i] = outcome{r, err}
		}(i)
	}
	wg.Wait()

	res := &models.BatchResult{
		Results: make([]models.BatchItemResult, 0, len(outs)),
		Errors:  []models.BatchItemError{},
	}
	for i, o := range outs {
		if o.err != nil {
			p.metrics.RecordError(errorKind(o.err))
			p.logger.Debug("batch item failed", applogger.Int("index", i), applogger.Error(o.err))
			res.Errors = append(res.Errors, models.BatchItemError{
				Index:     i,
				ProductID: req.Products[i].ProductID,
				Error:     o.err.Error(),
			})
			continue
		}
		res.Results = append(res.Results, *o.res)
	}
	res.TotalProcessed = len(res.Results)
	res.TotalErrors = len(res.Errors)
	return res, nil
}

// batchItem reports trend plus the historical recommendation. No forecast
// is fitted per item.
func (p *Predictor) batchItem(ctx context.Context, item *models.BatchItemRequest) (*models.BatchItemResult, error) {
	if verrs := xhttp.ValidateRequest(ctx, item); len(verrs) > 0 {
		return nil, models.NewValidationError("batch_predict", "%s", xhttp.FirstMessage(verrs))
	}
	history, err := models.ToPriceHistory(item.PriceHistory, defaultSource)
	if err != nil {
		return nil, err
	}
	table, err := features.BuildFeatureTable(history, features.MinPointsTrend)
	if err != nil {
		return nil, err
	}

	rec := p.recommender.Fallback(table, *item.CurrentPrice)
	p.metrics.RecordRecommendation(string(rec.Basis), rec.Confidence)
	return &models.BatchItemResult{
		ProductID:      item.ProductID,
		ProductName:    item.ProductName,
		TrendResult:    p.trend.Analyze(table),
		Recommendation: rec,
	}, nil
}
