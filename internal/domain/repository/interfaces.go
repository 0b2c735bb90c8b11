package repository

import (
	"context"

	"PriceCast/internal/domain/models"
)

// PriceStore persists per-product price observations.
type PriceStore interface {
	Init(ctx context.Context) error
	Append(ctx context.Context, productID string, points []models.PricePoint) error
	// History returns up to limit points in ascending date order (limit<=0 means all).
	History(ctx context.Context, productID string, limit int) ([]models.PricePoint, error)
	Products(ctx context.Context) ([]string, error)
	Health(ctx context.Context) error
	Close() error
}

// PredictionPublisher emits prediction events to downstream consumers.
type PredictionPublisher interface {
	Publish(ctx context.Context, ev *models.PredictionEvent) error
	Close() error
}

// Metrics records engine-level counters. Implementations must be safe for
// concurrent use.
type Metrics interface {
	RecordPrediction(model, analysisType string)
	RecordRecommendation(basis string, confidence float64)
	RecordIngested(source string, n int)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
