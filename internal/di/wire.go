//go:build wireinject
// +build wireinject

package di

import (
	"PriceCast/pkg/config"
	"PriceCast/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,

		// Metrics
		ProvideRegistry,
		ProvideMetrics,
		ProvideAnalyticsMetrics,

		// Infrastructure clients
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideCache,
		ProvideClickHouseClient,

		// Repositories
		ProvidePriceStore,
		ProvidePredictionPublisher,

		// Use cases
		ProvideForecaster,
		ProvidePredictor,
		ProvideProductService,
		ProvideKafkaPricesHandler,
		ProvideRefresher,

		// Transport
		ProvideRateLimiter,
		ProvidePredictionHandler,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
