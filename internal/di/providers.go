package di

import (
	"context"
	"fmt"
	"time"

	"PriceCast/internal/domain/repository"
	"PriceCast/internal/domain/service"
	"PriceCast/internal/handler/api"
	internalrepo "PriceCast/internal/repository"
	"PriceCast/internal/scheduler"
	svcmetrics "PriceCast/internal/service/metrics"
	"PriceCast/internal/service/ratelimit"
	"PriceCast/internal/services/analytics"
	"PriceCast/internal/usecase"
	"PriceCast/pkg/cache"
	pkgch "PriceCast/pkg/clickhouse"
	"PriceCast/pkg/config"
	xhttp "PriceCast/pkg/http"
	pkgkafka "PriceCast/pkg/kafka"
	applogger "PriceCast/pkg/logger"
	"PriceCast/pkg/metrics"
	"PriceCast/pkg/server"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Output:  cfg.Log.Output,
		Service: usecase.ServiceName,
	})
}

// ProvideRegistry creates the registry served at the metrics path.
func ProvideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics(reg *prometheus.Registry) repository.Metrics {
	return metrics.NewWithRegisterer(reg)
}

func ProvideAnalyticsMetrics(reg *prometheus.Registry) *svcmetrics.AnalyticsMetrics {
	return svcmetrics.NewAnalyticsMetrics(reg)
}

// ProvideKafkaProducer creates a Kafka producer, or nil when Kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config, reg *prometheus.Registry) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
		pkgkafka.WithProducerRegisterer(reg),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvidePredictionPublisher publishes prediction events to Kafka when a
// producer is available.
func ProvidePredictionPublisher(cfg *config.Config, producer *pkgkafka.Producer) repository.PredictionPublisher {
	if producer == nil {
		return internalrepo.NoopPublisher{}
	}
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.PredictionsTopic)
}

// ProvideCache creates the prediction response cache: memory only, or
// memory in front of Redis. Returns nil when caching is disabled.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	if !cfg.Cache.Enabled {
		return nil, nil
	}
	if !cfg.Cache.Redis.Enabled {
		return cache.NewMemoryCache(
			cache.WithMemoryMaxSize(cfg.Cache.MemoryMaxLen),
			cache.WithMemoryDefaultTTL(cfg.Cache.TTL),
		), nil
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisAddr(cfg.Cache.Redis.Addr),
		cache.WithRedisPassword(cfg.Cache.Redis.Password),
		cache.WithRedisDB(cfg.Cache.Redis.DB),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return cache.NewLayeredCache(rc, cache.WithLayeredMemorySize(cfg.Cache.MemoryMaxLen)), nil
}

// ProvideClickHouseClient creates a ClickHouse client when the store type needs one.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if cfg.Store.Type != "clickhouse" {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvidePriceStore opens the configured store and runs its migrations.
func ProvidePriceStore(cfg *config.Config, ch *pkgch.Client, l *applogger.Logger) (repository.PriceStore, error) {
	var store repository.PriceStore
	switch cfg.Store.Type {
	case "clickhouse":
		store = internalrepo.NewClickHouseStore(ch, cfg.Store.Table, l)
	case "sqlite":
		s, err := internalrepo.NewSQLiteStore(cfg.Store.SQLitePath)
		if err != nil {
			return nil, err
		}
		store = s
	default:
		store = internalrepo.NewMemoryStore()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("%s store init: %w", cfg.Store.Type, err)
	}
	return store, nil
}

func ProvideForecaster(cfg *config.Config) (service.Forecaster, error) {
	return analytics.NewForecaster(cfg.Forecast.Model, cfg.Forecast.Seed)
}

func ProvidePredictor(
	cfg *config.Config,
	forecaster service.Forecaster,
	c cache.Service,
	pub repository.PredictionPublisher,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.Predictor {
	return usecase.NewPredictor(
		forecaster,
		analytics.NewTrendAnalyzer(),
		analytics.NewSeasonalityDetector(),
		analytics.NewRecommendationEngine(),
		c,
		pub,
		m,
		l,
		usecase.PredictorConfig{
			HorizonDays: cfg.Forecast.HorizonDays,
			PreviewDays: cfg.Forecast.PreviewDays,
			Timeout:     cfg.Server.RequestTimeout,
			CacheTTL:    cfg.Cache.TTL,
			Version:     Version,
		},
	)
}

func ProvideProductService(
	store repository.PriceStore,
	predictor *usecase.Predictor,
	c cache.Service,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.ProductService {
	return usecase.NewProductService(store, predictor, c, m, l)
}

// ProvideRateLimiter returns nil when rate limiting is disabled.
func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	if !cfg.RateLimit.Enabled {
		return nil
	}
	return ratelimit.New(float64(cfg.RateLimit.Capacity), cfg.RateLimit.RefillPerSec)
}

func ProvidePredictionHandler(
	l *applogger.Logger,
	predictor *usecase.Predictor,
	products *usecase.ProductService,
	limiter *ratelimit.Limiter,
	m *svcmetrics.AnalyticsMetrics,
) *api.PredictionHandler {
	return api.NewPredictionHandler(l, predictor, products, limiter, m)
}

// ProvideKafkaConsumer creates a Kafka consumer configured from YAML, or nil
// when Kafka is disabled.
func ProvideKafkaConsumer(cfg *config.Config, reg *prometheus.Registry, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
		pkgkafka.WithConsumerRegisterer(reg),
		pkgkafka.WithConsumerLogger(l),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideKafkaPricesHandler handles the price observation topic.
func ProvideKafkaPricesHandler(cfg *config.Config, products *usecase.ProductService, m repository.Metrics) *usecase.KafkaPricesHandler {
	return usecase.NewKafkaPricesHandler(cfg.Kafka.PricesTopic, products, m)
}

// ProvideRefresher returns nil when the scheduler is disabled.
func ProvideRefresher(cfg *config.Config, products *usecase.ProductService, c cache.Service, l *applogger.Logger) (*scheduler.Refresher, error) {
	if !cfg.Scheduler.Enabled {
		return nil, nil
	}
	r := scheduler.NewRefresher(products, c, l, 0)
	if err := r.Register(cfg.Scheduler.RefreshCron); err != nil {
		return nil, err
	}
	return r, nil
}

func ProvideHTTPServer(cfg *config.Config, h *api.PredictionHandler, reg *prometheus.Registry, l *applogger.Logger) *xhttp.Server {
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	return xhttp.NewServer([]xhttp.Handler{h},
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithLogger(l),
		xhttp.WithMetrics(metricsPath, reg),
		xhttp.WithTrustedProxies(cfg.Server.TrustedProxies),
	)
}

// ProvideApp creates the application server and attaches the error digest
// collector when Kafka is available.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	srv *xhttp.Server,
	producer *pkgkafka.Producer,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaPricesHandler,
	refresher *scheduler.Refresher,
	limiter *ratelimit.Limiter,
	pub repository.PredictionPublisher,
	store repository.PriceStore,
	c cache.Service,
	ch *pkgch.Client,
) *server.App {
	opts := []server.Option{
		server.WithConsumer(consumer, kh),
		server.WithLimiter(limiter, cfg.RateLimit.PruneEvery, cfg.RateLimit.IdleTTL),
		server.WithCloser("publisher", pub.Close),
		server.WithCloser("store", store.Close),
	}
	if refresher != nil {
		opts = append(opts, server.WithRefresher(refresher))
	}
	if producer != nil && cfg.Kafka.LogsTopic != "" {
		l.AddCollector(&applogger.CollectionConfig{
			Topic:     cfg.Kafka.LogsTopic,
			Publisher: producer,
		})
	}
	if c != nil {
		opts = append(opts, server.WithCloser("cache", c.Close))
	}
	if ch != nil {
		opts = append(opts, server.WithCloser("clickhouse", ch.Close))
	}
	return server.New(cfg, l, srv, opts...)
}
