package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"PriceCast/internal/scheduler"
	"PriceCast/internal/service/ratelimit"
	"PriceCast/pkg/config"
	xhttp "PriceCast/pkg/http"
	pkgkafka "PriceCast/pkg/kafka"
	applogger "PriceCast/pkg/logger"
)

type closer struct {
	name string
	fn   func() error
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	logger     *applogger.Logger
	httpServer *xhttp.Server
	consumer   *pkgkafka.Consumer
	handlers   []pkgkafka.MessageHandler
	refresher  *scheduler.Refresher
	closers    []closer

	limiter    *ratelimit.Limiter
	pruneEvery time.Duration
	idleTTL    time.Duration
	stopPrune  context.CancelFunc
	pruneDone  chan struct{}
}

// Option attaches optional components.
type Option func(*App)

// WithConsumer runs consumer with the given handlers. A nil consumer is ignored.
func WithConsumer(c *pkgkafka.Consumer, handlers ...pkgkafka.MessageHandler) Option {
	return func(a *App) {
		if c != nil {
			a.consumer = c
			a.handlers = append(a.handlers, handlers...)
		}
	}
}

func WithRefresher(r *scheduler.Refresher) Option {
	return func(a *App) { a.refresher = r }
}

// WithLimiter drops rate limit buckets idle for longer than idleTTL, checking
// every interval. A nil limiter or non-positive durations disable pruning.
func WithLimiter(l *ratelimit.Limiter, every, idleTTL time.Duration) Option {
	return func(a *App) {
		if l != nil && every > 0 && idleTTL > 0 {
			a.limiter = l
			a.pruneEvery = every
			a.idleTTL = idleTTL
		}
	}
}

// WithCloser registers a resource closed on shutdown, in registration order.
func WithCloser(name string, fn func() error) Option {
	return func(a *App) {
		if fn != nil {
			a.closers = append(a.closers, closer{name, fn})
		}
	}
}

func New(cfg *config.Config, l *applogger.Logger, httpServer *xhttp.Server, opts ...Option) *App {
	if l == nil {
		l = applogger.Nop()
	}
	a := &App{cfg: cfg, logger: l, httpServer: httpServer}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Start(); err != nil {
		_ = a.Shutdown(context.Background())
		return err
	}

	<-ctx.Done()
	a.logger.Info("shutdown signal received")
	return a.Shutdown(context.Background())
}

// Start launches the consumer, scheduler and HTTP server without blocking.
func (a *App) Start() error {
	if a.consumer != nil {
		for _, h := range a.handlers {
			a.consumer.RegisterHandler(h)
		}
		if err := a.consumer.Start(); err != nil {
			return fmt.Errorf("kafka consumer: %w", err)
		}
	}

	if a.refresher != nil {
		a.refresher.Start()
	}
	if a.limiter != nil {
		a.startPruner()
	}

	if err := a.httpServer.Start(); err != nil {
		return fmt.Errorf("http server: %w", err)
	}
	a.logger.Info("pricecast started",
		applogger.String("env", a.cfg.Environment),
		applogger.Int("port", a.cfg.Server.Port),
		applogger.String("model", a.cfg.Forecast.Model),
		applogger.String("store", a.cfg.Store.Type),
	)
	return nil
}

func (a *App) startPruner() {
	ctx, cancel := context.WithCancel(context.Background())
	a.stopPrune = cancel
	a.pruneDone = make(chan struct{})

	go func() {
		defer close(a.pruneDone)
		ticker := time.NewTicker(a.pruneEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := a.limiter.Prune(a.idleTTL); n > 0 {
					a.logger.Debug("pruned idle rate limit buckets", applogger.Int("removed", n))
				}
			}
		}
	}()
}

// Shutdown stops intake first, then closes resources.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.logger.Error("http shutdown error", applogger.Error(err))
	}
	if a.refresher != nil {
		a.refresher.Stop()
	}
	if a.stopPrune != nil {
		a.stopPrune()
		<-a.pruneDone
		a.stopPrune = nil
	}
	if a.consumer != nil {
		if err := a.consumer.Stop(shutdownCtx); err != nil {
			a.logger.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	// flush buffered error digests while the producer is still open
	a.logger.RemoveCollector()

	for _, c := range a.closers {
		start := time.Now()
		if err := c.fn(); err != nil {
			a.logger.Warn("close error", applogger.String("resource", c.name), applogger.Error(err))
			continue
		}
		a.logger.Debug("closed", applogger.String("resource", c.name), applogger.Duration("duration_ms", time.Since(start)))
	}

	a.logger.Info("shutdown complete")
	return nil
}
