package scheduler

import (
	"context"
	"fmt"
	"time"

	"PriceCast/pkg/cache"
	applogger "PriceCast/pkg/logger"

	"github.com/robfig/cron/v3"
)

const lockKey = "scheduler:refresh:lock"

// Refreshable re-runs predictions for every tracked product.
type Refreshable interface {
	RefreshAll(ctx context.Context) (int, error)
}

// Refresher runs Refreshable on a cron schedule. When a cache is set, a lock
// keeps concurrent replicas from refreshing at the same time.
type Refresher struct {
	cron    *cron.Cron
	target  Refreshable
	lock    cache.Service
	logger  *applogger.Logger
	timeout time.Duration
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewRefresher(target Refreshable, lock cache.Service, l *applogger.Logger, timeout time.Duration) *Refresher {
	if l == nil {
		l = applogger.Nop()
	}
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Refresher{
		cron:    cron.New(),
		target:  target,
		lock:    lock,
		logger:  l,
		timeout: timeout,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Register schedules the refresh job. expr accepts the standard five-field
// format and descriptors such as "@every 1h".
func (r *Refresher) Register(expr string) error {
	if _, err := r.cron.AddFunc(expr, func() { r.RunNow(r.ctx) }); err != nil {
		return fmt.Errorf("register refresh task: %w", err)
	}
	return nil
}

func (r *Refresher) Start() {
	r.cron.Start()
	r.logger.Info("scheduler started", applogger.Int("jobs", len(r.cron.Entries())))
}

// Stop cancels a running refresh and waits for it to return.
func (r *Refresher) Stop() {
	r.cancel()
	<-r.cron.Stop().Done()
	r.logger.Info("scheduler stopped")
}

// RunNow executes one refresh. It reports whether the refresh ran.
func (r *Refresher) RunNow(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if r.lock != nil {
		ok, err := r.lock.TryLock(ctx, lockKey, r.timeout)
		if err != nil {
			r.logger.Error("refresh lock failed", applogger.Error(err))
			return false
		}
		if !ok {
			r.logger.Info("refresh already running elsewhere, skipping")
			return false
		}
		defer func() {
			if err := r.lock.Unlock(context.Background(), lockKey); err != nil {
				r.logger.Warn("refresh unlock failed", applogger.Error(err))
			}
		}()
	}

	start := time.Now()
	n, err := r.target.RefreshAll(ctx)
	if err != nil {
		r.logger.Error("refresh failed",
			applogger.Int("refreshed", n),
			applogger.Duration("duration_ms", time.Since(start)),
			applogger.Error(err),
		)
		return true
	}
	r.logger.Info("refresh done",
		applogger.Int("refreshed", n),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return true
}
