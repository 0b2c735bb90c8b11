package server

import (
	"context"
	"errors"
	"testing"
	"time"

	"PriceCast/internal/service/ratelimit"
	"PriceCast/pkg/config"
	xhttp "PriceCast/pkg/http"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(opts ...Option) *App {
	cfg := config.Default()
	cfg.Server.ShutdownTimeout = time.Second
	srv := xhttp.NewServer(nil, xhttp.WithHost("127.0.0.1"), xhttp.WithPort(0), xhttp.WithMetrics("", nil))
	return New(cfg, nil, srv, opts...)
}

func TestAppPrunesIdleRateLimitBuckets(t *testing.T) {
	lim := ratelimit.New(1, 1)
	for _, ip := range []string{"198.51.100.1", "198.51.100.2", "198.51.100.3"} {
		lim.Allow(ip)
	}
	require.Equal(t, 3, lim.Len())

	app := newTestApp(WithLimiter(lim, 10*time.Millisecond, time.Nanosecond))
	require.NoError(t, app.Start())
	defer func() { _ = app.Shutdown(context.Background()) }()

	assert.Eventually(t, func() bool { return lim.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestAppShutdownStopsPruner(t *testing.T) {
	lim := ratelimit.New(1, 1)
	app := newTestApp(WithLimiter(lim, 10*time.Millisecond, time.Hour))
	require.NoError(t, app.Start())
	require.NoError(t, app.Shutdown(context.Background()))

	assert.Nil(t, app.stopPrune)
	select {
	case <-app.pruneDone:
	default:
		t.Fatal("pruner still running after shutdown")
	}
}

func TestWithLimiterIgnoresDisabledSettings(t *testing.T) {
	assert.Nil(t, newTestApp(WithLimiter(nil, time.Second, time.Second)).limiter)
	assert.Nil(t, newTestApp(WithLimiter(ratelimit.New(1, 1), 0, time.Second)).limiter)
}

func TestAppRunsClosersInOrder(t *testing.T) {
	var order []string
	app := newTestApp(
		WithCloser("first", func() error { order = append(order, "first"); return nil }),
		WithCloser("failing", func() error { order = append(order, "failing"); return errors.New("boom") }),
		WithCloser("last", func() error { order = append(order, "last"); return nil }),
	)
	require.NoError(t, app.Start())
	require.NoError(t, app.Shutdown(context.Background()))
	assert.Equal(t, []string{"first", "failing", "last"}, order)
}
