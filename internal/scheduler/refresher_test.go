package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"PriceCast/pkg/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTarget struct {
	calls atomic.Int32
	err   error
}

func (f *fakeTarget) RefreshAll(context.Context) (int, error) {
	f.calls.Add(1)
	return 3, f.err
}

func TestRefresher_RunNow(t *testing.T) {
	target := &fakeTarget{}
	r := NewRefresher(target, nil, nil, time.Second)
	assert.True(t, r.RunNow(context.Background()))
	assert.EqualValues(t, 1, target.calls.Load())

	target.err = errors.New("store down")
	assert.True(t, r.RunNow(context.Background()))
	assert.EqualValues(t, 2, target.calls.Load())
}

func TestRefresher_SkipsWhenLocked(t *testing.T) {
	mc := cache.NewMemoryCache()
	defer mc.Close()

	target := &fakeTarget{}
	r := NewRefresher(target, mc, nil, time.Minute)

	ok, err := mc.TryLock(context.Background(), lockKey, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	assert.False(t, r.RunNow(context.Background()))
	assert.Zero(t, target.calls.Load())

	require.NoError(t, mc.Unlock(context.Background(), lockKey))
	assert.True(t, r.RunNow(context.Background()))
	assert.EqualValues(t, 1, target.calls.Load())

	// lock released after the run
	ok, err = mc.TryLock(context.Background(), lockKey, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRefresher_Register(t *testing.T) {
	r := NewRefresher(&fakeTarget{}, nil, nil, time.Second)
	assert.NoError(t, r.Register("@every 1h"))
	assert.NoError(t, r.Register("*/5 * * * *"))
	assert.Error(t, r.Register("every hour"))

	r.Start()
	r.Stop()
}
