package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Trend string    `json:"trend"`
	Slope float64   `json:"slope"`
	Days  []float64 `json:"days"`
}

func TestMemoryCacheRoundTripsStructs(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	in := payload{Trend: "increasing", Slope: 1.5, Days: []float64{1, 2}}
	require.NoError(t, mc.Set(ctx, "k", in, time.Minute))

	out, err := GetTyped[payload](ctx, mc, "k")
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = GetTyped[payload](ctx, mc, "missing")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryCacheExpiry(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mc.now = func() time.Time { return now }

	require.NoError(t, mc.Set(ctx, "k", 1, time.Second))
	now = now.Add(2 * time.Second)

	var v int
	assert.ErrorIs(t, mc.Get(ctx, "k", &v), ErrCacheMiss)
}

func TestMemoryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	mc := NewMemoryCache(WithMemoryMaxSize(2))
	defer mc.Close()
	ctx := context.Background()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mc.now = func() time.Time { now = now.Add(time.Millisecond); return now }

	require.NoError(t, mc.Set(ctx, "a", 1, time.Minute))
	require.NoError(t, mc.Set(ctx, "b", 2, time.Minute))

	var v int
	require.NoError(t, mc.Get(ctx, "a", &v)) // a is now fresher than b
	require.NoError(t, mc.Set(ctx, "c", 3, time.Minute))

	assert.Equal(t, 2, mc.Len())
	assert.ErrorIs(t, mc.Get(ctx, "b", &v), ErrCacheMiss)
	assert.NoError(t, mc.Get(ctx, "a", &v))
	assert.NoError(t, mc.Get(ctx, "c", &v))
}

func TestMemoryCacheDeleteByPattern(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	for _, k := range []string{"predict:product:p1:full", "predict:product:p1:trend", "predict:product:p2:full"} {
		require.NoError(t, mc.Set(ctx, k, true, time.Minute))
	}
	require.NoError(t, mc.DeleteByPattern(ctx, BuildPattern("predict:product:p1:")))

	assert.Equal(t, 1, mc.Len())
	var v bool
	assert.NoError(t, mc.Get(ctx, "predict:product:p2:full", &v))
}

func TestBuildPatternEscapesGlobCharacters(t *testing.T) {
	assert.Equal(t, `predict:product:\*:*`, BuildPattern("predict:product:*:"))
	assert.Equal(t, `a\[b\]\?\\:*`, BuildPattern(`a[b]?\:`))

	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	for _, k := range []string{"predict:product:*:full", "predict:product:p1:full", "predict:product:a[b:full", "predict:product:ab:full"} {
		require.NoError(t, mc.Set(ctx, k, true, time.Minute))
	}

	require.NoError(t, mc.DeleteByPattern(ctx, BuildPattern("predict:product:*:")))
	assert.Equal(t, 3, mc.Len(), "a literal * id only drops its own keys")

	require.NoError(t, mc.DeleteByPattern(ctx, BuildPattern("predict:product:a[b:")))
	assert.Equal(t, 2, mc.Len())
	var v bool
	assert.NoError(t, mc.Get(ctx, "predict:product:ab:full", &v))
	assert.NoError(t, mc.Get(ctx, "predict:product:p1:full", &v))
}

func TestMemoryCacheLock(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	ok, err := mc.TryLock(ctx, "refresh", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = mc.TryLock(ctx, "refresh", time.Minute)
	assert.False(t, ok)

	require.NoError(t, mc.Unlock(ctx, "refresh"))
	ok, _ = mc.TryLock(ctx, "refresh", time.Minute)
	assert.True(t, ok)
}

func TestHashValueIsStable(t *testing.T) {
	a, err := HashValue(map[string]int{"x": 1, "y": 2})
	require.NoError(t, err)
	b, err := HashValue(map[string]int{"y": 2, "x": 1})
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
	assert.Equal(t, "predict:full:abc", GenerateKey("predict", "full", "abc"))
}

// Runs only against a live Redis (REDIS_ADDR=localhost:6379).
func TestLayeredCacheAgainstRedis(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	rc, err := NewRedisCache(WithRedisAddr(addr), WithRedisPrefix("pricecast-test"))
	require.NoError(t, err)
	lc := NewLayeredCache(rc)
	defer lc.Close()
	ctx := context.Background()

	in := payload{Trend: "stable"}
	require.NoError(t, lc.Set(ctx, "layered", in, time.Minute))
	_ = lc.memCache.Delete(ctx, "layered")

	out, err := GetTyped[payload](ctx, lc, "layered")
	require.NoError(t, err)
	assert.Equal(t, in, out)
	require.NoError(t, lc.DeleteByPattern(ctx, "lay*"))
	assert.ErrorIs(t, lc.Get(ctx, "layered", &out), ErrCacheMiss)
}
