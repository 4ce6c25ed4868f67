package access

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NeoEdge09/remastered-starter-kit/pkg/observability"
	"github.com/NeoEdge09/remastered-starter-kit/pkg/routes"
	"github.com/NeoEdge09/remastered-starter-kit/pkg/storage"
	"github.com/NeoEdge09/remastered-starter-kit/pkg/storage/storagetest"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *storage.RedisClient) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := storage.NewRedisClientFrom(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache(50 * time.Millisecond)
	assert.Equal(t, DriverMemory, cache.Driver())

	_, ok, err := cache.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	snap := Snapshot{"reports.index": {PermissionName: "report.view", IsActive: true}}
	require.NoError(t, cache.Set(ctx, snap))
	got, ok, err := cache.Get(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, snap, got)

	require.NoError(t, cache.Forget(ctx))
	_, ok, _ = cache.Get(ctx)
	assert.False(t, ok)

	require.NoError(t, cache.Set(ctx, snap))
	assert.Eventually(t, func() bool {
		_, ok, _ := cache.Get(ctx)
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestRedisCache(t *testing.T) {
	ctx := context.Background()
	mr, client := newRedis(t)
	cache := NewRedisCache(client, time.Minute)
	assert.Equal(t, DriverRedis, cache.Driver())

	_, ok, err := cache.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	snap := Snapshot{"reports.index": {IsActive: true, IsPublic: true}}
	require.NoError(t, cache.Set(ctx, snap))
	assert.True(t, mr.Exists(CacheKey))
	assert.Equal(t, time.Minute, mr.TTL(CacheKey))

	got, ok, err := cache.Get(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, snap, got)

	require.NoError(t, cache.Set(ctx, Snapshot{}))
	got, ok, err = cache.Get(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, got)

	mr.FastForward(2 * time.Minute)
	_, ok, err = cache.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Set(ctx, snap))
	require.NoError(t, cache.Forget(ctx))
	assert.False(t, mr.Exists(CacheKey))
}

func TestRedisCache_FailureIsInfrastructure(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := storage.NewRedisClientFrom(redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1}))
	defer client.Close()
	db := storagetest.NewSQLite(t)
	registry := NewRegistry(NewStore(db), routes.NewCatalog(testRouter()), RegistryOptions{
		Cache: NewRedisCache(client, time.Minute),
	})
	mr.Close()

	_, _, err = registry.Get(context.Background(), "reports.index")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "route access cache unavailable")
}

func TestBroadcaster_RemoteInvalidation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_, client := newRedis(t)
	db := storagetest.NewSQLite(t)

	newInstance := func() (*Registry, *MemoryCache, *observability.Metrics) {
		cache := NewMemoryCache(time.Minute)
		metrics := observability.NewMetrics(prometheus.NewRegistry())
		r := NewRegistry(NewStore(db), routes.NewCatalog(testRouter()), RegistryOptions{
			Cache:       cache,
			Broadcaster: NewBroadcaster(client, storagetest.QuietLogger()),
			Metrics:     metrics,
		})
		return r, cache, metrics
	}
	a, _, aMetrics := newInstance()
	b, bCache, bMetrics := newInstance()
	assert.NotEqual(t, a.broadcaster.InstanceID(), b.broadcaster.InstanceID())

	go a.Listen(ctx)
	go b.Listen(ctx)

	_, err := b.Snapshot(ctx)
	require.NoError(t, err)
	_, ok, _ := bCache.Get(ctx)
	require.True(t, ok)

	// publish until b's subscription is live and the message lands
	require.Eventually(t, func() bool {
		if err := a.Invalidate(ctx); err != nil {
			return false
		}
		_, ok, _ := bCache.Get(ctx)
		return !ok && testutil.ToFloat64(bMetrics.InvalidationsTotal.WithLabelValues("remote")) > 0
	}, 2*time.Second, 20*time.Millisecond)

	assert.Zero(t, testutil.ToFloat64(aMetrics.InvalidationsTotal.WithLabelValues("remote")))
	assert.Positive(t, testutil.ToFloat64(aMetrics.InvalidationsTotal.WithLabelValues("local")))
}

func TestRegistry_ListenWithoutBroadcaster(t *testing.T) {
	db := storagetest.NewSQLite(t)
	registry := NewRegistry(NewStore(db), routes.NewCatalog(testRouter()), RegistryOptions{})
	assert.NoError(t, registry.Listen(context.Background()))
}
