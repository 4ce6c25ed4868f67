package middleware

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NeoEdge09/remastered-starter-kit/pkg/auth"
)

var (
	_ auth.LoginThrottle = (*MemoryThrottle)(nil)
	_ auth.LoginThrottle = (*RedisThrottle)(nil)
)

func TestMemoryThrottle(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	throttle := NewMemoryThrottle(ThrottleConfig{MaxAttempts: 3, Window: time.Minute})
	throttle.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		limited, _, err := throttle.TooManyAttempts(ctx, "ada@example.com|10.0.0.1")
		require.NoError(t, err)
		assert.False(t, limited, "attempt %d", i)
		require.NoError(t, throttle.Hit(ctx, "ada@example.com|10.0.0.1"))
	}

	now = now.Add(20 * time.Second)
	limited, retryAfter, err := throttle.TooManyAttempts(ctx, "ada@example.com|10.0.0.1")
	require.NoError(t, err)
	assert.True(t, limited)
	assert.Equal(t, 40*time.Second, retryAfter)

	limited, _, _ = throttle.TooManyAttempts(ctx, "ada@example.com|10.0.0.2")
	assert.False(t, limited, "other keys are independent")

	now = now.Add(41 * time.Second)
	limited, _, _ = throttle.TooManyAttempts(ctx, "ada@example.com|10.0.0.1")
	assert.False(t, limited, "window expired")

	require.NoError(t, throttle.Hit(ctx, "bob|ip"))
	require.NoError(t, throttle.Clear(ctx, "bob|ip"))
	throttle.Cleanup()
	assert.Equal(t, 0, throttle.size())
}

func TestMemoryThrottle_Defaults(t *testing.T) {
	throttle := NewMemoryThrottle(ThrottleConfig{})
	assert.Equal(t, DefaultThrottleConfig(), throttle.config)
}

func TestRedisThrottle(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	throttle := NewRedisThrottle(client, ThrottleConfig{MaxAttempts: 2, Window: time.Minute}, "")
	key := auth.ThrottleKey(" Ada@Example.com ", "10.0.0.1")

	limited, _, err := throttle.TooManyAttempts(ctx, key)
	require.NoError(t, err)
	assert.False(t, limited)

	require.NoError(t, throttle.Hit(ctx, key))
	mr.FastForward(30 * time.Second)
	require.NoError(t, throttle.Hit(ctx, key))

	limited, retryAfter, err := throttle.TooManyAttempts(ctx, key)
	require.NoError(t, err)
	assert.True(t, limited)
	assert.Equal(t, 30*time.Second, retryAfter, "window starts at the first failure")
	assert.True(t, mr.Exists("login_throttle:ada@example.com|10.0.0.1"))

	mr.FastForward(31 * time.Second)
	limited, _, err = throttle.TooManyAttempts(ctx, key)
	require.NoError(t, err)
	assert.False(t, limited)

	require.NoError(t, throttle.Hit(ctx, key))
	require.NoError(t, throttle.Hit(ctx, key))
	require.NoError(t, throttle.Clear(ctx, key))
	limited, _, _ = throttle.TooManyAttempts(ctx, key)
	assert.False(t, limited)

	require.NoError(t, throttle.HealthCheck(ctx))
}

func TestRedisThrottle_Unavailable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { client.Close() })
	mr.Close()

	throttle := NewRedisThrottle(client, DefaultThrottleConfig(), "test")
	limited, _, err := throttle.TooManyAttempts(context.Background(), "k")
	assert.Error(t, err)
	assert.False(t, limited)
	assert.Error(t, throttle.Hit(context.Background(), "k"))
}
