package middleware

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisThrottle counts failed login attempts in Redis so every instance
// shares the same lockout. A key expires one window after its first failure.
type RedisThrottle struct {
	redis  *redis.Client
	config ThrottleConfig
	prefix string
}

// NewRedisThrottle creates a Redis-backed login throttle
func NewRedisThrottle(client *redis.Client, config ThrottleConfig, prefix string) *RedisThrottle {
	if prefix == "" {
		prefix = "login_throttle"
	}
	return &RedisThrottle{
		redis:  client,
		config: config.withDefaults(),
		prefix: prefix,
	}
}

func (t *RedisThrottle) key(key string) string {
	return fmt.Sprintf("%s:%s", t.prefix, key)
}

// TooManyAttempts reports whether key is locked out and for how long
func (t *RedisThrottle) TooManyAttempts(ctx context.Context, key string) (bool, time.Duration, error) {
	redisKey := t.key(key)

	count, err := t.redis.Get(ctx, redisKey).Int()
	if errors.Is(err, redis.Nil) {
		return false, 0, nil
	}
	if err != nil {
		return false, 0, fmt.Errorf("redis error: %w", err)
	}
	if count < t.config.MaxAttempts {
		return false, 0, nil
	}

	ttl, err := t.redis.TTL(ctx, redisKey).Result()
	if err != nil {
		return true, t.config.Window, fmt.Errorf("redis error: %w", err)
	}
	if ttl <= 0 {
		ttl = t.config.Window
	}
	return true, ttl, nil
}

// Hit records a failed attempt for key
func (t *RedisThrottle) Hit(ctx context.Context, key string) error {
	redisKey := t.key(key)

	count, err := t.redis.Incr(ctx, redisKey).Result()
	if err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	if count == 1 {
		if err := t.redis.Expire(ctx, redisKey, t.config.Window).Err(); err != nil {
			return fmt.Errorf("redis error: %w", err)
		}
	}
	return nil
}

// Clear forgets the attempts of key
func (t *RedisThrottle) Clear(ctx context.Context, key string) error {
	return t.redis.Del(ctx, t.key(key)).Err()
}

// HealthCheck verifies Redis connectivity
func (t *RedisThrottle) HealthCheck(ctx context.Context) error {
	return t.redis.Ping(ctx).Err()
}
