package access

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/NeoEdge09/remastered-starter-kit/pkg/storage"
)

// Cache drivers
const (
	DriverMemory = "memory"
	DriverRedis  = "redis"
)

// SnapshotCache stores the route policy snapshot under CacheKey
type SnapshotCache interface {
	// Get returns the cached snapshot; ok is false on a miss
	Get(ctx context.Context) (snap Snapshot, ok bool, err error)
	Set(ctx context.Context, snap Snapshot) error
	Forget(ctx context.Context) error
	Driver() string
}

// MemoryCache keeps the snapshot in process
type MemoryCache struct {
	lru *lru.LRU[string, Snapshot]
}

// NewMemoryCache creates an in-process cache whose entry expires after ttl
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryCache{lru: lru.NewLRU[string, Snapshot](1, nil, ttl)}
}

func (c *MemoryCache) Get(_ context.Context) (Snapshot, bool, error) {
	snap, ok := c.lru.Get(CacheKey)
	return snap, ok, nil
}

func (c *MemoryCache) Set(_ context.Context, snap Snapshot) error {
	c.lru.Add(CacheKey, snap)
	return nil
}

func (c *MemoryCache) Forget(_ context.Context) error {
	c.lru.Remove(CacheKey)
	return nil
}

func (c *MemoryCache) Driver() string { return DriverMemory }

// RedisCache shares the snapshot between processes through Redis
type RedisCache struct {
	client *storage.RedisClient
	ttl    time.Duration
}

// NewRedisCache creates a Redis backed cache
func NewRedisCache(client *storage.RedisClient, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context) (Snapshot, bool, error) {
	var snap Snapshot
	found, err := c.client.GetJSON(ctx, CacheKey, &snap)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read route policy cache: %w", err)
	}
	if !found {
		return nil, false, nil
	}
	if snap == nil {
		snap = Snapshot{}
	}
	return snap, true, nil
}

func (c *RedisCache) Set(ctx context.Context, snap Snapshot) error {
	if err := c.client.SetJSON(ctx, CacheKey, snap, c.ttl); err != nil {
		return fmt.Errorf("failed to write route policy cache: %w", err)
	}
	return nil
}

func (c *RedisCache) Forget(ctx context.Context) error {
	if err := c.client.Delete(ctx, CacheKey); err != nil {
		return fmt.Errorf("failed to clear route policy cache: %w", err)
	}
	return nil
}

func (c *RedisCache) Driver() string { return DriverRedis }
