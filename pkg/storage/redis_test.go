package storage

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupRedisClientTest creates a miniredis instance and a connected client
func setupRedisClientTest(t *testing.T) (*RedisClient, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client, err := NewRedisClient(Config{RedisURL: "redis://" + mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return client, mr
}

type cached struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestRedisClient_JSONRoundTrip(t *testing.T) {
	client, mr := setupRedisClientTest(t)
	ctx := context.Background()

	require.NoError(t, client.SetJSON(ctx, "k", cached{Name: "a", Count: 2}, time.Minute))
	assert.Equal(t, time.Minute, mr.TTL("k"))

	var got cached
	found, err := client.GetJSON(ctx, "k", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, cached{Name: "a", Count: 2}, got)

	require.NoError(t, client.Delete(ctx, "k"))
	found, err = client.GetJSON(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisClient_CorruptValueIsMiss(t *testing.T) {
	client, mr := setupRedisClientTest(t)
	require.NoError(t, mr.Set("k", "{not json"))

	var got cached
	found, err := client.GetJSON(context.Background(), "k", &got)
	require.NoError(t, err)
	assert.False(t, found)
	assert.False(t, mr.Exists("k"))
}

func TestRedisClient_InvalidatePatterns(t *testing.T) {
	client, mr := setupRedisClientTest(t)
	mr.Set("route_access:a", "1")
	mr.Set("route_access:b", "1")
	mr.Set("other", "1")

	require.NoError(t, client.InvalidatePatterns(context.Background(), "route_access:*"))

	assert.False(t, mr.Exists("route_access:a"))
	assert.False(t, mr.Exists("route_access:b"))
	assert.True(t, mr.Exists("other"))
}

func TestNewRedisClient_Errors(t *testing.T) {
	_, err := NewRedisClient(Config{RedisURL: "invalid://url"})
	assert.Error(t, err)

	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()
	_, err = NewRedisClient(Config{RedisURL: "redis://" + addr})
	assert.Error(t, err)
}
