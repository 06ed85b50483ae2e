package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fruitstand/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newMiniredisStore(t *testing.T) (*RedisIdempotencyStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisIdempotencyStore(client, ""), mr
}

func TestRedisIdempotencyStore(t *testing.T) {
	store, mr := newMiniredisStore(t)
	ctx := context.Background()

	isNew, err := store.MarkProcessed(ctx, "evt_1", 24*time.Hour)
	require.NoError(t, err)
	assert.True(t, isNew)
	assert.True(t, mr.Exists("fruitstand:idempotency:evt_1"))
	assert.Equal(t, 24*time.Hour, mr.TTL("fruitstand:idempotency:evt_1"))

	isNew, err = store.MarkProcessed(ctx, "evt_1", 24*time.Hour)
	require.NoError(t, err)
	assert.False(t, isNew)

	processed, err := store.IsProcessed(ctx, "evt_1")
	require.NoError(t, err)
	assert.True(t, processed)

	require.NoError(t, store.Forget(ctx, "evt_1"))
	processed, err = store.IsProcessed(ctx, "evt_1")
	require.NoError(t, err)
	assert.False(t, processed)

	_, _ = store.MarkProcessed(ctx, "evt_2", time.Hour)
	mr.FastForward(2 * time.Hour)
	processed, err = store.IsProcessed(ctx, "evt_2")
	require.NoError(t, err)
	assert.False(t, processed)
}

func TestNewRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)

	t.Run("url", func(t *testing.T) {
		client, err := NewRedisClient(context.Background(), config.RedisConfig{URL: "redis://" + mr.Addr() + "/0"})
		require.NoError(t, err)
		_ = client.Close()
	})

	t.Run("host and port", func(t *testing.T) {
		client, err := NewRedisClient(context.Background(), config.RedisConfig{Host: mr.Host(), Port: mustPort(t, mr)})
		require.NoError(t, err)
		_ = client.Close()
	})

	t.Run("bad url", func(t *testing.T) {
		_, err := NewRedisClient(context.Background(), config.RedisConfig{URL: "http://nope"})
		assert.Error(t, err)
	})
}

func TestConnect_FallsBackOutsideProduction(t *testing.T) {
	mr := miniredis.RunT(t)
	port := mustPort(t, mr)
	mr.Close()

	cfg := &config.Config{
		App:   config.AppConfig{Env: "development"},
		Redis: config.RedisConfig{Host: "127.0.0.1", Port: port},
	}
	backend, err := Connect(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, backend.Available())
	assert.NoError(t, backend.Close())

	cfg.App.Env = "production"
	_, err = Connect(context.Background(), cfg, zap.NewNop())
	assert.Error(t, err)
}

func mustPort(t *testing.T, mr *miniredis.Miniredis) int {
	t.Helper()
	var port int
	_, err := fmt.Sscanf(mr.Port(), "%d", &port)
	require.NoError(t, err)
	return port
}
