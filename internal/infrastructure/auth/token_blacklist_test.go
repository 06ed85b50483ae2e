package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fruitstand/backend/internal/infrastructure/auth"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisBlacklist(t *testing.T) (*auth.RedisTokenBlacklist, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return auth.NewRedisTokenBlacklist(client), mr
}

func TestRedisTokenBlacklist_RevokeExpires(t *testing.T) {
	bl, mr := newRedisBlacklist(t)
	ctx := context.Background()

	require.NoError(t, bl.Revoke(ctx, "jti-1", 10*time.Minute))

	revoked, err := bl.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = bl.IsRevoked(ctx, "jti-2")
	require.NoError(t, err)
	assert.False(t, revoked)

	mr.FastForward(11 * time.Minute)
	revoked, err = bl.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRedisTokenBlacklist_ZeroTTLIsNoop(t *testing.T) {
	bl, mr := newRedisBlacklist(t)
	require.NoError(t, bl.Revoke(context.Background(), "already-expired", 0))
	assert.Empty(t, mr.Keys())
}

func TestRedisTokenBlacklist_RevokeUser(t *testing.T) {
	bl, _ := newRedisBlacklist(t)
	ctx := context.Background()
	before := time.Now().Add(-time.Hour)

	revoked, err := bl.IsUserRevoked(ctx, "user-1", before)
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, bl.RevokeUser(ctx, "user-1", 7*24*time.Hour))

	revoked, err = bl.IsUserRevoked(ctx, "user-1", before)
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = bl.IsUserRevoked(ctx, "user-1", time.Now().Add(2*time.Second))
	require.NoError(t, err)
	assert.False(t, revoked)

	revoked, err = bl.IsUserRevoked(ctx, "user-2", before)
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRedisTokenBlacklist_Unavailable(t *testing.T) {
	bl, mr := newRedisBlacklist(t)
	mr.Close()

	_, err := bl.IsRevoked(context.Background(), "jti")
	assert.Error(t, err)
}

func TestInMemoryTokenBlacklist(t *testing.T) {
	bl := auth.NewInMemoryTokenBlacklist()
	ctx := context.Background()

	require.NoError(t, bl.Revoke(ctx, "jti-1", time.Hour))
	revoked, err := bl.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	require.NoError(t, bl.Revoke(ctx, "jti-short", time.Millisecond))
	time.Sleep(5 * time.Millisecond)
	revoked, err = bl.IsRevoked(ctx, "jti-short")
	require.NoError(t, err)
	assert.False(t, revoked)

	issued := time.Now().Add(-time.Minute)
	require.NoError(t, bl.RevokeUser(ctx, "user-1", time.Hour))
	revoked, err = bl.IsUserRevoked(ctx, "user-1", issued)
	require.NoError(t, err)
	assert.True(t, revoked)
}
