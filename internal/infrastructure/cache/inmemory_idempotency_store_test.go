package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestInMemoryIdempotencyStore_MarkProcessed(t *testing.T) {
	store := NewInMemoryIdempotencyStore(time.Minute)
	defer store.Close()
	ctx := context.Background()

	isNew, err := store.MarkProcessed(ctx, "evt_1", time.Hour)
	require.NoError(t, err)
	assert.True(t, isNew)

	isNew, err = store.MarkProcessed(ctx, "evt_1", time.Hour)
	require.NoError(t, err)
	assert.False(t, isNew, "second delivery must be rejected")

	processed, err := store.IsProcessed(ctx, "evt_1")
	require.NoError(t, err)
	assert.True(t, processed)

	processed, err = store.IsProcessed(ctx, "evt_2")
	require.NoError(t, err)
	assert.False(t, processed)
}

func TestInMemoryIdempotencyStore_ExpiryAndForget(t *testing.T) {
	store := NewInMemoryIdempotencyStore(time.Minute)
	defer store.Close()
	ctx := context.Background()

	_, err := store.MarkProcessed(ctx, "short", 5*time.Millisecond)
	require.NoError(t, err)
	time.Sleep(15 * time.Millisecond)
	isNew, err := store.MarkProcessed(ctx, "short", time.Hour)
	require.NoError(t, err)
	assert.True(t, isNew, "expired ids can be claimed again")

	require.NoError(t, store.Forget(ctx, "short"))
	isNew, err = store.MarkProcessed(ctx, "short", time.Hour)
	require.NoError(t, err)
	assert.True(t, isNew, "forgotten ids can be claimed again")
}

func TestInMemoryIdempotencyStore_ConcurrentClaims(t *testing.T) {
	store := NewInMemoryIdempotencyStore(time.Minute)
	defer store.Close()

	var winners atomic.Int32
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := store.MarkProcessed(context.Background(), "evt_race", time.Hour); ok {
				winners.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), winners.Load())
}

func TestInMemoryIdempotencyStore_Evict(t *testing.T) {
	store := NewInMemoryIdempotencyStore(time.Hour)
	defer store.Close()
	ctx := context.Background()

	_, _ = store.MarkProcessed(ctx, "old", time.Millisecond)
	_, _ = store.MarkProcessed(ctx, "fresh", time.Hour)
	require.Equal(t, 2, store.Len())

	store.evict(time.Now().Add(time.Second))
	assert.Equal(t, 1, store.Len())
}

func TestInMemoryIdempotencyStore_CloseStopsJanitor(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	store := NewInMemoryIdempotencyStore(time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, store.Close())
	require.NoError(t, store.Close())
}
