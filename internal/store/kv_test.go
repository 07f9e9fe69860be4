package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *RedisKV) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, NewRedisKV(client)
}

func TestRedisKV_GetSet(t *testing.T) {
	mr, kv := setupTestRedis(t)
	ctx := context.Background()

	_, err := kv.Get(ctx, "revoked:abc")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, kv.Set(ctx, "revoked:abc", "1", time.Minute))
	v, err := kv.Get(ctx, "revoked:abc")
	require.NoError(t, err)
	assert.Equal(t, "1", v)

	ok, err := kv.Exists(ctx, "revoked:abc")
	require.NoError(t, err)
	assert.True(t, ok)

	mr.FastForward(2 * time.Minute)
	ok, err = kv.Exists(ctx, "revoked:abc")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisKV_IncrWindow(t *testing.T) {
	mr, kv := setupTestRedis(t)
	ctx := context.Background()

	n, err := kv.Incr(ctx, "ratelimit:1.2.3.4:0", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = kv.Incr(ctx, "ratelimit:1.2.3.4:0", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.True(t, mr.TTL("ratelimit:1.2.3.4:0") > 0)

	mr.FastForward(61 * time.Second)
	n, err = kv.Incr(ctx, "ratelimit:1.2.3.4:0", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestMemoryKV_Expiry(t *testing.T) {
	kv := NewMemoryKV()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	kv.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "k", "v", time.Second))
	ok, _ := kv.Exists(ctx, "k")
	assert.True(t, ok)

	now = now.Add(2 * time.Second)
	_, err := kv.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestMemoryKV_IncrWindow(t *testing.T) {
	kv := NewMemoryKV()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	kv.now = func() time.Time { return now }
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		n, err := kv.Incr(ctx, "c", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, i, n)
	}
	now = now.Add(time.Minute)
	n, err := kv.Incr(ctx, "c", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
