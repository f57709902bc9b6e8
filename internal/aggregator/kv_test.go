package aggregator

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisKVStore_SetGet(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	kv := NewRedisKVStore(client)
	ctx := context.Background()

	_, err := kv.Get(ctx, "dilutio:calc:missing")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, kv.Set(ctx, "dilutio:calc:k", `{"is_valid":true}`, time.Minute))
	val, err := kv.Get(ctx, "dilutio:calc:k")
	require.NoError(t, err)
	assert.Equal(t, `{"is_valid":true}`, val)

	// TTL 到期后视为未命中
	mr.FastForward(2 * time.Minute)
	_, err = kv.Get(ctx, "dilutio:calc:k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisKVStore_ConnectionError(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	kv := NewRedisKVStore(client)

	mr.Close()
	_, err := kv.Get(context.Background(), "k")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryKVStore_TTL(t *testing.T) {
	kv := NewMemoryKVStore()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	kv.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "a", "1", time.Minute))
	require.NoError(t, kv.Set(ctx, "b", "2", 0))

	val, err := kv.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "1", val)

	now = now.Add(61 * time.Second)
	_, err = kv.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrCacheMiss)

	// 无 TTL 的条目不过期
	val, err = kv.Get(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, "2", val)
	assert.Equal(t, 1, kv.Len())
}

func TestMemoryKVStore_SetSweepsExpiredEntries(t *testing.T) {
	kv := NewMemoryKVStore()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	kv.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 10000; i++ {
		require.NoError(t, kv.Set(ctx, fmt.Sprintf("dilutio:calc:base:%d", i), "{}", time.Second))
	}
	require.NoError(t, kv.Set(ctx, "dilutio:calc:pinned", "{}", 0))
	assert.Equal(t, 10001, kv.Len())

	// 清理间隔内不做全表扫描
	now = now.Add(2 * time.Second)
	require.NoError(t, kv.Set(ctx, "dilutio:calc:early", "{}", time.Minute))
	assert.Equal(t, 10002, kv.Len())

	now = now.Add(time.Hour)
	require.NoError(t, kv.Set(ctx, "dilutio:calc:fresh", "{}", time.Second))

	// 仅剩无 TTL 条目与新写入条目
	assert.Equal(t, 2, kv.Len())
	val, err := kv.Get(ctx, "dilutio:calc:pinned")
	require.NoError(t, err)
	assert.Equal(t, "{}", val)
}
