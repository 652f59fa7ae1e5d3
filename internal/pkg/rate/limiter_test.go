package rate

import (
	"context"
	"testing"
	"time"

	"taskflow/internal/pkg/errorsx"
	"taskflow/internal/pkg/logger"

	miniredis "github.com/alicebob/miniredis/v2"
	redisv9 "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T, limit int, window time.Duration) *Limiter {
	t.Helper()
	storage := NewMemoryStorage()
	t.Cleanup(func() { storage.Close() })

	limiter, err := New(Config{Limit: limit, Window: window}, storage, logger.NewNop())
	require.NoError(t, err)
	return limiter
}

func TestLimiterAllowsUpToLimit(t *testing.T) {
	limiter := newTestLimiter(t, 3, time.Minute)
	ctx := context.Background()
	key := Key("client-a", "tasks.create")

	for i := 0; i < 3; i++ {
		result, err := limiter.Allow(ctx, key)
		require.NoError(t, err, "request %d should be allowed", i)
		assert.True(t, result.Allowed)
		assert.Equal(t, 3, result.Limit)
		assert.Equal(t, 2-i, result.Remaining)
	}

	result, err := limiter.Allow(ctx, key)
	require.Error(t, err)
	assert.False(t, result.Allowed)

	rle, ok := errorsx.IsRateLimited(err)
	require.True(t, ok, "rejection should carry a RateLimitError")
	assert.Equal(t, 3, rle.Limit)
	assert.False(t, rle.ResetAt.IsZero())
	assert.True(t, rle.ResetAt.After(time.Now()))
}

func TestLimiterFirstRequestOpensWindow(t *testing.T) {
	limiter := newTestLimiter(t, 5, time.Minute)
	ctx := context.Background()

	before := time.Now()
	result, err := limiter.Allow(ctx, Key("client-b", "tasks.list"))
	require.NoError(t, err)

	assert.True(t, result.Allowed)
	assert.Equal(t, 4, result.Remaining)
	// The reset time is one full window from the first request.
	assert.WithinDuration(t, before.Add(time.Minute), result.ResetAt, 2*time.Second)
}

func TestLimiterNewWindowAfterExpiry(t *testing.T) {
	limiter := newTestLimiter(t, 2, 50*time.Millisecond)
	ctx := context.Background()
	key := Key("client-c", "tasks.get")

	for i := 0; i < 2; i++ {
		_, err := limiter.Allow(ctx, key)
		require.NoError(t, err)
	}
	_, err := limiter.Allow(ctx, key)
	require.Error(t, err)

	time.Sleep(60 * time.Millisecond)

	result, err := limiter.Allow(ctx, key)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.Equal(t, 1, result.Remaining)
}

func TestLimiterIsolatesKeys(t *testing.T) {
	limiter := newTestLimiter(t, 1, time.Minute)
	ctx := context.Background()

	_, err := limiter.Allow(ctx, Key("client-a", "tasks.create"))
	require.NoError(t, err)

	// Same client, different operation.
	_, err = limiter.Allow(ctx, Key("client-a", "tasks.list"))
	require.NoError(t, err)

	// Different client, same operation.
	_, err = limiter.Allow(ctx, Key("client-b", "tasks.create"))
	require.NoError(t, err)

	// Same client and operation again is over quota.
	_, err = limiter.Allow(ctx, Key("client-a", "tasks.create"))
	require.Error(t, err)
}

func TestLimiterRedisStorage(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redisv9.NewClient(&redisv9.Options{Addr: mr.Addr()})
	defer client.Close()

	storage := NewRedisStorage(client, "rate_limit")
	limiter, err := New(Config{Limit: 2, Window: time.Minute}, storage, logger.NewNop())
	require.NoError(t, err)

	ctx := context.Background()
	key := Key("client-r", "tasks.create")

	for i := 0; i < 2; i++ {
		result, err := limiter.Allow(ctx, key)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
	}

	_, err = limiter.Allow(ctx, key)
	require.Error(t, err)
	_, ok := errorsx.IsRateLimited(err)
	assert.True(t, ok)

	// The counter key expires with the window.
	mr.FastForward(2 * time.Minute)

	result, err := limiter.Allow(ctx, key)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.Equal(t, 1, result.Remaining)
}

func TestLimiterReset(t *testing.T) {
	limiter := newTestLimiter(t, 1, time.Minute)
	ctx := context.Background()
	key := Key("client-d", "tasks.create")

	_, err := limiter.Allow(ctx, key)
	require.NoError(t, err)
	_, err = limiter.Allow(ctx, key)
	require.Error(t, err)

	require.NoError(t, limiter.Reset(ctx, key))

	result, err := limiter.Allow(ctx, key)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}
