package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestLoginAttemptsAreLimited(t *testing.T) {
	_, rdb := newTestRedis(t)
	limiter := NewRateLimiter(rdb, zap.NewNop())
	ctx := context.Background()

	for i := 0; i < DefaultMaxLoginAttempts; i++ {
		assert.True(t, limiter.CheckLoginAttempt(ctx, "10.0.0.1", "v@x.com"), "attempt %d", i+1)
	}
	assert.False(t, limiter.CheckLoginAttempt(ctx, "10.0.0.1", "V@X.com"))

	// Another address has its own budget.
	assert.True(t, limiter.CheckLoginAttempt(ctx, "10.0.0.2", "v@x.com"))
}

func TestWindowExpires(t *testing.T) {
	mr, rdb := newTestRedis(t)
	limiter := NewRateLimiter(rdb, nil).WithLimits(1, time.Minute)
	ctx := context.Background()

	require.True(t, limiter.CheckLoginAttempt(ctx, "ip", "a@b.c"))
	require.False(t, limiter.CheckLoginAttempt(ctx, "ip", "a@b.c"))

	mr.FastForward(2 * time.Minute)

	assert.True(t, limiter.CheckLoginAttempt(ctx, "ip", "a@b.c"))
}

func TestWithLimitsKeepsDefaultsForZero(t *testing.T) {
	mr, rdb := newTestRedis(t)
	limiter := NewRateLimiter(rdb, nil).WithLimits(0, 0)
	ctx := context.Background()

	for i := 0; i < DefaultMaxLoginAttempts; i++ {
		require.True(t, limiter.CheckLoginAttempt(ctx, "ip", "a@b.c"))
	}
	assert.False(t, limiter.CheckLoginAttempt(ctx, "ip", "a@b.c"))
	assert.Equal(t, DefaultLoginWindow, mr.TTL(loginKey("ip", "a@b.c")))
}

func TestResetLoginAttempts(t *testing.T) {
	_, rdb := newTestRedis(t)
	limiter := NewRateLimiter(rdb, nil).WithLimits(2, time.Minute)
	ctx := context.Background()

	limiter.CheckLoginAttempt(ctx, "ip", "a@b.c")
	limiter.CheckLoginAttempt(ctx, "ip", "a@b.c")
	require.False(t, limiter.CheckLoginAttempt(ctx, "ip", "a@b.c"))

	limiter.ResetLoginAttempts(ctx, "ip", "a@b.c")

	assert.True(t, limiter.CheckLoginAttempt(ctx, "ip", "a@b.c"))
}

func TestFailsOpenWhenRedisIsDown(t *testing.T) {
	mr, rdb := newTestRedis(t)
	limiter := NewRateLimiter(rdb, zap.NewNop())
	mr.Close()

	assert.True(t, limiter.CheckLoginAttempt(context.Background(), "ip", "a@b.c"))
}
