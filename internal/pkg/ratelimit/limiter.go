// internal/pkg/ratelimit/limiter.go
package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	DefaultMaxLoginAttempts = 5
	DefaultLoginWindow      = 15 * time.Minute
)

// RateLimiter counts login attempts per ip+email in Redis. Redis errors fail
// open: the attempt is allowed and a warning is logged.
type RateLimiter struct {
	client      *redis.Client
	maxAttempts int64
	window      time.Duration
	logger      *zap.Logger
}

func NewRateLimiter(client *redis.Client, logger *zap.Logger) *RateLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RateLimiter{
		client:      client,
		maxAttempts: DefaultMaxLoginAttempts,
		window:      DefaultLoginWindow,
		logger:      logger,
	}
}

// WithLimits overrides the attempt budget and window. Non-positive values
// keep the defaults.
func (r *RateLimiter) WithLimits(maxAttempts int64, window time.Duration) *RateLimiter {
	if maxAttempts > 0 {
		r.maxAttempts = maxAttempts
	}
	if window > 0 {
		r.window = window
	}
	return r
}

// CheckLoginAttempt records an attempt and reports whether it is allowed.
func (r *RateLimiter) CheckLoginAttempt(ctx context.Context, ip, email string) bool {
	key := loginKey(ip, email)

	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		r.logger.Warn("login rate limiter unavailable, allowing attempt", zap.Error(err))
		return true
	}

	// Set expiration on first attempt
	if count == 1 {
		if err := r.client.Expire(ctx, key, r.window).Err(); err != nil {
			r.logger.Warn("failed to set login rate limit expiry", zap.Error(err))
		}
	}
	return count <= r.maxAttempts
}

// ResetLoginAttempts resets the login attempt counter
func (r *RateLimiter) ResetLoginAttempts(ctx context.Context, ip, email string) {
	if err := r.client.Del(ctx, loginKey(ip, email)).Err(); err != nil {
		r.logger.Warn("failed to reset login attempts", zap.Error(err))
	}
}

func loginKey(ip, email string) string {
	return fmt.Sprintf("ratelimit:login:%s:%s", ip, strings.ToLower(strings.TrimSpace(email)))
}
