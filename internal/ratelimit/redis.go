package ratelimit

import (
	"context"
	"fmt"

	"github.com/inexasli/automation-gateway/internal/pipeline"
	"github.com/inexasli/automation-gateway/internal/store"
	"github.com/inexasli/automation-gateway/internal/tenant"
)

// RedisLimiter is a fixed-window rate limiter over shared Redis counters.
// Increment and check happen in one atomic step so concurrent requests for
// the same session cannot both pass the limit. On Redis errors the limiter
// returns the error and the pipeline denies the request.
type RedisLimiter struct {
	store *store.RedisStore
}

// NewRedisLimiter creates a Redis-backed rate limiter
func NewRedisLimiter(s *store.RedisStore) *RedisLimiter {
	return &RedisLimiter{store: s}
}

// Check increments the session's window counter and reports whether the
// request is allowed and how many requests remain in the window.
func (l *RedisLimiter) Check(ctx context.Context, sessionID string, cfg *tenant.ClientConfig) (pipeline.RateLimitResult, error) {
	if cfg.RateLimitMax <= 0 {
		// Tenant has no limit configured
		return pipeline.RateLimitResult{Allowed: true, Remaining: -1}, nil
	}

	key := fmt.Sprintf("%s%s:%s", cfg.RateLimitPrefix(), cfg.ClientID, sessionID)
	count, err := l.store.IncrWithWindow(ctx, key, cfg.RateLimitWindow())
	if err != nil {
		return pipeline.RateLimitResult{}, err
	}

	remaining := cfg.RateLimitMax - int(count)
	if remaining < 0 {
		remaining = 0
	}

	return pipeline.RateLimitResult{
		Allowed:   count <= int64(cfg.RateLimitMax),
		Remaining: remaining,
	}, nil
}
