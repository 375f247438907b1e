package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/inexasli/automation-gateway/internal/pipeline"
	"github.com/inexasli/automation-gateway/internal/tenant"
)

// MemoryLimiter is an in-process fixed-window limiter for tests and local
// development. Unlike the Redis limiter it can never hit a provider error,
// so it is effectively permissive the way the original mock was.
type MemoryLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
}

type window struct {
	count   int
	resetAt time.Time
}

// NewMemoryLimiter creates an in-memory rate limiter
func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

// Check implements pipeline.RateLimiter
func (l *MemoryLimiter) Check(ctx context.Context, sessionID string, cfg *tenant.ClientConfig) (pipeline.RateLimitResult, error) {
	if cfg.RateLimitMax <= 0 {
		return pipeline.RateLimitResult{Allowed: true, Remaining: -1}, nil
	}

	key := fmt.Sprintf("%s%s:%s", cfg.RateLimitPrefix(), cfg.ClientID, sessionID)

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[key]
	if !ok || now.After(w.resetAt) {
		w = &window{resetAt: now.Add(cfg.RateLimitWindow())}
		l.windows[key] = w
	}
	w.count++

	remaining := cfg.RateLimitMax - w.count
	if remaining < 0 {
		remaining = 0
	}

	return pipeline.RateLimitResult{
		Allowed:   w.count <= cfg.RateLimitMax,
		Remaining: remaining,
	}, nil
}
