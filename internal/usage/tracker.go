package usage

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/inexasli/automation-gateway/internal/pipeline"
	"github.com/inexasli/automation-gateway/internal/store"
	"github.com/inexasli/automation-gateway/internal/tenant"
)

// RedisTracker records billable actions in per-tenant daily hashes
// (usage:<client>:<yyyy-mm-dd> -> action counts). Best-effort: the pipeline
// swallows failures.
type RedisTracker struct {
	store *store.RedisStore
}

// NewRedisTracker creates a Redis-backed usage tracker
func NewRedisTracker(s *store.RedisStore) *RedisTracker {
	return &RedisTracker{store: s}
}

func dayKey(clientID string, day time.Time) string {
	return fmt.Sprintf("usage:%s:%s", clientID, day.UTC().Format("2006-01-02"))
}

// Record implements pipeline.UsageTracker
func (t *RedisTracker) Record(ctx context.Context, sessionID string, cfg *tenant.ClientConfig, action string) (pipeline.UsageResult, error) {
	if action == "" {
		action = "chat"
	}
	key := dayKey(cfg.ClientID, time.Now())
	err := t.store.WithRetry(ctx, 2, func() error {
		return t.store.HIncr(ctx, key, action)
	})
	if err != nil {
		return pipeline.UsageResult{}, err
	}
	return pipeline.UsageResult{Tracked: true}, nil
}

// Totals returns the tenant's counters for a given day, for reporting
func (t *RedisTracker) Totals(ctx context.Context, clientID string, day time.Time) (map[string]int64, error) {
	raw, err := t.store.HGetAll(ctx, dayKey(clientID, day))
	if err != nil {
		return nil, err
	}
	totals := make(map[string]int64, len(raw))
	for action, v := range raw {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			continue
		}
		totals[action] = n
	}
	return totals, nil
}

// MemoryTracker is an in-process tracker for tests and local development
type MemoryTracker struct {
	mu     sync.Mutex
	counts map[string]map[string]int64
}

// NewMemoryTracker creates an in-memory usage tracker
func NewMemoryTracker() *MemoryTracker {
	return &MemoryTracker{counts: make(map[string]map[string]int64)}
}

// Record implements pipeline.UsageTracker
func (t *MemoryTracker) Record(ctx context.Context, sessionID string, cfg *tenant.ClientConfig, action string) (pipeline.UsageResult, error) {
	if action == "" {
		action = "chat"
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	key := dayKey(cfg.ClientID, time.Now())
	if t.counts[key] == nil {
		t.counts[key] = make(map[string]int64)
	}
	t.counts[key][action]++
	return pipeline.UsageResult{Tracked: true}, nil
}

// Totals returns the tenant's counters for a given day
func (t *MemoryTracker) Totals(ctx context.Context, clientID string, day time.Time) (map[string]int64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	totals := make(map[string]int64)
	for action, n := range t.counts[dayKey(clientID, day)] {
		totals[action] = n
	}
	return totals, nil
}
