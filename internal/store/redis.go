package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/inexasli/automation-gateway/internal/config"
)

// RedisStore wraps go-redis with the counter operations the gateway needs.
// Rate-limit and usage counters are the only cross-request mutable state.
type RedisStore struct {
	rdb *redis.Client
	cfg config.RedisConfig
}

// NewRedisStore creates a new Redis store with connection validation
func NewRedisStore(cfg config.RedisConfig) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisStore{
		rdb: rdb,
		cfg: cfg,
	}, nil
}

// Ping checks if Redis is reachable
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// IncrWithWindow atomically increments key and sets its expiry when the key
// is created, returning the new counter value. This is the fixed-window
// primitive behind the rate limiter: increment and check must be one step so
// concurrent requests for the same session cannot both pass the limit.
func (s *RedisStore) IncrWithWindow(ctx context.Context, key string, window time.Duration) (int64, error) {
	var incr *redis.IntCmd
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, window)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("incr %s failed: %w", key, err)
	}
	return incr.Val(), nil
}

// HIncr increments a hash field, used for usage counters
func (s *RedisStore) HIncr(ctx context.Context, key, field string) error {
	return s.rdb.HIncrBy(ctx, key, field, 1).Err()
}

// HGetAll returns all fields of a hash
func (s *RedisStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	return s.rdb.HGetAll(ctx, key).Result()
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

// RawClient returns the underlying go-redis client for advanced operations
func (s *RedisStore) RawClient() *redis.Client {
	return s.rdb
}

// IsConnected checks if the store is connected to Redis
func (s *RedisStore) IsConnected(ctx context.Context) bool {
	return s.Ping(ctx) == nil
}

// WithRetry executes a function with retry logic
func (s *RedisStore) WithRetry(ctx context.Context, maxRetries int, fn func() error) error {
	var err error
	for i := 0; i < maxRetries; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i < maxRetries-1 {
			time.Sleep(time.Duration(i+1) * 100 * time.Millisecond)
		}
	}
	return fmt.Errorf("failed after %d retries: %w", maxRetries, err)
}
