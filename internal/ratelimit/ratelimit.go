// Package ratelimit implements fixed-window request counting backed by Redis,
// or by an in-process cache when no Redis is configured.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"

	"github.com/sakif/skillshare/internal/metrics"
)

// Store counts hits per key. Incr returns the count within the current window,
// starting a new window when the key is absent.
type Store interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

// ============================================================
// Redis
// ============================================================

type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore connects to the Redis server at url (redis://...) and checks
// it is reachable.
func NewRedisStore(ctx context.Context, url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("ratelimit: parsing redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ratelimit: pinging redis: %w", err)
	}
	return &RedisStore{rdb: rdb}, nil
}

func NewRedisStoreFromClient(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	cnt, err := s.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("ratelimit: incr %s: %w", key, err)
	}
	if cnt == 1 {
		if err := s.rdb.Expire(ctx, key, window).Err(); err != nil {
			return 0, fmt.Errorf("ratelimit: expire %s: %w", key, err)
		}
	}
	return cnt, nil
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

// ============================================================
// In-process
// ============================================================

// MemoryStore keeps counters in this process only. Each replica limits
// independently.
type MemoryStore struct {
	c *cache.Cache
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{c: cache.New(cache.NoExpiration, time.Minute)}
}

func (s *MemoryStore) Incr(_ context.Context, key string, window time.Duration) (int64, error) {
	for range 3 {
		if err := s.c.Add(key, int64(1), window); err == nil {
			return 1, nil
		}
		n, err := s.c.IncrementInt64(key, 1)
		if err == nil {
			return n, nil
		}
		// expired between Add and IncrementInt64; start a new window
	}
	return 0, fmt.Errorf("ratelimit: counting %s: %w", key, errContended)
}

var errContended = errors.New("counter kept expiring")

// ============================================================
// Limiter
// ============================================================

// Limiter allows Limit hits per Window for each key. When the store fails the
// request is allowed.
type Limiter struct {
	store  Store
	limit  int64
	window time.Duration
	prefix string
	logger *slog.Logger
}

func NewLimiter(store Store, name string, limit int, window time.Duration, logger *slog.Logger) *Limiter {
	return &Limiter{
		store:  store,
		limit:  int64(limit),
		window: window,
		prefix: "rl:" + name + ":",
		logger: logger,
	}
}

func (l *Limiter) Window() time.Duration { return l.window }

// Allow records a hit for id and reports whether it is within the limit.
func (l *Limiter) Allow(ctx context.Context, id string) bool {
	if l == nil || l.limit <= 0 {
		return true
	}
	cnt, err := l.store.Incr(ctx, l.prefix+id, l.window)
	if err != nil {
		metrics.RateLimitErrors.Inc()
		l.logger.Warn("rate limit store unavailable, allowing request",
			slog.String("key", l.prefix+id),
			slog.String("error", err.Error()),
		)
		return true
	}
	return cnt <= l.limit
}
