// Package ratelimit throttles requests per client with fixed-window counters.
package ratelimit

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/go-redis/redis"
)

const (
	DefaultLimit  = 10
	DefaultWindow = time.Minute
)

// Limiter reports whether one more request for key fits in the current window.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

type Config struct {
	Limit     int
	Window    time.Duration
	RedisAddr string
}

// ConfigFromEnv reads LOGIN_RATE_LIMIT, LOGIN_RATE_WINDOW and REDIS_ADDR.
// A limit of 0 disables throttling.
func ConfigFromEnv() Config {
	cfg := Config{Limit: DefaultLimit, Window: DefaultWindow, RedisAddr: os.Getenv("REDIS_ADDR")}
	if v := os.Getenv("LOGIN_RATE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.Limit = n
		}
	}
	if v := os.Getenv("LOGIN_RATE_WINDOW"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Window = d
		}
	}
	return cfg
}

type bucket struct {
	window time.Time
	count  int
}

// MemoryLimiter keeps counters in process. Suitable for a single instance.
type MemoryLimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu   sync.Mutex
	data map[string]bucket
}

func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{limit: limit, window: window, now: time.Now, data: make(map[string]bucket)}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	win := l.now().Truncate(l.window)
	b, ok := l.data[key]
	if !ok || b.window.Before(win) {
		l.data[key] = bucket{window: win, count: 1}
		l.sweep(win)
		return true, nil
	}
	if b.count >= l.limit {
		return false, nil
	}
	b.count++
	l.data[key] = b
	return true, nil
}

// sweep drops buckets from earlier windows. Caller holds mu.
func (l *MemoryLimiter) sweep(current time.Time) {
	for k, b := range l.data {
		if b.window.Before(current) {
			delete(l.data, k)
		}
	}
}

// RedisLimiter shares counters across instances through Redis.
type RedisLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	prefix string
	now    func() time.Time
}

func NewRedisLimiter(client *redis.Client, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, limit: limit, window: window, prefix: "ratelimit:", now: time.Now}
}

func (l *RedisLimiter) bucketKey(key string) string {
	return fmt.Sprintf("%s%s:%d", l.prefix, key, l.now().Truncate(l.window).Unix())
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	k := l.bucketKey(key)
	pipe := l.client.WithContext(ctx).TxPipeline()
	incr := pipe.Incr(k)
	pipe.Expire(k, l.window)
	if _, err := pipe.Exec(); err != nil {
		return false, fmt.Errorf("rate limit %s: %w", key, err)
	}
	return incr.Val() <= int64(l.limit), nil
}

// New returns a Redis-backed limiter when cfg.RedisAddr is set and reachable,
// otherwise an in-memory one. The returned close func releases the Redis client.
func New(cfg Config) (Limiter, func() error, error) {
	if cfg.RedisAddr == "" {
		return NewMemoryLimiter(cfg.Limit, cfg.Window), func() error { return nil }, nil
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := client.Ping().Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisLimiter(client, cfg.Limit, cfg.Window), client.Close, nil
}
