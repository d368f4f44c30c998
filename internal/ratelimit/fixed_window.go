// Package ratelimit caps requests per key in fixed time windows.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"

	"nutrilog/internal/util"
)

var fixedWindowScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return count
`)

const defaultPrefix = "nutrilog:ratelimit"

// Limiter reports whether key is still within quota.
type Limiter interface {
	Allow(ctx context.Context, key string) bool
}

// FixedWindowLimiter limits requests per key in a fixed time window,
// shared across instances through Redis.
type FixedWindowLimiter struct {
	limit  int
	window time.Duration

	redisClient *redis.Client
	redisPrefix string
	failOpen    bool
	now         func() time.Time
}

// NewRedisFixedWindowLimiter creates a Redis-backed distributed limiter.
// By default Redis failures deny the request; see FailOpen.
func NewRedisFixedWindowLimiter(addr, password, prefix string, limit int, window time.Duration) (*FixedWindowLimiter, error) {
	if limit <= 0 || window <= 0 {
		return nil, errors.New("rate limiter requires positive limit and window")
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("rate limiter redis addr is required")
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &FixedWindowLimiter{
		limit:  limit,
		window: window,
		redisClient: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
		}),
		redisPrefix: prefix,
		now:         time.Now,
	}, nil
}

// FailOpen makes Redis errors allow the request. Meal logging uses this so
// a cache outage cannot block it.
func (l *FixedWindowLimiter) FailOpen() *FixedWindowLimiter {
	l.failOpen = true
	return l
}

// Allow returns true when the key is within quota.
func (l *FixedWindowLimiter) Allow(ctx context.Context, key string) bool {
	if l == nil {
		return false
	}
	key = strings.TrimSpace(key)
	if key == "" {
		key = "unknown"
	}
	windowMs := l.window.Milliseconds()
	if windowMs <= 0 {
		return true
	}
	windowSlot := l.now().UTC().UnixMilli() / windowMs
	redisKey := fmt.Sprintf("%s:%s:%d", l.redisPrefix, key, windowSlot)
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	res, err := fixedWindowScript.Run(ctx, l.redisClient, []string{redisKey}, windowMs).Int64()
	if err != nil {
		util.LoggerFromContext(ctx).Warn("rate_limit_redis_failed", "fail_open", l.failOpen, "err", err)
		return l.failOpen
	}
	return res <= int64(l.limit)
}

// MemoryLimiter is the single-instance limiter used when Redis is not
// configured.
type MemoryLimiter struct {
	limit   int
	window  time.Duration
	counter *gocache.Cache
	now     func() time.Time
}

func NewMemoryLimiter(limit int, window time.Duration) (*MemoryLimiter, error) {
	if limit <= 0 || window <= 0 {
		return nil, errors.New("rate limiter requires positive limit and window")
	}
	return &MemoryLimiter{
		limit:   limit,
		window:  window,
		counter: gocache.New(window, 2*window),
		now:     time.Now,
	}, nil
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) bool {
	if l == nil {
		return false
	}
	slot := l.now().UTC().UnixNano() / int64(l.window)
	k := fmt.Sprintf("%s:%d", strings.TrimSpace(key), slot)
	if err := l.counter.Add(k, 1, gocache.DefaultExpiration); err == nil {
		return l.limit >= 1
	}
	n, err := l.counter.IncrementInt(k, 1)
	if err != nil {
		return false
	}
	return n <= l.limit
}
