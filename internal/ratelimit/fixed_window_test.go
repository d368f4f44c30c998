package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestFixedWindowLimiterRedis(t *testing.T) {
	redis := miniredis.RunT(t)
	limiter, err := NewRedisFixedWindowLimiter(redis.Addr(), "", "test:ratelimit", 2, time.Second)
	if err != nil {
		t.Fatalf("new redis limiter: %v", err)
	}
	ctx := context.Background()
	if !limiter.Allow(ctx, "user-1") {
		t.Fatalf("first request should pass")
	}
	if !limiter.Allow(ctx, "user-1") {
		t.Fatalf("second request should pass")
	}
	if limiter.Allow(ctx, "user-1") {
		t.Fatalf("third request should be blocked")
	}
	if !limiter.Allow(ctx, "user-2") {
		t.Fatalf("other keys have their own quota")
	}
}

func TestFixedWindowLimiterRedisFailClosed(t *testing.T) {
	redis := miniredis.RunT(t)
	limiter, err := NewRedisFixedWindowLimiter(redis.Addr(), "", "test:ratelimit", 1, time.Second)
	if err != nil {
		t.Fatalf("new redis limiter: %v", err)
	}
	redis.Close()
	if limiter.Allow(context.Background(), "user-1") {
		t.Fatalf("limiter should fail closed on redis errors")
	}
}

func TestFixedWindowLimiterRedisFailOpen(t *testing.T) {
	redis := miniredis.RunT(t)
	limiter, err := NewRedisFixedWindowLimiter(redis.Addr(), "", "test:ratelimit", 1, time.Second)
	if err != nil {
		t.Fatalf("new redis limiter: %v", err)
	}
	limiter.FailOpen()
	redis.Close()
	if !limiter.Allow(context.Background(), "user-1") {
		t.Fatalf("fail-open limiter should allow on redis errors")
	}
}

func TestFixedWindowLimiterRequiresRedisAddr(t *testing.T) {
	limiter, err := NewRedisFixedWindowLimiter("", "", "test:ratelimit", 1, time.Second)
	if err == nil || limiter != nil {
		t.Fatalf("expected constructor error for empty redis addr")
	}
}

func TestMemoryLimiterWindows(t *testing.T) {
	limiter, err := NewMemoryLimiter(2, time.Minute)
	if err != nil {
		t.Fatalf("new memory limiter: %v", err)
	}
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }
	ctx := context.Background()

	if !limiter.Allow(ctx, "u") || !limiter.Allow(ctx, "u") {
		t.Fatalf("first two requests should pass")
	}
	if limiter.Allow(ctx, "u") {
		t.Fatalf("third request should be blocked")
	}
	now = now.Add(time.Minute)
	if !limiter.Allow(ctx, "u") {
		t.Fatalf("next window should reset quota")
	}
}
