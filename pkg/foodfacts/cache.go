package foodfacts

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"

	"nutrilog/internal/util"
	"nutrilog/pkg/domain"
)

// Entry is a cached lookup result; Found=false caches a miss.
type Entry struct {
	Product domain.FoodProduct `json:"product"`
	Found   bool               `json:"found"`
}

// Cache stores lookups by barcode. Failures are swallowed.
type Cache interface {
	Get(ctx context.Context, code string) (Entry, bool)
	Set(ctx context.Context, code string, entry Entry)
}

// MemoryCache keeps lookups in process.
type MemoryCache struct {
	items *gocache.Cache
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{items: gocache.New(ttl, ttl*2)}
}

func (c *MemoryCache) Get(_ context.Context, code string) (Entry, bool) {
	v, found := c.items.Get(code)
	if !found {
		return Entry{}, false
	}
	entry, ok := v.(Entry)
	return entry, ok
}

func (c *MemoryCache) Set(_ context.Context, code string, entry Entry) {
	c.items.Set(code, entry, gocache.DefaultExpiration)
}

const defaultRedisPrefix = "nutrilog:barcode:"

// RedisCache shares lookups between instances.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisCache(addr, password string, ttl time.Duration) *RedisCache {
	return NewRedisCacheWithClient(redis.NewClient(&redis.Options{Addr: addr, Password: password}), ttl)
}

func NewRedisCacheWithClient(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, prefix: defaultRedisPrefix, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, code string) (Entry, bool) {
	raw, err := c.client.Get(ctx, c.prefix+code).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			util.LoggerFromContext(ctx).Warn("barcode_cache_get_failed", "code", code, "err", err)
		}
		return Entry{}, false
	}
	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return Entry{}, false
	}
	return entry, true
}

func (c *RedisCache) Set(ctx context.Context, code string, entry Entry) {
	raw, err := json.Marshal(entry)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, c.prefix+code, raw, c.ttl).Err(); err != nil {
		util.LoggerFromContext(ctx).Warn("barcode_cache_set_failed", "code", code, "err", err)
	}
}

// Tiered reads the first cache and falls through to the second,
// back-filling the first on a hit.
type Tiered struct {
	Near Cache
	Far  Cache
}

func (t Tiered) Get(ctx context.Context, code string) (Entry, bool) {
	if entry, ok := t.Near.Get(ctx, code); ok {
		return entry, true
	}
	entry, ok := t.Far.Get(ctx, code)
	if ok {
		t.Near.Set(ctx, code, entry)
	}
	return entry, ok
}

func (t Tiered) Set(ctx context.Context, code string, entry Entry) {
	t.Near.Set(ctx, code, entry)
	t.Far.Set(ctx, code, entry)
}
