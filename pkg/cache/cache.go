// Package cache is a small JSON value cache with a memory and a Redis
// driver. The restaurant catalog uses it so menu browsing does not refetch
// on every keystroke of the CLI or every dashboard render.
package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shashiranjanraj/platter/config"
)

// Cache stores JSON-encodable values under string keys.
type Cache interface {
	// Get decodes the value at key into dest and reports whether it was found.
	Get(ctx context.Context, key string, dest interface{}) bool
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// NewRedisClient builds a client from REDIS_ADDR / REDIS_PASSWORD.
func NewRedisClient() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     config.RedisAddr(),
		Password: config.RedisPassword(),
	})
}

// Open returns the Redis cache when the session driver is redis and the
// server answers, otherwise an in-process cache.
func Open(ctx context.Context) Cache {
	if config.SessionDriver() != "redis" {
		return NewMemory()
	}
	rdb := NewRedisClient()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return NewMemory()
	}
	return NewRedis(rdb, "platter:cache:")
}

type redisCache struct {
	rdb    *redis.Client
	prefix string
}

func NewRedis(rdb *redis.Client, prefix string) Cache {
	return &redisCache{rdb: rdb, prefix: prefix}
}

func (c *redisCache) Get(ctx context.Context, key string, dest interface{}) bool {
	val, err := c.rdb.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(val, dest) == nil
}

func (c *redisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, c.prefix+key, data, ttl).Err()
}

func (c *redisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.prefix + k
	}
	return c.rdb.Del(ctx, full...).Err()
}

type memoryItem struct {
	raw     []byte
	expires time.Time
}

type memoryCache struct {
	mu    sync.Mutex
	items map[string]memoryItem
	now   func() time.Time
}

func NewMemory() Cache {
	return &memoryCache{items: map[string]memoryItem{}, now: time.Now}
}

func (c *memoryCache) Get(_ context.Context, key string, dest interface{}) bool {
	c.mu.Lock()
	it, ok := c.items[key]
	if ok && !it.expires.IsZero() && c.now().After(it.expires) {
		delete(c.items, key)
		ok = false
	}
	c.mu.Unlock()
	if !ok {
		return false
	}
	return json.Unmarshal(it.raw, dest) == nil
}

func (c *memoryCache) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	it := memoryItem{raw: data}
	if ttl > 0 {
		it.expires = c.now().Add(ttl)
	}
	c.mu.Lock()
	c.items[key] = it
	c.mu.Unlock()
	return nil
}

func (c *memoryCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	for _, k := range keys {
		delete(c.items, k)
	}
	c.mu.Unlock()
	return nil
}
