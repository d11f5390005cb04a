// Package cache is a small JSON cache-aside helper over Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

type Cache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	stats  stats
}

type stats struct {
	hits    atomic.Uint64
	misses  atomic.Uint64
	sets    atomic.Uint64
	deletes atomic.Uint64
	errors  atomic.Uint64
}

// StatsSnapshot is a point-in-time copy of the counters.
type StatsSnapshot struct {
	Hits    uint64  `json:"hits"`
	Misses  uint64  `json:"misses"`
	Sets    uint64  `json:"sets"`
	Deletes uint64  `json:"deletes"`
	Errors  uint64  `json:"errors"`
	HitRate float64 `json:"hitRate"`
}

func New(client *redis.Client, prefix string, ttl time.Duration) *Cache {
	return &Cache{client: client, prefix: prefix, ttl: ttl}
}

// Get decodes the cached value into dest and reports whether it was present.
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			c.stats.misses.Add(1)
			return false, nil
		}
		c.stats.errors.Add(1)
		return false, fmt.Errorf("cache get error: %w", err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		c.stats.errors.Add(1)
		return false, fmt.Errorf("cache unmarshal error: %w", err)
	}
	c.stats.hits.Add(1)
	return true, nil
}

func versionKey(key string) string { return key + ":v" }

// Versions returns the current version of each key, 0 when never bumped.
// Pass the result to SetIfVersion so a load that raced with Bump is not stored.
func (c *Cache) Versions(ctx context.Context, keys ...string) ([]int64, error) {
	vkeys := make([]string, len(keys))
	for i, k := range keys {
		vkeys[i] = c.prefix + versionKey(k)
	}
	vals, err := c.client.MGet(ctx, vkeys...).Result()
	if err != nil {
		c.stats.errors.Add(1)
		return nil, fmt.Errorf("cache version error: %w", err)
	}
	out := make([]int64, len(keys))
	for i, v := range vals {
		str, ok := v.(string)
		if !ok {
			continue
		}
		n, err := strconv.ParseInt(str, 10, 64)
		if err != nil {
			c.stats.errors.Add(1)
			return nil, fmt.Errorf("cache version %q: %w", str, err)
		}
		out[i] = n
	}
	return out, nil
}

// Bump deletes key and advances its version in one transaction.
func (c *Cache) Bump(ctx context.Context, key string) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, c.prefix+key)
		pipe.Incr(ctx, c.prefix+versionKey(key))
		pipe.Expire(ctx, c.prefix+versionKey(key), c.versionTTL())
		return nil
	})
	if err != nil {
		c.stats.errors.Add(1)
		return fmt.Errorf("cache bump error: %w", err)
	}
	c.stats.deletes.Add(1)
	return nil
}

// A version only has to outlive loads that started before the bump.
func (c *Cache) versionTTL() time.Duration {
	if c.ttl > time.Hour {
		return c.ttl
	}
	return time.Hour
}

var setIfVersion = redis.NewScript(`
local v = redis.call("GET", KEYS[2]) or "0"
if v == ARGV[2] then
    redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[3])
    return 1
end
return 0
`)

// SetIfVersion stores value only while key is still at version. It reports
// whether the value was written.
func (c *Cache) SetIfVersion(ctx context.Context, key string, value interface{}, version int64) (bool, error) {
	data, err := json.Marshal(value)
	if err != nil {
		c.stats.errors.Add(1)
		return false, fmt.Errorf("cache marshal error: %w", err)
	}
	n, err := setIfVersion.Run(ctx, c.client,
		[]string{c.prefix + key, c.prefix + versionKey(key)},
		data, strconv.FormatInt(version, 10), c.ttl.Milliseconds(),
	).Int()
	if err != nil {
		c.stats.errors.Add(1)
		return false, fmt.Errorf("cache set error: %w", err)
	}
	if n == 1 {
		c.stats.sets.Add(1)
	}
	return n == 1, nil
}

func (c *Cache) Stats() StatsSnapshot {
	hits, misses := c.stats.hits.Load(), c.stats.misses.Load()
	var hitRate float64
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	return StatsSnapshot{
		Hits:    hits,
		Misses:  misses,
		Sets:    c.stats.sets.Load(),
		Deletes: c.stats.deletes.Load(),
		Errors:  c.stats.errors.Load(),
		HitRate: hitRate,
	}
}
