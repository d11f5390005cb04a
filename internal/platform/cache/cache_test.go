package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entry struct {
	Name string `json:"name"`
}

func setupTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return New(client, "test:", time.Minute), mr
}

func TestCacheGetSetBump(t *testing.T) {
	c, mr := setupTestCache(t)
	ctx := context.Background()

	var got entry
	found, err := c.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, found)

	ok, err := c.SetIfVersion(ctx, "k", entry{Name: "Ada"}, 0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, mr.Exists("test:k"))
	assert.Equal(t, time.Minute, mr.TTL("test:k"))

	found, err = c.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "Ada", got.Name)

	require.NoError(t, c.Bump(ctx, "k"))
	found, err = c.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, found)

	s := c.Stats()
	assert.Equal(t, uint64(1), s.Hits)
	assert.Equal(t, uint64(2), s.Misses)
	assert.Equal(t, uint64(1), s.Sets)
	assert.Equal(t, uint64(1), s.Deletes)
	assert.InDelta(t, 33.33, s.HitRate, 0.01)
}

func TestCacheCorruptValue(t *testing.T) {
	c, mr := setupTestCache(t)
	require.NoError(t, mr.Set("test:bad", "{not json"))

	var got entry
	_, err := c.Get(context.Background(), "bad", &got)
	assert.Error(t, err)
	assert.Equal(t, uint64(1), c.Stats().Errors)
}

func TestCacheSetIfVersion(t *testing.T) {
	c, mr := setupTestCache(t)
	ctx := context.Background()

	vs, err := c.Versions(ctx, "k", "other")
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 0}, vs)

	ok, err := c.SetIfVersion(ctx, "k", entry{Name: "Ada"}, vs[0])
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, time.Minute, mr.TTL("test:k"))

	require.NoError(t, c.Bump(ctx, "k"))
	assert.False(t, mr.Exists("test:k"))

	// A load that read version 0 lost the race with Bump.
	ok, err = c.SetIfVersion(ctx, "k", entry{Name: "stale"}, vs[0])
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, mr.Exists("test:k"))

	vs, err = c.Versions(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, vs)
	ok, err = c.SetIfVersion(ctx, "k", entry{Name: "fresh"}, vs[0])
	require.NoError(t, err)
	assert.True(t, ok)

	var got entry
	found, err := c.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "fresh", got.Name)
}
