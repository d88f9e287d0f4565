package cache

import (
	"context"
	"testing"
	"time"

	"github.com/SigNoz/ecommerce-rest-api/internal/models"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func laptop() models.Product {
	return models.Product{
		ID:         7,
		Name:       "Laptop",
		Price:      decimal.RequireFromString("999.99"),
		Weight:     decimal.RequireFromString("2.5"),
		CreatedAt:  models.NewTimestamp(time.Date(2024, 5, 1, 10, 30, 0, 0, time.Local)),
		IsActive:   true,
		Categories: []models.Category{{ID: 1, Name: "Electronics"}},
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	c := NewMemoryCache(time.Minute)
	c.now = func() time.Time { return now }

	_, ok := c.Get(ctx, 7)
	assert.False(t, ok)

	c.Set(ctx, laptop())
	p, ok := c.Get(ctx, 7)
	require.True(t, ok)
	assert.Equal(t, "Laptop", p.Name)

	now = now.Add(time.Minute)
	_, ok = c.Get(ctx, 7)
	assert.False(t, ok, "entry expires at its deadline")
	assert.Equal(t, 0, c.Len())
}

func TestMemoryCacheInvalidate(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(0)
	assert.Equal(t, DefaultTTL, c.ttl)

	c.Set(ctx, laptop())
	other := laptop()
	other.ID = 8
	c.Set(ctx, other)

	c.Invalidate(ctx, 7, 99)
	_, ok := c.Get(ctx, 7)
	assert.False(t, ok)
	_, ok = c.Get(ctx, 8)
	assert.True(t, ok)
	assert.Equal(t, "memory", c.Backend())
}

func TestMemoryCacheInvalidateAll(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(time.Minute)
	c.Set(ctx, laptop())
	other := laptop()
	other.ID = 8
	c.Set(ctx, other)

	c.InvalidateAll(ctx)
	assert.Equal(t, 0, c.Len())
	_, ok := c.Get(ctx, 7)
	assert.False(t, ok)
}

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestRedisCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	mr, client := setupTestRedis(t)
	c := NewRedisCacheWithClient(client, time.Minute)

	_, ok := c.Get(ctx, 7)
	assert.False(t, ok)

	c.Set(ctx, laptop())
	assert.True(t, mr.Exists("ecommerce:product:7"))

	p, ok := c.Get(ctx, 7)
	require.True(t, ok)
	assert.Equal(t, "Laptop", p.Name)
	assert.True(t, p.Price.Equal(decimal.RequireFromString("999.99")))
	assert.Equal(t, laptop().CreatedAt.Format(models.TimestampLayout), p.CreatedAt.Format(models.TimestampLayout))
	assert.Equal(t, []int32{1}, p.CategoryIDs())

	mr.FastForward(time.Minute + time.Second)
	_, ok = c.Get(ctx, 7)
	assert.False(t, ok, "entry expires with its TTL")
}

func TestRedisCacheInvalidateAndCorruptEntry(t *testing.T) {
	ctx := context.Background()
	mr, client := setupTestRedis(t)
	c := NewRedisCacheWithClient(client, time.Minute)

	c.Set(ctx, laptop())
	c.Invalidate(ctx, 7)
	assert.False(t, mr.Exists("ecommerce:product:7"))

	require.NoError(t, mr.Set("ecommerce:product:9", "{not json"))
	_, ok := c.Get(ctx, 9)
	assert.False(t, ok)
	assert.False(t, mr.Exists("ecommerce:product:9"), "undecodable entries are dropped")
}

func TestRedisCacheInvalidateAll(t *testing.T) {
	ctx := context.Background()
	mr, client := setupTestRedis(t)
	c := NewRedisCacheWithClient(client, time.Minute)

	for id := int32(1); id <= 250; id++ {
		p := laptop()
		p.ID = id
		c.Set(ctx, p)
	}
	require.NoError(t, mr.Set("session:1", "keep"))

	c.InvalidateAll(ctx)
	assert.Equal(t, []string{"session:1"}, mr.Keys())
}

func TestRedisCacheUnavailableIsAMiss(t *testing.T) {
	ctx := context.Background()
	mr, client := setupTestRedis(t)
	c := NewRedisCacheWithClient(client, time.Minute)
	mr.Close()

	c.Set(ctx, laptop())
	_, ok := c.Get(ctx, 7)
	assert.False(t, ok)
}

func TestNewRedisCachePings(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	c, err := NewRedisCache(context.Background(), addr, "", 0, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "redis", c.Backend())
	require.NoError(t, c.Close())

	mr.Close()
	_, err = NewRedisCache(context.Background(), addr, "", 0, time.Minute)
	assert.Error(t, err)
}
