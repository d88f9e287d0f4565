package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/SigNoz/ecommerce-rest-api/internal/models"
	"github.com/go-redis/redis/v8"
)

const productKeyPrefix = "ecommerce:product:"

// RedisCache shares cached products between instances through Redis.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache connects to addr and verifies the connection with PING.
func NewRedisCache(ctx context.Context, addr, password string, db int, ttl time.Duration) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return NewRedisCacheWithClient(client, ttl), nil
}

// NewRedisCacheWithClient wraps an existing client.
func NewRedisCacheWithClient(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisCache{client: client, ttl: ttl}
}

func productKey(id int32) string {
	return productKeyPrefix + strconv.FormatInt(int64(id), 10)
}

func (c *RedisCache) Get(ctx context.Context, id int32) (models.Product, bool) {
	data, err := c.client.Get(ctx, productKey(id)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("[CACHE] Redis GET failed for product_id=%d: %v", id, err)
		}
		return models.Product{}, false
	}
	var p models.Product
	if err := json.Unmarshal(data, &p); err != nil {
		log.Printf("[CACHE] Dropping undecodable entry for product_id=%d: %v", id, err)
		c.Invalidate(ctx, id)
		return models.Product{}, false
	}
	return p, true
}

func (c *RedisCache) Set(ctx context.Context, p models.Product) {
	data, err := json.Marshal(p)
	if err != nil {
		log.Printf("[CACHE] Failed to encode product_id=%d: %v", p.ID, err)
		return
	}
	if err := c.client.Set(ctx, productKey(p.ID), data, c.ttl).Err(); err != nil {
		log.Printf("[CACHE] Redis SET failed for product_id=%d: %v", p.ID, err)
	}
}

func (c *RedisCache) Invalidate(ctx context.Context, ids ...int32) {
	if len(ids) == 0 {
		return
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = productKey(id)
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		log.Printf("[CACHE] Redis DEL failed for %d products: %v", len(ids), err)
	}
}

// InvalidateAll deletes every product key in SCAN batches.
func (c *RedisCache) InvalidateAll(ctx context.Context) {
	var (
		cursor  uint64
		removed int
	)
	for {
		keys, next, err := c.client.Scan(ctx, cursor, productKeyPrefix+"*", 100).Result()
		if err != nil {
			log.Printf("[CACHE] Redis SCAN failed: %v", err)
			return
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				log.Printf("[CACHE] Redis DEL failed for %d products: %v", len(keys), err)
				return
			}
			removed += len(keys)
		}
		if next == 0 {
			break
		}
		cursor = next
	}
	log.Printf("[CACHE] Invalidated %d cached products", removed)
}

func (c *RedisCache) Backend() string { return "redis" }

func (c *RedisCache) Close() error {
	return c.client.Close()
}
