// Package cache keeps recently read products close to the service so
// repeated product lookups skip the database.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/SigNoz/ecommerce-rest-api/internal/models"
)

// DefaultTTL is used when a cache is created with a non-positive TTL.
const DefaultTTL = 5 * time.Minute

// ProductCache stores products by id. Backend failures are treated as
// misses; the database stays the source of truth.
type ProductCache interface {
	Get(ctx context.Context, id int32) (models.Product, bool)
	Set(ctx context.Context, p models.Product)
	Invalidate(ctx context.Context, ids ...int32)
	// InvalidateAll drops every cached product, for changes that touch
	// products the caller cannot enumerate.
	InvalidateAll(ctx context.Context)
	// Backend names the implementation for metrics and logs.
	Backend() string
}

// MemoryCache is a process-local ProductCache with per-entry expiry.
type MemoryCache struct {
	mu    sync.RWMutex
	items map[int32]cachedProduct
	ttl   time.Duration
	now   func() time.Time
}

type cachedProduct struct {
	product models.Product
	expires time.Time
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryCache{
		items: make(map[int32]cachedProduct),
		ttl:   ttl,
		now:   time.Now,
	}
}

func (c *MemoryCache) Get(_ context.Context, id int32) (models.Product, bool) {
	c.mu.RLock()
	cached, exists := c.items[id]
	c.mu.RUnlock()
	if !exists {
		return models.Product{}, false
	}
	if !c.now().Before(cached.expires) {
		c.mu.Lock()
		// Re-check: a fresh Set may have replaced the entry meanwhile.
		if cur, ok := c.items[id]; ok && !c.now().Before(cur.expires) {
			delete(c.items, id)
		}
		c.mu.Unlock()
		return models.Product{}, false
	}
	return cached.product, true
}

func (c *MemoryCache) Set(_ context.Context, p models.Product) {
	c.mu.Lock()
	c.items[p.ID] = cachedProduct{
		product: p,
		expires: c.now().Add(c.ttl),
	}
	c.mu.Unlock()
}

func (c *MemoryCache) Invalidate(_ context.Context, ids ...int32) {
	c.mu.Lock()
	for _, id := range ids {
		delete(c.items, id)
	}
	c.mu.Unlock()
}

func (c *MemoryCache) InvalidateAll(_ context.Context) {
	c.mu.Lock()
	c.items = make(map[int32]cachedProduct)
	c.mu.Unlock()
}

func (c *MemoryCache) Backend() string { return "memory" }

// Len reports the number of stored entries, expired ones included.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
