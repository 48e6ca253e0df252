package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultCacheKey is the Redis key holding the serialised product list.
const DefaultCacheKey = "catalog:products:v1"

// Cache keeps the last loaded product list in Redis so restarts and
// sibling replicas can skip the upstream source.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache constructs a cache helper. A nil client yields a disabled cache.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cache{client: client, ttl: ttl}
}

// Enabled reports whether the cache has a backing client.
func (c *Cache) Enabled() bool {
	return c != nil && c.client != nil
}

// GetProducts returns the cached product list. It reports whether the key existed.
func (c *Cache) GetProducts(ctx context.Context, key string) ([]Product, bool, error) {
	if !c.Enabled() || key == "" {
		return nil, false, nil
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	var products []Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, false, err
	}
	return products, true, nil
}

// SetProducts stores the product list with the configured TTL.
func (c *Cache) SetProducts(ctx context.Context, key string, products []Product) error {
	if !c.Enabled() || key == "" {
		return nil
	}
	data, err := json.Marshal(products)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, c.ttl).Err()
}

// Invalidate drops the cached list.
func (c *Cache) Invalidate(ctx context.Context, key string) error {
	if !c.Enabled() || key == "" {
		return nil
	}
	return c.client.Del(ctx, key).Err()
}
