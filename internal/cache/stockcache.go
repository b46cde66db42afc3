// Package cache is an optional read-through accelerator in front of the
// D-node's GlobalStock snapshot, generalizing the teacher's stock/cache.go
// cache-aside ItemCache from menu items to per-local product quantities. The
// in-memory registry stays authoritative (spec §3 GlobalStock invariant): a
// cache miss, or any Redis error, always falls back to it, and every write
// to the registry invalidates the corresponding cache entry.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// StockCache caches a local's last-known product quantity under
// "stock:<local_id>:<product_name>".
type StockCache struct {
	client *redis.Client
	ttl    time.Duration
}

// Connect builds a StockCache against a Redis instance at addr. Returns an
// error if Redis does not respond within 3s; callers may choose to run
// without a cache rather than fail boot.
func Connect(addr string, ttl time.Duration) (*StockCache, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("cache: connect redis: %w", err)
	}
	return &StockCache{client: client, ttl: ttl}, nil
}

func key(localID uint16, product string) string {
	return fmt.Sprintf("stock:%d:%s", localID, product)
}

// Get returns the cached quantity and true on a hit, or 0 and false on a
// miss or error.
func (c *StockCache) Get(ctx context.Context, localID uint16, product string) (int, bool) {
	if c == nil {
		return 0, false
	}
	data, err := c.client.Get(ctx, key(localID, product)).Bytes()
	if err != nil {
		return 0, false
	}
	var qty int
	if err := json.Unmarshal(data, &qty); err != nil {
		return 0, false
	}
	return qty, true
}

// Set stores the quantity for a local/product pair.
func (c *StockCache) Set(ctx context.Context, localID uint16, product string, qty int) {
	if c == nil {
		return
	}
	data, err := json.Marshal(qty)
	if err != nil {
		return
	}
	c.client.Set(ctx, key(localID, product), data, c.ttl) //nolint:errcheck
}

// InvalidateLocal drops every cached product entry for a local, used when a
// fresh PostStockFromLocal snapshot arrives.
func (c *StockCache) InvalidateLocal(ctx context.Context, localID uint16, products []string) {
	if c == nil {
		return
	}
	keys := make([]string, len(products))
	for i, p := range products {
		keys[i] = key(localID, p)
	}
	if len(keys) > 0 {
		c.client.Del(ctx, keys...) //nolint:errcheck
	}
}

// Close releases the Redis connection.
func (c *StockCache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
