package cache

import (
	"context"
	"testing"
)

func TestNilStockCacheIsAlwaysAMiss(t *testing.T) {
	var c *StockCache
	if _, ok := c.Get(context.Background(), 1, "pen"); ok {
		t.Fatal("nil cache must always report a miss")
	}
}

func TestNilStockCacheOperationsAreNoops(t *testing.T) {
	var c *StockCache
	c.Set(context.Background(), 1, "pen", 5)
	c.InvalidateLocal(context.Background(), 1, []string{"pen"})
	if err := c.Close(); err != nil {
		t.Fatalf("nil cache Close must not error, got %v", err)
	}
}
