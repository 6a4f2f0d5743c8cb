package cache

import (
	"context"
	"fmt"
	"time"

	mc "gitea.com/go-chi/cache"
)

type memoryCache struct {
	conn *mc.MemoryCacher
}

// NewMemory returns an in-process cache owned by the caller. gcInterval is
// the expiry sweep period in seconds. The "memory" adapter of NewCacher is
// shared process-wide and must not be used here.
func NewMemory(gcInterval int) (Cache, error) {
	if gcInterval <= 0 {
		gcInterval = 60
	}
	conn := mc.NewMemoryCacher()
	if err := conn.StartAndGC(mc.Options{Interval: gcInterval}); err != nil {
		return nil, fmt.Errorf("create memory cache: %w", err)
	}
	return &memoryCache{conn: conn}, nil
}

// Close stops the expiry sweep after its next tick and drops all entries.
func (c *memoryCache) Close() error {
	if err := c.conn.StartAndGC(mc.Options{Interval: 0}); err != nil {
		return err
	}
	return c.conn.Flush()
}

func (c *memoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	switch v := c.conn.Get(key).(type) {
	case nil:
		return nil, false, nil
	case []byte:
		return v, true, nil
	default:
		return nil, false, fmt.Errorf("unexpected cached value %T for %s", v, key)
	}
}

func (c *memoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	return c.conn.Put(key, value, ttlSeconds(ttl))
}

// go-chi/cache counts whole seconds and treats 0 as "never expires".
func ttlSeconds(ttl time.Duration) int64 {
	if ttl <= 0 {
		return 0
	}
	secs := int64(ttl / time.Second)
	if ttl%time.Second != 0 {
		secs++
	}
	return secs
}
