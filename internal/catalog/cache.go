package catalog

import (
	"context"
	"sync"
	"time"
)

// Cache is a read-through cache over Load. Writers call Invalidate after
// changing catalog or vendor rows; a ttl bounds staleness from writers
// outside this process.
type Cache struct {
	src Source
	ttl time.Duration
	now func() time.Time

	mu       sync.Mutex
	current  *Catalog
	loadedAt time.Time
}

// NewCache creates a Cache. A zero ttl keeps a snapshot until Invalidate.
func NewCache(src Source, ttl time.Duration) *Cache {
	return &Cache{src: src, ttl: ttl, now: time.Now}
}

// Get returns the cached snapshot, loading it on first use or after expiry.
func (c *Cache) Get(ctx context.Context) (*Catalog, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != nil && (c.ttl == 0 || c.now().Sub(c.loadedAt) < c.ttl) {
		return c.current, nil
	}

	cat, err := Load(ctx, c.src)
	if err != nil {
		return nil, err
	}
	c.current = cat
	c.loadedAt = c.now()
	return cat, nil
}

// Invalidate drops the snapshot so the next Get reloads.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.current = nil
	c.mu.Unlock()
}
