package report

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Cache memoizes snapshots by date key for the life of the process.
// Entries are written once and never evicted; concurrent misses for the
// same key share a single load. Failed loads are never stored.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*Snapshot
	group   singleflight.Group
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]*Snapshot)}
}

// Get returns the cached snapshot for key.
func (c *Cache) Get(key string) (*Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.entries[key]
	return s, ok
}

// Len returns the number of cached dates.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Keys returns the cached date keys in ascending order.
func (c *Cache) Keys() []string {
	c.mu.RLock()
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	c.mu.RUnlock()
	sort.Strings(keys)
	return keys
}

// Do returns the cached snapshot for key or runs load once, storing a
// successful result. The second return reports a cache hit. Concurrent
// callers share one load; a caller whose ctx ends stops waiting with
// ctx.Err() while the load carries on for the others.
func (c *Cache) Do(ctx context.Context, key string, load func() (*Snapshot, error)) (*Snapshot, bool, error) {
	if s, ok := c.Get(key); ok {
		return s, true, nil
	}
	ch := c.group.DoChan(key, func() (any, error) {
		if s, ok := c.Get(key); ok {
			return s, nil
		}
		s, err := load()
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		if existing, ok := c.entries[key]; ok {
			s = existing
		} else {
			c.entries[key] = s
		}
		c.mu.Unlock()
		return s, nil
	})
	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, false, res.Err
		}
		return res.Val.(*Snapshot), false, nil
	}
}
