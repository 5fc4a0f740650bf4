package cache

import (
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

type entry struct {
	value     int64
	expiresAt time.Time
}

type shard struct {
	mu      sync.Mutex
	entries map[string]entry
}

// MemoryCache is a sharded in-memory Cache.
type MemoryCache struct {
	shards   []*shard
	now      func() time.Time
	observer Observer
}

// NewMemory creates an empty MemoryCache.
func NewMemory(opts ...Option) *MemoryCache {
	o := buildOptions(opts)

	shards := make([]*shard, o.shards)
	for i := range shards {
		shards[i] = &shard{entries: make(map[string]entry)}
	}

	return &MemoryCache{
		shards:   shards,
		now:      o.now,
		observer: o.observer,
	}
}

func (c *MemoryCache) shardFor(key string) *shard {
	return c.shards[xxhash.Sum64String(key)%uint64(len(c.shards))]
}

// Get implements Cache.
func (c *MemoryCache) Get(key string) (int64, bool) {
	s := c.shardFor(key)
	s.mu.Lock()
	e, ok := s.entries[key]
	s.mu.Unlock()

	if !ok || !c.now().Before(e.expiresAt) {
		c.observer.CacheMiss()
		return 0, false
	}
	c.observer.CacheHit()
	return e.value, true
}

// SetMax implements Cache.
func (c *MemoryCache) SetMax(key string, value int64, expiresAt time.Time) int64 {
	return c.Update(key, expiresAt, func(int64, bool) int64 { return value })
}

// Update implements Cache.
func (c *MemoryCache) Update(key string, expiresAt time.Time, fn func(current int64, ok bool) int64) int64 {
	s := c.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if ok && !c.now().Before(e.expiresAt) {
		ok = false
		e = entry{}
	}

	next := fn(e.value, ok)
	if ok && next < e.value {
		return e.value
	}

	if !ok || expiresAt.After(e.expiresAt) {
		e.expiresAt = expiresAt
	}
	e.value = next
	s.entries[key] = e
	return next
}

// Len implements Cache. Entries that have expired but not been swept are
// still counted.
func (c *MemoryCache) Len() int {
	n := 0
	for _, s := range c.shards {
		s.mu.Lock()
		n += len(s.entries)
		s.mu.Unlock()
	}
	return n
}

// Sweep implements Cache.
func (c *MemoryCache) Sweep(now time.Time) int {
	removed := 0
	for _, s := range c.shards {
		s.mu.Lock()
		for key, e := range s.entries {
			if !now.Before(e.expiresAt) {
				delete(s.entries, key)
				removed++
			}
		}
		s.mu.Unlock()
	}
	if removed > 0 {
		c.observer.CacheEvicted(removed)
	}
	return removed
}
