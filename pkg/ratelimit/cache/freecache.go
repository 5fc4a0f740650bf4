package cache

import (
	"encoding/binary"
	"math"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/coocood/freecache"
)

// MinFreeCacheSize is the smallest size freecache accepts.
const MinFreeCacheSize = 512 * 1024

// FreeCache is a Cache backed by a fixed-size freecache.Cache.
//
// Memory use is bounded by the configured size; when full, freecache evicts
// old entries on its own. Expiry has one-second resolution and is enforced by
// freecache, so Sweep has nothing to do.
type FreeCache struct {
	cache    *freecache.Cache
	locks    []sync.Mutex
	now      func() time.Time
	observer Observer
}

// NewFreeCache creates a FreeCache holding up to sizeBytes of entries.
func NewFreeCache(sizeBytes int, opts ...Option) *FreeCache {
	o := buildOptions(opts)
	if sizeBytes < MinFreeCacheSize {
		sizeBytes = MinFreeCacheSize
	}
	return &FreeCache{
		cache:    freecache.NewCache(sizeBytes),
		locks:    make([]sync.Mutex, o.shards),
		now:      o.now,
		observer: o.observer,
	}
}

func (c *FreeCache) lockFor(key string) *sync.Mutex {
	return &c.locks[xxhash.Sum64String(key)%uint64(len(c.locks))]
}

func (c *FreeCache) load(key []byte) (int64, bool) {
	raw, err := c.cache.Get(key)
	if err != nil || len(raw) != 8 {
		return 0, false
	}
	return int64(binary.BigEndian.Uint64(raw)), true
}

// Get implements Cache.
func (c *FreeCache) Get(key string) (int64, bool) {
	v, ok := c.load([]byte(key))
	if ok {
		c.observer.CacheHit()
	} else {
		c.observer.CacheMiss()
	}
	return v, ok
}

// SetMax implements Cache.
func (c *FreeCache) SetMax(key string, value int64, expiresAt time.Time) int64 {
	return c.Update(key, expiresAt, func(int64, bool) int64 { return value })
}

// Update implements Cache.
func (c *FreeCache) Update(key string, expiresAt time.Time, fn func(current int64, ok bool) int64) int64 {
	mu := c.lockFor(key)
	mu.Lock()
	defer mu.Unlock()

	k := []byte(key)
	current, ok := c.load(k)
	next := fn(current, ok)
	if ok && next < current {
		return current
	}

	ttl := expiresAt.Sub(c.now())
	if ttl <= 0 {
		return next
	}
	seconds := int(math.Ceil(ttl.Seconds()))

	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(next))
	// A failed Set leaves the key absent, which only costs a coordinator call.
	_ = c.cache.Set(k, buf, seconds)
	return next
}

// Len implements Cache.
func (c *FreeCache) Len() int {
	return int(c.cache.EntryCount())
}

// Sweep implements Cache. freecache expires entries on access.
func (c *FreeCache) Sweep(time.Time) int {
	return 0
}
