// Package cache holds the process-local view of window counters.
//
// Each entry maps a window key to the highest counter value this process has
// observed for it. Values only move up while an entry is live; entries expire
// once their window has reset. The cache exists to short-circuit requests for
// windows already known to be exhausted, so losing an entry is always safe.
package cache

import (
	"time"
)

// Cache stores monotonic per-window counters.
//
// Implementations must be safe for concurrent use. SetMax and Update are
// atomic per key.
type Cache interface {
	// Get returns the counter for key. Expired entries are reported absent.
	Get(key string) (int64, bool)

	// SetMax stores max(existing, value) and returns the stored value.
	SetMax(key string, value int64, expiresAt time.Time) int64

	// Update runs fn with the current value under the key's lock and stores
	// its result unless it is lower than the current value. It returns the
	// value held after the update.
	Update(key string, expiresAt time.Time, fn func(current int64, ok bool) int64) int64

	// Len returns the number of live entries.
	Len() int

	// Sweep drops entries whose expiry is at or before now and returns how
	// many were removed.
	Sweep(now time.Time) int
}

// Observer receives cache activity. Implementations must be cheap and
// non-blocking.
type Observer interface {
	CacheHit()
	CacheMiss()
	CacheEvicted(n int)
}

type noopObserver struct{}

func (noopObserver) CacheHit()        {}
func (noopObserver) CacheMiss()       {}
func (noopObserver) CacheEvicted(int) {}

// Option configures a cache backend.
type Option func(*options)

type options struct {
	now      func() time.Time
	observer Observer
	shards   int
}

// WithClock sets the time source used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithObserver registers an Observer for hits, misses and evictions.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.observer = obs
		}
	}
}

// WithShards sets the number of lock shards. Values below 1 are ignored.
func WithShards(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.shards = n
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		now:      time.Now,
		observer: noopObserver{},
		shards:   DefaultShards,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// DefaultShards is the shard count used when WithShards is not given.
const DefaultShards = 64
