package cache

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type countingObserver struct {
	hits, misses, evicted atomic.Int64
}

func (o *countingObserver) CacheHit()          { o.hits.Add(1) }
func (o *countingObserver) CacheMiss()         { o.misses.Add(1) }
func (o *countingObserver) CacheEvicted(n int) { o.evicted.Add(int64(n)) }

func backends(t *testing.T, clock *manualClock, obs Observer) map[string]Cache {
	t.Helper()
	return map[string]Cache{
		"memory":    NewMemory(WithClock(clock.Now), WithObserver(obs), WithShards(4)),
		"freecache": NewFreeCache(MinFreeCacheSize, WithClock(clock.Now), WithObserver(obs)),
	}
}

func TestSetMaxIsMonotonic(t *testing.T) {
	clock := &manualClock{now: time.Now()}
	expires := clock.Now().Add(time.Hour)

	for name, c := range backends(t, clock, nil) {
		t.Run(name, func(t *testing.T) {
			if got := c.SetMax("k", 5, expires); got != 5 {
				t.Errorf("SetMax(5) = %d, want 5", got)
			}
			if got := c.SetMax("k", 3, expires); got != 5 {
				t.Errorf("SetMax(3) = %d, want 5", got)
			}
			if got := c.SetMax("k", 9, expires); got != 9 {
				t.Errorf("SetMax(9) = %d, want 9", got)
			}

			v, ok := c.Get("k")
			if !ok || v != 9 {
				t.Errorf("Get() = %d, %v, want 9, true", v, ok)
			}
		})
	}
}

func TestGetMissing(t *testing.T) {
	clock := &manualClock{now: time.Now()}
	obs := &countingObserver{}

	for name, c := range backends(t, clock, obs) {
		t.Run(name, func(t *testing.T) {
			if v, ok := c.Get("absent"); ok || v != 0 {
				t.Errorf("Get() = %d, %v, want 0, false", v, ok)
			}
		})
	}

	if obs.misses.Load() != 2 {
		t.Errorf("misses = %d, want 2", obs.misses.Load())
	}
}

func TestUpdateCannotLowerValue(t *testing.T) {
	clock := &manualClock{now: time.Now()}
	expires := clock.Now().Add(time.Hour)

	for name, c := range backends(t, clock, nil) {
		t.Run(name, func(t *testing.T) {
			c.SetMax("k", 10, expires)
			got := c.Update("k", expires, func(current int64, ok bool) int64 {
				if !ok || current != 10 {
					t.Errorf("fn(current=%d, ok=%v), want 10, true", current, ok)
				}
				return current - 4
			})
			if got != 10 {
				t.Errorf("Update() = %d, want 10", got)
			}
		})
	}
}

func TestUpdateIsAtomic(t *testing.T) {
	clock := &manualClock{now: time.Now()}
	expires := clock.Now().Add(time.Hour)

	for name, c := range backends(t, clock, nil) {
		t.Run(name, func(t *testing.T) {
			var wg sync.WaitGroup
			for i := 0; i < 100; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					c.Update("counter", expires, func(current int64, _ bool) int64 {
						return current + 1
					})
				}()
			}
			wg.Wait()

			if v, _ := c.Get("counter"); v != 100 {
				t.Errorf("counter = %d, want 100", v)
			}
		})
	}
}

func TestMemoryExpiry(t *testing.T) {
	clock := &manualClock{now: time.Unix(1_000, 0)}
	obs := &countingObserver{}
	c := NewMemory(WithClock(clock.Now), WithObserver(obs))

	reset := clock.Now().Add(10 * time.Second)
	for i := 0; i < 3; i++ {
		c.SetMax(fmt.Sprintf("k%d", i), 1, reset)
	}
	c.SetMax("later", 1, reset.Add(time.Minute))

	clock.Advance(10 * time.Second)

	if _, ok := c.Get("k0"); ok {
		t.Error("Get() returned an entry past its reset time")
	}

	// An expired entry restarts from zero instead of keeping the old maximum.
	got := c.Update("k1", reset.Add(10*time.Second), func(current int64, ok bool) int64 {
		if ok {
			t.Error("Update() saw an expired entry as present")
		}
		return current + 1
	})
	if got != 1 {
		t.Errorf("Update() on expired entry = %d, want 1", got)
	}

	removed := c.Sweep(clock.Now())
	if removed != 2 {
		t.Errorf("Sweep() = %d, want 2", removed)
	}
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}
	if obs.evicted.Load() != 2 {
		t.Errorf("evicted = %d, want 2", obs.evicted.Load())
	}
}

func TestFreeCachePastExpiryIsNotStored(t *testing.T) {
	clock := &manualClock{now: time.Now()}
	c := NewFreeCache(0, WithClock(clock.Now))

	got := c.SetMax("k", 4, clock.Now().Add(-time.Second))
	if got != 4 {
		t.Errorf("SetMax() = %d, want 4", got)
	}
	if _, ok := c.Get("k"); ok {
		t.Error("Get() found an entry stored with a past expiry")
	}
	if c.Sweep(clock.Now()) != 0 {
		t.Error("Sweep() should be a no-op for freecache")
	}
}

func TestFreeCacheLen(t *testing.T) {
	c := NewFreeCache(MinFreeCacheSize)
	expires := time.Now().Add(time.Hour)
	c.SetMax("a", 1, expires)
	c.SetMax("b", 1, expires)

	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}
}
