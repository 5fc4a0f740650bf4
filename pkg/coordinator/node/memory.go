package node

import (
	"context"
	"sync"
	"time"

	"mercator-hq/windowlimit/pkg/coordinator"
)

type counter struct {
	value     int64
	expiresAt time.Time
}

type reply struct {
	result    coordinator.Result
	expiresAt time.Time
}

// MemoryStore keeps counters in process memory.
type MemoryStore struct {
	mu       sync.Mutex
	counters map[string]counter
	replies  map[string]reply
	now      func() time.Time
}

// NewMemoryStore creates a MemoryStore. A nil clock means time.Now.
func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{
		counters: make(map[string]counter),
		replies:  make(map[string]reply),
		now:      now,
	}
}

// Increment implements Store.
func (s *MemoryStore) Increment(_ context.Context, inc Increment) (coordinator.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	replyKey := inc.Key + "\x00" + inc.IdempotencyKey
	if inc.IdempotencyKey != "" {
		if r, ok := s.replies[replyKey]; ok && now.Before(r.expiresAt) {
			return r.result, nil
		}
	}

	c := s.counters[inc.Key]
	if !now.Before(c.expiresAt) {
		c = counter{}
	}

	result := admit(c.value, inc)
	if result.Passed {
		s.counters[inc.Key] = counter{value: result.Current, expiresAt: inc.Reset}
	}
	if inc.IdempotencyKey != "" {
		s.replies[replyKey] = reply{result: result, expiresAt: inc.Reset}
	}
	return result, nil
}

// Ping implements Store.
func (s *MemoryStore) Ping(context.Context) error { return nil }

// Sweep implements Store.
func (s *MemoryStore) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, c := range s.counters {
		if !now.Before(c.expiresAt) {
			delete(s.counters, key)
			removed++
		}
	}
	for key, r := range s.replies {
		if !now.Before(r.expiresAt) {
			delete(s.replies, key)
		}
	}
	return removed
}

// Len returns the number of stored counters.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.counters)
}

// Close implements Store.
func (s *MemoryStore) Close() error { return nil }
