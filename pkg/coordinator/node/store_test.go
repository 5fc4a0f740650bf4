package node

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"mercator-hq/windowlimit/pkg/coordinator"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// storeFactory returns a fresh store and the clock it expires with. Stores
// that expire on the server side return a nil clock.
type storeFactory func(t *testing.T) (Store, *clock)

func factories() map[string]storeFactory {
	return map[string]storeFactory{
		"memory": func(t *testing.T) (Store, *clock) {
			c := &clock{now: time.Now()}
			return NewMemoryStore(c.Now), c
		},
		"sqlite": func(t *testing.T) (Store, *clock) {
			c := &clock{now: time.Now()}
			s, err := NewSQLiteStore(SQLiteConfig{
				Path: filepath.Join(t.TempDir(), "coordinator.db"),
				Now:  c.Now,
			})
			if err != nil {
				t.Fatalf("NewSQLiteStore() error = %v", err)
			}
			t.Cleanup(func() { s.Close() })
			return s, c
		},
		"redis": func(t *testing.T) (Store, *clock) {
			return newRedisTestStore(t), nil
		},
	}
}

func newRedisTestStore(t *testing.T) *RedisStore {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Skipf("redis not available at %s: %v", addr, err)
	}

	prefix := fmt.Sprintf("windowlimit-test:%s:", uuid.NewString())
	s := NewRedisStore(client, WithKeyPrefix(prefix))
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreCountsUpToLimit(t *testing.T) {
	for name, factory := range factories() {
		t.Run(name, func(t *testing.T) {
			store, _ := factory(t)
			ctx := context.Background()
			reset := time.Now().Add(time.Minute)

			for i := int64(1); i <= 3; i++ {
				got, err := store.Increment(ctx, Increment{Key: "k", Cost: 1, Limit: 3, Reset: reset})
				if err != nil {
					t.Fatalf("Increment() error = %v", err)
				}
				if !got.Passed || got.Current != i {
					t.Fatalf("call %d = %+v, want passed current=%d", i, got, i)
				}
			}

			got, err := store.Increment(ctx, Increment{Key: "k", Cost: 1, Limit: 3, Reset: reset})
			if err != nil {
				t.Fatalf("Increment() error = %v", err)
			}
			if got.Passed || got.Current != 3 {
				t.Errorf("over limit = %+v, want rejected current=3", got)
			}
		})
	}
}

func TestStoreRejectionDoesNotCount(t *testing.T) {
	for name, factory := range factories() {
		t.Run(name, func(t *testing.T) {
			store, _ := factory(t)
			ctx := context.Background()
			reset := time.Now().Add(time.Minute)

			store.Increment(ctx, Increment{Key: "k", Cost: 3, Limit: 5, Reset: reset})
			got, _ := store.Increment(ctx, Increment{Key: "k", Cost: 3, Limit: 5, Reset: reset})
			if got.Passed || got.Current != 3 {
				t.Errorf("oversized cost = %+v, want rejected current=3", got)
			}

			got, _ = store.Increment(ctx, Increment{Key: "k", Cost: 2, Limit: 5, Reset: reset})
			if !got.Passed || got.Current != 5 {
				t.Errorf("fitting cost = %+v, want passed current=5", got)
			}
		})
	}
}

func TestStoreIdempotency(t *testing.T) {
	for name, factory := range factories() {
		t.Run(name, func(t *testing.T) {
			store, _ := factory(t)
			ctx := context.Background()
			inc := Increment{Key: "k", IdempotencyKey: "req-1", Cost: 1, Limit: 10, Reset: time.Now().Add(time.Minute)}

			first, err := store.Increment(ctx, inc)
			if err != nil {
				t.Fatalf("Increment() error = %v", err)
			}
			replay, err := store.Increment(ctx, inc)
			if err != nil {
				t.Fatalf("Increment() replay error = %v", err)
			}
			if replay != first {
				t.Errorf("replay = %+v, want %+v", replay, first)
			}

			inc.IdempotencyKey = "req-2"
			next, _ := store.Increment(ctx, inc)
			if next.Current != 2 {
				t.Errorf("new key Current = %d, want 2", next.Current)
			}
		})
	}
}

func TestStoreExpiry(t *testing.T) {
	for _, name := range []string{"memory", "sqlite"} {
		t.Run(name, func(t *testing.T) {
			store, c := factories()[name](t)
			ctx := context.Background()
			reset := c.Now().Add(10 * time.Second)

			store.Increment(ctx, Increment{Key: "k", IdempotencyKey: "a", Cost: 2, Limit: 2, Reset: reset})
			store.Increment(ctx, Increment{Key: "other", Cost: 1, Limit: 2, Reset: reset.Add(time.Minute)})

			c.Advance(10 * time.Second)

			got, err := store.Increment(ctx, Increment{Key: "k", IdempotencyKey: "a", Cost: 1, Limit: 2, Reset: reset.Add(10 * time.Second)})
			if err != nil {
				t.Fatalf("Increment() error = %v", err)
			}
			if !got.Passed || got.Current != 1 {
				t.Errorf("after reset = %+v, want a fresh counter", got)
			}

			c.Advance(10 * time.Second)
			if removed := store.Sweep(c.Now()); removed != 1 {
				t.Errorf("Sweep() = %d, want 1", removed)
			}
			if err := store.Ping(ctx); err != nil {
				t.Errorf("Ping() error = %v", err)
			}
		})
	}
}

func TestStoreConcurrentIncrements(t *testing.T) {
	for name, factory := range factories() {
		t.Run(name, func(t *testing.T) {
			store, _ := factory(t)
			ctx := context.Background()
			reset := time.Now().Add(time.Minute)

			var wg sync.WaitGroup
			var mu sync.Mutex
			passed := 0
			for i := 0; i < 40; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					got, err := store.Increment(ctx, Increment{Key: "hot", Cost: 1, Limit: 25, Reset: reset})
					if err != nil {
						t.Errorf("Increment() error = %v", err)
						return
					}
					if got.Passed {
						mu.Lock()
						passed++
						mu.Unlock()
					}
				}()
			}
			wg.Wait()

			if passed != 25 {
				t.Errorf("passed = %d, want 25", passed)
			}
		})
	}
}

func TestNewSQLiteStoreRequiresPath(t *testing.T) {
	if _, err := NewSQLiteStore(SQLiteConfig{}); err == nil {
		t.Error("NewSQLiteStore() expected error for empty path")
	}
}

func TestSQLiteStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persist.db")
	reset := time.Now().Add(time.Minute)

	s1, err := NewSQLiteStore(SQLiteConfig{Path: path})
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	s1.Increment(context.Background(), Increment{Key: "k", Cost: 4, Limit: 10, Reset: reset})
	if err := s1.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	s2, err := NewSQLiteStore(SQLiteConfig{Path: path})
	if err != nil {
		t.Fatalf("NewSQLiteStore() reopen error = %v", err)
	}
	defer s2.Close()

	got, _ := s2.Increment(context.Background(), Increment{Key: "k", Cost: 1, Limit: 10, Reset: reset})
	if got.Current != 5 {
		t.Errorf("Current after reopen = %d, want 5", got.Current)
	}
}

var errStore = errors.New("store down")

type failingStore struct{}

func (failingStore) Increment(context.Context, Increment) (coordinator.Result, error) {
	return coordinator.Result{}, errStore
}

func (failingStore) Ping(context.Context) error { return errStore }
func (failingStore) Sweep(time.Time) int        { return 0 }
func (failingStore) Close() error               { return nil }
