package node

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"mercator-hq/windowlimit/pkg/coordinator"
)

type fakeIncrementRecorder struct {
	mu       sync.Mutex
	outcomes []string
}

func (f *fakeIncrementRecorder) RecordNodeIncrement(store, outcome string, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outcomes = append(f.outcomes, store+":"+outcome)
}

type erroringStore struct {
	Store
}

func (erroringStore) Increment(context.Context, Increment) (coordinator.Result, error) {
	return coordinator.Result{}, errors.New("disk full")
}

func TestInstrumentRecordsOutcomes(t *testing.T) {
	rec := &fakeIncrementRecorder{}
	now := time.UnixMilli(1_000)
	store := Instrument(NewMemoryStore(func() time.Time { return now }), "memory", rec)
	ctx := context.Background()

	inc := Increment{Key: "k", Cost: 1, Limit: 1, Reset: now.Add(time.Minute)}
	if _, err := store.Increment(ctx, inc); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Increment(ctx, inc); err != nil {
		t.Fatal(err)
	}

	failing := Instrument(erroringStore{}, "broken", rec)
	if _, err := failing.Increment(ctx, inc); err == nil {
		t.Fatal("expected error")
	}

	want := []string{"memory:passed", "memory:rejected", "broken:error"}
	if len(rec.outcomes) != len(want) {
		t.Fatalf("outcomes = %v, want %v", rec.outcomes, want)
	}
	for i := range want {
		if rec.outcomes[i] != want[i] {
			t.Errorf("outcome[%d] = %q, want %q", i, rec.outcomes[i], want[i])
		}
	}
}

func TestInstrumentNilRecorder(t *testing.T) {
	store := NewMemoryStore(nil)
	if got := Instrument(store, "memory", nil); got != Store(store) {
		t.Error("Instrument with nil recorder should return the store unchanged")
	}
}
