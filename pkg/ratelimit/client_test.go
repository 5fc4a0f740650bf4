package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"mercator-hq/windowlimit/pkg/coordinator"
	"mercator-hq/windowlimit/pkg/ratelimit/cache"
)

type testEnv struct {
	client *Client
	coord  *fakeCoordinator
	sink   *recordingSink
	clock  *fixedClock
	tasks  *TaskGroup
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		coord: newFakeCoordinator(),
		sink:  &recordingSink{},
		clock: &fixedClock{now: time.UnixMilli(1_700_000_003_000)},
		tasks: NewTaskGroup(nil),
	}

	client, err := New(Config{
		Coordinator: env.coord,
		Cache:       cache.NewMemory(cache.WithClock(env.clock.Now)),
		Sink:        env.sink,
		Background:  env.tasks,
		Now:         env.clock.Now,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	env.client = client
	return env
}

func (e *testEnv) wait(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.client.Flush(ctx); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
}

// ============================================================================
// Synchronous mode
// ============================================================================

func TestLimitSequentialCalls(t *testing.T) {
	env := newTestEnv(t)
	req := Request{Identifier: "user-1", Limit: 10, Interval: 10 * time.Second}

	for i := int64(1); i <= 10; i++ {
		resp, err := env.client.Limit(context.Background(), req)
		if err != nil {
			t.Fatalf("call %d: Limit() error = %v", i, err)
		}
		if !resp.Passed || resp.Current != i || resp.Remaining != 10-i {
			t.Fatalf("call %d: got %+v, want passed current=%d remaining=%d", i, resp, i, 10-i)
		}
	}

	resp, err := env.client.Limit(context.Background(), req)
	if err != nil {
		t.Fatalf("call 11: Limit() error = %v", err)
	}
	if resp.Passed || resp.Current != 10 || resp.Remaining != 0 {
		t.Errorf("call 11: got %+v, want rejected current=10 remaining=0", resp)
	}

	if env.coord.callCount() != 10 {
		t.Errorf("coordinator calls = %d, want 10 (11th rejected locally)", env.coord.callCount())
	}

	events := env.sink.latency()
	if len(events) != 11 {
		t.Fatalf("latency events = %d, want 11", len(events))
	}
	last := events[10]
	if !last.FastReject || last.Outcome != OutcomeRejected || last.Mode != ModeSync {
		t.Errorf("last latency event = %+v", last)
	}
}

func TestLimitResetIsWindowBoundary(t *testing.T) {
	env := newTestEnv(t)

	for _, interval := range []time.Duration{time.Millisecond, 7 * time.Millisecond, time.Second, time.Minute, 24 * time.Hour} {
		resp, err := env.client.Limit(context.Background(), Request{
			Identifier: "reset-check",
			Limit:      1000,
			Interval:   interval,
		})
		if err != nil {
			t.Fatalf("Limit(%v) error = %v", interval, err)
		}
		ms := interval.Milliseconds()
		if resp.Reset%ms != 0 {
			t.Errorf("Reset %d not a multiple of %d", resp.Reset, ms)
		}
		now := env.clock.Now().UnixMilli()
		if resp.Reset <= now || resp.Reset > now+ms {
			t.Errorf("Reset %d outside (now, now+interval] for interval %v", resp.Reset, interval)
		}
	}
}

func TestLimitTriggered(t *testing.T) {
	env := newTestEnv(t)
	req := Request{Identifier: "user-1", Limit: 1, Interval: time.Second, Name: "burst"}

	resp, _ := env.client.Limit(context.Background(), req)
	if !resp.Passed || resp.Triggered != "" {
		t.Errorf("first call = %+v, want passed with no trigger", resp)
	}

	resp, _ = env.client.Limit(context.Background(), req)
	if resp.Passed || resp.Triggered != "burst" {
		t.Errorf("second call = %+v, want rejected by burst", resp)
	}
}

func TestLimitCoordinatorRejection(t *testing.T) {
	env := newTestEnv(t)
	req := Request{Identifier: "heavy", Limit: 5, Interval: time.Minute, Cost: 4, Name: "tokens"}

	if resp, _ := env.client.Limit(context.Background(), req); !resp.Passed {
		t.Fatalf("first call rejected: %+v", resp)
	}

	resp, err := env.client.Limit(context.Background(), req)
	if err != nil {
		t.Fatalf("Limit() error = %v", err)
	}
	if resp.Passed || resp.Current != 4 || resp.Triggered != "tokens" {
		t.Errorf("second call = %+v, want coordinator rejection at current=4", resp)
	}
	if env.coord.callCount() != 2 {
		t.Errorf("coordinator calls = %d, want 2", env.coord.callCount())
	}
}

func TestLimitWindowsAreIndependent(t *testing.T) {
	env := newTestEnv(t)
	req := Request{Identifier: "user-1", Limit: 1, Interval: time.Second}

	env.client.Limit(context.Background(), req)
	if resp, _ := env.client.Limit(context.Background(), req); resp.Passed {
		t.Fatal("second call in the same window passed")
	}

	env.clock.Advance(time.Second)
	if resp, _ := env.client.Limit(context.Background(), req); !resp.Passed {
		t.Errorf("first call in the next window rejected: %+v", resp)
	}

	// Shards and triggers map to separate counters.
	for _, r := range []Request{
		{Identifier: "user-1", Limit: 1, Interval: time.Second, Shard: "eu"},
		{Identifier: "user-1", Limit: 1, Interval: time.Second, Name: "other"},
	} {
		if resp, _ := env.client.Limit(context.Background(), r); !resp.Passed {
			t.Errorf("Limit(%+v) rejected, want separate counter", r)
		}
	}
}

func TestLimitTransportError(t *testing.T) {
	env := newTestEnv(t)
	env.coord.err = &coordinator.TransportError{Identifier: "user-1", Attempts: 2, Cause: errUnavailable}

	_, err := env.client.Limit(context.Background(), Request{Identifier: "user-1", Limit: 5, Interval: time.Second})
	var transportErr *coordinator.TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("Limit() error = %v, want *coordinator.TransportError", err)
	}
	if !errors.Is(err, errUnavailable) {
		t.Error("error should wrap the transport cause")
	}
	if env.client.Cache().Len() != 0 {
		t.Errorf("cache entries = %d, want 0 after failure", env.client.Cache().Len())
	}

	events := env.sink.latency()
	if len(events) != 1 || events[0].Outcome != OutcomeError {
		t.Errorf("latency events = %+v, want one error outcome", events)
	}
}

func TestLimitCacheNeverDecreases(t *testing.T) {
	env := newTestEnv(t)
	req := Request{Identifier: "user-1", Limit: 100, Interval: time.Minute}
	window := WindowAt(env.clock.Now(), req.Interval)
	key := KeyFor(req, window).String()

	env.client.Cache().SetMax(key, 50, window.ResetTime())
	env.coord.override = &coordinator.Result{Current: 3, Passed: true}

	resp, err := env.client.Limit(context.Background(), req)
	if err != nil {
		t.Fatalf("Limit() error = %v", err)
	}
	if resp.Current != 3 {
		t.Errorf("Current = %d, want the coordinator value 3", resp.Current)
	}
	if v, _ := env.client.Cache().Get(key); v != 50 {
		t.Errorf("cache = %d, want 50", v)
	}
}

func TestLimitValidation(t *testing.T) {
	env := newTestEnv(t)
	tests := []struct {
		name  string
		req   Request
		field string
	}{
		{"missing identifier", Request{Limit: 1, Interval: time.Second}, "identifier"},
		{"zero limit", Request{Identifier: "a", Interval: time.Second}, "limit"},
		{"sub-millisecond interval", Request{Identifier: "a", Limit: 1, Interval: time.Microsecond}, "interval"},
		{"negative cost", Request{Identifier: "a", Limit: 1, Interval: time.Second, Cost: -1}, "cost"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.client.Limit(context.Background(), tt.req)
			var validationErr *ValidationError
			if !errors.As(err, &validationErr) {
				t.Fatalf("Limit() error = %v, want *ValidationError", err)
			}
			if validationErr.Field != tt.field {
				t.Errorf("Field = %q, want %q", validationErr.Field, tt.field)
			}
		})
	}

	if env.coord.callCount() != 0 {
		t.Error("invalid requests reached the coordinator")
	}
}

func TestNewRequiresCoordinator(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("New() expected error without coordinator")
	}
}

// ============================================================================
// Asynchronous mode
// ============================================================================

func TestLimitAsyncAnswersBeforeCoordinator(t *testing.T) {
	env := newTestEnv(t)
	env.coord.block = make(chan struct{})
	req := Request{Identifier: "fast", Limit: 3, Interval: time.Minute, Cost: 2, Async: true}

	resp, err := env.client.Limit(context.Background(), req)
	if err != nil {
		t.Fatalf("Limit() error = %v", err)
	}
	if !resp.Passed || resp.Current != 2 || resp.Remaining != 1 {
		t.Errorf("Limit() = %+v, want passed current=2 remaining=1", resp)
	}
	if env.tasks.Pending() != 1 {
		t.Errorf("pending tasks = %d, want 1", env.tasks.Pending())
	}

	// The optimistic increment is visible to the next call.
	resp, _ = env.client.Limit(context.Background(), req)
	if resp.Passed || resp.Current != 2 {
		t.Errorf("second call = %+v, want local rejection at current=2", resp)
	}

	close(env.coord.block)
	env.wait(t)

	accuracy := env.sink.accuracy()
	if len(accuracy) != 2 {
		t.Fatalf("accuracy events = %d, want 2", len(accuracy))
	}
	for _, ev := range accuracy {
		if ev.Identifier != "fast" || ev.Cost != 2 || ev.Limit != 3 {
			t.Errorf("accuracy event = %+v", ev)
		}
	}
}

func TestLimitAsyncAccuracy(t *testing.T) {
	env := newTestEnv(t)
	req := Request{Identifier: "acc", Limit: 10, Interval: time.Minute, Async: true}

	// Another process already spent most of the window.
	env.coord.override = &coordinator.Result{Current: 10, Passed: false}

	resp, err := env.client.Limit(context.Background(), req)
	if err != nil {
		t.Fatalf("Limit() error = %v", err)
	}
	if !resp.Passed {
		t.Fatal("optimistic answer should pass on an empty cache")
	}
	env.wait(t)

	accuracy := env.sink.accuracy()
	if len(accuracy) != 1 {
		t.Fatalf("accuracy events = %d, want 1", len(accuracy))
	}
	ev := accuracy[0]
	if !ev.LocalPassed || ev.RemotePassed || ev.Match() {
		t.Errorf("accuracy = %+v, want local pass and remote reject", ev)
	}
	if ev.LocalCurrent != 0 || ev.RemoteCurrent != 10 {
		t.Errorf("accuracy currents = %d/%d, want 0/10", ev.LocalCurrent, ev.RemoteCurrent)
	}

	window := WindowAt(env.clock.Now(), req.Interval)
	if v, _ := env.client.Cache().Get(KeyFor(req, window).String()); v != 10 {
		t.Errorf("cache = %d, want reconciled 10", v)
	}

	// With the cache reconciled, the next call is a fast reject.
	resp, _ = env.client.Limit(context.Background(), req)
	if resp.Passed {
		t.Error("call after reconciliation passed, want fast reject")
	}
}

func TestLimitAsyncTransportFailure(t *testing.T) {
	env := newTestEnv(t)
	env.coord.err = errUnavailable

	resp, err := env.client.Limit(context.Background(), Request{
		Identifier: "user-9",
		Limit:      5,
		Interval:   time.Second,
		Async:      true,
	})
	if err != nil {
		t.Fatalf("Limit() error = %v, want errors kept in the background", err)
	}
	if !resp.Passed {
		t.Errorf("Limit() = %+v, want optimistic pass", resp)
	}
	env.wait(t)

	errs := env.sink.errors()
	if len(errs) != 1 || !errors.Is(errs[0].Err, errUnavailable) || errs[0].Identifier != "user-9" {
		t.Errorf("error events = %+v", errs)
	}
	if len(env.sink.accuracy()) != 0 {
		t.Error("no accuracy event expected for a failed reconciliation")
	}
}

func TestLimitAsyncSurvivesRequestCancellation(t *testing.T) {
	env := newTestEnv(t)
	env.coord.block = make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	if _, err := env.client.Limit(ctx, Request{Identifier: "u", Limit: 5, Interval: time.Second, Async: true}); err != nil {
		t.Fatalf("Limit() error = %v", err)
	}
	cancel()
	close(env.coord.block)
	env.wait(t)

	if env.coord.callCount() != 1 {
		t.Errorf("coordinator calls = %d, want 1", env.coord.callCount())
	}
	if len(env.sink.errors()) != 0 {
		t.Errorf("error events = %+v, want none", env.sink.errors())
	}
}

// ============================================================================
// MultiLimit
// ============================================================================

func TestMultiLimitReturnsFirstFailureInOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	exhaust := func(name string) {
		env.client.Limit(ctx, Request{Identifier: "team", Name: name, Limit: 1, Interval: time.Minute})
	}
	exhaust("b")
	exhaust("c")

	resp, err := env.client.MultiLimit(ctx, []Request{
		{Identifier: "team", Name: "a", Limit: 5, Interval: time.Minute},
		{Identifier: "team", Name: "b", Limit: 1, Interval: time.Minute},
		{Identifier: "team", Name: "c", Limit: 1, Interval: time.Minute},
	})
	if err != nil {
		t.Fatalf("MultiLimit() error = %v", err)
	}
	if resp.Passed || resp.Triggered != "b" {
		t.Errorf("MultiLimit() = %+v, want rejection by b", resp)
	}

	// The passing limit still spent its cost.
	window := WindowAt(env.clock.Now(), time.Minute)
	key := KeyFor(Request{Identifier: "team", Name: "a"}, window).String()
	if v, _ := env.client.Cache().Get(key); v != 1 {
		t.Errorf("limit a counter = %d, want 1", v)
	}
}

func TestMultiLimitAllPass(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.client.MultiLimit(context.Background(), []Request{
		{Identifier: "u", Name: "first", Limit: 10, Interval: time.Second},
		{Identifier: "u", Name: "second", Limit: 20, Interval: time.Minute},
	})
	if err != nil {
		t.Fatalf("MultiLimit() error = %v", err)
	}
	if !resp.Passed || resp.Limit != 10 {
		t.Errorf("MultiLimit() = %+v, want the first response", resp)
	}
}

func TestMultiLimitErrors(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.client.MultiLimit(context.Background(), nil); !errors.Is(err, ErrNoRequests) {
		t.Errorf("MultiLimit(nil) error = %v, want ErrNoRequests", err)
	}

	_, err := env.client.MultiLimit(context.Background(), []Request{
		{Identifier: "u", Limit: 1, Interval: time.Second},
		{Identifier: "", Limit: 1, Interval: time.Second},
	})
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Errorf("MultiLimit() error = %v, want *ValidationError", err)
	}
}

// ============================================================================
// Noop
// ============================================================================

func TestNoop(t *testing.T) {
	var l Limiter = Noop{}

	resp, err := l.Limit(context.Background(), Request{})
	if err != nil {
		t.Fatalf("Limit() error = %v", err)
	}
	if resp != (Response{Passed: true}) {
		t.Errorf("Limit() = %+v, want {Passed:true}", resp)
	}

	resp, _ = l.MultiLimit(context.Background(), []Request{{Identifier: "x"}})
	if !resp.Passed || resp.Reset != 0 {
		t.Errorf("MultiLimit() = %+v", resp)
	}
}
