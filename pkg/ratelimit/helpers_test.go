package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"

	"mercator-hq/windowlimit/pkg/coordinator"
)

// fakeCoordinator counts like the reference coordinator: a call is admitted
// when current+cost fits in the limit.
type fakeCoordinator struct {
	mu       sync.Mutex
	counters map[string]int64
	calls    int
	err      error
	override *coordinator.Result
	block    chan struct{}
}

func newFakeCoordinator() *fakeCoordinator {
	return &fakeCoordinator{counters: make(map[string]int64)}
}

func (f *fakeCoordinator) Call(ctx context.Context, call coordinator.Call) (coordinator.Result, error) {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return coordinator.Result{}, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return coordinator.Result{}, f.err
	}
	if f.override != nil {
		return *f.override, nil
	}

	current := f.counters[call.ObjectName]
	if current+call.Cost > call.Limit {
		return coordinator.Result{Current: current, Passed: false}, nil
	}
	current += call.Cost
	f.counters[call.ObjectName] = current
	return coordinator.Result{Current: current, Passed: true}, nil
}

func (f *fakeCoordinator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *recordingSink) Emit(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func (s *recordingSink) Flush(context.Context) error { return nil }

func (s *recordingSink) latency() []LatencyEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []LatencyEvent
	for _, e := range s.events {
		if ev, ok := e.(LatencyEvent); ok {
			out = append(out, ev)
		}
	}
	return out
}

func (s *recordingSink) accuracy() []AccuracyEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []AccuracyEvent
	for _, e := range s.events {
		if ev, ok := e.(AccuracyEvent); ok {
			out = append(out, ev)
		}
	}
	return out
}

func (s *recordingSink) errors() []ErrorEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []ErrorEvent
	for _, e := range s.events {
		if ev, ok := e.(ErrorEvent); ok {
			out = append(out, ev)
		}
	}
	return out
}

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

var errUnavailable = errors.New("coordinator unavailable")
