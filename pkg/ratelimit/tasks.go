package ratelimit

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
)

// Background runs work that must outlive the request that started it.
type Background interface {
	// Go runs fn on a context that carries ctx's values but not its
	// cancellation.
	Go(ctx context.Context, fn func(ctx context.Context))
}

// TaskGroup is a Background that tracks pending work so a host can wait
// for it before shutting down.
type TaskGroup struct {
	wg      sync.WaitGroup
	pending atomic.Int64
	logger  *slog.Logger
}

// NewTaskGroup creates an empty TaskGroup.
func NewTaskGroup(logger *slog.Logger) *TaskGroup {
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskGroup{logger: logger.With("component", "ratelimit.tasks")}
}

// Go implements Background. A panicking task is logged and does not take
// the process down.
func (g *TaskGroup) Go(ctx context.Context, fn func(ctx context.Context)) {
	detached := context.WithoutCancel(ctx)

	g.wg.Add(1)
	g.pending.Add(1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				g.logger.Error("background task panicked",
					"panic", r,
					"stack", string(debug.Stack()),
				)
			}
			g.pending.Add(-1)
			g.wg.Done()
		}()
		fn(detached)
	}()
}

// Pending returns the number of tasks still running.
func (g *TaskGroup) Pending() int {
	return int(g.pending.Load())
}

// Wait blocks until every task finishes or ctx is done.
func (g *TaskGroup) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
