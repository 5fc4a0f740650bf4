package node

import (
	"context"
	"time"

	"mercator-hq/windowlimit/pkg/coordinator"
)

// Store holds window counters.
type Store interface {
	// Increment admits cost against key when it fits in limit. A non-empty
	// idempotencyKey already seen for an unexpired window returns the
	// stored result unchanged.
	Increment(ctx context.Context, inc Increment) (coordinator.Result, error)

	// Ping checks that the store is reachable.
	Ping(ctx context.Context) error

	// Sweep removes state for windows that reset at or before now.
	Sweep(now time.Time) int

	// Close releases the store's resources.
	Close() error
}

// Increment is one counting request.
type Increment struct {
	Key            string
	IdempotencyKey string
	Cost           int64
	Limit          int64
	Reset          time.Time
}

// admit applies the counting rule to a current value.
func admit(current int64, inc Increment) coordinator.Result {
	if current+inc.Cost > inc.Limit {
		return coordinator.Result{Current: current, Passed: false}
	}
	return coordinator.Result{Current: current + inc.Cost, Passed: true}
}
