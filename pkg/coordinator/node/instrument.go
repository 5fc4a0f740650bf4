package node

import (
	"context"
	"time"

	"mercator-hq/windowlimit/pkg/coordinator"
)

// IncrementRecorder receives one observation per Increment.
type IncrementRecorder interface {
	RecordNodeIncrement(store, outcome string, d time.Duration)
}

// Increment outcomes passed to IncrementRecorder.
const (
	OutcomePassed   = "passed"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

type instrumentedStore struct {
	Store
	name     string
	recorder IncrementRecorder
}

// Instrument reports every Increment on store to recorder under name.
// A nil recorder returns store unchanged.
func Instrument(store Store, name string, recorder IncrementRecorder) Store {
	if recorder == nil {
		return store
	}
	return &instrumentedStore{Store: store, name: name, recorder: recorder}
}

func (s *instrumentedStore) Increment(ctx context.Context, inc Increment) (coordinator.Result, error) {
	start := time.Now()
	result, err := s.Store.Increment(ctx, inc)

	outcome := OutcomeRejected
	switch {
	case err != nil:
		outcome = OutcomeError
	case result.Passed:
		outcome = OutcomePassed
	}
	s.recorder.RecordNodeIncrement(s.name, outcome, time.Since(start))
	return result, err
}
