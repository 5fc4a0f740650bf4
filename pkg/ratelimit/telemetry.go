package ratelimit

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Outcomes reported in LatencyEvent.
const (
	OutcomePassed   = "passed"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// Event is a telemetry record emitted by the Client.
type Event interface {
	EventName() string
}

// LatencyEvent is emitted once per Limit call.
type LatencyEvent struct {
	Time        time.Time
	Identifier  string
	Mode        string
	Outcome     string
	Latency     time.Duration
	FastReject  bool
	WorkspaceID string
	NamespaceID string
}

// EventName implements Event.
func (LatencyEvent) EventName() string { return "ratelimit.latency" }

// AccuracyEvent compares an asynchronous local decision with the
// coordinator's answer.
type AccuracyEvent struct {
	Time          time.Time
	Identifier    string
	LocalCurrent  int64
	RemoteCurrent int64
	Cost          int64
	Limit         int64
	LocalPassed   bool
	RemotePassed  bool
	WorkspaceID   string
	NamespaceID   string
}

// EventName implements Event.
func (AccuracyEvent) EventName() string { return "ratelimit.accuracy" }

// Match reports whether both sides reached the same decision.
func (e AccuracyEvent) Match() bool { return e.LocalPassed == e.RemotePassed }

// ErrorEvent is emitted when background work fails.
type ErrorEvent struct {
	Time        time.Time
	Identifier  string
	Stage       string
	Err         error
	WorkspaceID string
	NamespaceID string
}

// EventName implements Event.
func (ErrorEvent) EventName() string { return "ratelimit.error" }

// Sink receives telemetry events. Emit must not block on I/O.
type Sink interface {
	Emit(Event)
	Flush(ctx context.Context) error
}

// NoopSink discards events.
type NoopSink struct{}

// Emit implements Sink.
func (NoopSink) Emit(Event) {}

// Flush implements Sink.
func (NoopSink) Flush(context.Context) error { return nil }

// LogSink writes events to a logger at debug level, and error events at
// error level.
type LogSink struct {
	Logger *slog.Logger
}

// Emit implements Sink.
func (s LogSink) Emit(e Event) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}

	switch ev := e.(type) {
	case LatencyEvent:
		logger.Debug(ev.EventName(),
			"identifier", ev.Identifier,
			"mode", ev.Mode,
			"outcome", ev.Outcome,
			"latency_ms", float64(ev.Latency.Microseconds())/1000,
			"fast_reject", ev.FastReject,
			"workspace_id", ev.WorkspaceID,
			"namespace_id", ev.NamespaceID,
		)
	case AccuracyEvent:
		logger.Debug(ev.EventName(),
			"identifier", ev.Identifier,
			"local_passed", ev.LocalPassed,
			"remote_passed", ev.RemotePassed,
			"local_current", ev.LocalCurrent,
			"remote_current", ev.RemoteCurrent,
			"match", ev.Match(),
		)
	case ErrorEvent:
		logger.Error(ev.EventName(),
			"identifier", ev.Identifier,
			"stage", ev.Stage,
			"error", ev.Err,
		)
	default:
		logger.Debug(e.EventName())
	}
}

// Flush implements Sink.
func (LogSink) Flush(context.Context) error { return nil }

// MultiSink fans events out to several sinks.
type MultiSink []Sink

// Emit implements Sink.
func (m MultiSink) Emit(e Event) {
	for _, s := range m {
		s.Emit(e)
	}
}

// Flush implements Sink. It flushes every sink and joins their errors.
func (m MultiSink) Flush(ctx context.Context) error {
	var errs []error
	for _, s := range m {
		if err := s.Flush(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
