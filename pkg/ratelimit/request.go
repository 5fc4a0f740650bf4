package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNoRequests is returned by MultiLimit when given no requests.
var ErrNoRequests = errors.New("ratelimit: no requests")

// Limiter decides whether a request fits in its window.
type Limiter interface {
	Limit(ctx context.Context, req Request) (Response, error)
	MultiLimit(ctx context.Context, reqs []Request) (Response, error)
}

// Request is one rate limit check.
type Request struct {
	// Identifier names the subject being limited (user, key, IP). Required.
	Identifier string

	// Limit is the window capacity. Must be positive.
	Limit int64

	// Interval is the window length. Must be at least one millisecond;
	// only whole milliseconds are used.
	Interval time.Duration

	// Cost is the amount consumed. Zero means 1.
	Cost int64

	// Name identifies the limit that fired when the request is rejected.
	Name string

	// Shard partitions one identifier into independent counters.
	Shard string

	// Async selects the fast, locally answered mode.
	Async bool

	// WorkspaceID and NamespaceID are forwarded to telemetry.
	WorkspaceID string
	NamespaceID string

	// Meta and Resources describe the request for remote backends and
	// logs. They do not affect the decision.
	Meta      map[string]any
	Resources []Resource
}

// Resource is an entity the request touches.
type Resource struct {
	Type string         `json:"type"`
	ID   string         `json:"id"`
	Name string         `json:"name,omitempty"`
	Meta map[string]any `json:"meta,omitempty"`
}

// Response is the outcome of a rate limit check.
type Response struct {
	// Passed reports whether the request was admitted.
	Passed bool

	// Limit echoes the request limit.
	Limit int64

	// Current is the counter the decision was based on.
	Current int64

	// Remaining is Limit minus Current. It can be negative.
	Remaining int64

	// Reset is the window end in unix milliseconds.
	Reset int64

	// Triggered is the request Name when rejected, empty otherwise.
	Triggered string
}

// ValidationError reports an invalid Request.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid rate limit request: %s %s", e.Field, e.Message)
}

// Validate checks the request's fields.
func (r Request) Validate() error {
	if strings.TrimSpace(r.Identifier) == "" {
		return &ValidationError{Field: "identifier", Message: "is required"}
	}
	if r.Limit <= 0 {
		return &ValidationError{Field: "limit", Message: "must be positive"}
	}
	if r.Interval < time.Millisecond {
		return &ValidationError{Field: "interval", Message: "must be at least 1ms"}
	}
	if r.Cost < 0 {
		return &ValidationError{Field: "cost", Message: "must not be negative"}
	}
	return nil
}

// EffectiveCost returns the cost with the default applied.
func (r Request) EffectiveCost() int64 {
	if r.Cost == 0 {
		return 1
	}
	return r.Cost
}

func (r Request) mode() string {
	if r.Async {
		return ModeAsync
	}
	return ModeSync
}

// Consistency modes reported in telemetry.
const (
	ModeSync  = "sync"
	ModeAsync = "async"
)
