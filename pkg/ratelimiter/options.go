package ratelimiter

import (
	"fmt"
	"log/slog"
	"time"

	"mercator-hq/windowlimit/pkg/duration"
	"mercator-hq/windowlimit/pkg/ratelimit"
)

// DefaultTimeout bounds checks when Options.Timeout is nil.
const DefaultTimeout = 5 * time.Second

// DefaultNamespace is used when Options.Namespace is empty.
const DefaultNamespace = "default"

// Options configures a Ratelimiter.
type Options struct {
	// Limit is the default window capacity. Required.
	Limit int64

	// Duration is the window length, such as "10s" or "1 m". Required.
	Duration string

	// Namespace groups limits. It becomes the request trigger name, so a
	// rejection reports which namespace fired.
	// Default: "default"
	Namespace string

	// Timeout bounds each check. Nil means DefaultTimeout with the default
	// fallback.
	Timeout *TimeoutPolicy

	// OnError turns backend errors into responses. Optional.
	OnError func(err error, identifier string) Response

	// Async selects the fast mode by default.
	Async bool

	// Logger. Default: slog.Default().
	Logger *slog.Logger

	// Now is the clock for fallback reset times. Default: time.Now.
	Now func() time.Time
}

// TimeoutPolicy bounds how long a check may take.
type TimeoutPolicy struct {
	// Disabled turns the bound off.
	Disabled bool

	// Duration is the bound. Zero means DefaultTimeout.
	Duration time.Duration

	// Fallback is returned when the bound is hit. Nil means
	// {Success: false, Limit: 0, Remaining: 0, Reset: now}.
	Fallback *Response
}

// NoTimeout returns a policy that waits for the backend.
func NoTimeout() *TimeoutPolicy {
	return &TimeoutPolicy{Disabled: true}
}

// settings is the validated form of Options.
type settings struct {
	limit     int64
	interval  time.Duration
	namespace string
	timeout   time.Duration
	fallback  *Response
	onError   func(error, string) Response
	async     bool
}

func (o Options) settings() (settings, error) {
	if o.Limit <= 0 {
		return settings{}, fmt.Errorf("limit must be positive, got %d", o.Limit)
	}
	interval, err := duration.ParseDuration(o.Duration)
	if err != nil {
		return settings{}, fmt.Errorf("invalid duration: %w", err)
	}
	if interval < time.Millisecond {
		return settings{}, fmt.Errorf("duration must be at least 1ms, got %q", o.Duration)
	}

	s := settings{
		limit:     o.Limit,
		interval:  interval,
		namespace: o.Namespace,
		timeout:   DefaultTimeout,
		onError:   o.OnError,
		async:     o.Async,
	}
	if s.namespace == "" {
		s.namespace = DefaultNamespace
	}
	if t := o.Timeout; t != nil {
		switch {
		case t.Disabled:
			s.timeout = 0
		case t.Duration < 0:
			return settings{}, fmt.Errorf("timeout must not be negative, got %v", t.Duration)
		case t.Duration > 0:
			s.timeout = t.Duration
		}
		s.fallback = t.Fallback
	}
	return s, nil
}

// LimitOption adjusts a single check.
type LimitOption func(*limitOptions)

type limitOptions struct {
	cost      int64
	limit     int64
	duration  string
	async     *bool
	shard     string
	meta      map[string]any
	resources []ratelimit.Resource
}

// WithCost sets how much of the window the check consumes. Default: 1.
func WithCost(cost int64) LimitOption {
	return func(o *limitOptions) { o.cost = cost }
}

// WithLimit overrides the window capacity for this check.
func WithLimit(limit int64) LimitOption {
	return func(o *limitOptions) { o.limit = limit }
}

// WithDuration overrides the window length for this check.
func WithDuration(d string) LimitOption {
	return func(o *limitOptions) { o.duration = d }
}

// WithAsync overrides the consistency mode for this check.
func WithAsync(async bool) LimitOption {
	return func(o *limitOptions) { o.async = &async }
}

// WithShard counts this check against a separate shard of the identifier.
func WithShard(shard string) LimitOption {
	return func(o *limitOptions) { o.shard = shard }
}

// WithMeta attaches metadata forwarded to the backend.
func WithMeta(meta map[string]any) LimitOption {
	return func(o *limitOptions) { o.meta = meta }
}

// WithResources attaches the resources the check is about.
func WithResources(resources ...ratelimit.Resource) LimitOption {
	return func(o *limitOptions) { o.resources = append(o.resources, resources...) }
}
