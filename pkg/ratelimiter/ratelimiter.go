package ratelimiter

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"mercator-hq/windowlimit/pkg/duration"
	"mercator-hq/windowlimit/pkg/ratelimit"
)

// Response is the result of a check.
type Response struct {
	Success   bool  `json:"success"`
	Limit     int64 `json:"limit"`
	Remaining int64 `json:"remaining"`
	Reset     int64 `json:"reset"`
}

// NamedLimit is one limit in a MultiLimit check. Zero fields take the
// Ratelimiter defaults.
type NamedLimit struct {
	Name     string
	Limit    int64
	Duration string
	Cost     int64
}

// Ratelimiter checks identifiers against a backend with a bounded wait.
type Ratelimiter struct {
	backend ratelimit.Limiter
	logger  *slog.Logger
	now     func() time.Time

	mu       sync.RWMutex
	settings settings
}

// New creates a Ratelimiter.
func New(backend ratelimit.Limiter, opts Options) (*Ratelimiter, error) {
	if backend == nil {
		return nil, fmt.Errorf("ratelimiter requires a backend")
	}
	s, err := opts.settings()
	if err != nil {
		return nil, err
	}

	r := &Ratelimiter{
		backend:  backend,
		logger:   opts.Logger,
		now:      opts.Now,
		settings: s,
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	r.logger = r.logger.With("component", "ratelimiter")
	if r.now == nil {
		r.now = time.Now
	}
	return r, nil
}

// Update replaces the defaults. Checks already in flight keep the settings
// they started with. Logger and clock are not changed.
func (r *Ratelimiter) Update(opts Options) error {
	s, err := opts.settings()
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.settings = s
	r.mu.Unlock()
	return nil
}

func (r *Ratelimiter) snapshot() settings {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.settings
}

// Limit checks identifier against the configured window.
func (r *Ratelimiter) Limit(ctx context.Context, identifier string, opts ...LimitOption) (Response, error) {
	s := r.snapshot()

	// Invalid options are caller errors; OnError only sees backend failures.
	req, err := r.request(s, identifier, NamedLimit{Name: s.namespace}, opts)
	if err != nil {
		return Response{}, err
	}

	resp, err := r.bounded(ctx, s, identifier, func(ctx context.Context) (ratelimit.Response, error) {
		return r.backend.Limit(ctx, req)
	})
	return fromResult(resp), err
}

// MultiLimit checks identifier against several limits at once. The first
// rejection in order wins; see ratelimit.Client.MultiLimit.
func (r *Ratelimiter) MultiLimit(ctx context.Context, identifier string, limits []NamedLimit, opts ...LimitOption) (Response, error) {
	s := r.snapshot()

	reqs := make([]ratelimit.Request, 0, len(limits))
	for _, l := range limits {
		req, err := r.request(s, identifier, l, opts)
		if err != nil {
			return Response{}, err
		}
		reqs = append(reqs, req)
	}

	resp, err := r.bounded(ctx, s, identifier, func(ctx context.Context) (ratelimit.Response, error) {
		return r.backend.MultiLimit(ctx, reqs)
	})
	return fromResult(resp), err
}

// Check runs fully formed requests under the same timeout, fallback and
// error rules as Limit, returning the backend's full result. One request
// uses Limit on the backend, several use MultiLimit.
func (r *Ratelimiter) Check(ctx context.Context, reqs ...ratelimit.Request) (ratelimit.Response, error) {
	s := r.snapshot()
	if len(reqs) == 0 {
		return ratelimit.Response{}, ratelimit.ErrNoRequests
	}

	identifier := reqs[0].Identifier
	return r.bounded(ctx, s, identifier, func(ctx context.Context) (ratelimit.Response, error) {
		if len(reqs) == 1 {
			return r.backend.Limit(ctx, reqs[0])
		}
		return r.backend.MultiLimit(ctx, reqs)
	})
}

// Defaults returns the current default limit, window and namespace.
func (r *Ratelimiter) Defaults() (limit int64, interval time.Duration, namespace string, async bool) {
	s := r.snapshot()
	return s.limit, s.interval, s.namespace, s.async
}

func (r *Ratelimiter) request(s settings, identifier string, l NamedLimit, opts []LimitOption) (ratelimit.Request, error) {
	o := limitOptions{}
	for _, opt := range opts {
		opt(&o)
	}

	req := ratelimit.Request{
		Identifier:  identifier,
		Limit:       s.limit,
		Interval:    s.interval,
		Cost:        1,
		Name:        l.Name,
		Shard:       o.shard,
		Async:       s.async,
		NamespaceID: s.namespace,
		Meta:        o.meta,
		Resources:   o.resources,
	}
	if req.Name == "" {
		req.Name = s.namespace
	}

	if l.Limit > 0 {
		req.Limit = l.Limit
	}
	if o.limit > 0 {
		req.Limit = o.limit
	}

	window := l.Duration
	if o.duration != "" {
		window = o.duration
	}
	if window != "" {
		interval, err := duration.ParseDuration(window)
		if err != nil {
			return ratelimit.Request{}, err
		}
		req.Interval = interval
	}

	if l.Cost > 0 {
		req.Cost = l.Cost
	}
	if o.cost != 0 {
		req.Cost = o.cost
	}
	if o.async != nil {
		req.Async = *o.async
	}
	return req, nil
}

type outcome struct {
	resp ratelimit.Response
	err  error
}

// bounded runs call against the timeout. When the timer fires first, the
// fallback is returned and call is left to finish.
func (r *Ratelimiter) bounded(ctx context.Context, s settings, identifier string, call func(context.Context) (ratelimit.Response, error)) (ratelimit.Response, error) {
	if s.timeout <= 0 {
		resp, err := call(ctx)
		if err != nil {
			return r.handleError(s, identifier, err)
		}
		return resp, nil
	}

	done := make(chan outcome, 1)
	go func() {
		resp, err := call(ctx)
		done <- outcome{resp: resp, err: err}
	}()

	timer := time.NewTimer(s.timeout)
	defer timer.Stop()

	select {
	case o := <-done:
		if o.err != nil {
			return r.handleError(s, identifier, o.err)
		}
		return o.resp, nil
	case <-timer.C:
		r.logger.WarnContext(ctx, "rate limit check timed out, using fallback",
			"identifier", identifier,
			"namespace", s.namespace,
			"timeout", s.timeout,
		)
		return toResult(r.fallback(s)), nil
	case <-ctx.Done():
		return r.handleError(s, identifier, ctx.Err())
	}
}

func (r *Ratelimiter) fallback(s settings) Response {
	if s.fallback != nil {
		return *s.fallback
	}
	return Response{Success: false, Limit: 0, Remaining: 0, Reset: r.now().UnixMilli()}
}

func (r *Ratelimiter) handleError(s settings, identifier string, err error) (ratelimit.Response, error) {
	if s.onError != nil {
		r.logger.Warn("rate limit check failed, using error handler",
			"identifier", identifier,
			"error", err,
		)
		return toResult(s.onError(err, identifier)), nil
	}
	return ratelimit.Response{}, err
}

func fromResult(resp ratelimit.Response) Response {
	return Response{
		Success:   resp.Passed,
		Limit:     resp.Limit,
		Remaining: resp.Remaining,
		Reset:     resp.Reset,
	}
}

func toResult(resp Response) ratelimit.Response {
	return ratelimit.Response{
		Passed:    resp.Success,
		Limit:     resp.Limit,
		Remaining: resp.Remaining,
		Reset:     resp.Reset,
	}
}
