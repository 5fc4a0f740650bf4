package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"mercator-hq/windowlimit/pkg/coordinator"
	"mercator-hq/windowlimit/pkg/ratelimit/cache"
)

// Coordinator sends increment calls to the authoritative node.
// *coordinator.HTTPTransport implements it.
type Coordinator interface {
	Call(ctx context.Context, call coordinator.Call) (coordinator.Result, error)
}

// Config configures a Client.
type Config struct {
	// Coordinator is required.
	Coordinator Coordinator

	// Cache holds local window counters. Default: cache.NewMemory().
	Cache cache.Cache

	// Sink receives telemetry. Default: NoopSink.
	Sink Sink

	// Background runs asynchronous reconciliation. Default: a new TaskGroup.
	Background Background

	// Logger. Default: slog.Default().
	Logger *slog.Logger

	// Tracer. Default: the global tracer provider.
	Tracer trace.Tracer

	// Now is the clock used for window arithmetic. Default: time.Now.
	Now func() time.Time
}

// Client is a Limiter backed by a coordinator and a local cache.
type Client struct {
	coordinator Coordinator
	cache       cache.Cache
	sink        Sink
	background  Background
	logger      *slog.Logger
	tracer      trace.Tracer
	now         func() time.Time
}

var _ Limiter = (*Client)(nil)

// New creates a Client.
func New(cfg Config) (*Client, error) {
	if cfg.Coordinator == nil {
		return nil, fmt.Errorf("ratelimit client requires a coordinator")
	}

	c := &Client{
		coordinator: cfg.Coordinator,
		cache:       cfg.Cache,
		sink:        cfg.Sink,
		background:  cfg.Background,
		logger:      cfg.Logger,
		tracer:      cfg.Tracer,
		now:         cfg.Now,
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	c.logger = c.logger.With("component", "ratelimit.client")
	if c.now == nil {
		c.now = time.Now
	}
	if c.cache == nil {
		c.cache = cache.NewMemory(cache.WithClock(c.now))
	}
	if c.sink == nil {
		c.sink = NoopSink{}
	}
	if c.background == nil {
		c.background = NewTaskGroup(c.logger)
	}
	if c.tracer == nil {
		c.tracer = otel.Tracer("mercator-hq/windowlimit/ratelimit")
	}
	return c, nil
}

// Cache returns the client's local cache.
func (c *Client) Cache() cache.Cache {
	return c.cache
}

// Limit checks req against its window.
//
// Transport failures in synchronous mode are returned as errors and leave
// the cache untouched. In asynchronous mode they are logged and emitted as
// ErrorEvents; the caller has already been answered.
func (c *Client) Limit(ctx context.Context, req Request) (Response, error) {
	start := time.Now()
	ctx, span := c.tracer.Start(ctx, "ratelimit.limit",
		trace.WithAttributes(
			attribute.String("ratelimit.identifier", req.Identifier),
			attribute.String("ratelimit.mode", req.mode()),
			attribute.Int64("ratelimit.limit", req.Limit),
			attribute.Int64("ratelimit.cost", req.EffectiveCost()),
		),
	)
	defer span.End()

	resp, fastReject, err := c.limit(ctx, req)

	outcome := OutcomePassed
	switch {
	case err != nil:
		outcome = OutcomeError
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	case !resp.Passed:
		outcome = OutcomeRejected
	}
	span.SetAttributes(
		attribute.String("ratelimit.outcome", outcome),
		attribute.Bool("ratelimit.fast_reject", fastReject),
	)

	c.sink.Emit(LatencyEvent{
		Time:        start,
		Identifier:  req.Identifier,
		Mode:        req.mode(),
		Outcome:     outcome,
		Latency:     time.Since(start),
		FastReject:  fastReject,
		WorkspaceID: req.WorkspaceID,
		NamespaceID: req.NamespaceID,
	})

	return resp, err
}

func (c *Client) limit(ctx context.Context, req Request) (Response, bool, error) {
	if err := req.Validate(); err != nil {
		return Response{}, false, err
	}

	window := WindowAt(c.now(), req.Interval)
	key := KeyFor(req, window).String()
	cost := req.EffectiveCost()

	current, _ := c.cache.Get(key)
	if current >= req.Limit {
		return rejected(req, window, current), true, nil
	}

	call := coordinator.Call{
		ObjectName: key,
		Identifier: req.Identifier,
		Reset:      window.Reset,
		Cost:       cost,
		Limit:      req.Limit,
	}

	if !req.Async {
		result, err := c.coordinator.Call(ctx, call)
		if err != nil {
			return Response{}, false, err
		}
		c.cache.SetMax(key, result.Current, window.ResetTime())

		resp := Response{
			Passed:    result.Passed,
			Limit:     req.Limit,
			Current:   result.Current,
			Remaining: req.Limit - result.Current,
			Reset:     window.Reset,
		}
		if !result.Passed {
			resp.Triggered = req.Name
		}
		return resp, false, nil
	}

	// The local decision is made under the key's lock so concurrent callers
	// in this process cannot admit the same capacity twice.
	decided := current
	passed := false
	c.cache.Update(key, window.ResetTime(), func(latest int64, _ bool) int64 {
		decided = latest
		passed = latest+cost <= req.Limit
		if passed {
			return latest + cost
		}
		return latest
	})

	c.background.Go(ctx, func(ctx context.Context) {
		c.reconcile(ctx, req, key, window, call, decided)
	})

	if !passed {
		return rejected(req, window, decided), false, nil
	}
	return Response{
		Passed:    true,
		Limit:     req.Limit,
		Current:   decided + cost,
		Remaining: req.Limit - (decided + cost),
		Reset:     window.Reset,
	}, false, nil
}

// reconcile completes an asynchronous check against the coordinator.
func (c *Client) reconcile(ctx context.Context, req Request, key string, window Window, call coordinator.Call, local int64) {
	result, err := c.coordinator.Call(ctx, call)
	if err != nil {
		c.logger.ErrorContext(ctx, "background coordinator call failed",
			"identifier", req.Identifier,
			"window_key", key,
			"error", err,
		)
		c.sink.Emit(ErrorEvent{
			Time:        c.now(),
			Identifier:  req.Identifier,
			Stage:       "reconcile",
			Err:         err,
			WorkspaceID: req.WorkspaceID,
			NamespaceID: req.NamespaceID,
		})
		return
	}

	c.cache.SetMax(key, result.Current, window.ResetTime())

	c.sink.Emit(AccuracyEvent{
		Time:          c.now(),
		Identifier:    req.Identifier,
		LocalCurrent:  local,
		RemoteCurrent: result.Current,
		Cost:          call.Cost,
		Limit:         req.Limit,
		LocalPassed:   local+call.Cost <= req.Limit,
		RemotePassed:  result.Current+call.Cost <= req.Limit,
		WorkspaceID:   req.WorkspaceID,
		NamespaceID:   req.NamespaceID,
	})
}

func rejected(req Request, window Window, current int64) Response {
	return Response{
		Passed:    false,
		Limit:     req.Limit,
		Current:   current,
		Remaining: req.Limit - current,
		Reset:     window.Reset,
		Triggered: req.Name,
	}
}

// MultiLimit checks every request concurrently.
//
// The result is the first error or rejection in request order, or the first
// response when everything passed. All checks run to completion, so passing
// limits spend their cost even when another one rejects.
func (c *Client) MultiLimit(ctx context.Context, reqs []Request) (Response, error) {
	if len(reqs) == 0 {
		return Response{}, ErrNoRequests
	}

	type outcome struct {
		resp Response
		err  error
	}
	outcomes := make([]outcome, len(reqs))

	var wg sync.WaitGroup
	for i, req := range reqs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := c.Limit(ctx, req)
			outcomes[i] = outcome{resp: resp, err: err}
		}()
	}
	wg.Wait()

	for _, o := range outcomes {
		if o.err != nil {
			return Response{}, o.err
		}
		if !o.resp.Passed {
			return o.resp, nil
		}
	}
	return outcomes[0].resp, nil
}

// Flush waits for pending background work, if the Background supports it,
// and flushes the sink.
func (c *Client) Flush(ctx context.Context) error {
	if w, ok := c.background.(interface{ Wait(context.Context) error }); ok {
		if err := w.Wait(ctx); err != nil {
			return fmt.Errorf("failed waiting for background tasks: %w", err)
		}
	}
	return c.sink.Flush(ctx)
}
