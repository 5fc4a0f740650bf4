/*
Package ratelimit implements the fixed-window rate limit client.

# Overview

Every request names an identifier, a limit, and a window interval. Time is
cut into buckets of the interval: the window index is floor(now/interval)
and the window resets at (index+1)*interval. The counter for a window lives
on exactly one coordinator node, chosen by the window key:

	identifier::window::trigger::shard

The Client keeps a process-local Cache of the highest counter it has seen
per window key. A request for a window whose cached counter already reached
the limit is rejected without a network call.

# Consistency Modes

Synchronous (Async=false) requests wait for the coordinator and return its
decision. The cache is raised to the coordinator's counter on success.

Asynchronous (Async=true) requests answer from the cache: the request passes
if current+cost fits in the limit, and the cache is raised to current+cost.
The coordinator call is registered on the Client's TaskGroup and completes
in the background. When it lands, the cache is raised to the authoritative
counter and an AccuracyEvent records whether the local answer matched the
one the coordinator would have given.

Asynchronous mode trades accuracy for latency. Several processes can admit
the same remaining capacity before their background calls land.

# Multiple Limits

MultiLimit evaluates a set of requests concurrently and returns the first
rejection (or error) in request order, or the first response when all pass.
Limits that pass still spend their cost even if another limit rejects.

# Telemetry

The Client emits events to a Sink:

  - LatencyEvent for every call
  - AccuracyEvent for every completed background reconciliation
  - ErrorEvent for failed background reconciliations

Spans are started around every call using the configured OpenTelemetry
tracer.

# Example

	client, err := ratelimit.New(ratelimit.Config{
		Coordinator: transport,
		Cache:       cache.NewMemory(),
		Sink:        collector,
	})
	if err != nil {
		return err
	}

	resp, err := client.Limit(ctx, ratelimit.Request{
		Identifier: "user-42",
		Limit:      100,
		Interval:   time.Minute,
	})
*/
package ratelimit
