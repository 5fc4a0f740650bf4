// Package tracing configures OpenTelemetry tracing for windowlimit.
//
// When enabled, spans are exported over OTLP/gRPC and the W3C trace context
// propagator is installed globally. The rate limit client and coordinator
// transport pick up the global tracer provider, so a single call to New at
// startup is enough to trace a check end to end:
//
//	limit (ratelimit client)
//	  └─ coordinator.call (one per attempt group, traceparent injected)
//	       └─ POST /limit (coordinator node, extracted by HTTPMiddleware)
//
// When disabled, New returns a Tracer backed by a noop provider.
package tracing
