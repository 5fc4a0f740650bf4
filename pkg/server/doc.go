// Package server hosts the windowlimit HTTP surfaces.
//
// Server owns the listener lifecycle and graceful shutdown for any handler.
// Both the rate limit API (windowlimit run) and the reference coordinator
// (windowlimit coordinator) are served through it.
//
// # Rate limit API
//
//	POST /v1/ratelimits.limit       one check
//	POST /v1/ratelimits.multiLimit  several checks for one caller
//	GET  /health, /ready            probes
//	GET  /metrics                   Prometheus
//
// A limit body looks like:
//
//	{"identifier": "203.0.113.9", "namespace": "api", "limit": 100, "duration": "1m", "cost": 1}
//
// and the response:
//
//	{"success": true, "limit": 100, "remaining": 99, "reset": 1700000060000, "current": 1}
//
// Omitted limit, duration, namespace and async take the configured defaults.
// A rejection is still a 200; only malformed requests and backend failures
// produce error statuses.
//
// # Middleware
//
// Every route is wrapped, outermost first, in recovery, request ID, access
// logging, tracing and per-route metrics.
//
// # Shutdown
//
// On context cancellation the listener stops accepting, in-flight requests
// drain, then registered shutdown hooks run in order. The API server
// registers the rate limit client's Flush so pending async reconciliation
// completes before exit.
package server
