// Windowlimit is a distributed fixed-window rate limiter.
//
// It runs in two roles. The API server answers rate limit checks over HTTP,
// keeping a local counter cache and consulting coordinator nodes; the
// coordinator role is the reference node that owns authoritative window
// counters in memory, Redis or SQLite.
//
// Usage:
//
//	# Start a coordinator node with the default in-memory store
//	windowlimit coordinator
//
//	# Start the API server against that node
//	windowlimit run --config config.yaml
//
//	# Check a limit from the command line
//	windowlimit check user-42 --limit 10 --duration 1m
//
//	# Load test a running API
//	windowlimit benchmark --identifiers 5 --count 1000
//
//	# Convert a duration to milliseconds
//	windowlimit duration "90 m"
package main

func main() {
	Execute()
}
