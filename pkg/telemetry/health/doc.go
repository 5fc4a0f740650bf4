// Package health provides liveness and readiness endpoints.
//
// Liveness only reports that the process is serving. Readiness runs every
// registered check concurrently, each bounded by the checker's timeout, and
// answers 503 when any check fails:
//
//	checker := health.New(2 * time.Second)
//	checker.Register("coordinator", health.CoordinatorCheck(nodes, client))
//	checker.Register("store", health.PingCheck(store))
//	checker.Mount(mux, "/health", "/ready", version)
package health
