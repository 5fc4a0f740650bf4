package health

import (
	"encoding/json"
	"net/http"
)

// LivenessHandler serves the liveness probe.
func (c *Checker) LivenessHandler(version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := c.Liveness()
		report.Version = version
		writeReport(w, r, http.StatusOK, report)
	}
}

// ReadinessHandler serves the readiness probe. It answers 503 when any
// check fails.
func (c *Checker) ReadinessHandler(version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := c.Readiness(r.Context())
		report.Version = version

		code := http.StatusOK
		if !report.Ready() {
			code = http.StatusServiceUnavailable
		}
		writeReport(w, r, code, report)
	}
}

// Mount registers both probes on mux. GET patterns also match HEAD.
func (c *Checker) Mount(mux *http.ServeMux, livenessPath, readinessPath, version string) {
	mux.HandleFunc("GET "+livenessPath, c.LivenessHandler(version))
	mux.HandleFunc("GET "+readinessPath, c.ReadinessHandler(version))
}

func writeReport(w http.ResponseWriter, r *http.Request, code int, report Report) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if r.Method != http.MethodHead {
		_ = json.NewEncoder(w).Encode(report)
	}
}
