package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"mercator-hq/windowlimit/pkg/coordinator"
	"mercator-hq/windowlimit/pkg/ratelimit"
	"mercator-hq/windowlimit/pkg/ratelimiter"
	"mercator-hq/windowlimit/pkg/telemetry/logging"
)

// maxBodyBytes bounds API request bodies.
const maxBodyBytes = 64 * 1024

// API serves the rate limit endpoints on top of a Ratelimiter.
type API struct {
	limiter *ratelimiter.Ratelimiter
	logger  *slog.Logger
}

// NewAPI creates the API handlers.
func NewAPI(limiter *ratelimiter.Ratelimiter, logger *slog.Logger) *API {
	if logger == nil {
		logger = slog.Default()
	}
	return &API{limiter: limiter, logger: logger.With("component", "api")}
}

// Routes returns the API routes for NewMux.
func (a *API) Routes() []Route {
	return []Route{
		{Method: http.MethodPost, Path: ratelimiter.LimitPath, Handler: http.HandlerFunc(a.limit)},
		{Method: http.MethodPost, Path: ratelimiter.MultiLimitPath, Handler: http.HandlerFunc(a.multiLimit)},
	}
}

func (a *API) limit(w http.ResponseWriter, r *http.Request) {
	var body ratelimiter.LimitRequestBody
	if !a.decode(w, r, &body) {
		return
	}

	req, err := a.toRequest(body)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	a.check(w, r, req)
}

func (a *API) multiLimit(w http.ResponseWriter, r *http.Request) {
	var body ratelimiter.MultiLimitRequestBody
	if !a.decode(w, r, &body) {
		return
	}
	if len(body.Ratelimits) == 0 {
		writeError(w, r, http.StatusBadRequest, ratelimit.ErrNoRequests.Error())
		return
	}

	reqs := make([]ratelimit.Request, 0, len(body.Ratelimits))
	for i, b := range body.Ratelimits {
		req, err := a.toRequest(b)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, fmt.Sprintf("ratelimits[%d]: %v", i, err))
			return
		}
		reqs = append(reqs, req)
	}

	a.check(w, r, reqs...)
}

func (a *API) toRequest(body ratelimiter.LimitRequestBody) (ratelimit.Request, error) {
	limit, interval, namespace, async := a.limiter.Defaults()
	return body.WithDefaults(limit, interval, namespace, async).ToRequest()
}

func (a *API) check(w http.ResponseWriter, r *http.Request, reqs ...ratelimit.Request) {
	resp, err := a.limiter.Check(r.Context(), reqs...)
	if err != nil {
		status := http.StatusInternalServerError
		var (
			te *coordinator.TransportError
			ve *ratelimit.ValidationError
		)
		switch {
		case errors.As(err, &ve):
			status = http.StatusBadRequest
		case errors.As(err, &te):
			status = http.StatusBadGateway
		}
		a.logger.ErrorContext(r.Context(), "rate limit check failed",
			"identifier", reqs[0].Identifier,
			"error", err,
		)
		writeError(w, r, status, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, ratelimiter.NewResponseBody(resp))
}

func (a *API) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	writeJSON(w, status, ratelimiter.ErrorBody{
		Error:     message,
		RequestID: logging.GetRequestID(r.Context()),
	})
}
