package node

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"mercator-hq/windowlimit/pkg/coordinator"
)

const maxRequestBody = 4 * 1024

// Handler serves the coordinator protocol.
type Handler struct {
	store  Store
	logger *slog.Logger
}

// NewHandler creates a Handler over store.
func NewHandler(store Store, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		store:  store,
		logger: logger.With("component", "coordinator.node"),
	}
}

// Routes returns a mux with /limit and /health.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("POST "+coordinator.LimitPath, h)
	mux.HandleFunc("GET /health", h.health)
	return mux
}

// ServeHTTP handles one limit call.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	key := r.Header.Get(coordinator.HeaderWindowKey)
	if key == "" {
		writeError(w, http.StatusBadRequest, "missing "+coordinator.HeaderWindowKey+" header")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	var req coordinator.LimitRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := validate(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.store.Increment(r.Context(), Increment{
		Key:            key,
		IdempotencyKey: r.Header.Get(coordinator.HeaderIdempotencyKey),
		Cost:           req.Cost,
		Limit:          req.Limit,
		Reset:          time.UnixMilli(req.Reset),
	})
	if err != nil {
		h.logger.ErrorContext(r.Context(), "increment failed",
			"window_key", key,
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, "store unavailable")
		return
	}

	writeJSON(w, http.StatusOK, coordinator.LimitResponse{
		Current: result.Current,
		Success: result.Passed,
	})
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func validate(req coordinator.LimitRequest) error {
	switch {
	case req.Limit <= 0:
		return errors.New("limit must be positive")
	case req.Cost < 0:
		return errors.New("cost must not be negative")
	case req.Reset <= 0:
		return errors.New("reset must be positive")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
