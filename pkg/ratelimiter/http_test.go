package ratelimiter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"mercator-hq/windowlimit/pkg/duration"
	"mercator-hq/windowlimit/pkg/ratelimit"
)

func TestHTTPBackendLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != LimitPath {
			t.Errorf("path = %q, want %q", r.URL.Path, LimitPath)
		}
		var body LimitRequestBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		req, err := body.ToRequest()
		if err != nil {
			t.Errorf("ToRequest() error = %v", err)
		}
		if req.Identifier != "u" || req.Interval != time.Minute || req.Cost != 2 || req.Name != "api" {
			t.Errorf("decoded request = %+v", req)
		}

		json.NewEncoder(w).Encode(LimitResponseBody{Success: true, Limit: 10, Remaining: 8, Reset: 60_000, Current: 2})
	}))
	defer server.Close()

	backend, err := NewHTTPBackend(server.URL+"/", nil)
	if err != nil {
		t.Fatalf("NewHTTPBackend() error = %v", err)
	}

	resp, err := backend.Limit(context.Background(), ratelimit.Request{
		Identifier:  "u",
		Limit:       10,
		Interval:    time.Minute,
		Cost:        2,
		Name:        "api",
		NamespaceID: "api",
	})
	if err != nil {
		t.Fatalf("Limit() error = %v", err)
	}
	if !resp.Passed || resp.Current != 2 || resp.Remaining != 8 || resp.Reset != 60_000 {
		t.Errorf("Limit() = %+v", resp)
	}
}

func TestHTTPBackendMultiLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != MultiLimitPath {
			t.Errorf("path = %q, want %q", r.URL.Path, MultiLimitPath)
		}
		var body MultiLimitRequestBody
		json.NewDecoder(r.Body).Decode(&body)
		if len(body.Ratelimits) != 2 {
			t.Errorf("ratelimits = %d, want 2", len(body.Ratelimits))
		}
		json.NewEncoder(w).Encode(LimitResponseBody{Success: false, Triggered: "b"})
	}))
	defer server.Close()

	backend, _ := NewHTTPBackend(server.URL, nil)
	resp, err := backend.MultiLimit(context.Background(), []ratelimit.Request{
		{Identifier: "u", Limit: 1, Interval: time.Second, Name: "a"},
		{Identifier: "u", Limit: 1, Interval: time.Second, Name: "b"},
	})
	if err != nil {
		t.Fatalf("MultiLimit() error = %v", err)
	}
	if resp.Passed || resp.Triggered != "b" {
		t.Errorf("MultiLimit() = %+v", resp)
	}
}

func TestHTTPBackendAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(ErrorBody{Error: "limit must be positive", RequestID: "req-1"})
	}))
	defer server.Close()

	backend, _ := NewHTTPBackend(server.URL, nil)
	_, err := backend.Limit(context.Background(), ratelimit.Request{Identifier: "u"})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Limit() error = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusBadRequest || apiErr.Message != "limit must be positive" || apiErr.RequestID != "req-1" {
		t.Errorf("APIError = %+v", apiErr)
	}
}

func TestNewHTTPBackendValidatesURL(t *testing.T) {
	for _, u := range []string{"", "  ", "localhost:8080"} {
		if _, err := NewHTTPBackend(u, nil); err == nil {
			t.Errorf("NewHTTPBackend(%q) expected error", u)
		}
	}
}

func TestToRequestAcceptsDurationStrings(t *testing.T) {
	var body LimitRequestBody
	if err := json.Unmarshal([]byte(`{"identifier":"u","limit":3,"duration":"30s","namespace":"ns"}`), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	req, err := body.ToRequest()
	if err != nil {
		t.Fatalf("ToRequest() error = %v", err)
	}
	if req.Interval != 30*time.Second || req.Name != "ns" {
		t.Errorf("ToRequest() = %+v", req)
	}

	body.Duration = nil
	if _, err := body.ToRequest(); err == nil {
		t.Error("ToRequest() expected error without duration")
	}
}

func TestToRequestRejectsOverflowingDuration(t *testing.T) {
	for _, window := range []any{"300000d", "200000d", int64(-1000)} {
		body := LimitRequestBody{Identifier: "u", Limit: 3, Duration: window}
		_, err := body.ToRequest()
		var parseErr *duration.ParseError
		if !errors.As(err, &parseErr) {
			t.Errorf("ToRequest(duration=%v) error = %v, want *duration.ParseError", window, err)
		}
	}
}

func TestWithDefaults(t *testing.T) {
	body := LimitRequestBody{Identifier: "u"}.WithDefaults(50, time.Minute, "api", true)
	req, err := body.ToRequest()
	if err != nil {
		t.Fatalf("ToRequest() error = %v", err)
	}
	if req.Limit != 50 || req.Interval != time.Minute || req.NamespaceID != "api" || !req.Async {
		t.Errorf("ToRequest() = %+v", req)
	}

	off := false
	explicit := LimitRequestBody{Identifier: "u", Limit: 3, Duration: "1s", Namespace: "ns", Async: &off}.
		WithDefaults(50, time.Minute, "api", true)
	req, err = explicit.ToRequest()
	if err != nil {
		t.Fatalf("ToRequest() error = %v", err)
	}
	if req.Limit != 3 || req.Interval != time.Second || req.NamespaceID != "ns" || req.Async {
		t.Errorf("explicit fields overridden: %+v", req)
	}
}

func TestHTTPBackendSendLeavesDefaultsToServer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var raw map[string]any
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			t.Errorf("decode: %v", err)
		}
		if raw["identifier"] != "u" {
			t.Errorf("identifier = %v", raw["identifier"])
		}
		if _, ok := raw["async"]; ok {
			t.Error("async should be omitted when unset")
		}
		if raw["duration"] != nil {
			t.Errorf("duration = %v, want null", raw["duration"])
		}

		json.NewEncoder(w).Encode(LimitResponseBody{Success: false, Limit: 3, Remaining: 0, Current: 3, Triggered: "default"})
	}))
	defer server.Close()

	backend, err := NewHTTPBackend(server.URL, nil)
	if err != nil {
		t.Fatalf("NewHTTPBackend() error = %v", err)
	}

	resp, err := backend.Send(context.Background(), LimitRequestBody{Identifier: "u"})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if resp.Passed || resp.Triggered != "default" || resp.Current != 3 {
		t.Errorf("Send() = %+v", resp)
	}
}
