package ratelimiter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"mercator-hq/windowlimit/pkg/duration"
	"mercator-hq/windowlimit/pkg/ratelimit"
)

// API paths served by pkg/server.
const (
	LimitPath      = "/v1/ratelimits.limit"
	MultiLimitPath = "/v1/ratelimits.multiLimit"
)

// LimitRequestBody is the JSON form of one check.
type LimitRequestBody struct {
	Identifier string `json:"identifier"`
	Namespace  string `json:"namespace,omitempty"`
	Name       string `json:"name,omitempty"`
	Limit      int64  `json:"limit"`

	// Duration is milliseconds as a number, or a duration string.
	Duration any `json:"duration"`

	Cost      int64                `json:"cost,omitempty"`
	Async     *bool                `json:"async,omitempty"`
	Shard     string               `json:"shard,omitempty"`
	Meta      map[string]any       `json:"meta,omitempty"`
	Resources []ratelimit.Resource `json:"resources,omitempty"`
}

// MultiLimitRequestBody is the JSON form of a MultiLimit check.
type MultiLimitRequestBody struct {
	Ratelimits []LimitRequestBody `json:"ratelimits"`
}

// LimitResponseBody is the JSON form of a check result.
type LimitResponseBody struct {
	Success   bool   `json:"success"`
	Limit     int64  `json:"limit"`
	Remaining int64  `json:"remaining"`
	Reset     int64  `json:"reset"`
	Current   int64  `json:"current"`
	Triggered string `json:"triggered,omitempty"`
}

// ErrorBody is returned with non-2xx API responses.
type ErrorBody struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// NewRequestBody converts a request for the wire.
func NewRequestBody(req ratelimit.Request) LimitRequestBody {
	async := req.Async
	return LimitRequestBody{
		Identifier: req.Identifier,
		Namespace:  req.NamespaceID,
		Name:       req.Name,
		Limit:      req.Limit,
		Duration:   req.Interval.Milliseconds(),
		Cost:       req.Cost,
		Async:      &async,
		Shard:      req.Shard,
		Meta:       req.Meta,
		Resources:  req.Resources,
	}
}

// ToRequest converts a decoded body. The trigger name defaults to the
// namespace.
func (b LimitRequestBody) ToRequest() (ratelimit.Request, error) {
	interval, err := duration.ParseDuration(b.Duration)
	if err != nil {
		return ratelimit.Request{}, err
	}

	name := b.Name
	if name == "" {
		name = b.Namespace
	}
	req := ratelimit.Request{
		Identifier:  b.Identifier,
		Limit:       b.Limit,
		Interval:    interval,
		Cost:        b.Cost,
		Name:        name,
		Shard:       b.Shard,
		Async:       b.Async != nil && *b.Async,
		NamespaceID: b.Namespace,
		Meta:        b.Meta,
		Resources:   b.Resources,
	}
	return req, req.Validate()
}

// WithDefaults fills the fields a caller left unset.
func (b LimitRequestBody) WithDefaults(limit int64, interval time.Duration, namespace string, async bool) LimitRequestBody {
	if b.Limit == 0 {
		b.Limit = limit
	}
	if b.Duration == nil {
		b.Duration = interval.Milliseconds()
	}
	if b.Namespace == "" {
		b.Namespace = namespace
	}
	if b.Async == nil {
		b.Async = &async
	}
	return b
}

// NewResponseBody converts a result for the wire.
func NewResponseBody(resp ratelimit.Response) LimitResponseBody {
	return LimitResponseBody{
		Success:   resp.Passed,
		Limit:     resp.Limit,
		Remaining: resp.Remaining,
		Reset:     resp.Reset,
		Current:   resp.Current,
		Triggered: resp.Triggered,
	}
}

// APIError is returned by HTTPBackend for non-2xx responses.
type APIError struct {
	StatusCode int
	Message    string
	RequestID  string
}

func (e *APIError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("ratelimit API returned status %d: %s (request %s)", e.StatusCode, e.Message, e.RequestID)
	}
	return fmt.Sprintf("ratelimit API returned status %d: %s", e.StatusCode, e.Message)
}

// HTTPBackend is a ratelimit.Limiter served by a remote windowlimit API.
type HTTPBackend struct {
	baseURL string
	client  *http.Client
}

var _ ratelimit.Limiter = (*HTTPBackend)(nil)

// NewHTTPBackend creates a backend for the API at baseURL. A nil client
// uses one with a 10 second timeout.
func NewHTTPBackend(baseURL string, client *http.Client) (*HTTPBackend, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("ratelimit API base URL cannot be empty")
	}
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		return nil, fmt.Errorf("ratelimit API base URL %q must start with http:// or https://", baseURL)
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPBackend{baseURL: baseURL, client: client}, nil
}

// Limit implements ratelimit.Limiter.
func (b *HTTPBackend) Limit(ctx context.Context, req ratelimit.Request) (ratelimit.Response, error) {
	return b.post(ctx, LimitPath, NewRequestBody(req))
}

// MultiLimit implements ratelimit.Limiter.
func (b *HTTPBackend) MultiLimit(ctx context.Context, reqs []ratelimit.Request) (ratelimit.Response, error) {
	body := MultiLimitRequestBody{Ratelimits: make([]LimitRequestBody, len(reqs))}
	for i, req := range reqs {
		body.Ratelimits[i] = NewRequestBody(req)
	}
	return b.post(ctx, MultiLimitPath, body)
}

// Send posts a single body as given. Unset limit, duration and namespace
// take the server's defaults.
func (b *HTTPBackend) Send(ctx context.Context, body LimitRequestBody) (ratelimit.Response, error) {
	return b.post(ctx, LimitPath, body)
}

func (b *HTTPBackend) post(ctx context.Context, path string, body any) (ratelimit.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return ratelimit.Response{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return ratelimit.Response{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return ratelimit.Response{}, fmt.Errorf("ratelimit API request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return ratelimit.Response{}, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
		var eb ErrorBody
		if json.Unmarshal(raw, &eb) == nil && eb.Error != "" {
			apiErr.Message = eb.Error
			apiErr.RequestID = eb.RequestID
		}
		return ratelimit.Response{}, apiErr
	}

	var out LimitResponseBody
	if err := json.Unmarshal(raw, &out); err != nil {
		return ratelimit.Response{}, fmt.Errorf("failed to decode response: %w", err)
	}
	return ratelimit.Response{
		Passed:    out.Success,
		Limit:     out.Limit,
		Current:   out.Current,
		Remaining: out.Remaining,
		Reset:     out.Reset,
		Triggered: out.Triggered,
	}, nil
}
