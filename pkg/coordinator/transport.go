package coordinator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// maxAttempts is one request plus one immediate retry.
const maxAttempts = 2

// maxResponseBody bounds how much of a coordinator response is read.
const maxResponseBody = 64 * 1024

// AttemptRecorder is notified after every request the transport sends.
type AttemptRecorder interface {
	RecordCoordinatorAttempt(node, outcome string, duration time.Duration)
}

// Attempt outcomes passed to AttemptRecorder.
const (
	OutcomeSuccess   = "success"
	OutcomeNetwork   = "network_error"
	OutcomeStatus    = "status_error"
	OutcomeMalformed = "malformed"
)

// HTTPTransportConfig configures an HTTPTransport.
type HTTPTransportConfig struct {
	// Router selects the node for each call. Required.
	Router Router

	// Client is the HTTP client. Default: a client with AttemptTimeout.
	Client *http.Client

	// AttemptTimeout bounds a single request. Zero means no bound beyond
	// the caller's context.
	AttemptTimeout time.Duration

	// Logger for retry and failure messages. Default: slog.Default().
	Logger *slog.Logger

	// Tracer for coordinator spans. Default: the global tracer provider.
	Tracer trace.Tracer

	// Recorder receives per-attempt outcomes. Optional.
	Recorder AttemptRecorder

	// NewIdempotencyKey generates the per-call key. Default: uuid.NewString.
	NewIdempotencyKey func() string
}

// HTTPTransport calls coordinators over HTTP.
type HTTPTransport struct {
	router   Router
	client   *http.Client
	timeout  time.Duration
	logger   *slog.Logger
	tracer   trace.Tracer
	recorder AttemptRecorder
	newKey   func() string
}

// NewHTTPTransport creates an HTTPTransport.
func NewHTTPTransport(cfg HTTPTransportConfig) (*HTTPTransport, error) {
	if cfg.Router == nil {
		return nil, fmt.Errorf("coordinator transport requires a router")
	}

	t := &HTTPTransport{
		router:   cfg.Router,
		client:   cfg.Client,
		timeout:  cfg.AttemptTimeout,
		logger:   cfg.Logger,
		tracer:   cfg.Tracer,
		recorder: cfg.Recorder,
		newKey:   cfg.NewIdempotencyKey,
	}
	if t.client == nil {
		t.client = &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	if t.logger == nil {
		t.logger = slog.Default()
	}
	t.logger = t.logger.With("component", "coordinator.transport")
	if t.tracer == nil {
		t.tracer = otel.Tracer("mercator-hq/windowlimit/coordinator")
	}
	if t.newKey == nil {
		t.newKey = uuid.NewString
	}
	return t, nil
}

// Call sends call to its coordinator, retrying once on network failure.
func (t *HTTPTransport) Call(ctx context.Context, call Call) (Result, error) {
	ctx, span := t.tracer.Start(ctx, "coordinator.call",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("ratelimit.identifier", call.Identifier),
			attribute.String("ratelimit.window_key", call.ObjectName),
			attribute.Int64("ratelimit.cost", call.Cost),
			attribute.Int64("ratelimit.limit", call.Limit),
		),
	)
	defer span.End()

	result, err := t.call(ctx, call)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Result{}, err
	}
	span.SetAttributes(
		attribute.Int64("ratelimit.current", result.Current),
		attribute.Bool("ratelimit.passed", result.Passed),
	)
	span.SetStatus(codes.Ok, "")
	return result, nil
}

func (t *HTTPTransport) call(ctx context.Context, call Call) (Result, error) {
	node, err := t.router.Route(call.ObjectName)
	if err != nil {
		return Result{}, t.fail(call, "", 0, "route", err)
	}

	body, err := json.Marshal(LimitRequest{Reset: call.Reset, Cost: call.Cost, Limit: call.Limit})
	if err != nil {
		return Result{}, t.fail(call, node, 0, "encode request", err)
	}

	idempotencyKey := t.newKey()

	var lastErr error
	attempts := 0
	for attempts < maxAttempts {
		attempts++
		result, err := t.attempt(ctx, node, call.ObjectName, idempotencyKey, body)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !retryable(err) || ctx.Err() != nil || attempts == maxAttempts {
			break
		}
		t.logger.Warn("coordinator request failed, retrying",
			"identifier", call.Identifier,
			"node", node,
			"attempt", attempts,
			"error", err,
		)
	}

	return Result{}, t.fail(call, node, attempts, "request", lastErr)
}

func (t *HTTPTransport) attempt(ctx context.Context, node, objectName, idempotencyKey string, body []byte) (Result, error) {
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	start := time.Now()
	result, outcome, err := t.send(ctx, node, objectName, idempotencyKey, body)
	if t.recorder != nil {
		t.recorder.RecordCoordinatorAttempt(node, outcome, time.Since(start))
	}
	return result, err
}

func (t *HTTPTransport) send(ctx context.Context, node, objectName, idempotencyKey string, body []byte) (Result, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, node+LimitPath, bytes.NewReader(body))
	if err != nil {
		return Result{}, OutcomeNetwork, &networkError{err: err, permanent: true}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderWindowKey, objectName)
	req.Header.Set(HeaderIdempotencyKey, idempotencyKey)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := t.client.Do(req)
	if err != nil {
		return Result{}, OutcomeNetwork, &networkError{err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return Result{}, OutcomeNetwork, &networkError{err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{}, OutcomeStatus, &StatusError{StatusCode: resp.StatusCode, Body: truncate(respBody)}
	}

	result, err := DecodeResult(respBody)
	if err != nil {
		return Result{}, OutcomeMalformed, err
	}
	return result, OutcomeSuccess, nil
}

func (t *HTTPTransport) fail(call Call, node string, attempts int, stage string, cause error) *TransportError {
	return &TransportError{
		Identifier: call.Identifier,
		ObjectName: call.ObjectName,
		Node:       node,
		Attempts:   attempts,
		Message:    stage + " failed",
		Stack:      string(debug.Stack()),
		Cause:      cause,
	}
}

// networkError marks failures below HTTP: dial, TLS, reset, timeouts.
type networkError struct {
	err       error
	permanent bool
}

func (e *networkError) Error() string { return e.err.Error() }
func (e *networkError) Unwrap() error { return e.err }

func retryable(err error) bool {
	var netErr *networkError
	if errors.As(err, &netErr) {
		return !netErr.permanent
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Retryable()
	}
	return false
}
