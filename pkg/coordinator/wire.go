package coordinator

import (
	"encoding/json"
	"math"
)

// Header names used on coordinator requests.
const (
	HeaderWindowKey      = "X-Window-Key"
	HeaderIdempotencyKey = "Idempotency-Key"
)

// LimitPath is the coordinator endpoint.
const LimitPath = "/limit"

// Call is a single increment request for one window.
type Call struct {
	// ObjectName is the window key string. It selects the node and the
	// counter on that node.
	ObjectName string

	// Identifier is carried for errors and logging only.
	Identifier string

	// Reset is the window end in unix milliseconds.
	Reset int64

	// Cost is the amount to add to the counter.
	Cost int64

	// Limit is the window capacity.
	Limit int64
}

// Result is the coordinator's answer.
type Result struct {
	// Current is the authoritative counter after the call.
	Current int64

	// Passed reports whether the cost was admitted.
	Passed bool
}

// LimitRequest is the JSON body sent to the coordinator.
type LimitRequest struct {
	Reset int64 `json:"reset"`
	Cost  int64 `json:"cost"`
	Limit int64 `json:"limit"`
}

// LimitResponse is the JSON body returned by the coordinator.
type LimitResponse struct {
	Current int64 `json:"current"`
	Success bool  `json:"success"`
}

type rawResponse struct {
	Current *float64 `json:"current"`
	Success *bool    `json:"success"`
}

// DecodeResult validates and decodes a coordinator response body.
func DecodeResult(body []byte) (Result, error) {
	var raw rawResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return Result{}, &MalformedResponseError{Body: truncate(body), Cause: err}
	}
	if raw.Current == nil {
		return Result{}, &MalformedResponseError{Body: truncate(body), Reason: "missing numeric field \"current\""}
	}
	if raw.Success == nil {
		return Result{}, &MalformedResponseError{Body: truncate(body), Reason: "missing boolean field \"success\""}
	}
	current := *raw.Current
	if current != math.Trunc(current) || current >= math.MaxInt64 || current < math.MinInt64 {
		return Result{}, &MalformedResponseError{Body: truncate(body), Reason: "field \"current\" is not an integer"}
	}

	return Result{Current: int64(current), Passed: *raw.Success}, nil
}

const maxErrorBody = 512

func truncate(body []byte) string {
	if len(body) > maxErrorBody {
		return string(body[:maxErrorBody]) + "..."
	}
	return string(body)
}
