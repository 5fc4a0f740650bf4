package coordinator

import (
	"fmt"
)

// TransportError is returned when a coordinator call fails after all
// attempts.
type TransportError struct {
	// Identifier is the rate limit identifier of the failed call.
	Identifier string

	// ObjectName is the window key the call was routed by.
	ObjectName string

	// Node is the coordinator base URL, if routing succeeded.
	Node string

	// Attempts is the number of requests sent.
	Attempts int

	// Message describes the failing stage.
	Message string

	// Stack is the goroutine stack captured when the error was built.
	Stack string

	// Cause is the last underlying error.
	Cause error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("coordinator call for identifier %q failed after %d attempt(s): %s: %v",
		e.Identifier, e.Attempts, e.Message, e.Cause)
}

func (e *TransportError) Unwrap() error {
	return e.Cause
}

// StatusError is returned for a non-2xx coordinator response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("coordinator returned status %d: %s", e.StatusCode, e.Body)
}

// Retryable reports whether the status is worth a second attempt.
func (e *StatusError) Retryable() bool {
	return e.StatusCode >= 500
}

// MalformedResponseError is returned when a response body does not match
// the protocol.
type MalformedResponseError struct {
	Body   string
	Reason string
	Cause  error
}

func (e *MalformedResponseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("malformed coordinator response: %v", e.Cause)
	}
	return fmt.Sprintf("malformed coordinator response: %s", e.Reason)
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Cause
}
