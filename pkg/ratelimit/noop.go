package ratelimit

import "context"

// Noop admits everything. It is used where limiting is switched off.
type Noop struct{}

// Limit implements Limiter.
func (Noop) Limit(context.Context, Request) (Response, error) {
	return Response{Passed: true, Limit: 0, Remaining: 0, Reset: 0}, nil
}

// MultiLimit implements Limiter.
func (Noop) MultiLimit(context.Context, []Request) (Response, error) {
	return Response{Passed: true}, nil
}
