/*
Package ratelimiter is the caller-facing rate limiter.

A Ratelimiter binds a namespace, a default limit and a window duration to a
backend, and bounds every check with a timeout:

	rl, err := ratelimiter.New(client, ratelimiter.Options{
		Namespace: "api",
		Limit:     100,
		Duration:  "1m",
	})

	resp, err := rl.Limit(ctx, "user-42", ratelimiter.WithCost(5))
	if err != nil {
		// only without OnError
	}
	if !resp.Success {
		// reject
	}

# Timeouts

By default a check that takes longer than 5 seconds returns the fallback
response {Success: false, Limit: 0, Remaining: 0, Reset: now}. The backend
call is not cancelled and completes on its own. Set Timeout to a
TimeoutPolicy to change the bound or the fallback, or to NoTimeout() to wait
for the backend as long as the context allows.

# Errors

Backend errors are passed to OnError when set, and its response is returned
with a nil error. Without OnError the error is returned.

# Backends

Any ratelimit.Limiter is a backend: a *ratelimit.Client for in-process
checks, an HTTPBackend for a remote windowlimit server, or ratelimit.Noop to
switch limiting off.
*/
package ratelimiter
