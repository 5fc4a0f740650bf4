/*
Package coordinator is the client side of the coordinator protocol.

A coordinator is the single authoritative counting node for a window key.
Every request for the same key is routed to the same node, which makes the
coordinator's answer the source of truth for that window.

# Protocol

The transport sends one HTTP request per limit check:

	POST <node>/limit
	Content-Type: application/json
	X-Window-Key: <object name>
	Idempotency-Key: <uuid, reused on retry>

	{"reset": 1700000010000, "cost": 1, "limit": 10}

and expects:

	{"current": 3, "success": true}

Both response fields are required. A response that is missing either field,
or carries the wrong JSON type, is rejected with a *MalformedResponseError.

# Retries

Network failures and 5xx responses are retried exactly once, immediately,
with the same body and idempotency key. 4xx and malformed responses are not
retried. When every attempt fails the call returns a *TransportError that
names the identifier and wraps the last cause.

# Routing

A Router picks the node. StaticRouter always returns one base URL and leaves
sharding to the coordinator. RendezvousRouter uses highest-random-weight
hashing over a fixed node set so that a key keeps its node as long as the
node stays in the set.
*/
package coordinator
