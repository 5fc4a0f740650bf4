package coordinator

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/dgryski/go-rendezvous"
)

// ErrNoNodes is returned by routers with an empty node set.
var ErrNoNodes = errors.New("no coordinator nodes configured")

// Router maps an object name to the base URL of its coordinator node.
// Routing must be deterministic: the same name always yields the same node
// for a given router.
type Router interface {
	Route(objectName string) (string, error)
}

// StaticRouter sends every call to one node.
type StaticRouter struct {
	node string
}

// NewStaticRouter validates baseURL and returns a StaticRouter.
func NewStaticRouter(baseURL string) (*StaticRouter, error) {
	node, err := normalizeNode(baseURL)
	if err != nil {
		return nil, err
	}
	return &StaticRouter{node: node}, nil
}

// Route implements Router.
func (r *StaticRouter) Route(string) (string, error) {
	return r.node, nil
}

// RendezvousRouter spreads object names over a fixed set of nodes with
// rendezvous hashing.
type RendezvousRouter struct {
	nodes []string
	table *rendezvous.Rendezvous
}

// NewRendezvousRouter builds a router over nodes. Duplicates are removed.
func NewRendezvousRouter(nodes []string) (*RendezvousRouter, error) {
	seen := make(map[string]bool, len(nodes))
	normalized := make([]string, 0, len(nodes))
	for _, n := range nodes {
		node, err := normalizeNode(n)
		if err != nil {
			return nil, err
		}
		if seen[node] {
			continue
		}
		seen[node] = true
		normalized = append(normalized, node)
	}
	if len(normalized) == 0 {
		return nil, ErrNoNodes
	}

	return &RendezvousRouter{
		nodes: normalized,
		table: rendezvous.New(normalized, xxhash.Sum64String),
	}, nil
}

// Route implements Router.
func (r *RendezvousRouter) Route(objectName string) (string, error) {
	return r.table.Lookup(objectName), nil
}

// Nodes returns the node set in configuration order.
func (r *RendezvousRouter) Nodes() []string {
	out := make([]string, len(r.nodes))
	copy(out, r.nodes)
	return out
}

// NewRouter returns a StaticRouter for one node and a RendezvousRouter for
// more.
func NewRouter(nodes []string) (Router, error) {
	switch len(nodes) {
	case 0:
		return nil, ErrNoNodes
	case 1:
		return NewStaticRouter(nodes[0])
	default:
		return NewRendezvousRouter(nodes)
	}
}

// normalizeNode accepts a bare domain or a URL and returns a base URL
// without a trailing slash. Bare domains default to https.
func normalizeNode(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty coordinator node")
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid coordinator node %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("invalid coordinator node %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid coordinator node %q: missing host", raw)
	}
	return strings.TrimRight(u.Scheme+"://"+u.Host+u.Path, "/"), nil
}
