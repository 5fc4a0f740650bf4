package health

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Pinger is implemented by stores and clients that can verify their
// connection.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingCheck adapts a Pinger to a CheckFunc.
func PingCheck(p Pinger) CheckFunc {
	return func(ctx context.Context) error {
		return p.Ping(ctx)
	}
}

// CoordinatorCheck probes GET <node>/health on every coordinator node. The
// check fails if any node is unreachable or answers with a non-2xx status.
func CoordinatorCheck(nodes []string, client *http.Client) CheckFunc {
	if client == nil {
		client = http.DefaultClient
	}
	return func(ctx context.Context) error {
		var errs []error
		for _, node := range nodes {
			if err := probe(ctx, client, strings.TrimRight(node, "/")+"/health"); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", node, err))
			}
		}
		return errors.Join(errs...)
	}
}

func probe(ctx context.Context, client *http.Client, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}
