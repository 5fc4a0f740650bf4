package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		timeout time.Duration
		want    time.Duration
	}{
		{name: "default timeout", timeout: 0, want: DefaultCheckTimeout},
		{name: "custom timeout", timeout: 10 * time.Second, want: 10 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := New(tt.timeout).timeout; got != tt.want {
				t.Errorf("timeout = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestChecker_Readiness(t *testing.T) {
	tests := []struct {
		name       string
		checks     map[string]CheckFunc
		wantStatus string
		wantFailed []string
	}{
		{
			name:       "no checks",
			wantStatus: StatusReady,
		},
		{
			name: "all healthy",
			checks: map[string]CheckFunc{
				"store": func(context.Context) error { return nil },
				"nodes": func(context.Context) error { return nil },
			},
			wantStatus: StatusReady,
		},
		{
			name: "one failing",
			checks: map[string]CheckFunc{
				"store": func(context.Context) error { return errors.New("connection refused") },
				"nodes": func(context.Context) error { return nil },
			},
			wantStatus: StatusDegraded,
			wantFailed: []string{"store"},
		},
		{
			name: "timeout",
			checks: map[string]CheckFunc{
				"slow": func(ctx context.Context) error {
					<-ctx.Done()
					return ctx.Err()
				},
			},
			wantStatus: StatusDegraded,
			wantFailed: []string{"slow"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(50 * time.Millisecond)
			for name, check := range tt.checks {
				c.Register(name, check)
			}

			report := c.Readiness(context.Background())
			if report.Status != tt.wantStatus {
				t.Errorf("Status = %q, want %q", report.Status, tt.wantStatus)
			}
			for _, name := range tt.wantFailed {
				if report.Checks[name].Status != StatusUnhealthy {
					t.Errorf("check %q = %+v, want unhealthy", name, report.Checks[name])
				}
			}
		})
	}
}

func TestChecker_Names(t *testing.T) {
	c := New(time.Second)
	c.Register("b", func(context.Context) error { return nil })
	c.Register("a", func(context.Context) error { return nil })
	c.Register("a", func(context.Context) error { return nil })

	if got := strings.Join(c.Names(), ","); got != "a,b" {
		t.Errorf("Names() = %q, want a,b", got)
	}
}

func TestChecker_Mount(t *testing.T) {
	c := New(time.Second)
	failing := true
	c.Register("store", func(context.Context) error {
		if failing {
			return errors.New("down")
		}
		return nil
	})

	mux := http.NewServeMux()
	c.Mount(mux, "/health", "/ready", "1.2.3")

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("GET /health = %d, want 200", rec.Code)
	}
	var live Report
	if err := json.NewDecoder(rec.Body).Decode(&live); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if live.Version != "1.2.3" || live.Status != StatusOK {
		t.Errorf("liveness = %+v", live)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("GET /ready = %d, want 503", rec.Code)
	}

	failing = false
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodHead, "/ready", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("HEAD /ready = %d, want 200", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("HEAD body = %q, want empty", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/health", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST /health = %d, want 405", rec.Code)
	}
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

func TestPingCheck(t *testing.T) {
	if err := PingCheck(fakePinger{})(context.Background()); err != nil {
		t.Errorf("healthy ping error = %v", err)
	}
	want := errors.New("no route")
	if err := PingCheck(fakePinger{err: want})(context.Background()); !errors.Is(err, want) {
		t.Errorf("error = %v, want %v", err, want)
	}
}

func TestCoordinatorCheck(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Errorf("path = %q, want /health", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer healthy.Close()

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer broken.Close()

	if err := CoordinatorCheck([]string{healthy.URL + "/"}, healthy.Client())(context.Background()); err != nil {
		t.Errorf("healthy nodes error = %v", err)
	}

	err := CoordinatorCheck([]string{healthy.URL, broken.URL}, nil)(context.Background())
	if err == nil || !strings.Contains(err.Error(), broken.URL) || !strings.Contains(err.Error(), "status 500") {
		t.Errorf("error = %v, want failure naming %s", err, broken.URL)
	}
}
