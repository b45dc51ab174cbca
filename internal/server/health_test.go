package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

// fakePinger implements Pinger with a scripted result.
type fakePinger struct {
	name string
	err  error
}

func (p *fakePinger) Name() string { return p.name }

func (p *fakePinger) Ping(ctx context.Context) error { return p.err }

func getReady(t *testing.T, s *Server) (*httptest.ResponseRecorder, readyResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/ready", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	var resp readyResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding ready response: %v", err)
	}
	return w, resp
}

func TestReady_NoPingers(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, &fakeSession{}, nil)
	w, resp := getReady(t, s)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200 in liveness-only mode, got %d", w.Code)
	}
	if !resp.Ready {
		t.Error("expected ready=true with no pingers")
	}
}

func TestReady_AllHealthy(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, &fakeSession{}, func(c *Config) {
		c.Pingers = []Pinger{
			&fakePinger{name: "embedder"},
			&fakePinger{name: "qdrant"},
		}
	})

	w, resp := getReady(t, s)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if !resp.Ready || len(resp.Checks) != 2 {
		t.Errorf("response = %+v", resp)
	}
}

func TestReady_OneUnhealthy(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, &fakeSession{}, func(c *Config) {
		c.Pingers = []Pinger{
			&fakePinger{name: "embedder"},
			&fakePinger{name: "qdrant", err: errors.New("connection refused")},
		}
	})

	w, resp := getReady(t, s)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", w.Code)
	}
	if resp.Ready {
		t.Error("expected ready=false")
	}
	var found bool
	for _, c := range resp.Checks {
		if c.Name == "qdrant" && !c.OK && c.Error != "" {
			found = true
		}
	}
	if !found {
		t.Errorf("failing check missing from response: %+v", resp.Checks)
	}
}

func TestDependencyPinger(t *testing.T) {
	t.Parallel()

	healthy := NewDependencyPinger(&fakePinger{name: "inner"}, "embedder")
	if healthy.Name() != "embedder" {
		t.Errorf("Name = %q", healthy.Name())
	}
	if err := healthy.Ping(context.Background()); err != nil {
		t.Errorf("Ping on a healthy dependency: %v", err)
	}

	sick := NewDependencyPinger(&fakePinger{name: "inner", err: errors.New("down")}, "embedder")
	if err := sick.Ping(context.Background()); err == nil {
		t.Error("Ping on a failing dependency returned nil")
	}
}
