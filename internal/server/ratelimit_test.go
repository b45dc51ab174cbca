package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/54b3r/pdfqa-go/internal/logging"
)

// TestRateLimiter_AllowsWithinBurst verifies that requests within the burst
// budget pass through.
func TestRateLimiter_AllowsWithinBurst(t *testing.T) {
	t.Parallel()

	rl, stop := newRateLimiter(10, 5, logging.New())
	defer stop()
	h := rl.middleware(okHandler)

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/ask", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("request %d within burst rejected: %d", i+1, w.Code)
		}
	}
}

// TestRateLimiter_RejectsOverBurst verifies that the request after the burst
// is exhausted receives 429 with a Retry-After header.
func TestRateLimiter_RejectsOverBurst(t *testing.T) {
	t.Parallel()

	rl, stop := newRateLimiter(1, 1, logging.New())
	defer stop()
	h := rl.middleware(okHandler)

	first := httptest.NewRequest(http.MethodPost, "/api/ask", nil)
	first.RemoteAddr = "10.0.0.2:1234"
	w := httptest.NewRecorder()
	h.ServeHTTP(w, first)
	if w.Code != http.StatusOK {
		t.Fatalf("first request rejected: %d", w.Code)
	}

	second := httptest.NewRequest(http.MethodPost, "/api/ask", nil)
	second.RemoteAddr = "10.0.0.2:1234"
	w = httptest.NewRecorder()
	h.ServeHTTP(w, second)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 over burst, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header on 429")
	}
}

// TestRateLimiter_PerIP verifies that limits are tracked per remote IP, not
// globally.
func TestRateLimiter_PerIP(t *testing.T) {
	t.Parallel()

	rl, stop := newRateLimiter(1, 1, logging.New())
	defer stop()
	h := rl.middleware(okHandler)

	a := httptest.NewRequest(http.MethodPost, "/api/ask", nil)
	a.RemoteAddr = "10.0.0.3:1234"
	w := httptest.NewRecorder()
	h.ServeHTTP(w, a)
	if w.Code != http.StatusOK {
		t.Fatalf("first IP rejected: %d", w.Code)
	}

	b := httptest.NewRequest(http.MethodPost, "/api/ask", nil)
	b.RemoteAddr = "10.0.0.4:1234"
	w = httptest.NewRecorder()
	h.ServeHTTP(w, b)
	if w.Code != http.StatusOK {
		t.Fatalf("second IP should have its own bucket, got %d", w.Code)
	}
}

// TestRateLimiter_Evict verifies that stale entries are removed.
func TestRateLimiter_Evict(t *testing.T) {
	t.Parallel()

	rl, stop := newRateLimiter(1, 1, logging.New())
	defer stop()

	rl.getLimiter("10.0.0.5")
	rl.mu.Lock()
	rl.limiters["10.0.0.5"].lastSeen = time.Now().Add(-10 * time.Minute)
	rl.mu.Unlock()

	rl.evict()

	rl.mu.Lock()
	_, exists := rl.limiters["10.0.0.5"]
	rl.mu.Unlock()
	if exists {
		t.Error("stale entry survived eviction")
	}
}

// TestClientIP verifies IP extraction from RemoteAddr.
func TestClientIP(t *testing.T) {
	t.Parallel()

	cases := []struct {
		addr string
		want string
	}{
		{"10.0.0.1:1234", "10.0.0.1"},
		{"[::1]:8080", "[::1]"},
		{"bare-host", "bare-host"},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = tc.addr
		if got := clientIP(req); got != tc.want {
			t.Errorf("clientIP(%q) = %q, want %q", tc.addr, got, tc.want)
		}
	}
}
