package security

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

// TestOriginAllowed covers the matching rules including the open
// default.
func TestOriginAllowed(t *testing.T) {
	if !OriginAllowed("https://anything.example", nil) {
		t.Fatalf("empty list should allow every origin")
	}
	allowed := []string{"https://chat.example.com"}
	if !OriginAllowed("https://chat.example.com", allowed) {
		t.Fatalf("exact match should pass")
	}
	if !OriginAllowed("HTTPS://CHAT.EXAMPLE.COM", allowed) {
		t.Fatalf("match is case-insensitive")
	}
	if OriginAllowed("https://evil.example.com", allowed) {
		t.Fatalf("unlisted origin should fail")
	}
	if !OriginAllowed("https://evil.example.com", []string{"*"}) {
		t.Fatalf("wildcard should pass everything")
	}
}

// TestCORSHeaders verifies the preflight short-circuit and the echoed
// origin header.
func TestCORSHeaders(t *testing.T) {
	h := Middleware(SecConfig{AllowedOrigins: []string{"https://chat.example.com"}})(okHandler())

	req := httptest.NewRequest(http.MethodOptions, "/signup", nil)
	req.Header.Set("Origin", "https://chat.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight status %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://chat.example.com" {
		t.Fatalf("allow-origin %q", got)
	}
	if rec.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Fatalf("credentials header missing")
	}

	// unlisted origin gets no CORS headers but the request still runs
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatalf("unlisted origin must not be echoed")
	}
}

// TestIPWhitelist verifies non-listed clients are rejected.
func TestIPWhitelist(t *testing.T) {
	h := Middleware(SecConfig{IPWhitelist: []string{"10.0.0.1"}})(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:54321"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("whitelisted client: status %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.2:54321"
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("non-whitelisted client: status %d", rec.Code)
	}
}

// TestRateLimit verifies the per-client limiter kicks in and that the
// liveness probe bypasses it.
func TestRateLimit(t *testing.T) {
	h := Middleware(SecConfig{RPS: 1, Burst: 2})(okHandler())

	limited := false
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.9:1000"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code == http.StatusTooManyRequests {
			limited = true
		}
	}
	if !limited {
		t.Fatalf("burst of requests should trip the limiter")
	}

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.RemoteAddr = "10.0.0.9:1000"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz must bypass the limiter: status %d", rec.Code)
	}
}
