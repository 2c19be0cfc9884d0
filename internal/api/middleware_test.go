package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func noContent() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestSecurityHeadersMiddleware(t *testing.T) {
	h := securityHeadersMiddleware(noContent())

	req := httptest.NewRequest(http.MethodGet, "http://localhost/api/v1/health", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if got := rr.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("expected nosniff header, got %q", got)
	}
	if got := rr.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Fatalf("expected DENY frame header, got %q", got)
	}
	if got := rr.Header().Get("Content-Security-Policy"); got == "" {
		t.Fatal("expected CSP header to be set")
	}
}

func TestAllowedHostsMiddleware(t *testing.T) {
	h := allowedHostsMiddleware([]string{"localhost", "anylist-mcp", "::1"}, noContent())

	tests := []struct {
		host string
		want int
	}{
		{"localhost", http.StatusNoContent},
		{"localhost:3333", http.StatusNoContent},
		{"LOCALHOST:3333", http.StatusNoContent},
		{"anylist-mcp:8080", http.StatusNoContent},
		{"[::1]:3333", http.StatusNoContent},
		{"evil.example", http.StatusForbidden},
		{"evil.example:3333", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
			req.Host = tt.host
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			if rr.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, rr.Code)
			}
		})
	}

	t.Run("empty list allows all", func(t *testing.T) {
		h := allowedHostsMiddleware(nil, noContent())
		req := httptest.NewRequest(http.MethodGet, "http://evil.example/mcp", nil)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code != http.StatusNoContent {
			t.Fatalf("expected %d, got %d", http.StatusNoContent, rr.Code)
		}
	})
}

func TestRequireJSONContentTypeMiddleware(t *testing.T) {
	h := requireJSONContentTypeMiddleware(noContent())

	t.Run("rejects non-json content type", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "http://localhost/api/v1/cache/flush", strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "text/plain")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code != http.StatusUnsupportedMediaType {
			t.Fatalf("expected %d, got %d", http.StatusUnsupportedMediaType, rr.Code)
		}
	})

	t.Run("allows json content type", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "http://localhost/api/v1/cache/flush", strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code != http.StatusNoContent {
			t.Fatalf("expected %d, got %d", http.StatusNoContent, rr.Code)
		}
	})

	t.Run("allows empty post body without content type", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "http://localhost/api/v1/cache/flush", nil)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code != http.StatusNoContent {
			t.Fatalf("expected %d, got %d", http.StatusNoContent, rr.Code)
		}
	})
}

func TestRequestIDMiddleware(t *testing.T) {
	const inbound = "0b6f3c1e-5d7a-4c2b-9e8f-1a2b3c4d5e6f"

	tests := []struct {
		name     string
		header   string
		wantSame bool
	}{
		{"generated", "", false},
		{"reuses uuid", inbound, true},
		{"replaces junk", "not-a-uuid", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			h := requestIDMiddleware(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				seen = requestIDFrom(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("X-Request-ID", tt.header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			id := rr.Header().Get("X-Request-ID")
			if id == "" || seen != id {
				t.Fatalf("context id = %q, header id = %q", seen, id)
			}
			if (id == tt.header) != tt.wantSame {
				t.Fatalf("id = %q, inbound %q, want reuse %v", id, tt.header, tt.wantSame)
			}
		})
	}
}

func TestLoggingMiddlewareKeepsFlusher(t *testing.T) {
	var flushable bool
	h := loggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, flushable = w.(http.Flusher)
		_, _ = w.Write([]byte("ok"))
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if !flushable {
		t.Fatal("wrapped writer does not implement http.Flusher")
	}
	if rr.Body.String() != "ok" {
		t.Fatalf("body = %q", rr.Body.String())
	}
}
