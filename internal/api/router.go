// Package api serves the HTTP surface: the MCP endpoint plus a small
// operations API for health, cache management and the audit trail.
package api

import (
	"net/http"

	"github.com/revittco/anylist-mcp/internal/audit"
	"github.com/revittco/anylist-mcp/internal/cache"
	"github.com/revittco/anylist-mcp/internal/store"
)

// RouterDeps holds the dependencies needed by the HTTP router.
type RouterDeps struct {
	MCP          http.Handler        // required; serves /mcp
	Cache        *cache.SessionCache // optional; enables cache endpoints
	Audit        store.AuditStore    // optional; enables audit queries
	AuditBus     *audit.Bus          // optional; enables SSE audit stream
	Metrics      http.Handler        // optional; serves /metrics
	AllowedHosts []string            // empty allows any Host
	Version      string
}

// NewRouter creates an http.Handler with all routes and middleware.
func NewRouter(deps RouterDeps) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/mcp", deps.MCP)

	health := &healthHandler{version: deps.Version, cache: deps.Cache}
	mux.HandleFunc("GET /api/v1/health", health.get)

	if deps.Cache != nil {
		ch := &cacheHandler{cache: deps.Cache}
		mux.HandleFunc("GET /api/v1/cache", ch.stats)
		mux.Handle("POST /api/v1/cache/flush", requireJSONContentTypeMiddleware(http.HandlerFunc(ch.flush)))
	}

	if deps.Audit != nil {
		ah := &auditHandler{store: deps.Audit}
		mux.HandleFunc("GET /api/v1/audit", ah.query)
		mux.HandleFunc("GET /api/v1/audit/stats", ah.stats)
	}

	if deps.AuditBus != nil {
		sse := &auditSSEHandler{bus: deps.AuditBus}
		mux.HandleFunc("GET /api/v1/audit/stream", sse.stream)
	}

	if deps.Metrics != nil {
		mux.Handle("GET /metrics", deps.Metrics)
	}

	// Apply middleware chain: Host -> Headers -> RequestID -> Logging -> mux
	var handler http.Handler = mux
	handler = loggingMiddleware(handler)
	handler = requestIDMiddleware(handler)
	handler = securityHeadersMiddleware(handler)
	handler = allowedHostsMiddleware(deps.AllowedHosts, handler)

	return handler
}
