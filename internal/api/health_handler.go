package api

import (
	"net/http"
	"time"

	"github.com/revittco/anylist-mcp/internal/cache"
)

var startTime = time.Now()

type healthHandler struct {
	version string
	cache   *cache.SessionCache
}

type healthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	UptimeSeconds int    `json:"uptime_seconds"`
	CacheEnabled  bool   `json:"cache_enabled"`
	Sessions      int    `json:"sessions"`
}

func (h *healthHandler) get(w http.ResponseWriter, _ *http.Request) {
	resp := healthResponse{
		Status:        "ok",
		Version:       h.version,
		UptimeSeconds: int(time.Since(startTime).Seconds()),
	}
	if h.cache != nil {
		resp.CacheEnabled = h.cache.Enabled()
		resp.Sessions = h.cache.Sessions()
	}
	writeJSON(w, http.StatusOK, resp)
}
