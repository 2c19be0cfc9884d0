package api

import (
	"fmt"
	"net/http"

	"github.com/revittco/anylist-mcp/internal/cache"
)

type cacheHandler struct {
	cache *cache.SessionCache
}

func (h *cacheHandler) stats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.cache.Stats())
}

type flushRequest struct {
	SessionID string   `json:"session_id"` // optional: flush one session only
	Kinds     []string `json:"kinds"`      // optional: with session_id, only these kinds
}

func (h *cacheHandler) flush(w http.ResponseWriter, r *http.Request) {
	var req flushRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeErrorDetail(w, http.StatusBadRequest, "invalid request body", err.Error())
			return
		}
	}

	kinds := make([]cache.Kind, 0, len(req.Kinds))
	for _, k := range req.Kinds {
		switch kind := cache.Kind(k); kind {
		case cache.KindLists, cache.KindRecipes:
			kinds = append(kinds, kind)
		default:
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid kind %q: use lists or recipes", k))
			return
		}
	}
	if len(kinds) > 0 && req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "kinds require session_id")
		return
	}

	if req.SessionID != "" {
		h.cache.Invalidate(req.SessionID, kinds...)
	} else {
		h.cache.Flush()
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "flushed"})
}
