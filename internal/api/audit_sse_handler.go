package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/revittco/anylist-mcp/internal/audit"
	"github.com/revittco/anylist-mcp/internal/store"
)

const sseHeartbeat = 15 * time.Second

type auditSSEHandler struct {
	bus *audit.Bus
}

// stream pushes each new audit record as an "audit" event. Comment lines
// are sent as heartbeats so idle proxies keep the connection open.
func (h *auditSSEHandler) stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}
	match := recordMatcher(r.URL.Query())

	hdr := w.Header()
	hdr.Set("Content-Type", "text/event-stream")
	hdr.Set("Cache-Control", "no-cache")
	hdr.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := h.bus.Subscribe()
	defer h.bus.Unsubscribe(ch)

	tick := time.NewTicker(sseHeartbeat)
	defer tick.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-tick.C:
			_, _ = fmt.Fprint(w, ": ping\n\n")
		case rec, open := <-ch:
			if !open {
				return
			}
			if !match(rec) {
				continue
			}
			data, err := json.Marshal(rec)
			if err != nil {
				slog.Warn("encode audit event", "id", rec.ID, "error", err)
				continue
			}
			_, _ = fmt.Fprintf(w, "id: %s\nevent: audit\ndata: %s\n\n", rec.ID, data)
		}
		flusher.Flush()
	}
}

// recordMatcher builds a predicate from the tool_name, status and
// session_id query parameters. Absent parameters match anything.
func recordMatcher(q url.Values) func(*store.AuditRecord) bool {
	tool, status, session := q.Get("tool_name"), q.Get("status"), q.Get("session_id")
	eq := func(want, got string) bool { return want == "" || want == got }
	return func(rec *store.AuditRecord) bool {
		return eq(tool, rec.ToolName) && eq(status, rec.Status) && eq(session, rec.SessionID)
	}
}
