package api

import (
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/revittco/anylist-mcp/internal/store"
)

const (
	defaultAuditPage = 50
	maxAuditPage     = 500
	statsWindow      = 24 * time.Hour
)

type auditHandler struct {
	store store.AuditStore
}

type auditPage struct {
	Data   []store.AuditRecord `json:"data"`
	Total  int                 `json:"total"`
	Limit  int                 `json:"limit"`
	Offset int                 `json:"offset"`
}

func (h *auditHandler) query(w http.ResponseWriter, r *http.Request) {
	filter := auditFilterFromQuery(r.URL.Query())

	records, total, err := h.store.QueryAuditRecords(r.Context(), filter)
	if err != nil {
		writeErrorDetail(w, http.StatusInternalServerError, "failed to query audit records", err.Error())
		return
	}
	if records == nil {
		records = []store.AuditRecord{}
	}
	writeJSON(w, http.StatusOK, auditPage{
		Data:   records,
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	})
}

// stats defaults to the trailing 24 hours.
func (h *auditHandler) stats(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	before := time.Now().UTC()
	if t := parseTimeParam(q.Get("before")); t != nil {
		before = *t
	}
	after := before.Add(-statsWindow)
	if t := parseTimeParam(q.Get("after")); t != nil {
		after = *t
	}

	stats, err := h.store.GetAuditStats(r.Context(), after, before)
	if err != nil {
		writeErrorDetail(w, http.StatusInternalServerError, "failed to compute audit stats", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// auditFilterFromQuery reads the filter parameters. Malformed or out of
// range values fall back to their defaults instead of failing the request.
func auditFilterFromQuery(q url.Values) store.AuditFilter {
	f := store.AuditFilter{
		SessionID: optString(q.Get("session_id")),
		ToolName:  optString(q.Get("tool_name")),
		Status:    optString(q.Get("status")),
		After:     parseTimeParam(q.Get("after")),
		Before:    parseTimeParam(q.Get("before")),
		Limit:     defaultAuditPage,
	}
	if n, ok := intParam(q.Get("limit")); ok && n > 0 && n <= maxAuditPage {
		f.Limit = n
	}
	if n, ok := intParam(q.Get("offset")); ok && n >= 0 {
		f.Offset = n
	}
	return f
}

func optString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func intParam(v string) (int, bool) {
	n, err := strconv.Atoi(v)
	return n, err == nil
}

func parseTimeParam(v string) *time.Time {
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil
	}
	return &t
}
