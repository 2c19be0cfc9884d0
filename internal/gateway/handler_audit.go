package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/revittco/anylist-mcp/internal/store"
)

// recordAudit hands the call to the auditor. The write outlives a
// cancelled request, and a failed write is only logged.
func (h *handler) recordAudit(
	ctx context.Context,
	tool string,
	args json.RawMessage,
	call callInfo,
	size int,
	o outcome,
	start time.Time,
) {
	if h.auditor == nil {
		return
	}
	rec := &store.AuditRecord{
		Timestamp:      start,
		SessionID:      call.sessionID,
		Transport:      call.transport,
		ToolName:       tool,
		ParamsRedacted: args,
		Status:         o.status,
		ErrorCode:      o.code,
		ErrorMessage:   o.message,
		LatencyMs:      int(time.Since(start).Milliseconds()),
		ResponseSize:   size,
	}
	if err := h.auditor.Record(context.WithoutCancel(ctx), rec); err != nil {
		slog.Error("audit record failed", "tool", tool, "session_id", call.sessionID, "error", err)
	}
}
