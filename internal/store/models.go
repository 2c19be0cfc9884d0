package store

import (
	"encoding/json"
	"time"
)

// AuditRecord is a single tools/call audit entry.
type AuditRecord struct {
	ID             string          `json:"id"`
	Timestamp      time.Time       `json:"timestamp"`
	SessionID      string          `json:"session_id"`
	Transport      string          `json:"transport"`
	ToolName       string          `json:"tool_name"`
	ParamsRedacted json.RawMessage `json:"params_redacted,omitempty"`
	Status         string          `json:"status"`
	ErrorCode      string          `json:"error_code,omitempty"`
	ErrorMessage   string          `json:"error_message,omitempty"`
	LatencyMs      int             `json:"latency_ms"`
	ResponseSize   int             `json:"response_size"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Audit record statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// AuditFilter specifies query parameters for listing audit records.
type AuditFilter struct {
	SessionID *string    `json:"session_id,omitempty"`
	ToolName  *string    `json:"tool_name,omitempty"`
	Status    *string    `json:"status,omitempty"`
	After     *time.Time `json:"after,omitempty"`
	Before    *time.Time `json:"before,omitempty"`
	Limit     int        `json:"limit"`
	Offset    int        `json:"offset"`
}

// AuditStats summarizes the tool calls in a time window.
type AuditStats struct {
	TotalRequests int            `json:"total_requests"`
	SuccessCount  int            `json:"success_count"`
	ErrorCount    int            `json:"error_count"`
	AvgLatencyMs  float64        `json:"avg_latency_ms"`
	P95LatencyMs  int            `json:"p95_latency_ms"`
	ByTool        map[string]int `json:"by_tool,omitempty"`
}
