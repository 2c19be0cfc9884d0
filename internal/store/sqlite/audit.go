package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/revittco/anylist-mcp/internal/store"
)

const (
	auditColumns = `id, timestamp, session_id, transport, tool_name,
		params_redacted, status, error_code, error_message, latency_ms,
		response_size, created_at`

	defaultAuditLimit = 50
)

func (d *DB) InsertAuditRecord(ctx context.Context, r *store.AuditRecord) error {
	now := d.now().UTC()
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = now
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}

	_, err := d.q.ExecContext(ctx,
		`INSERT INTO audit_records (`+auditColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, formatTime(r.Timestamp), r.SessionID, r.Transport, r.ToolName,
		normalizeJSON(r.ParamsRedacted, "{}"), r.Status, r.ErrorCode,
		r.ErrorMessage, r.LatencyMs, r.ResponseSize, formatTime(r.CreatedAt),
	)
	return mapConstraintError(err)
}

// QueryAuditRecords returns one page of matching records, newest first,
// together with the total number of matches.
func (d *DB) QueryAuditRecords(
	ctx context.Context, f store.AuditFilter,
) ([]store.AuditRecord, int, error) {
	var c conds
	c.eq("session_id", f.SessionID)
	c.eq("tool_name", f.ToolName)
	c.eq("status", f.Status)
	c.timeRange(f.After, f.Before)

	var total int
	err := d.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM audit_records`+c.sql(), c.args...,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count audit records: %w", err)
	}
	if total == 0 {
		return nil, 0, nil
	}

	limit := f.Limit
	if limit <= 0 {
		limit = defaultAuditLimit
	}
	rows, err := d.q.QueryContext(ctx,
		`SELECT `+auditColumns+` FROM audit_records`+c.sql()+
			` ORDER BY timestamp DESC LIMIT ? OFFSET ?`,
		append(c.args, limit, f.Offset)...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("query audit records: %w", err)
	}
	defer rows.Close()

	out := make([]store.AuditRecord, 0, min(limit, total))
	for rows.Next() {
		r, err := scanAuditRow(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *r)
	}
	return out, total, rows.Err()
}

// GetAuditStats aggregates the records in [after, before]. The p95 latency
// is the nearest-rank value over the window.
func (d *DB) GetAuditStats(
	ctx context.Context, after, before time.Time,
) (*store.AuditStats, error) {
	var c conds
	c.timeRange(&after, &before)

	s := &store.AuditStats{ByTool: make(map[string]int)}
	err := d.q.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(status = 'success'), 0),
			COALESCE(SUM(status = 'error'), 0),
			COALESCE(AVG(latency_ms), 0)
		FROM audit_records`+c.sql(), c.args...,
	).Scan(&s.TotalRequests, &s.SuccessCount, &s.ErrorCount, &s.AvgLatencyMs)
	if err != nil {
		return nil, fmt.Errorf("audit totals: %w", err)
	}
	if s.TotalRequests == 0 {
		return s, nil
	}

	rank := s.TotalRequests * 95 / 100
	err = d.q.QueryRowContext(ctx,
		`SELECT latency_ms FROM audit_records`+c.sql()+
			` ORDER BY latency_ms LIMIT 1 OFFSET ?`,
		append(c.args, rank)...,
	).Scan(&s.P95LatencyMs)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("audit p95: %w", err)
	}

	rows, err := d.q.QueryContext(ctx,
		`SELECT tool_name, COUNT(*) FROM audit_records`+c.sql()+
			` GROUP BY tool_name`, c.args...,
	)
	if err != nil {
		return nil, fmt.Errorf("audit by tool: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			name string
			n    int
		)
		if err := rows.Scan(&name, &n); err != nil {
			return nil, fmt.Errorf("scan tool count: %w", err)
		}
		s.ByTool[name] = n
	}
	return s, rows.Err()
}

// conds accumulates AND-ed WHERE conditions and their arguments.
type conds struct {
	clauses []string
	args    []any
}

func (c *conds) add(clause string, arg any) {
	c.clauses = append(c.clauses, clause)
	c.args = append(c.args, arg)
}

func (c *conds) eq(column string, v *string) {
	if v != nil {
		c.add(column+" = ?", *v)
	}
}

func (c *conds) timeRange(after, before *time.Time) {
	if after != nil {
		c.add("timestamp >= ?", formatTime(*after))
	}
	if before != nil {
		c.add("timestamp <= ?", formatTime(*before))
	}
}

func (c *conds) sql() string {
	if len(c.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(c.clauses, " AND ")
}

func scanAuditRow(row rowScanner) (*store.AuditRecord, error) {
	var (
		r                   store.AuditRecord
		ts, created, params string
	)
	err := row.Scan(
		&r.ID, &ts, &r.SessionID, &r.Transport, &r.ToolName, &params,
		&r.Status, &r.ErrorCode, &r.ErrorMessage, &r.LatencyMs,
		&r.ResponseSize, &created,
	)
	if err != nil {
		return nil, fmt.Errorf("scan audit row: %w", err)
	}
	r.ParamsRedacted = json.RawMessage(params)
	r.Timestamp = parseTime(ts)
	r.CreatedAt = parseTime(created)
	return &r, nil
}
