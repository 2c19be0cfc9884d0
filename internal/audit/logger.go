// Package audit records every tools/call with redacted arguments and fans
// the records out to live subscribers.
package audit

import (
	"context"
	"fmt"

	"github.com/revittco/anylist-mcp/internal/store"
)

// Logger persists tool call records and then announces them on the bus.
// A nil *Logger records nothing.
type Logger struct {
	sink       store.AuditStore
	bus        *Bus
	redactKeys []string
}

// NewLogger returns a Logger writing to sink. bus may be nil. redactKeys
// extend the built-in sensitive key patterns.
func NewLogger(sink store.AuditStore, bus *Bus, redactKeys ...string) *Logger {
	return &Logger{sink: sink, bus: bus, redactKeys: redactKeys}
}

// Record stores rec with its arguments redacted in place. Only stored
// records are published.
func (l *Logger) Record(ctx context.Context, rec *store.AuditRecord) error {
	if l == nil {
		return nil
	}
	if len(rec.ParamsRedacted) != 0 {
		rec.ParamsRedacted = Redact(rec.ParamsRedacted, l.redactKeys)
	}
	if err := l.sink.InsertAuditRecord(ctx, rec); err != nil {
		return fmt.Errorf("insert audit record %s: %w", rec.ToolName, err)
	}
	if l.bus != nil {
		l.bus.Publish(rec)
	}
	return nil
}
