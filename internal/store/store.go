// Package store defines persistence contracts shared by the sqlite
// backend and its callers.
package store

import (
	"context"
	"time"
)

// Store is everything the server keeps on disk besides the account data
// owned by the AnyList client.
type Store interface {
	AuditStore
	Ping(ctx context.Context) error
	Close() error
}

type AuditStore interface {
	InsertAuditRecord(ctx context.Context, r *AuditRecord) error
	// QueryAuditRecords returns a page of records and the unpaged total.
	QueryAuditRecords(ctx context.Context, f AuditFilter) ([]AuditRecord, int, error)
	GetAuditStats(ctx context.Context, after, before time.Time) (*AuditStats, error)
}
