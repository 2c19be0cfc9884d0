package audit

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/revittco/anylist-mcp/internal/store"
)

func TestRedact(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		hints []string
		want  string
	}{
		{"no sensitive keys", `{"listName":"Groceries"}`, nil, `{"listName":"Groceries"}`},
		{"password", `{"password":"x","name":"Milk"}`, nil, `{"name":"Milk","password":"[REDACTED]"}`},
		{"case insensitive", `{"AccessToken":"abc"}`, nil, `{"AccessToken":"[REDACTED]"}`},
		{"nested object", `{"auth":{"secret":"s"}}`, nil, `{"auth":{"secret":"[REDACTED]"}}`},
		{"inside array", `{"ingredients":[{"note":"n","cookie":"c"}]}`, nil, `{"ingredients":[{"cookie":"[REDACTED]","note":"n"}]}`},
		{"hint", `{"details":"gate code 1234"}`, []string{"details"}, `{"details":"[REDACTED]"}`},
		{"not json", `not json`, nil, `not json`},
		{"empty", ``, nil, ``},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Redact(json.RawMessage(tt.in), tt.hints)
			if string(got) != tt.want {
				t.Fatalf("Redact(%s) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

type memStore struct {
	records []*store.AuditRecord
	err     error
}

func (m *memStore) InsertAuditRecord(_ context.Context, r *store.AuditRecord) error {
	if m.err != nil {
		return m.err
	}
	m.records = append(m.records, r)
	return nil
}

func (m *memStore) QueryAuditRecords(context.Context, store.AuditFilter) ([]store.AuditRecord, int, error) {
	return nil, 0, nil
}

func (m *memStore) GetAuditStats(context.Context, time.Time, time.Time) (*store.AuditStats, error) {
	return &store.AuditStats{}, nil
}

func TestLoggerRecordRedactsAndPublishes(t *testing.T) {
	st := &memStore{}
	bus := NewBus()
	ch := bus.Subscribe()
	defer bus.Unsubscribe(ch)

	l := NewLogger(st, bus, "details")
	rec := &store.AuditRecord{
		ToolName:       "anylist_add_item",
		Status:         store.StatusSuccess,
		ParamsRedacted: json.RawMessage(`{"name":"Milk","details":"private"}`),
	}
	if err := l.Record(context.Background(), rec); err != nil {
		t.Fatalf("record: %v", err)
	}

	if len(st.records) != 1 {
		t.Fatalf("stored %d records, want 1", len(st.records))
	}
	if got := string(st.records[0].ParamsRedacted); got != `{"details":"[REDACTED]","name":"Milk"}` {
		t.Fatalf("params = %s", got)
	}

	select {
	case got := <-ch:
		if got != rec {
			t.Fatal("published a different record")
		}
	default:
		t.Fatal("record was not published")
	}
}

func TestLoggerStoreFailureSkipsPublish(t *testing.T) {
	st := &memStore{err: errors.New("disk full")}
	bus := NewBus()
	ch := bus.Subscribe()
	defer bus.Unsubscribe(ch)

	err := NewLogger(st, bus).Record(context.Background(), &store.AuditRecord{ToolName: "x"})
	if err == nil {
		t.Fatal("expected error")
	}
	select {
	case <-ch:
		t.Fatal("failed record was published")
	default:
	}
}

func TestNilLogger(t *testing.T) {
	var l *Logger
	if err := l.Record(context.Background(), &store.AuditRecord{}); err != nil {
		t.Fatalf("nil logger: %v", err)
	}
}

func TestBusDropsWhenFull(t *testing.T) {
	bus := NewBus()
	ch := bus.Subscribe()
	for range subscriberBuffer + 10 {
		bus.Publish(&store.AuditRecord{})
	}
	if len(ch) != subscriberBuffer {
		t.Fatalf("buffered = %d, want %d", len(ch), subscriberBuffer)
	}
	if bus.Dropped() != 10 {
		t.Fatalf("dropped = %d, want 10", bus.Dropped())
	}

	bus.Unsubscribe(ch)
	bus.Unsubscribe(ch)
	if bus.Subscribers() != 0 {
		t.Fatalf("subscribers = %d, want 0", bus.Subscribers())
	}
	for range ch {
	}
}
