package api

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/revittco/anylist-mcp/internal/audit"
	"github.com/revittco/anylist-mcp/internal/cache"
	"github.com/revittco/anylist-mcp/internal/store"
)

type fakeAuditStore struct {
	records []store.AuditRecord
	filter  store.AuditFilter
}

func (f *fakeAuditStore) InsertAuditRecord(_ context.Context, r *store.AuditRecord) error {
	f.records = append(f.records, *r)
	return nil
}

func (f *fakeAuditStore) QueryAuditRecords(_ context.Context, filter store.AuditFilter) ([]store.AuditRecord, int, error) {
	f.filter = filter
	return f.records, len(f.records), nil
}

func (f *fakeAuditStore) GetAuditStats(_ context.Context, _, _ time.Time) (*store.AuditStats, error) {
	return &store.AuditStats{TotalRequests: len(f.records)}, nil
}

type routerFixture struct {
	handler http.Handler
	cache   *cache.SessionCache
	audit   *fakeAuditStore
	bus     *audit.Bus
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()
	f := &routerFixture{
		cache: cache.NewSessionCache(time.Minute),
		audit: &fakeAuditStore{},
		bus:   audit.NewBus(),
	}
	f.handler = NewRouter(RouterDeps{
		MCP: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}),
		Cache:    f.cache,
		Audit:    f.audit,
		AuditBus: f.bus,
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("# metrics\n"))
		}),
		Version: "test",
	})
	return f
}

func (f *routerFixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, req)
	return rr
}

func TestRouterMCPAndMetrics(t *testing.T) {
	f := newRouterFixture(t)

	for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodDelete} {
		if rr := f.do(t, method, "/mcp", ""); rr.Code != http.StatusTeapot {
			t.Fatalf("%s /mcp: status %d", method, rr.Code)
		}
	}
	if rr := f.do(t, http.MethodGet, "/metrics", ""); rr.Code != http.StatusOK {
		t.Fatalf("/metrics: status %d", rr.Code)
	}
}

func TestHealth(t *testing.T) {
	f := newRouterFixture(t)
	f.cache.Set("s1", cache.KindLists, "x")

	rr := f.do(t, http.MethodGet, "/api/v1/health", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	var resp healthResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != "ok" || resp.Version != "test" || !resp.CacheEnabled || resp.Sessions != 1 {
		t.Fatalf("unexpected health: %+v", resp)
	}
}

func TestCacheFlush(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantS1     bool // s1 lists still cached
		wantS2     bool
	}{
		{"flush all", "", http.StatusOK, false, false},
		{"one session", `{"session_id":"s1"}`, http.StatusOK, false, true},
		{"one kind", `{"session_id":"s1","kinds":["recipes"]}`, http.StatusOK, true, true},
		{"bad kind", `{"session_id":"s1","kinds":["events"]}`, http.StatusBadRequest, true, true},
		{"kinds without session", `{"kinds":["lists"]}`, http.StatusBadRequest, true, true},
		{"unknown field", `{"layer":"all"}`, http.StatusBadRequest, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newRouterFixture(t)
			f.cache.Set("s1", cache.KindLists, "a")
			f.cache.Set("s1", cache.KindRecipes, "b")
			f.cache.Set("s2", cache.KindLists, "c")

			rr := f.do(t, http.MethodPost, "/api/v1/cache/flush", tt.body)
			if rr.Code != tt.wantStatus {
				t.Fatalf("status %d, want %d: %s", rr.Code, tt.wantStatus, rr.Body.String())
			}
			if _, ok := f.cache.Get("s1", cache.KindLists); ok != tt.wantS1 {
				t.Fatalf("s1 lists cached = %v, want %v", ok, tt.wantS1)
			}
			if _, ok := f.cache.Get("s2", cache.KindLists); ok != tt.wantS2 {
				t.Fatalf("s2 lists cached = %v, want %v", ok, tt.wantS2)
			}
		})
	}
}

func TestCacheStats(t *testing.T) {
	f := newRouterFixture(t)
	f.cache.Set("s1", cache.KindLists, "a")
	f.cache.Get("s1", cache.KindLists)
	f.cache.Get("s1", cache.KindRecipes)

	rr := f.do(t, http.MethodGet, "/api/v1/cache", "")
	var stats cache.Stats
	if err := json.Unmarshal(rr.Body.Bytes(), &stats); err != nil {
		t.Fatal(err)
	}
	if stats.Hits != 1 || stats.Misses != 1 || stats.Entries != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestAuditQuery(t *testing.T) {
	f := newRouterFixture(t)
	f.audit.records = []store.AuditRecord{{ID: "a1", ToolName: "anylist_lists", Status: store.StatusSuccess}}

	rr := f.do(t, http.MethodGet, "/api/v1/audit?tool_name=anylist_lists&limit=10&offset=-1&after=bogus", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	if f.audit.filter.ToolName == nil || *f.audit.filter.ToolName != "anylist_lists" {
		t.Fatalf("tool filter not applied: %+v", f.audit.filter)
	}
	if f.audit.filter.Limit != 10 || f.audit.filter.Offset != 0 || f.audit.filter.After != nil {
		t.Fatalf("unexpected filter: %+v", f.audit.filter)
	}

	var body struct {
		Data  []store.AuditRecord `json:"data"`
		Total int                 `json:"total"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Total != 1 || len(body.Data) != 1 || body.Data[0].ID != "a1" {
		t.Fatalf("unexpected body: %+v", body)
	}

	rr = f.do(t, http.MethodGet, "/api/v1/audit/stats", "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"total_requests":1`) {
		t.Fatalf("stats: %d %s", rr.Code, rr.Body.String())
	}
}

func TestAuditStream(t *testing.T) {
	f := newRouterFixture(t)
	srv := httptest.NewServer(f.handler)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/audit/stream?status=error", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type %q", ct)
	}

	for f.bus.Subscribers() == 0 {
		time.Sleep(5 * time.Millisecond)
	}
	f.bus.Publish(&store.AuditRecord{ID: "skip", Status: store.StatusSuccess})
	f.bus.Publish(&store.AuditRecord{ID: "keep", Status: store.StatusError})

	sc := bufio.NewScanner(resp.Body)
	for sc.Scan() {
		line := sc.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var rec store.AuditRecord
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &rec); err != nil {
			t.Fatal(err)
		}
		if rec.ID != "keep" {
			t.Fatalf("got record %q, want only the error record", rec.ID)
		}
		return
	}
	t.Fatalf("stream ended: %v", sc.Err())
}
