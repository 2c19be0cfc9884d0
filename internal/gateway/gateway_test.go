package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/revittco/anylist-mcp/internal/anylist"
	"github.com/revittco/anylist-mcp/internal/anylist/anylisttest"
	"github.com/revittco/anylist-mcp/internal/audit"
	"github.com/revittco/anylist-mcp/internal/cache"
	"github.com/revittco/anylist-mcp/internal/store"
	"github.com/revittco/anylist-mcp/internal/tools"
)

// --- Test doubles ---

type memAuditStore struct {
	mu      sync.Mutex
	records []store.AuditRecord
}

func (m *memAuditStore) InsertAuditRecord(_ context.Context, r *store.AuditRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, *r)
	return nil
}

func (m *memAuditStore) QueryAuditRecords(context.Context, store.AuditFilter) ([]store.AuditRecord, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]store.AuditRecord(nil), m.records...), len(m.records), nil
}

func (m *memAuditStore) GetAuditStats(context.Context, time.Time, time.Time) (*store.AuditStats, error) {
	return &store.AuditStats{}, nil
}

type fixture struct {
	server  *Server
	backend *anylisttest.Backend
	audit   *memAuditStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	b := anylisttest.New()
	b.Account.UserID = "user-1"
	b.AddList("Groceries", &anylist.Item{Name: "Milk"})

	sess := anylist.NewSession(b, anylist.Credentials{Email: "cook@example.com", Password: "pw"})
	client := cache.NewCachingClient(sess, cache.NewSessionCache(time.Minute), nil)
	st := &memAuditStore{}
	srv := NewServer(tools.NewRegistry(client), WithAuditor(audit.NewLogger(st, nil)))
	return &fixture{server: srv, backend: b, audit: st}
}

// runStdio feeds lines through the stdio loop and returns the decoded
// responses.
func runStdio(t *testing.T, srv *Server, lines ...string) []Response {
	t.Helper()
	var out bytes.Buffer
	in := strings.NewReader(strings.Join(lines, "\n") + "\n")
	if err := srv.RunConn(context.Background(), in, &out); err != nil {
		t.Fatalf("run: %v", err)
	}

	var resps []Response
	dec := json.NewDecoder(&out)
	for dec.More() {
		var r Response
		if err := dec.Decode(&r); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		resps = append(resps, r)
	}
	return resps
}

func callLine(id int, tool, args string) string {
	return `{"jsonrpc":"2.0","id":` + strconv.Itoa(id) + `,"method":"tools/call","params":{"name":"` + tool + `","arguments":` + args + `}}`
}

func decodeResult(t *testing.T, r Response) CallToolResult {
	t.Helper()
	if r.Error != nil {
		t.Fatalf("unexpected rpc error: %+v", r.Error)
	}
	var res CallToolResult
	if err := json.Unmarshal(r.Result, &res); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	return res
}

// --- stdio ---

func TestInitializeAndPing(t *testing.T) {
	f := newFixture(t)
	resps := runStdio(t, f.server,
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-03-26","clientInfo":{"name":"test","version":"1"}}}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","id":2,"method":"ping"}`,
	)
	if len(resps) != 2 {
		t.Fatalf("got %d responses, want 2 (notification must not reply)", len(resps))
	}

	var init InitializeResult
	if err := json.Unmarshal(resps[0].Result, &init); err != nil {
		t.Fatalf("decode initialize: %v", err)
	}
	if init.ProtocolVersion != ProtocolVersion || init.ServerInfo.Name != "anylist-mcp" {
		t.Fatalf("initialize = %+v", init)
	}
	if init.Capabilities.Tools == nil {
		t.Fatal("tools capability missing")
	}

	if string(resps[1].ID) != "2" || string(resps[1].Result) != "{}" {
		t.Fatalf("ping = id %s result %s", resps[1].ID, resps[1].Result)
	}
}

func TestToolsList(t *testing.T) {
	f := newFixture(t)
	resps := runStdio(t, f.server, `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)

	var res struct {
		Tools []Tool `json:"tools"`
	}
	if err := json.Unmarshal(resps[0].Result, &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(res.Tools) != 15 {
		t.Fatalf("got %d tools, want 15", len(res.Tools))
	}
	if res.Tools[0].Name != "anylist_lists" || len(res.Tools[0].InputSchema) == 0 {
		t.Fatalf("first tool = %+v", res.Tools[0])
	}
}

func TestToolsCallSuccess(t *testing.T) {
	f := newFixture(t)
	resps := runStdio(t, f.server, callLine(1, "anylist_list_items", `{"listName":"  groceries "}`))

	res := decodeResult(t, resps[0])
	if res.IsError || len(res.Content) != 1 || res.Content[0].Type != "text" {
		t.Fatalf("result = %+v", res)
	}
	var body struct {
		List  map[string]any   `json:"list"`
		Items []map[string]any `json:"items"`
	}
	if err := json.Unmarshal([]byte(res.Content[0].Text), &body); err != nil {
		t.Fatalf("decode text: %v", err)
	}
	if body.List["name"] != "Groceries" || len(body.Items) != 1 || body.Items[0]["name"] != "Milk" {
		t.Fatalf("body = %+v", body)
	}
	if !strings.Contains(res.Content[0].Text, "\n  ") {
		t.Fatal("expected indented JSON text")
	}
}

func TestToolsCallErrors(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name     string
		line     string
		wantCode int
		wantMsg  string
		isError  bool
	}{
		{
			name:     "unknown tool",
			line:     callLine(1, "anylist_nope", `{}`),
			wantCode: CodeMethodNotFound,
			wantMsg:  "unknown tool: anylist_nope",
		},
		{
			name:     "both targets",
			line:     callLine(2, "anylist_list_items", `{"listId":"a","listName":"b"}`),
			wantCode: CodeInvalidParams,
			wantMsg:  "Provide exactly one of listId or listName.",
		},
		{
			name:     "unknown key",
			line:     callLine(3, "anylist_lists", `{"extra":1}`),
			wantCode: CodeInvalidParams,
			wantMsg:  "Unrecognized key",
		},
		{
			name:     "missing tool name",
			line:     `{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{}}`,
			wantCode: CodeInvalidParams,
			wantMsg:  "missing tool name",
		},
		{
			name:    "list not found",
			line:    callLine(5, "anylist_list_items", `{"listName":"Hardware"}`),
			isError: true,
			wantMsg: "List not found.",
		},
		{
			name:     "unknown method",
			line:     `{"jsonrpc":"2.0","id":6,"method":"resources/list"}`,
			wantCode: CodeMethodNotFound,
			wantMsg:  "unknown method",
		},
		{
			name:     "parse error",
			line:     `{not json`,
			wantCode: CodeParseError,
			wantMsg:  "invalid JSON",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resps := runStdio(t, f.server, tt.line)
			if len(resps) != 1 {
				t.Fatalf("got %d responses", len(resps))
			}
			r := resps[0]
			if tt.isError {
				res := decodeResult(t, r)
				if !res.IsError || res.Content[0].Text != tt.wantMsg {
					t.Fatalf("result = %+v, want isError %q", res, tt.wantMsg)
				}
				return
			}
			if r.Error == nil {
				t.Fatalf("expected rpc error, got result %s", r.Result)
			}
			if r.Error.Code != tt.wantCode || !strings.Contains(r.Error.Message, tt.wantMsg) {
				t.Fatalf("error = %+v, want code %d containing %q", r.Error, tt.wantCode, tt.wantMsg)
			}
		})
	}
}

func TestUpstreamFailureIsCallScoped(t *testing.T) {
	f := newFixture(t)
	f.backend.LoginErr = errLogin
	resps := runStdio(t, f.server,
		callLine(1, "anylist_lists", `{}`),
		`{"jsonrpc":"2.0","id":2,"method":"ping"}`,
	)
	res := decodeResult(t, resps[0])
	if !res.IsError || !strings.Contains(res.Content[0].Text, "login refused") {
		t.Fatalf("result = %+v", res)
	}
	if resps[1].Error != nil {
		t.Fatalf("ping after failed call: %+v", resps[1].Error)
	}
}

var errLogin = errors.New("login refused")

func TestToolsCallIsAudited(t *testing.T) {
	f := newFixture(t)
	runStdio(t, f.server,
		callLine(1, "anylist_add_item", `{"listName":"Groceries","name":"Eggs","password":"x"}`),
		callLine(2, "anylist_list_items", `{"listName":"Hardware"}`),
		callLine(3, "anylist_lists", `{}`),
	)

	recs := f.audit.records
	if len(recs) != 3 {
		t.Fatalf("audit records = %d, want 3", len(recs))
	}
	if recs[0].Status != store.StatusError || recs[0].ErrorCode != "-32602" {
		t.Fatalf("validation record = %+v", recs[0])
	}
	if !strings.Contains(string(recs[0].ParamsRedacted), "[REDACTED]") {
		t.Fatalf("params not redacted: %s", recs[0].ParamsRedacted)
	}
	if recs[1].Status != store.StatusError || recs[1].ErrorCode != "tool_error" || recs[1].ErrorMessage != "List not found." {
		t.Fatalf("not found record = %+v", recs[1])
	}
	if recs[2].Status != store.StatusSuccess || recs[2].Transport != TransportStdio || recs[2].ResponseSize == 0 {
		t.Fatalf("success record = %+v", recs[2])
	}
}

// --- Streamable HTTP ---

func postJSON(t *testing.T, h http.Handler, body, session string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if session != "" {
		req.Header.Set(SessionHeader, session)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHTTPInitializeIssuesSession(t *testing.T) {
	f := newFixture(t)
	h := f.server.HTTPHandler()

	rec := postJSON(t, h, `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	first := rec.Header().Get(SessionHeader)
	if first == "" {
		t.Fatal("initialize did not issue a session id")
	}

	rec = postJSON(t, h, `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`, "")
	if second := rec.Header().Get(SessionHeader); second == "" || second == first {
		t.Fatalf("second session = %q, want fresh id", second)
	}

	rec = postJSON(t, h, `{"jsonrpc":"2.0","id":2,"method":"ping"}`, first)
	if rec.Header().Get(SessionHeader) != "" {
		t.Fatal("ping should not issue a session id")
	}
}

func TestHTTPSessionsPartitionCache(t *testing.T) {
	f := newFixture(t)
	h := f.server.HTTPHandler()
	list := callLine(1, "anylist_lists", `{}`)

	postJSON(t, h, list, "session-a")
	postJSON(t, h, list, "session-a")
	if got := f.backend.ListFetches(); got != 1 {
		t.Fatalf("fetches after repeat in one session = %d, want 1", got)
	}

	postJSON(t, h, list, "session-b")
	if got := f.backend.ListFetches(); got != 2 {
		t.Fatalf("fetches after second session = %d, want 2", got)
	}

	postJSON(t, h, list, "")
	postJSON(t, h, list, "")
	if got := f.backend.ListFetches(); got != 3 {
		t.Fatalf("fetches for default partition = %d, want 3", got)
	}

	recs := f.audit.records
	if recs[0].SessionID != "session-a" || recs[0].Transport != TransportHTTP {
		t.Fatalf("audit record = %+v", recs[0])
	}
}

func TestHTTPNotificationAccepted(t *testing.T) {
	f := newFixture(t)
	rec := postJSON(t, f.server.HTTPHandler(), `{"jsonrpc":"2.0","method":"notifications/initialized"}`, "")
	if rec.Code != http.StatusAccepted || rec.Body.Len() != 0 {
		t.Fatalf("status = %d body = %q", rec.Code, rec.Body.String())
	}
}

func TestHTTPBatch(t *testing.T) {
	f := newFixture(t)
	body := `[{"jsonrpc":"2.0","id":1,"method":"ping"},` +
		`{"jsonrpc":"2.0","method":"notifications/initialized"},` +
		`{"jsonrpc":"2.0","id":2,"method":"tools/list"}]`
	rec := postJSON(t, f.server.HTTPHandler(), body, "")

	var resps []Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resps); err != nil {
		t.Fatalf("decode batch: %v (%s)", err, rec.Body.String())
	}
	if len(resps) != 2 || string(resps[0].ID) != "1" || string(resps[1].ID) != "2" {
		t.Fatalf("batch responses = %+v", resps)
	}
}

func TestHTTPBadBody(t *testing.T) {
	f := newFixture(t)
	for _, body := range []string{`{oops`, `[]`} {
		rec := postJSON(t, f.server.HTTPHandler(), body, "")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: status = %d, want 400", body, rec.Code)
		}
		var r Response
		if err := json.Unmarshal(rec.Body.Bytes(), &r); err != nil || r.Error == nil || r.Error.Code != CodeParseError {
			t.Fatalf("%s: body = %s", body, rec.Body.String())
		}
	}
}

func TestHTTPGetAndDelete(t *testing.T) {
	f := newFixture(t)
	h := f.server.HTTPHandler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/mcp", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET status = %d", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"id":null,"jsonrpc":"2.0","result":{"status":"ok"}}` {
		t.Fatalf("GET body = %s", got)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/mcp", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("DELETE status = %d", rec.Code)
	}
	var r Response
	if err := json.Unmarshal(rec.Body.Bytes(), &r); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if r.Error == nil || r.Error.Code != CodeServerError || r.Error.Message != "Method not allowed." {
		t.Fatalf("DELETE body = %s", rec.Body.String())
	}
	if string(r.ID) != "null" && r.ID != nil {
		t.Fatalf("DELETE id = %s, want null", r.ID)
	}
}
