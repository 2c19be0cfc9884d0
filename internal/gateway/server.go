// Package gateway speaks MCP (JSON-RPC 2.0) over stdio and Streamable HTTP
// and dispatches tools/call to the tool registry.
package gateway

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/revittco/anylist-mcp/internal/audit"
	"github.com/revittco/anylist-mcp/internal/observe"
	"github.com/revittco/anylist-mcp/internal/tools"
)

// Transport names recorded on audit records.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// maxMessageSize bounds a single JSON-RPC message on either transport.
const maxMessageSize = 1024 * 1024

// Server answers MCP requests. One Server can serve stdio and HTTP at
// the same time.
type Server struct {
	handler *handler
	writeMu sync.Mutex
}

type ServerOption func(*handler)

// WithAuditor records every tools/call.
func WithAuditor(a *audit.Logger) ServerOption {
	return func(h *handler) { h.auditor = a }
}

// WithMetrics meters every tools/call.
func WithMetrics(m *observe.Metrics) ServerOption {
	return func(h *handler) { h.metrics = m }
}

// WithVersion sets the version reported by initialize.
func WithVersion(v string) ServerOption {
	return func(h *handler) { h.info.Version = v }
}

// NewServer creates an MCP server around the tool registry.
func NewServer(reg *tools.Registry, opts ...ServerOption) *Server {
	h := &handler{
		registry: reg,
		info:     ServerInfo{Name: "anylist-mcp", Version: "0.1.0"},
	}
	for _, o := range opts {
		o(h)
	}
	return &Server{handler: h}
}

// RunStdio serves newline-delimited JSON-RPC on stdin and stdout. All
// stdio traffic shares the default cache partition.
func (s *Server) RunStdio(ctx context.Context) error {
	return s.RunConn(ctx, os.Stdin, os.Stdout)
}

// RunConn serves newline-delimited JSON-RPC from r, answering on w. It
// returns when r is exhausted or ctx is cancelled.
func (s *Server) RunConn(ctx context.Context, r io.Reader, w io.Writer) error {
	in := bufio.NewScanner(r)
	in.Buffer(make([]byte, 0, 64*1024), maxMessageSize)
	enc := json.NewEncoder(w)

	call := callInfo{transport: TransportStdio}
	for in.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := bytes.TrimSpace(in.Bytes())
		if len(line) == 0 {
			continue
		}
		resp := s.dispatch(ctx, line, call)
		if resp == nil {
			continue
		}
		if err := s.encode(enc, resp); err != nil {
			return fmt.Errorf("write response: %w", err)
		}
	}
	return in.Err()
}

// callInfo carries per-message transport context into dispatch.
type callInfo struct {
	sessionID string
	transport string
}

func (s *Server) dispatch(ctx context.Context, msg []byte, call callInfo) *Response {
	var req Request
	if err := json.Unmarshal(msg, &req); err != nil {
		return errorResponse(nil, rpcError(CodeParseError, "invalid JSON: %v", err))
	}
	return s.handle(ctx, req, call)
}

// handle runs one decoded request. It returns nil for notifications.
func (s *Server) handle(ctx context.Context, req Request, call callInfo) *Response {
	if req.ID == nil {
		s.handleNotification(req)
		return nil
	}

	var result json.RawMessage
	var rpcErr *RPCError

	switch req.Method {
	case "initialize":
		result, rpcErr = s.handler.handleInitialize(req.Params)
	case "ping":
		result, _ = json.Marshal(map[string]any{})
	case "tools/list":
		result, rpcErr = s.handler.handleToolsList()
	case "tools/call":
		result, rpcErr = s.handler.handleToolsCall(ctx, req.Params, call)
	default:
		rpcErr = rpcError(CodeMethodNotFound, "unknown method: %s", req.Method)
	}

	if rpcErr != nil {
		return errorResponse(req.ID, rpcErr)
	}
	return &Response{JSONRPC: jsonrpcVersion, ID: req.ID, Result: result}
}

func (s *Server) handleNotification(req Request) {
	switch req.Method {
	case "notifications/initialized":
		slog.Info("client initialized")
	default:
		slog.Debug("unhandled notification", "method", req.Method)
	}
}

// encode serializes writes from concurrent dispatches. Encode appends the
// newline that frames the message.
func (s *Server) encode(enc *json.Encoder, resp *Response) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return enc.Encode(resp)
}
