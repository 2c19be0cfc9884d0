package gateway

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
)

// SessionHeader carries the Streamable HTTP session id. It selects the
// caller's cache partition.
const SessionHeader = "Mcp-Session-Id"

// HTTPHandler serves the Streamable HTTP transport on a single endpoint:
// POST carries JSON-RPC messages, GET is a health probe, everything else
// is rejected with 405.
func (s *Server) HTTPHandler() http.Handler {
	return http.HandlerFunc(s.serveHTTP)
}

func (s *Server) serveHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.servePost(w, r)
	case http.MethodGet:
		writeRPC(w, http.StatusOK, map[string]any{
			"jsonrpc": jsonrpcVersion,
			"result":  map[string]string{"status": "ok"},
			"id":      nil,
		})
	default:
		w.Header().Set("Allow", "GET, POST")
		writeRPC(w, http.StatusMethodNotAllowed,
			errorResponse(nil, rpcError(CodeServerError, "Method not allowed.")))
	}
}

func (s *Server) servePost(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxMessageSize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		status := http.StatusBadRequest
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		writeRPC(w, status, errorResponse(nil, rpcError(CodeInvalidRequest, "read body: %v", err)))
		return
	}

	msgs, batch, err := splitBatch(body)
	if err != nil {
		writeRPC(w, http.StatusBadRequest, errorResponse(nil, rpcError(CodeParseError, "invalid JSON: %v", err)))
		return
	}

	call := callInfo{sessionID: r.Header.Get(SessionHeader), transport: TransportHTTP}
	var reqs []Request
	for _, m := range msgs {
		var req Request
		if err := json.Unmarshal(m, &req); err != nil {
			writeRPC(w, http.StatusBadRequest,
				errorResponse(nil, rpcError(CodeInvalidRequest, "invalid request: %v", err)))
			return
		}
		reqs = append(reqs, req)
	}

	// A new session starts at initialize; the client echoes the id back on
	// every later request.
	for _, req := range reqs {
		if req.Method == "initialize" && req.ID != nil {
			call.sessionID = uuid.NewString()
			w.Header().Set(SessionHeader, call.sessionID)
			slog.Debug("mcp session started", "session_id", call.sessionID)
			break
		}
	}

	var resps []*Response
	for _, req := range reqs {
		if resp := s.handle(r.Context(), req, call); resp != nil {
			resps = append(resps, resp)
		}
	}

	switch {
	case len(resps) == 0:
		w.WriteHeader(http.StatusAccepted)
	case batch:
		writeRPC(w, http.StatusOK, resps)
	default:
		writeRPC(w, http.StatusOK, resps[0])
	}
}

// splitBatch returns the messages in body and whether it was a JSON array.
func splitBatch(body []byte) ([]json.RawMessage, bool, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var msgs []json.RawMessage
		if err := json.Unmarshal(trimmed, &msgs); err != nil {
			return nil, true, err
		}
		if len(msgs) == 0 {
			return nil, true, errors.New("empty batch")
		}
		return msgs, true, nil
	}
	if !json.Valid(trimmed) {
		return nil, false, errors.New("malformed message")
	}
	return []json.RawMessage{trimmed}, false, nil
}

func writeRPC(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
