package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/revittco/anylist-mcp/internal/audit"
	"github.com/revittco/anylist-mcp/internal/observe"
	"github.com/revittco/anylist-mcp/internal/tools"
)

// handler contains the logic for each MCP method.
type handler struct {
	registry *tools.Registry
	auditor  *audit.Logger // nil = no audit trail
	metrics  *observe.Metrics
	info     ServerInfo
}

func (h *handler) handleInitialize(params json.RawMessage) (json.RawMessage, *RPCError) {
	if len(params) > 0 {
		var p InitializeParams
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, rpcError(CodeInvalidParams, "invalid initialize params: %v", err)
		}
		if p.ClientInfo.Name != "" {
			slog.Info("client connected",
				"client", p.ClientInfo.Name, "version", p.ClientInfo.Version)
		}
	}

	result := InitializeResult{
		ProtocolVersion: ProtocolVersion,
		Capabilities: Capabilities{
			Tools: &ToolsCapability{ListChanged: false},
		},
		ServerInfo: h.info,
	}

	data, err := json.Marshal(result)
	if err != nil {
		return nil, rpcError(CodeInternalError, "%v", err)
	}
	return data, nil
}

func (h *handler) handleToolsList() (json.RawMessage, *RPCError) {
	regTools := h.registry.Tools()
	out := make([]Tool, len(regTools))
	for i, t := range regTools {
		out[i] = Tool{Name: t.Name, Description: t.Description, InputSchema: t.InputSchema}
	}

	data, err := json.Marshal(map[string]any{"tools": out})
	if err != nil {
		return nil, rpcError(CodeInternalError, "%v", err)
	}
	return data, nil
}

func (h *handler) handleToolsCall(
	ctx context.Context, params json.RawMessage, call callInfo,
) (json.RawMessage, *RPCError) {
	var req CallToolRequest
	if err := json.Unmarshal(params, &req); err != nil {
		return nil, rpcError(CodeInvalidParams, "invalid params: %v", err)
	}
	if req.Name == "" {
		return nil, rpcError(CodeInvalidParams, "missing tool name")
	}

	start := time.Now()
	out, err := h.registry.Call(tools.WithSessionID(ctx, call.sessionID), req.Name, req.Arguments)
	result, rpcErr := toolResult(out, err)

	o := outcomeOf(result, rpcErr)
	h.metrics.RecordToolCall(ctx, req.Name, time.Since(start), o.failed())
	h.recordAudit(ctx, req.Name, req.Arguments, call, len(result), o, start)
	return result, rpcErr
}
