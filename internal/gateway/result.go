package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"unicode/utf8"

	"github.com/revittco/anylist-mcp/internal/schema"
	"github.com/revittco/anylist-mcp/internal/store"
	"github.com/revittco/anylist-mcp/internal/tools"
)

// textResult wraps text in MCP CallToolResult format.
func textResult(text string) json.RawMessage {
	data, _ := json.Marshal(CallToolResult{
		Content: []Content{{Type: "text", Text: text}},
	})
	return data
}

// jsonResult marshals v to indented JSON and wraps it as text content.
func jsonResult(v any) (json.RawMessage, error) {
	text, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return textResult(string(text)), nil
}

// errorResult wraps an error message in MCP CallToolResult format with
// isError=true.
func errorResult(msg string) json.RawMessage {
	data, _ := json.Marshal(CallToolResult{
		Content: []Content{{Type: "text", Text: msg}},
		IsError: true,
	})
	return data
}

// toolResult maps a registry call outcome onto the wire. Unknown tools and
// invalid arguments are protocol errors; every other failure is scoped to
// the call and returned as an error result.
func toolResult(out any, err error) (json.RawMessage, *RPCError) {
	var verr *schema.ValidationError
	switch {
	case err == nil:
		data, merr := jsonResult(out)
		if merr != nil {
			return nil, rpcError(CodeInternalError, "%v", merr)
		}
		return data, nil
	case errors.Is(err, tools.ErrToolNotFound):
		return nil, rpcError(CodeMethodNotFound, "%v", err)
	case errors.As(err, &verr):
		return nil, rpcError(CodeInvalidParams, "%v", verr)
	default:
		return errorResult(err.Error()), nil
	}
}

const maxAuditErrorLen = 200

// outcome classifies a finished tools/call for metrics and audit.
type outcome struct {
	status  string
	code    string
	message string
}

func (o outcome) failed() bool { return o.status == store.StatusError }

func outcomeOf(result json.RawMessage, rpcErr *RPCError) outcome {
	if rpcErr != nil {
		return outcome{store.StatusError, strconv.Itoa(rpcErr.Code), rpcErr.Message}
	}
	var r CallToolResult
	if len(result) == 0 || json.Unmarshal(result, &r) != nil || !r.IsError {
		return outcome{status: store.StatusSuccess}
	}
	msg := "tool returned error"
	for _, c := range r.Content {
		if c.Text != "" {
			msg = c.Text
			break
		}
	}
	return outcome{store.StatusError, "tool_error", truncate(msg, maxAuditErrorLen)}
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
