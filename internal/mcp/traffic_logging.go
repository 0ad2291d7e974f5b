package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const methodCallTool = "tools/call"

// trafficLoggingMiddleware logs every message at debug level. Tool calls
// carry the tool name, and scan batches their size and outcome tally.
func trafficLoggingMiddleware(logger *slog.Logger, direction string) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			if logger == nil || !logger.Enabled(ctx, slog.LevelDebug) {
				return next(ctx, method, req)
			}

			params := safeParams(req)
			base := []any{"direction", direction, "method", method, "session_id", safeSessionID(req)}
			var tool string
			if method == methodCallTool {
				call := decodeToolCall(params)
				tool = call.Name
				base = append(base, "tool", tool)
				if tool == "submit_scans" {
					base = append(base, "batch_size", len(call.Scans))
				}
			}
			logger.Debug("mcp traffic", append(base, "stage", "request", "params", formatPayload(params))...)

			result, err := next(ctx, method, req)
			if strings.HasPrefix(method, "notifications/") {
				return result, err
			}

			attrs := append(base, "stage", "response")
			if res, ok := result.(*sdkmcp.CallToolResult); ok && res != nil {
				attrs = append(attrs, "is_error", res.IsError)
				if tool == "submit_scans" && !res.IsError {
					attrs = append(attrs, "outcomes", tallyOutcomes(res.StructuredContent))
				}
			}
			attrs = append(attrs, "result", formatPayload(result))
			if err != nil {
				attrs = append(attrs, "error", err)
			}
			logger.Debug("mcp traffic", attrs...)

			return result, err
		}
	}
}

type toolCall struct {
	Name  string
	Scans []string
}

// decodeToolCall reads the tool name and, when present, the scan batch
// from call parameters of any concrete params type.
func decodeToolCall(params any) toolCall {
	var raw struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}
	data, err := json.Marshal(params)
	if err != nil || json.Unmarshal(data, &raw) != nil {
		return toolCall{}
	}
	call := toolCall{Name: raw.Name}
	var args SubmitScansParams
	if len(raw.Arguments) > 0 && json.Unmarshal(raw.Arguments, &args) == nil {
		call.Scans = args.Scans
	}
	return call
}

// tallyOutcomes renders scan outcomes as "OUTCOME:n" pairs in name order.
func tallyOutcomes(content any) string {
	data, err := json.Marshal(content)
	if err != nil {
		return ""
	}
	var out SubmitScansResult
	if err := json.Unmarshal(data, &out); err != nil {
		return ""
	}
	counts := make(map[string]int)
	for _, r := range out.Results {
		counts[r.Outcome]++
	}
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)
	pairs := make([]string, len(names))
	for i, name := range names {
		pairs[i] = fmt.Sprintf("%s:%d", name, counts[name])
	}
	return strings.Join(pairs, ",")
}

func safeSessionID(req sdkmcp.Request) string {
	if req == nil {
		return ""
	}
	defer func() { recover() }()
	session := req.GetSession()
	if session == nil {
		return ""
	}
	return session.ID()
}

func safeParams(req sdkmcp.Request) any {
	if req == nil {
		return nil
	}
	defer func() { recover() }()
	return req.GetParams()
}

func formatPayload(payload any) string {
	if payload == nil {
		return "<nil>"
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Sprintf("%T", payload)
	}
	return string(data)
}
