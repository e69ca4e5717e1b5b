package bridge

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/maicraft/maicraft-go/pkg/game"
)

// Result is the parsed bridge result envelope
// {ok, data|error_message, error_code?, request_id?}.
type Result struct {
	OK        bool
	Data      any
	Reason    string
	ErrorCode string
	RequestID string
	// Raw keeps the original text content for logs and fallbacks.
	Raw string
}

// DataMap returns the data payload when it is an object.
func (r Result) DataMap() (map[string]any, bool) {
	m, ok := r.Data.(map[string]any)
	return m, ok
}

// DataList returns the data payload when it is an array.
func (r Result) DataList() ([]any, bool) {
	l, ok := r.Data.([]any)
	return l, ok
}

// Sentence renders the result as one readable line for feeds and the
// thinking log.
func (r Result) Sentence() string {
	if r.OK {
		return "操作成功"
	}
	reason := r.Reason
	if reason == "" {
		reason = strings.TrimSpace(r.Raw)
	}
	if reason == "" {
		reason = "未知错误"
	}
	out := fmt.Sprintf("操作失败: %s", reason)
	if r.ErrorCode != "" {
		out += fmt.Sprintf(" [%s]", r.ErrorCode)
	}
	if r.RequestID != "" {
		out += fmt.Sprintf(" (request %s)", r.RequestID)
	}
	return out
}

// parseCallResult extracts the text content of an MCP tool result and
// decodes the envelope. The SDK-level IsError flag forces OK false even
// when the text is not an envelope.
func parseCallResult(res *mcpsdk.CallToolResult) Result {
	text := extractText(res)
	r := ParseResult(text)
	if res != nil && res.IsError && r.OK {
		r.OK = false
		if r.Reason == "" {
			r.Reason = strings.TrimSpace(text)
		}
	}
	return r
}

// ParseResult decodes the bridge envelope from text content. Text that is
// not a JSON object is treated as a plain successful payload; a JSON object
// without an "ok" marker is kept whole as the data.
func ParseResult(text string) Result {
	r := Result{Raw: text}
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "{") {
		r.OK = true
		r.Data = trimmed
		return r
	}
	var envelope map[string]any
	if err := json.Unmarshal([]byte(trimmed), &envelope); err != nil {
		r.OK = true
		r.Data = trimmed
		return r
	}
	okValue, marked := envelope["ok"]
	if !marked {
		r.OK = true
		r.Data = envelope
		return r
	}
	r.OK, _ = okValue.(bool)
	if data, exists := envelope["data"]; exists {
		r.Data = data
	}
	if s, ok := game.AsString(envelope["error_message"]); ok {
		r.Reason = s
	}
	if s, ok := game.AsString(envelope["error_code"]); ok {
		r.ErrorCode = s
	}
	if s, ok := game.AsString(envelope["request_id"]); ok {
		r.RequestID = s
	}
	return r
}

// extractText concatenates the text content items of a tool result.
// Non-text content (images, resources) is skipped.
func extractText(res *mcpsdk.CallToolResult) string {
	if res == nil {
		return ""
	}
	var parts []string
	for _, content := range res.Content {
		if tc, ok := content.(*mcpsdk.TextContent); ok {
			parts = append(parts, tc.Text)
		} else {
			slog.Debug("Skipping non-text bridge content", "type", fmt.Sprintf("%T", content))
		}
	}
	return strings.Join(parts, "\n")
}
