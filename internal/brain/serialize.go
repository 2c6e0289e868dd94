package brain

import (
	"encoding/json"
	"fmt"
	"maps"

	"github.com/moorebrett0/concierge/internal/conversation"
)

// resultText renders a tool result as the plain text Claude and OpenAI expect.
func resultText(r *conversation.ToolResult) string {
	if r.IsError {
		return "error: " + contentText(r.Content)
	}
	return contentText(r.Content)
}

func contentText(content any) string {
	switch c := content.(type) {
	case nil:
		return ""
	case string:
		return c
	case error:
		return c.Error()
	default:
		raw, err := json.Marshal(c)
		if err != nil {
			return fmt.Sprint(c)
		}
		return string(raw)
	}
}

// resultPayload renders a tool result as a Gemini function response object.
func resultPayload(r *conversation.ToolResult) map[string]any {
	if r.IsError {
		return map[string]any{"name": r.Name, "error": contentText(r.Content)}
	}
	return map[string]any{"name": r.Name, "content": jsonSafe(r.Content)}
}

// jsonSafe converts values that would not survive JSON encoding into text.
func jsonSafe(v any) any {
	if v == nil {
		return nil
	}
	if _, err := json.Marshal(v); err != nil {
		return fmt.Sprint(v)
	}
	return v
}

// decodeArgs parses a JSON object of tool arguments. Empty input is an empty
// object.
func decodeArgs(raw []byte) (map[string]any, error) {
	args := map[string]any{}
	if len(raw) == 0 || string(raw) == "null" {
		return args, nil
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, err
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}

func argsOrEmpty(args map[string]any) map[string]any {
	if args == nil {
		return map[string]any{}
	}
	return maps.Clone(args)
}
