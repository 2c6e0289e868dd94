package conversation

import (
	"time"
)

// Role identifies who produced a turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
	RoleTool  Role = "tool"
)

// Failure reasons recorded on error results.
const (
	ReasonUnknownTool      = "unknown_tool"
	ReasonInvalidArguments = "invalid_arguments"
	ReasonExecutionError   = "execution_error"
	ReasonCancelled        = "cancelled"
)

// Turn is one entry of the conversation. Exactly one of Text, Call and
// Result carries the payload.
type Turn struct {
	Role   Role
	Text   string
	Call   *ToolCall
	Result *ToolResult
	At     time.Time
}

// ToolCall is a model request to invoke a tool.
type ToolCall struct {
	ID   string
	Name string
	Args map[string]any
}

// ToolResult is the outcome of dispatching a ToolCall.
type ToolResult struct {
	CallID  string
	Name    string
	Content any
	IsError bool
	Reason  string
}

// UserText builds a user turn.
func UserText(text string) Turn {
	return Turn{Role: RoleUser, Text: text}
}

// ModelText builds a model turn carrying text.
func ModelText(text string) Turn {
	return Turn{Role: RoleModel, Text: text}
}

// ModelCall builds a model turn carrying a tool-call request.
func ModelCall(call ToolCall) Turn {
	return Turn{Role: RoleModel, Call: &call}
}

// ToolOutput builds a tool-result turn.
func ToolOutput(result ToolResult) Turn {
	return Turn{Role: RoleTool, Result: &result}
}

// Clone returns a copy that shares no mutable state with t.
func (t Turn) Clone() Turn {
	if t.Call != nil {
		c := *t.Call
		c.Args = deepCopy(c.Args)
		t.Call = &c
	}
	if t.Result != nil {
		r := *t.Result
		r.Content = deepCopy(r.Content)
		t.Result = &r
	}
	return t
}

// CloneTurns copies a slice of turns.
func CloneTurns(in []Turn) []Turn {
	if in == nil {
		return nil
	}
	out := make([]Turn, len(in))
	for i := range in {
		out[i] = in[i].Clone()
	}
	return out
}
