package brain

import (
	"context"

	"github.com/moorebrett0/concierge/internal/conversation"
	"github.com/moorebrett0/concierge/internal/tool"
)

// Provider abstracts the generation backend (Gemini, Claude, OpenAI).
// SendTurn performs exactly one round-trip and never retries.
type Provider interface {
	Name() string
	SendTurn(ctx context.Context, req Request) (*Reply, error)
}

// Request is one round sent to the backend.
type Request struct {
	System string
	// History holds the turns preceding this round's input.
	History []conversation.Turn
	// Input holds the turns added this round: the user's text, or the tool
	// results answering the previous reply.
	Input []conversation.Turn
	Tools []tool.Descriptor
}

// Turns returns History followed by Input.
func (r Request) Turns() []conversation.Turn {
	out := make([]conversation.Turn, 0, len(r.History)+len(r.Input))
	out = append(out, r.History...)
	return append(out, r.Input...)
}

// Reply is what a provider returns from a single SendTurn call.
type Reply struct {
	Text      string
	ToolCalls []conversation.ToolCall
}

// Params are the generation settings sent with every request.
type Params struct {
	Temperature     float64
	TopP            float64
	TopK            int
	MaxOutputTokens int
}
