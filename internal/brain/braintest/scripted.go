// Package braintest provides a deterministic brain.Provider for tests.
package braintest

import (
	"context"
	"fmt"
	"sync"

	"github.com/moorebrett0/concierge/internal/brain"
	"github.com/moorebrett0/concierge/internal/conversation"
)

// Response configures one backend reply in a scripted sequence.
type Response struct {
	Reply brain.Reply
	Err   error
}

// Text is a reply with text and no tool calls.
func Text(text string) Response {
	return Response{Reply: brain.Reply{Text: text}}
}

// Calls is a reply carrying the given tool calls and optional text.
func Calls(text string, calls ...conversation.ToolCall) Response {
	return Response{Reply: brain.Reply{Text: text, ToolCalls: calls}}
}

// Fail is a reply that fails with err.
func Fail(err error) Response {
	return Response{Err: err}
}

// ScriptedProvider replays responses in order and records every request.
// When Repeat is set the last response is replayed once the script runs out.
type ScriptedProvider struct {
	Repeat bool

	mu        sync.Mutex
	index     int
	responses []Response
	requests  []brain.Request
}

func NewScriptedProvider(responses ...Response) *ScriptedProvider {
	cloned := make([]Response, len(responses))
	copy(cloned, responses)
	return &ScriptedProvider{responses: cloned}
}

var _ brain.Provider = (*ScriptedProvider)(nil)

func (p *ScriptedProvider) Name() string { return "scripted" }

func (p *ScriptedProvider) SendTurn(ctx context.Context, req brain.Request) (*brain.Reply, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.requests = append(p.requests, brain.Request{
		System:  req.System,
		History: conversation.CloneTurns(req.History),
		Input:   conversation.CloneTurns(req.Input),
		Tools:   req.Tools,
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if p.index >= len(p.responses) {
		if !p.Repeat || len(p.responses) == 0 {
			return nil, fmt.Errorf("script exhausted at request %d", p.index+1)
		}
		p.index = len(p.responses) - 1
	}
	current := p.responses[p.index]
	p.index++
	if current.Err != nil {
		return nil, current.Err
	}

	reply := current.Reply
	reply.ToolCalls = make([]conversation.ToolCall, len(current.Reply.ToolCalls))
	for i, tc := range current.Reply.ToolCalls {
		reply.ToolCalls[i] = *conversation.ModelCall(tc).Clone().Call
	}
	return &reply, nil
}

// Requests returns copies of the requests received so far.
func (p *ScriptedProvider) Requests() []brain.Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]brain.Request, len(p.requests))
	copy(out, p.requests)
	return out
}
