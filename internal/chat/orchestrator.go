// Package chat drives a conversation between a user and a generation backend,
// dispatching the tool calls the backend requests until it answers in text.
package chat

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/moorebrett0/concierge/internal/brain"
	"github.com/moorebrett0/concierge/internal/conversation"
	"github.com/moorebrett0/concierge/internal/tool"
)

// DefaultMaxRounds bounds a chain when Options.MaxRounds is unset.
const DefaultMaxRounds = 5

// User-visible messages for aborted chains.
const (
	msgRateLimited  = "Too many messages at once. Give me a moment and try again."
	msgUnavailable  = "Sorry, I couldn't reach the assistant service just now. Please try again."
	msgProtocol     = "Sorry, I got a reply I couldn't make sense of. Please try again."
	msgLoopExceeded = "I got stuck looking things up for that request, so I stopped. Could you rephrase it?"
)

// State is where the orchestrator is in its chain.
type State int32

const (
	Idle State = iota
	AwaitingReply
	ProcessingToolCalls
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingReply:
		return "awaiting_reply"
	case ProcessingToolCalls:
		return "processing_tool_calls"
	default:
		return "unknown"
	}
}

// Options configure an Orchestrator.
type Options struct {
	// System is the system instruction sent with every request.
	System string
	// MaxRounds is the number of backend calls allowed per chain.
	MaxRounds int
	// RateLimit inputs are accepted per RateWindow; zero disables the limit.
	RateLimit  int
	RateWindow time.Duration
	// Say surfaces text to the user as soon as it is available.
	Say func(string)
}

// Outcome summarizes one chain.
type Outcome struct {
	// Replies holds the model text surfaced during the chain, in order.
	Replies   []string
	Rounds    int
	ToolCalls int
}

// Orchestrator owns one conversation. Ask calls are serialized, so one
// input is fully resolved before the next is accepted.
type Orchestrator struct {
	provider  brain.Provider
	tools     *tool.Registry
	store     *conversation.Store
	system    string
	maxRounds int
	say       func(string)
	limiter   *rateLimiter

	chain sync.Mutex
	state atomic.Int32
}

func New(p brain.Provider, r *tool.Registry, store *conversation.Store, opts Options) *Orchestrator {
	if opts.MaxRounds <= 0 {
		opts.MaxRounds = DefaultMaxRounds
	}
	say := opts.Say
	if say == nil {
		say = func(string) {}
	}
	return &Orchestrator{
		provider:  p,
		tools:     r,
		store:     store,
		system:    opts.System,
		maxRounds: opts.MaxRounds,
		say:       say,
		limiter:   newRateLimiter(opts.RateLimit, opts.RateWindow),
	}
}

// State returns the current state of the chain.
func (o *Orchestrator) State() State {
	return State(o.state.Load())
}

// Conversation returns the store this orchestrator appends to.
func (o *Orchestrator) Conversation() *conversation.Store {
	return o.store
}

func (o *Orchestrator) setState(s State) {
	o.state.Store(int32(s))
}

// Ask resolves one user input: it sends the input to the backend and keeps
// dispatching the requested tool calls until a reply carries none. Text is
// surfaced through Options.Say as soon as each reply arrives, before its tool
// calls run.
//
// Backend failures and runaway chains abort the chain with an error after
// telling the user; turns appended so far stay in the conversation.
func (o *Orchestrator) Ask(ctx context.Context, input string) (Outcome, error) {
	o.chain.Lock()
	defer o.chain.Unlock()
	defer o.setState(Idle)

	var out Outcome
	if !o.limiter.allow() {
		slog.Warn("chat: rate limited", "conversation", o.store.ID())
		o.say(msgRateLimited)
		return out, ErrRateLimited
	}

	o.store.Append(conversation.UserText(input))
	pending := 1

	for {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		o.setState(AwaitingReply)
		snap := o.store.Snapshot()
		split := len(snap) - pending
		reply, err := o.provider.SendTurn(ctx, brain.Request{
			System:  o.system,
			History: snap[:split],
			Input:   snap[split:],
			Tools:   o.tools.DescribeAll(),
		})
		out.Rounds++
		if err == nil && reply == nil {
			err = &brain.ProtocolError{Provider: o.provider.Name(), Reason: "empty reply"}
		}
		if err != nil {
			return out, o.abort(ctx, err)
		}
		slog.Debug("chat: reply", "conversation", o.store.ID(), "round", out.Rounds,
			"text", len(reply.Text), "tool_calls", len(reply.ToolCalls))

		if reply.Text != "" {
			o.store.Append(conversation.ModelText(reply.Text))
			out.Replies = append(out.Replies, reply.Text)
			o.say(reply.Text)
		}
		if len(reply.ToolCalls) == 0 {
			return out, nil
		}

		if out.Rounds >= o.maxRounds {
			slog.Warn("chat: hit max tool rounds", "conversation", o.store.ID(), "max", o.maxRounds)
			o.say(msgLoopExceeded)
			return out, &LoopExceededError{MaxRounds: o.maxRounds}
		}

		o.setState(ProcessingToolCalls)
		out.ToolCalls += len(reply.ToolCalls)
		if err := o.dispatch(ctx, reply.ToolCalls); err != nil {
			return out, err
		}
		pending = len(reply.ToolCalls)
	}
}

// dispatch records the calls and appends one result per call, in order.
// When ctx ends mid-way the calls left over get cancelled results so every
// call in the log keeps its answer.
func (o *Orchestrator) dispatch(ctx context.Context, calls []conversation.ToolCall) error {
	for _, call := range calls {
		o.store.Append(conversation.ModelCall(call))
	}

	for i, call := range calls {
		if err := ctx.Err(); err != nil {
			for _, skipped := range calls[i:] {
				o.store.Append(conversation.ToolOutput(conversation.ToolResult{
					CallID:  skipped.ID,
					Name:    skipped.Name,
					Content: "call cancelled before it ran",
					IsError: true,
					Reason:  conversation.ReasonCancelled,
				}))
			}
			return err
		}
		o.store.Append(conversation.ToolOutput(o.invoke(ctx, call)))
	}
	return nil
}

func (o *Orchestrator) invoke(ctx context.Context, call conversation.ToolCall) conversation.ToolResult {
	result := conversation.ToolResult{CallID: call.ID, Name: call.Name}

	slog.Info("chat: calling tool", "conversation", o.store.ID(), "tool", call.Name)
	content, err := o.tools.Invoke(ctx, call.Name, tool.Args(call.Args))
	if err == nil {
		result.Content = content
		return result
	}

	result.IsError = true
	result.Content = err.Error()
	result.Reason = failureReason(err)
	slog.Warn("chat: tool call failed", "conversation", o.store.ID(), "tool", call.Name,
		"reason", result.Reason, "err", err)
	return result
}

func failureReason(err error) string {
	var unknown *tool.UnknownToolError
	var invalid *tool.InvalidArgumentsError
	switch {
	case errors.As(err, &unknown):
		return conversation.ReasonUnknownTool
	case errors.As(err, &invalid):
		return conversation.ReasonInvalidArguments
	default:
		return conversation.ReasonExecutionError
	}
}

// abort reports a failed backend call. Cancellation by the caller is returned
// quietly; anything else is told to the user.
func (o *Orchestrator) abort(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return err
	}

	slog.Error("chat: backend error", "conversation", o.store.ID(), "provider", o.provider.Name(), "err", err)
	if errors.Is(err, brain.ErrBackendProtocol) {
		o.say(msgProtocol)
	} else {
		o.say(msgUnavailable)
	}
	return err
}
