package brain

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/moorebrett0/concierge/internal/conversation"
	"github.com/moorebrett0/concierge/internal/tool"
)

// openaiProvider implements Provider using the OpenAI chat completions API
// or any server compatible with it.
type openaiProvider struct {
	client  *openai.Client
	model   string
	params  Params
	timeout time.Duration
}

func newOpenAIProvider(apiKey, baseURL, model string, params Params, timeout time.Duration) *openaiProvider {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &openaiProvider{
		client:  openai.NewClientWithConfig(cfg),
		model:   model,
		params:  params,
		timeout: timeout,
	}
}

func (o *openaiProvider) Name() string { return "openai" }

// SendTurn ignores Params.TopK; the chat completions API has no such knob.
func (o *openaiProvider) SendTurn(ctx context.Context, req Request) (*Reply, error) {
	msgs := openaiMessages(req.Turns())
	if req.System != "" {
		msgs = append([]openai.ChatCompletionMessage{{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		}}, msgs...)
	}

	callCtx, cancel := callContext(ctx, o.timeout)
	defer cancel()

	resp, err := o.client.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
		Model:       o.model,
		Messages:    msgs,
		Tools:       openaiTools(req.Tools),
		Temperature: float32(o.params.Temperature),
		TopP:        float32(o.params.TopP),
		MaxTokens:   o.params.MaxOutputTokens,
	})
	if err != nil {
		return nil, sendError(ctx, o.Name(), err)
	}
	return parseOpenAIResponse(resp)
}

func openaiTools(tools []tool.Descriptor) []openai.Tool {
	if len(tools) == 0 {
		return nil
	}
	out := make([]openai.Tool, 0, len(tools))
	for _, d := range tools {
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  d.Schema(),
			},
		})
	}
	return out
}

// openaiMessages converts turns to chat messages. Consecutive model turns
// form one assistant message; each tool result is its own tool message.
func openaiMessages(turns []conversation.Turn) []openai.ChatCompletionMessage {
	var msgs []openai.ChatCompletionMessage
	lastAssistant := false

	for _, t := range turns {
		switch {
		case t.Role == conversation.RoleTool && t.Result != nil:
			msgs = append(msgs, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    resultText(t.Result),
				ToolCallID: t.Result.CallID,
				Name:       t.Result.Name,
			})
			lastAssistant = false

		case t.Role == conversation.RoleModel:
			if !lastAssistant {
				msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant})
			}
			last := &msgs[len(msgs)-1]
			if t.Call != nil {
				raw, _ := json.Marshal(argsOrEmpty(t.Call.Args))
				last.ToolCalls = append(last.ToolCalls, openai.ToolCall{
					ID:   t.Call.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      t.Call.Name,
						Arguments: string(raw),
					},
				})
			} else if last.Content == "" {
				last.Content = t.Text
			} else {
				last.Content += "\n" + t.Text
			}
			lastAssistant = true

		default:
			msgs = append(msgs, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleUser,
				Content: t.Text,
			})
			lastAssistant = false
		}
	}
	return msgs
}

func parseOpenAIResponse(resp openai.ChatCompletionResponse) (*Reply, error) {
	if len(resp.Choices) == 0 {
		return nil, &ProtocolError{Provider: "openai", Reason: "no choices"}
	}
	msg := resp.Choices[0].Message

	out := &Reply{Text: msg.Content}
	for _, tc := range msg.ToolCalls {
		if tc.Function.Name == "" {
			return nil, &ProtocolError{Provider: "openai", Reason: "tool call without a name"}
		}
		args, err := decodeArgs([]byte(tc.Function.Arguments))
		if err != nil {
			return nil, &ProtocolError{Provider: "openai", Reason: "tool call arguments are not a JSON object", Err: err}
		}
		out.ToolCalls = append(out.ToolCalls, conversation.ToolCall{
			ID:   tc.ID,
			Name: tc.Function.Name,
			Args: args,
		})
	}
	return out, nil
}
