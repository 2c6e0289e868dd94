package brain

import (
	"context"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/moorebrett0/concierge/internal/conversation"
	"github.com/moorebrett0/concierge/internal/tool"
)

// claudeProvider implements Provider using the Anthropic Claude API.
type claudeProvider struct {
	client  *anthropic.Client
	model   anthropic.Model
	params  Params
	timeout time.Duration
}

func newClaudeProvider(apiKey, model string, params Params, timeout time.Duration, opts ...option.RequestOption) *claudeProvider {
	opts = append([]option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}, opts...)
	client := anthropic.NewClient(opts...)
	return &claudeProvider{
		client:  &client,
		model:   anthropic.Model(model),
		params:  params,
		timeout: timeout,
	}
}

func (c *claudeProvider) Name() string { return "claude" }

func (c *claudeProvider) SendTurn(ctx context.Context, req Request) (*Reply, error) {
	params := anthropic.MessageNewParams{
		Model:       c.model,
		MaxTokens:   int64(c.params.MaxOutputTokens),
		Messages:    claudeMessages(req.Turns()),
		// Claude models reject temperature and top_p together; only the
		// temperature is sent, capped at the API maximum of 1.
		Temperature: anthropic.Float(min(c.params.Temperature, 1)),
	}
	if c.params.TopK > 0 {
		params.TopK = anthropic.Int(int64(c.params.TopK))
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	if len(req.Tools) > 0 {
		params.Tools = claudeTools(req.Tools)
	}

	callCtx, cancel := callContext(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.Messages.New(callCtx, params)
	if err != nil {
		return nil, sendError(ctx, c.Name(), err)
	}
	return parseClaudeMessage(resp)
}

func claudeTools(tools []tool.Descriptor) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, d := range tools {
		schema := d.Schema()
		u := anthropic.ToolUnionParamOfTool(
			anthropic.ToolInputSchemaParam{
				Properties: schema["properties"],
				Required:   d.RequiredParams(),
			},
			d.Name,
		)
		if d.Description != "" {
			u.OfTool.Description = anthropic.String(d.Description)
		}
		out = append(out, u)
	}
	return out
}

// claudeMessages converts turns to Claude messages so that roles alternate.
// Model turns collapse into one assistant message; tool results collapse into
// one user message of tool_result blocks, which any following user text
// joins.
func claudeMessages(turns []conversation.Turn) []anthropic.MessageParam {
	var msgs []anthropic.MessageParam
	var blocks []anthropic.ContentBlockParamUnion
	var role anthropic.MessageParamRole

	flush := func() {
		if len(blocks) == 0 {
			return
		}
		msgs = append(msgs, anthropic.MessageParam{Role: role, Content: blocks})
		blocks = nil
	}

	for _, t := range turns {
		switch {
		case t.Role == conversation.RoleTool && t.Result != nil:
			if role != anthropic.MessageParamRoleUser || (len(blocks) > 0 && !isToolResultBlock(blocks[len(blocks)-1])) {
				flush()
			}
			role = anthropic.MessageParamRoleUser
			blocks = append(blocks, anthropic.NewToolResultBlock(t.Result.CallID, resultText(t.Result), t.Result.IsError))

		case t.Role == conversation.RoleModel:
			if role != anthropic.MessageParamRoleAssistant {
				flush()
			}
			role = anthropic.MessageParamRoleAssistant
			if t.Call != nil {
				blocks = append(blocks, anthropic.NewToolUseBlock(t.Call.ID, argsOrEmpty(t.Call.Args), t.Call.Name))
			} else if t.Text != "" {
				blocks = append(blocks, anthropic.NewTextBlock(t.Text))
			}

		default:
			if role != anthropic.MessageParamRoleUser {
				flush()
			}
			role = anthropic.MessageParamRoleUser
			blocks = append(blocks, anthropic.NewTextBlock(t.Text))
		}
	}
	flush()
	return msgs
}

func isToolResultBlock(b anthropic.ContentBlockParamUnion) bool {
	return b.OfToolResult != nil
}

func parseClaudeMessage(resp *anthropic.Message) (*Reply, error) {
	if resp == nil {
		return nil, &ProtocolError{Provider: "claude", Reason: "empty response"}
	}

	out := &Reply{}
	var texts []string
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			if text := block.AsText().Text; text != "" {
				texts = append(texts, text)
			}
		case "tool_use":
			tu := block.AsToolUse()
			if tu.Name == "" {
				return nil, &ProtocolError{Provider: "claude", Reason: "tool_use block without a name"}
			}
			args, err := decodeArgs(tu.Input)
			if err != nil {
				return nil, &ProtocolError{Provider: "claude", Reason: "tool_use input is not an object", Err: err}
			}
			out.ToolCalls = append(out.ToolCalls, conversation.ToolCall{
				ID:   tu.ID,
				Name: tu.Name,
				Args: args,
			})
		}
	}
	out.Text = strings.Join(texts, "\n")
	return out, nil
}
