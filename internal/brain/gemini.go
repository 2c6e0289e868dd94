package brain

import (
	"context"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/moorebrett0/concierge/internal/conversation"
	"github.com/moorebrett0/concierge/internal/tool"
)

// geminiProvider implements Provider using the Google Gemini API.
type geminiProvider struct {
	client  *genai.Client
	model   string
	params  Params
	timeout time.Duration
}

// newGeminiProvider creates the Gemini adapter. An empty baseURL uses the
// public endpoint.
func newGeminiProvider(ctx context.Context, apiKey, baseURL, model string, params Params, timeout time.Duration) (*geminiProvider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: baseURL},
	})
	if err != nil {
		return nil, err
	}
	return &geminiProvider{
		client:  client,
		model:   model,
		params:  params,
		timeout: timeout,
	}, nil
}

func (g *geminiProvider) Name() string { return "gemini" }

func (g *geminiProvider) SendTurn(ctx context.Context, req Request) (*Reply, error) {
	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(g.params.Temperature)),
		TopP:            genai.Ptr(float32(g.params.TopP)),
		MaxOutputTokens: int32(g.params.MaxOutputTokens),
	}
	if g.params.TopK > 0 {
		config.TopK = genai.Ptr(float32(g.params.TopK))
	}
	if req.System != "" {
		config.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if len(req.Tools) > 0 {
		config.Tools = []*genai.Tool{{FunctionDeclarations: geminiDeclarations(req.Tools)}}
	}

	callCtx, cancel := callContext(ctx, g.timeout)
	defer cancel()

	resp, err := g.client.Models.GenerateContent(callCtx, g.model, geminiContents(req.Turns()), config)
	if err != nil {
		return nil, sendError(ctx, g.Name(), err)
	}
	return parseGeminiResponse(resp)
}

func geminiDeclarations(tools []tool.Descriptor) []*genai.FunctionDeclaration {
	decls := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, d := range tools {
		params := &genai.Schema{
			Type:       genai.TypeObject,
			Properties: make(map[string]*genai.Schema, len(d.Params)),
			Required:   d.RequiredParams(),
		}
		for _, p := range d.Params {
			params.Properties[p.Name] = &genai.Schema{
				Type:        geminiType(p.Type),
				Description: p.Description,
			}
		}
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        d.Name,
			Description: d.Description,
			Parameters:  params,
		})
	}
	return decls
}

func geminiType(t string) genai.Type {
	switch t {
	case tool.TypeNumber:
		return genai.TypeNumber
	case tool.TypeInteger:
		return genai.TypeInteger
	case tool.TypeBoolean:
		return genai.TypeBoolean
	case tool.TypeObject:
		return genai.TypeObject
	case tool.TypeArray:
		return genai.TypeArray
	default:
		return genai.TypeString
	}
}

// geminiContents converts turns to Gemini contents. Consecutive model turns
// share one model content; consecutive tool results share one user content
// of function responses, which is how Gemini pairs them with the calls.
func geminiContents(turns []conversation.Turn) []*genai.Content {
	var contents []*genai.Content
	lastResults := false

	for _, t := range turns {
		switch {
		case t.Role == conversation.RoleTool && t.Result != nil:
			part := &genai.Part{FunctionResponse: &genai.FunctionResponse{
				ID:       t.Result.CallID,
				Name:     t.Result.Name,
				Response: resultPayload(t.Result),
			}}
			if lastResults {
				last := contents[len(contents)-1]
				last.Parts = append(last.Parts, part)
			} else {
				contents = append(contents, &genai.Content{Role: genai.RoleUser, Parts: []*genai.Part{part}})
			}
			lastResults = true

		case t.Role == conversation.RoleModel:
			var part *genai.Part
			if t.Call != nil {
				part = &genai.Part{FunctionCall: &genai.FunctionCall{
					ID:   t.Call.ID,
					Name: t.Call.Name,
					Args: argsOrEmpty(t.Call.Args),
				}}
			} else {
				part = genai.NewPartFromText(t.Text)
			}
			if n := len(contents); n > 0 && contents[n-1].Role == genai.RoleModel {
				contents[n-1].Parts = append(contents[n-1].Parts, part)
			} else {
				contents = append(contents, &genai.Content{Role: genai.RoleModel, Parts: []*genai.Part{part}})
			}
			lastResults = false

		default:
			contents = append(contents, genai.NewContentFromText(t.Text, genai.RoleUser))
			lastResults = false
		}
	}
	return contents
}

func parseGeminiResponse(resp *genai.GenerateContentResponse) (*Reply, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		reason := "no candidates"
		if resp != nil && resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			reason = "prompt blocked: " + string(resp.PromptFeedback.BlockReason)
		}
		return nil, &ProtocolError{Provider: "gemini", Reason: reason}
	}

	out := &Reply{}
	content := resp.Candidates[0].Content
	if content == nil {
		return out, nil
	}

	var texts []string
	for _, part := range content.Parts {
		if part == nil || part.Thought {
			continue
		}
		if part.Text != "" {
			texts = append(texts, part.Text)
		}
		if fc := part.FunctionCall; fc != nil {
			if fc.Name == "" {
				return nil, &ProtocolError{Provider: "gemini", Reason: "function call without a name"}
			}
			out.ToolCalls = append(out.ToolCalls, conversation.ToolCall{
				ID:   fc.ID,
				Name: fc.Name,
				Args: argsOrEmpty(fc.Args),
			})
		}
	}
	out.Text = strings.Join(texts, "")
	return out, nil
}
