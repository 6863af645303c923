package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"docuchat/internal/config"
	"docuchat/pkg/logger"
)

// Gemini backs the provider abstraction with the Google GenAI API. Tool
// calling is supported natively via function declarations.
type Gemini struct {
	client *genai.Client
	model  string
	log    *logger.Logger
}

var _ Provider = (*Gemini)(nil)

// NewGemini creates a Gemini client from config.
func NewGemini(ctx context.Context, cfg config.GeminiConfig) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: api key is required")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &Gemini{
		client: client,
		model:  cfg.Model,
		log:    logger.New("llm.gemini"),
	}, nil
}

func (g *Gemini) SupportsTools() bool { return true }

func (g *Gemini) ChatCompletion(ctx context.Context, messages []Message, opts Options) (string, error) {
	session, last, err := g.session(messages, nil, opts)
	if err != nil {
		return "", err
	}
	resp, err := session.SendMessage(ctx, last...)
	if err != nil {
		return "", fmt.Errorf("gemini completion: %w", err)
	}
	text, _ := splitGenaiResponse(resp)
	return text, nil
}

func (g *Gemini) ChatCompletionStream(ctx context.Context, messages []Message, opts Options) (<-chan StreamDelta, error) {
	session, last, err := g.session(messages, nil, opts)
	if err != nil {
		return nil, err
	}
	iter := session.SendMessageStream(ctx, last...)
	out := make(chan StreamDelta)
	go func() {
		defer close(out)
		for {
			resp, err := iter.Next()
			if errors.Is(err, iterator.Done) {
				return
			}
			if err != nil {
				sendDelta(ctx, out, StreamDelta{Err: fmt.Errorf("gemini stream: %w", err)})
				return
			}
			if text, _ := splitGenaiResponse(resp); text != "" {
				if !sendDelta(ctx, out, StreamDelta{Content: text}) {
					return
				}
			}
		}
	}()
	return out, nil
}

func (g *Gemini) ChatCompletionWithTools(ctx context.Context, messages []Message, tools []Tool, opts Options) (*ToolResponse, error) {
	session, last, err := g.session(messages, tools, opts)
	if err != nil {
		return nil, err
	}
	resp, err := session.SendMessage(ctx, last...)
	if err != nil {
		return nil, fmt.Errorf("gemini tool completion: %w", err)
	}
	text, calls := splitGenaiResponse(resp)
	if len(calls) > 0 {
		return &ToolResponse{ToolCalls: calls}, nil
	}
	return &ToolResponse{Content: text}, nil
}

func (g *Gemini) FormatToolMessages(calls []ToolCall, results []ToolResult) []Message {
	msgs := make([]Message, 0, len(results)+1)
	msgs = append(msgs, Message{Role: RoleAssistant, ToolCalls: calls})
	for _, r := range results {
		msgs = append(msgs, Message{
			Role:    RoleTool,
			Content: r.Output,
			Name:    r.Call.Name,
		})
	}
	return msgs
}

func (g *Gemini) ChatCompletionStreamWithTools(ctx context.Context, messages []Message, tools []Tool, executor ToolExecutor, opts Options) (<-chan StreamDelta, error) {
	return streamWithTools(ctx, g, messages, tools, executor, opts)
}

// session prepares a chat session whose history is every message but the
// last, which is returned separately as the parts to send.
func (g *Gemini) session(messages []Message, tools []Tool, opts Options) (*genai.ChatSession, []genai.Part, error) {
	model := g.client.GenerativeModel(g.model)
	if opts.Temperature > 0 {
		model.SetTemperature(opts.Temperature)
	}
	if opts.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(opts.MaxTokens))
	}
	if len(tools) > 0 {
		decls := make([]*genai.FunctionDeclaration, 0, len(tools))
		for _, t := range tools {
			decls = append(decls, &genai.FunctionDeclaration{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  schemaFromJSON(t.Parameters),
			})
		}
		model.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}

	var contents []*genai.Content
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(m.Content)}}
		case RoleAssistant:
			c := &genai.Content{Role: "model"}
			if m.Content != "" {
				c.Parts = append(c.Parts, genai.Text(m.Content))
			}
			for _, tc := range m.ToolCalls {
				var args map[string]any
				if err := json.Unmarshal([]byte(tc.Arguments), &args); err != nil {
					args = map[string]any{}
				}
				c.Parts = append(c.Parts, genai.FunctionCall{Name: tc.Name, Args: args})
			}
			contents = append(contents, c)
		case RoleTool:
			contents = append(contents, &genai.Content{
				Role: "function",
				Parts: []genai.Part{genai.FunctionResponse{
					Name:     m.Name,
					Response: map[string]any{"result": m.Content},
				}},
			})
		default:
			contents = append(contents, &genai.Content{
				Role:  "user",
				Parts: []genai.Part{genai.Text(m.Content)},
			})
		}
	}
	if len(contents) == 0 {
		return nil, nil, fmt.Errorf("gemini: no sendable messages")
	}

	session := model.StartChat()
	session.History = contents[:len(contents)-1]
	return session, contents[len(contents)-1].Parts, nil
}

// splitGenaiResponse collects the text and function calls from a response.
func splitGenaiResponse(resp *genai.GenerateContentResponse) (string, []ToolCall) {
	if resp == nil {
		return "", nil
	}
	var text string
	var calls []ToolCall
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			switch v := part.(type) {
			case genai.Text:
				text += string(v)
			case genai.FunctionCall:
				args, err := json.Marshal(v.Args)
				if err != nil {
					args = []byte("{}")
				}
				calls = append(calls, ToolCall{
					ID:        fmt.Sprintf("call-%d", len(calls)),
					Name:      v.Name,
					Arguments: string(args),
				})
			}
		}
	}
	return text, calls
}

// schemaFromJSON converts a JSON-schema style parameter object to the GenAI
// schema type. Only the subset the tool declarations use is handled.
func schemaFromJSON(m map[string]any) *genai.Schema {
	if m == nil {
		return &genai.Schema{Type: genai.TypeObject}
	}
	s := &genai.Schema{}
	if t, ok := m["type"].(string); ok {
		switch t {
		case "object":
			s.Type = genai.TypeObject
		case "array":
			s.Type = genai.TypeArray
		case "string":
			s.Type = genai.TypeString
		case "number":
			s.Type = genai.TypeNumber
		case "integer":
			s.Type = genai.TypeInteger
		case "boolean":
			s.Type = genai.TypeBoolean
		}
	}
	if d, ok := m["description"].(string); ok {
		s.Description = d
	}
	if props, ok := m["properties"].(map[string]any); ok {
		s.Properties = make(map[string]*genai.Schema, len(props))
		for name, p := range props {
			if pm, ok := p.(map[string]any); ok {
				s.Properties[name] = schemaFromJSON(pm)
			}
		}
	}
	if req, ok := m["required"].([]string); ok {
		s.Required = req
	} else if reqAny, ok := m["required"].([]any); ok {
		for _, r := range reqAny {
			if rs, ok := r.(string); ok {
				s.Required = append(s.Required, rs)
			}
		}
	}
	if items, ok := m["items"].(map[string]any); ok {
		s.Items = schemaFromJSON(items)
	}
	if enum, ok := m["enum"].([]string); ok {
		s.Enum = enum
	}
	return s
}
