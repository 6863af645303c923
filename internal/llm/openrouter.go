package llm

import (
	"context"
	"errors"
	"fmt"
	"io"

	openai "github.com/meguminnnnnnnnn/go-openai"

	"docuchat/internal/config"
	"docuchat/pkg/logger"
)

// OpenRouter speaks the OpenAI wire protocol against the OpenRouter gateway.
// It is the only backend here with both streaming and native tool calls.
type OpenRouter struct {
	client *openai.Client
	model  string
	log    *logger.Logger
}

var _ Provider = (*OpenRouter)(nil)

// NewOpenRouter builds the backend from config. BaseURL defaults to the
// public OpenRouter endpoint.
func NewOpenRouter(cfg config.OpenRouterConfig) (*OpenRouter, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openrouter: api key is required")
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	} else {
		clientCfg.BaseURL = "https://openrouter.ai/api/v1"
	}
	return &OpenRouter{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
		log:    logger.New("llm.openrouter"),
	}, nil
}

func (o *OpenRouter) SupportsTools() bool { return true }

func (o *OpenRouter) ChatCompletion(ctx context.Context, messages []Message, opts Options) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, o.request(messages, nil, opts))
	if err != nil {
		return "", fmt.Errorf("openrouter completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openrouter completion: empty choices")
	}
	return StripThinkTags(resp.Choices[0].Message.Content), nil
}

func (o *OpenRouter) ChatCompletionStream(ctx context.Context, messages []Message, opts Options) (<-chan StreamDelta, error) {
	stream, err := o.client.CreateChatCompletionStream(ctx, o.request(messages, nil, opts))
	if err != nil {
		return nil, fmt.Errorf("openrouter stream: %w", err)
	}
	out := make(chan StreamDelta)
	go func() {
		defer close(out)
		defer stream.Close()
		filter := &thinkFilter{}
		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				if tail := filter.Flush(); tail != "" {
					sendDelta(ctx, out, StreamDelta{Content: tail})
				}
				return
			}
			if err != nil {
				sendDelta(ctx, out, StreamDelta{Err: fmt.Errorf("openrouter stream: %w", err)})
				return
			}
			if len(resp.Choices) == 0 {
				continue
			}
			if text := filter.Feed(resp.Choices[0].Delta.Content); text != "" {
				if !sendDelta(ctx, out, StreamDelta{Content: text}) {
					return
				}
			}
		}
	}()
	return out, nil
}

func (o *OpenRouter) ChatCompletionWithTools(ctx context.Context, messages []Message, tools []Tool, opts Options) (*ToolResponse, error) {
	resp, err := o.client.CreateChatCompletion(ctx, o.request(messages, tools, opts))
	if err != nil {
		return nil, fmt.Errorf("openrouter tool completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openrouter tool completion: empty choices")
	}
	choice := resp.Choices[0].Message
	if len(choice.ToolCalls) > 0 {
		calls := make([]ToolCall, 0, len(choice.ToolCalls))
		for _, tc := range choice.ToolCalls {
			calls = append(calls, ToolCall{
				ID:        tc.ID,
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			})
		}
		return &ToolResponse{ToolCalls: calls}, nil
	}
	return &ToolResponse{Content: StripThinkTags(choice.Content)}, nil
}

func (o *OpenRouter) FormatToolMessages(calls []ToolCall, results []ToolResult) []Message {
	msgs := make([]Message, 0, len(results)+1)
	msgs = append(msgs, Message{Role: RoleAssistant, ToolCalls: calls})
	for _, r := range results {
		msgs = append(msgs, Message{
			Role:       RoleTool,
			Content:    r.Output,
			ToolCallID: r.Call.ID,
			Name:       r.Call.Name,
		})
	}
	return msgs
}

func (o *OpenRouter) ChatCompletionStreamWithTools(ctx context.Context, messages []Message, tools []Tool, executor ToolExecutor, opts Options) (<-chan StreamDelta, error) {
	return streamWithTools(ctx, o, messages, tools, executor, opts)
}

func (o *OpenRouter) request(messages []Message, tools []Tool, opts Options) openai.ChatCompletionRequest {
	req := openai.ChatCompletionRequest{
		Model:    o.model,
		Messages: toOpenAIMessages(messages),
	}
	if opts.Temperature > 0 {
		req.Temperature = &opts.Temperature
	}
	if opts.MaxTokens > 0 {
		req.MaxTokens = opts.MaxTokens
	}
	for _, t := range tools {
		req.Tools = append(req.Tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}
	return req
}

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		msg := openai.ChatCompletionMessage{
			Role:       m.Role,
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
			Name:       m.Name,
		}
		for _, tc := range m.ToolCalls {
			msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			})
		}
		out = append(out, msg)
	}
	return out
}
