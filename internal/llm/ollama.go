package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	olla "github.com/ollama/ollama/api"

	"docuchat/internal/config"
	"docuchat/pkg/logger"
)

// Ollama runs chat completions against a local Ollama server. Local models
// often emit <think> reasoning blocks, so every output path runs through the
// think filter. Tool calling is not offered.
type Ollama struct {
	client *olla.Client
	model  string
	log    *logger.Logger
}

var _ Provider = (*Ollama)(nil)

// NewOllama creates an Ollama client. baseURL defaults to the local daemon.
func NewOllama(cfg config.OllamaConfig) (*Ollama, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("ollama: invalid base URL: %w", err)
	}
	hc := &http.Client{Timeout: 120 * time.Second}
	return &Ollama{
		client: olla.NewClient(parsedURL, hc),
		model:  cfg.Model,
		log:    logger.New("llm.ollama"),
	}, nil
}

func (o *Ollama) SupportsTools() bool { return false }

func (o *Ollama) ChatCompletion(ctx context.Context, messages []Message, opts Options) (string, error) {
	var full string
	err := o.client.Chat(ctx, o.request(messages, opts, false), func(resp olla.ChatResponse) error {
		full += resp.Message.Content
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama completion: %w", err)
	}
	return StripThinkTags(full), nil
}

func (o *Ollama) ChatCompletionStream(ctx context.Context, messages []Message, opts Options) (<-chan StreamDelta, error) {
	out := make(chan StreamDelta)
	go func() {
		defer close(out)
		filter := &thinkFilter{}
		err := o.client.Chat(ctx, o.request(messages, opts, true), func(resp olla.ChatResponse) error {
			if text := filter.Feed(resp.Message.Content); text != "" {
				if !sendDelta(ctx, out, StreamDelta{Content: text}) {
					return ctx.Err()
				}
			}
			return nil
		})
		if err != nil {
			sendDelta(ctx, out, StreamDelta{Err: fmt.Errorf("ollama stream: %w", err)})
			return
		}
		if tail := filter.Flush(); tail != "" {
			sendDelta(ctx, out, StreamDelta{Content: tail})
		}
	}()
	return out, nil
}

func (o *Ollama) ChatCompletionWithTools(ctx context.Context, messages []Message, tools []Tool, opts Options) (*ToolResponse, error) {
	return nil, ErrToolsNotSupported
}

func (o *Ollama) FormatToolMessages(calls []ToolCall, results []ToolResult) []Message {
	return nil
}

func (o *Ollama) ChatCompletionStreamWithTools(ctx context.Context, messages []Message, tools []Tool, executor ToolExecutor, opts Options) (<-chan StreamDelta, error) {
	return nil, ErrToolsNotSupported
}

func (o *Ollama) request(messages []Message, opts Options, stream bool) *olla.ChatRequest {
	msgs := make([]olla.Message, 0, len(messages))
	for _, m := range messages {
		role := m.Role
		if role == RoleTool {
			// No native tool turns; fold the output into a user message.
			role = RoleUser
		}
		msgs = append(msgs, olla.Message{Role: role, Content: m.Content})
	}
	req := &olla.ChatRequest{
		Model:    o.model,
		Messages: msgs,
		Stream:   &stream,
		Options:  map[string]any{},
	}
	if opts.Temperature > 0 {
		req.Options["temperature"] = opts.Temperature
	}
	if opts.MaxTokens > 0 {
		req.Options["num_predict"] = opts.MaxTokens
	}
	return req
}
