package llm

import (
	"context"
	"errors"
)

// ErrToolsNotSupported is returned by tool-calling entry points of backends
// that cannot do native tool calls.
var ErrToolsNotSupported = errors.New("llm: provider does not support tool calling")

// Conversation roles shared by all backends.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is one turn of a provider-neutral conversation.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Name       string     `json:"name,omitempty"`
}

// ToolCall is a model request to run one tool.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"` // JSON-encoded argument object
}

// ToolResult pairs a tool call with its string outcome.
type ToolResult struct {
	Call   ToolCall
	Output string
}

// Tool describes one callable function to the model.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"` // JSON schema object
}

// ToolResponse is the outcome of a tool-aware completion. Exactly one of
// Content or ToolCalls is populated.
type ToolResponse struct {
	Content   string
	ToolCalls []ToolCall
}

// StreamDelta is one increment of a streamed completion. A non-nil Err is
// terminal; the channel closes after it.
type StreamDelta struct {
	Content string
	Err     error
}

// Options tunes a single completion request. Zero values mean backend
// defaults.
type Options struct {
	Temperature float32
	MaxTokens   int
}

// ToolExecutor runs one tool call and returns its string output. Failures
// come back as descriptive strings, not errors, so the model can read them.
type ToolExecutor interface {
	Execute(ctx context.Context, call ToolCall) string
}

// Provider is the chat backend abstraction. Implementations translate the
// neutral message and tool shapes to their own wire formats.
type Provider interface {
	// ChatCompletion returns the full assistant reply for the conversation.
	ChatCompletion(ctx context.Context, messages []Message, opts Options) (string, error)

	// ChatCompletionStream emits the reply incrementally. The channel is
	// closed when the stream ends; a delta with Err set is the last one.
	ChatCompletionStream(ctx context.Context, messages []Message, opts Options) (<-chan StreamDelta, error)

	// SupportsTools reports whether the backend can do native tool calls.
	SupportsTools() bool

	// ChatCompletionWithTools runs one completion with the tool declarations
	// attached. Backends without tool support return ErrToolsNotSupported.
	ChatCompletionWithTools(ctx context.Context, messages []Message, tools []Tool, opts Options) (*ToolResponse, error)

	// FormatToolMessages renders an assistant tool-call turn plus its results
	// in the backend's expected message shape.
	FormatToolMessages(calls []ToolCall, results []ToolResult) []Message

	// ChatCompletionStreamWithTools resolves tool calls eagerly, then streams
	// the final answer. See streamWithTools for the shared flow.
	ChatCompletionStreamWithTools(ctx context.Context, messages []Message, tools []Tool, executor ToolExecutor, opts Options) (<-chan StreamDelta, error)
}

// sendDelta delivers one delta unless ctx ends first, so producer
// goroutines never outlive an abandoned consumer.
func sendDelta(ctx context.Context, out chan<- StreamDelta, d StreamDelta) bool {
	select {
	case out <- d:
		return true
	case <-ctx.Done():
		return false
	}
}

// streamWithTools is the shared detect-execute-stream flow used by the
// tool-capable backends. It runs one non-streaming tool round; if the model
// answered directly the text is replayed as a single delta, otherwise the
// calls are executed in order, their results appended, and the final answer
// streamed without tools so the model must conclude.
func streamWithTools(ctx context.Context, p Provider, messages []Message, tools []Tool, executor ToolExecutor, opts Options) (<-chan StreamDelta, error) {
	resp, err := p.ChatCompletionWithTools(ctx, messages, tools, opts)
	if err != nil {
		return nil, err
	}
	if len(resp.ToolCalls) == 0 {
		out := make(chan StreamDelta, 1)
		out <- StreamDelta{Content: resp.Content}
		close(out)
		return out, nil
	}
	results := make([]ToolResult, 0, len(resp.ToolCalls))
	for _, call := range resp.ToolCalls {
		results = append(results, ToolResult{Call: call, Output: executor.Execute(ctx, call)})
	}
	followUp := append(append([]Message{}, messages...), p.FormatToolMessages(resp.ToolCalls, results)...)
	return p.ChatCompletionStream(ctx, followUp, opts)
}
