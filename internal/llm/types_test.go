package llm

import (
	"context"
	"testing"
)

// fakeProvider scripts one tool round followed by a canned stream.
type fakeProvider struct {
	toolResp    *ToolResponse
	streamText  []string
	lastMsgs    []Message
	streamCalls int
}

func (f *fakeProvider) ChatCompletion(ctx context.Context, messages []Message, opts Options) (string, error) {
	return "", nil
}

func (f *fakeProvider) ChatCompletionStream(ctx context.Context, messages []Message, opts Options) (<-chan StreamDelta, error) {
	f.streamCalls++
	f.lastMsgs = messages
	out := make(chan StreamDelta, len(f.streamText))
	for _, t := range f.streamText {
		out <- StreamDelta{Content: t}
	}
	close(out)
	return out, nil
}

func (f *fakeProvider) SupportsTools() bool { return true }

func (f *fakeProvider) ChatCompletionWithTools(ctx context.Context, messages []Message, tools []Tool, opts Options) (*ToolResponse, error) {
	return f.toolResp, nil
}

func (f *fakeProvider) FormatToolMessages(calls []ToolCall, results []ToolResult) []Message {
	msgs := []Message{{Role: RoleAssistant, ToolCalls: calls}}
	for _, r := range results {
		msgs = append(msgs, Message{Role: RoleTool, Content: r.Output, Name: r.Call.Name})
	}
	return msgs
}

func (f *fakeProvider) ChatCompletionStreamWithTools(ctx context.Context, messages []Message, tools []Tool, executor ToolExecutor, opts Options) (<-chan StreamDelta, error) {
	return streamWithTools(ctx, f, messages, tools, executor, opts)
}

type fakeExecutor struct {
	seen []ToolCall
}

func (e *fakeExecutor) Execute(ctx context.Context, call ToolCall) string {
	e.seen = append(e.seen, call)
	return "result of " + call.Name
}

func drain(ch <-chan StreamDelta) (string, error) {
	var text string
	for d := range ch {
		if d.Err != nil {
			return text, d.Err
		}
		text += d.Content
	}
	return text, nil
}

func TestStreamWithToolsDirectAnswer(t *testing.T) {
	p := &fakeProvider{toolResp: &ToolResponse{Content: "direct answer"}}
	exec := &fakeExecutor{}
	ch, err := p.ChatCompletionStreamWithTools(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, nil, exec, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := drain(ch)
	if err != nil {
		t.Fatalf("unexpected stream error: %v", err)
	}
	if got != "direct answer" {
		t.Errorf("got %q, want %q", got, "direct answer")
	}
	if len(exec.seen) != 0 {
		t.Errorf("executor ran %d tools, want 0", len(exec.seen))
	}
	if p.streamCalls != 0 {
		t.Errorf("follow-up stream ran %d times, want 0", p.streamCalls)
	}
}

func TestStreamWithToolsExecutesThenStreams(t *testing.T) {
	p := &fakeProvider{
		toolResp: &ToolResponse{ToolCalls: []ToolCall{
			{ID: "1", Name: "calculator", Arguments: `{"expression":"2+2"}`},
			{ID: "2", Name: "datetime", Arguments: `{}`},
		}},
		streamText: []string{"final ", "answer"},
	}
	exec := &fakeExecutor{}
	ch, err := p.ChatCompletionStreamWithTools(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, nil, exec, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := drain(ch)
	if err != nil {
		t.Fatalf("unexpected stream error: %v", err)
	}
	if got != "final answer" {
		t.Errorf("got %q, want %q", got, "final answer")
	}
	if len(exec.seen) != 2 || exec.seen[0].Name != "calculator" || exec.seen[1].Name != "datetime" {
		t.Errorf("executor saw %v, want calculator then datetime", exec.seen)
	}
	// Follow-up messages: original user turn, assistant tool calls, two results.
	if len(p.lastMsgs) != 4 {
		t.Fatalf("follow-up had %d messages, want 4", len(p.lastMsgs))
	}
	if p.lastMsgs[1].Role != RoleAssistant || len(p.lastMsgs[1].ToolCalls) != 2 {
		t.Errorf("second follow-up message is %+v, want assistant tool-call turn", p.lastMsgs[1])
	}
	if p.lastMsgs[2].Content != "result of calculator" {
		t.Errorf("first tool result = %q", p.lastMsgs[2].Content)
	}
}
