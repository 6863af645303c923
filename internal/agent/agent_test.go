package agent

import (
	"context"
	"strings"
	"testing"

	"docuchat/internal/config"
	"docuchat/internal/llm"
	"docuchat/internal/tools"
)

// loopProvider always asks for one more tool call until the caller stops it,
// then answers the forced final completion.
type loopProvider struct {
	toolRounds  int
	finalCalls  int
	lastMsgs    []llm.Message
	directReply string
}

func (p *loopProvider) ChatCompletion(ctx context.Context, messages []llm.Message, opts llm.Options) (string, error) {
	p.finalCalls++
	p.lastMsgs = messages
	return "forced final answer", nil
}

func (p *loopProvider) ChatCompletionStream(ctx context.Context, messages []llm.Message, opts llm.Options) (<-chan llm.StreamDelta, error) {
	ch := make(chan llm.StreamDelta)
	close(ch)
	return ch, nil
}

func (p *loopProvider) SupportsTools() bool { return true }

func (p *loopProvider) ChatCompletionWithTools(ctx context.Context, messages []llm.Message, toolset []llm.Tool, opts llm.Options) (*llm.ToolResponse, error) {
	if p.directReply != "" {
		return &llm.ToolResponse{Content: p.directReply}, nil
	}
	p.toolRounds++
	return &llm.ToolResponse{ToolCalls: []llm.ToolCall{
		{ID: "1", Name: "get_datetime", Arguments: `{"timezone_name":"UTC"}`},
	}}, nil
}

func (p *loopProvider) FormatToolMessages(calls []llm.ToolCall, results []llm.ToolResult) []llm.Message {
	msgs := []llm.Message{{Role: llm.RoleAssistant, ToolCalls: calls}}
	for _, r := range results {
		msgs = append(msgs, llm.Message{Role: llm.RoleTool, Content: r.Output, Name: r.Call.Name})
	}
	return msgs
}

func (p *loopProvider) ChatCompletionStreamWithTools(ctx context.Context, messages []llm.Message, toolset []llm.Tool, executor llm.ToolExecutor, opts llm.Options) (<-chan llm.StreamDelta, error) {
	return nil, llm.ErrToolsNotSupported
}

func runtimeWith(p llm.Provider) *Runtime {
	registry := tools.NewRegistry(config.ToolsConfig{DatetimeEnabled: true}, nil)
	return NewRuntime(p, registry, config.AgentConfig{MaxIterations: 3, MaxTokens: 512})
}

func TestAgentDirectAnswerStopsLoop(t *testing.T) {
	p := &loopProvider{directReply: "done immediately"}
	rt := runtimeWith(p)
	got, err := rt.RunAgent(context.Background(), "docqa_agent", "question", "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "done immediately" {
		t.Errorf("got %q", got)
	}
	if p.finalCalls != 0 {
		t.Errorf("forced completion ran %d times, want 0", p.finalCalls)
	}
}

func TestAgentTerminatesAfterBudget(t *testing.T) {
	p := &loopProvider{}
	rt := runtimeWith(p)
	got, err := rt.RunAgent(context.Background(), "research_agent", "endless question", "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "forced final answer" {
		t.Errorf("got %q", got)
	}
	// Exactly the configured number of tool rounds, then one plain completion.
	if p.toolRounds != 3 {
		t.Errorf("tool rounds = %d, want 3", p.toolRounds)
	}
	if p.finalCalls != 1 {
		t.Errorf("forced completions = %d, want 1", p.finalCalls)
	}
	last := p.lastMsgs[len(p.lastMsgs)-1]
	if last.Role != llm.RoleUser || !strings.Contains(last.Content, "maximum number of steps") {
		t.Errorf("final nudge missing, last message = %+v", last)
	}
}

func TestPlannerGetsLargerBudget(t *testing.T) {
	p := &loopProvider{}
	rt := runtimeWith(p)
	if _, err := rt.RunAgent(context.Background(), "planner_agent", "plan this", "alice"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.toolRounds != 10 {
		t.Errorf("planner tool rounds = %d, want 10", p.toolRounds)
	}
}

func TestUnknownAgent(t *testing.T) {
	rt := runtimeWith(&loopProvider{})
	if _, err := rt.RunAgent(context.Background(), "chef_agent", "cook", "alice"); err == nil {
		t.Fatal("expected error for unknown agent")
	}
}
