package tools

import (
	"context"
	"strings"
	"testing"

	"docuchat/internal/config"
	"docuchat/internal/llm"
)

// stubRunner records which agents were invoked.
type stubRunner struct {
	calls []string
}

func (s *stubRunner) RunAgent(ctx context.Context, name, task, owner string) (string, error) {
	s.calls = append(s.calls, name)
	return "agent answer", nil
}

func fullConfig() config.ToolsConfig {
	return config.ToolsConfig{
		WebSearchEnabled:  true,
		TavilyAPIKey:      "key",
		CalculatorEnabled: true,
		URLFetcherEnabled: true,
		DatetimeEnabled:   true,
		AgentsEnabled:     true,
	}
}

func TestEnabledToolsAlwaysIncludeDocumentSearch(t *testing.T) {
	r := NewRegistry(config.ToolsConfig{}, nil)
	tools := r.EnabledTools()
	if len(tools) != 1 || tools[0].Name != "search_documents" {
		t.Errorf("bare config tools = %v, want only search_documents", toolNames(tools))
	}
}

func TestEnabledToolsFollowFlags(t *testing.T) {
	r := NewRegistry(fullConfig(), nil)
	r.SetAgentRunner(&stubRunner{})
	names := toolNames(r.EnabledTools())
	want := []string{
		"search_documents", "web_search", "calculate", "fetch_url",
		"get_datetime", "research_agent", "docqa_agent", "planner_agent",
	}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Errorf("tools = %v, want %v", names, want)
	}
}

func TestAgentToolsHiddenWithoutRunner(t *testing.T) {
	r := NewRegistry(fullConfig(), nil)
	for _, name := range toolNames(r.EnabledTools()) {
		if AgentToolNames[name] {
			t.Errorf("agent tool %s listed without a runner", name)
		}
	}
}

func TestExecutorRunsAgentAtTopLevel(t *testing.T) {
	r := NewRegistry(fullConfig(), nil)
	runner := &stubRunner{}
	r.SetAgentRunner(runner)
	got := r.ExecutorFor("alice").Execute(context.Background(), llm.ToolCall{
		Name:      "research_agent",
		Arguments: `{"task":"look this up"}`,
	})
	if got != "agent answer" {
		t.Errorf("got %q", got)
	}
	if len(runner.calls) != 1 || runner.calls[0] != "research_agent" {
		t.Errorf("runner calls = %v", runner.calls)
	}
}

func TestExecutorRefusesAgentRecursion(t *testing.T) {
	r := NewRegistry(fullConfig(), nil)
	runner := &stubRunner{}
	r.SetAgentRunner(runner)
	got := r.ExecutorForAgent("alice").Execute(context.Background(), llm.ToolCall{
		Name:      "docqa_agent",
		Arguments: `{"task":"recurse"}`,
	})
	if !strings.HasPrefix(got, "Tool error (docqa_agent):") {
		t.Errorf("got %q, want a tool error string", got)
	}
	if len(runner.calls) != 0 {
		t.Errorf("agent ran despite recursion guard: %v", runner.calls)
	}
}

func TestExecutorUnknownTool(t *testing.T) {
	r := NewRegistry(fullConfig(), nil)
	got := r.ExecutorFor("alice").Execute(context.Background(), llm.ToolCall{Name: "teleport"})
	if got != "Unknown tool: teleport" {
		t.Errorf("got %q", got)
	}
}

func TestExecutorBadArguments(t *testing.T) {
	r := NewRegistry(fullConfig(), nil)
	got := r.ExecutorFor("alice").Execute(context.Background(), llm.ToolCall{
		Name:      "calculate",
		Arguments: "{not json",
	})
	if !strings.HasPrefix(got, "Tool error (calculate):") {
		t.Errorf("got %q, want a tool error string", got)
	}
}

func TestCalculate(t *testing.T) {
	cases := map[string]string{
		"2 + 2":            "4",
		"sqrt(144) + 3":    "15",
		"10 / 4":           "2.5",
		"max(1, 7, 3)":     "7",
		"floor(pi)":        "3",
		"2 * (3 + 4)":      "14",
		"pow(2, 10)":       "1024",
		"not an expression": "",
	}
	for expr, want := range cases {
		got := Calculate(expr)
		if want == "" {
			if !strings.HasPrefix(got, "Calculation error:") {
				t.Errorf("Calculate(%q) = %q, want an error string", expr, got)
			}
			continue
		}
		if got != want {
			t.Errorf("Calculate(%q) = %q, want %q", expr, got, want)
		}
	}
}

func TestCurrentDatetimeUnknownZone(t *testing.T) {
	got := CurrentDatetime("Mars/Olympus")
	if !strings.HasPrefix(got, "Unknown timezone: 'Mars/Olympus'") {
		t.Errorf("got %q", got)
	}
}

func TestCurrentDatetimeUTC(t *testing.T) {
	got := CurrentDatetime("UTC")
	if !strings.Contains(got, "Current date and time in UTC:") || !strings.Contains(got, "Unix timestamp:") {
		t.Errorf("got %q", got)
	}
}

func toolNames(tools []llm.Tool) []string {
	names := make([]string, len(tools))
	for i, t := range tools {
		names[i] = t.Name
	}
	return names
}
