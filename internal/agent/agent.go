package agent

import (
	"context"
	"fmt"

	"docuchat/internal/config"
	"docuchat/internal/llm"
	"docuchat/internal/tools"
	"docuchat/pkg/logger"
)

// agentTemperature keeps sub-agent behavior focused but not rigid.
const agentTemperature = 0.3

const finalAnswerNudge = "You have reached the maximum number of steps. " +
	"Please provide your best answer now based on what you have gathered so far."

// Agent is one preset: a system prompt, a tool subset and an iteration
// budget running the same ReAct loop.
type Agent struct {
	Name          string
	MaxIterations int           // 0 = use the configured default
	SystemPrompt  string
	Tools         func() []llm.Tool
}

// Runtime executes agents against the shared provider and tool registry.
// It implements tools.AgentRunner.
type Runtime struct {
	provider llm.Provider
	registry *tools.Registry
	cfg      config.AgentConfig
	agents   map[string]*Agent
	log      *logger.Logger
}

var _ tools.AgentRunner = (*Runtime)(nil)

// NewRuntime builds the runtime with the built-in agent presets and wires
// itself into the registry.
func NewRuntime(provider llm.Provider, registry *tools.Registry, cfg config.AgentConfig) *Runtime {
	rt := &Runtime{
		provider: provider,
		registry: registry,
		cfg:      cfg,
		agents:   make(map[string]*Agent),
		log:      logger.New("agent"),
	}
	for _, a := range presets(registry) {
		rt.agents[a.Name] = a
	}
	registry.SetAgentRunner(rt)
	return rt
}

// RunAgent executes the named agent's ReAct loop: up to the iteration budget
// of tool-calling rounds, then a forced final completion without tools.
func (rt *Runtime) RunAgent(ctx context.Context, name, task, owner string) (string, error) {
	a, ok := rt.agents[name]
	if !ok {
		return "", fmt.Errorf("unknown agent: %s", name)
	}
	maxIter := a.MaxIterations
	if maxIter <= 0 {
		maxIter = rt.cfg.MaxIterations
	}
	executor := rt.registry.ExecutorForAgent(owner)
	toolset := a.Tools()
	opts := llm.Options{Temperature: agentTemperature, MaxTokens: rt.cfg.MaxTokens}

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: a.SystemPrompt},
		{Role: llm.RoleUser, Content: task},
	}

	for iteration := 0; iteration < maxIter; iteration++ {
		rt.log.WithField("agent", a.Name).
			WithField("iteration", fmt.Sprintf("%d/%d", iteration+1, maxIter)).
			Debug("agent step")

		resp, err := rt.provider.ChatCompletionWithTools(ctx, messages, toolset, opts)
		if err != nil {
			return "", fmt.Errorf("agent %s completion: %w", a.Name, err)
		}
		if len(resp.ToolCalls) == 0 {
			if resp.Content != "" {
				return resp.Content, nil
			}
			return "Agent could not generate a response.", nil
		}

		results := make([]llm.ToolResult, 0, len(resp.ToolCalls))
		for _, call := range resp.ToolCalls {
			rt.log.WithField("agent", a.Name).WithField("tool", call.Name).Debug("agent tool call")
			results = append(results, llm.ToolResult{
				Call:   call,
				Output: executor.Execute(ctx, call),
			})
		}
		messages = append(messages, rt.provider.FormatToolMessages(resp.ToolCalls, results)...)
	}

	// Budget exhausted: demand an answer with the tools withheld.
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: finalAnswerNudge})
	answer, err := rt.provider.ChatCompletion(ctx, messages, opts)
	if err != nil {
		return "", fmt.Errorf("agent %s final answer: %w", a.Name, err)
	}
	return answer, nil
}
