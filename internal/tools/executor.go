package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"docuchat/internal/llm"
	"docuchat/internal/retrieval"
	"docuchat/internal/store"
)

// Executor runs tool calls for one owner. The model reads every outcome, so
// failures come back as descriptive strings rather than errors.
type Executor struct {
	registry    *Registry
	owner       string
	allowAgents bool
}

var _ llm.ToolExecutor = (*Executor)(nil)

// ExecutorFor builds the top-level executor; agent tools are allowed.
func (r *Registry) ExecutorFor(owner string) *Executor {
	return &Executor{registry: r, owner: owner, allowAgents: true}
}

// ExecutorForAgent builds an executor for use inside an agent; agent tools
// are refused so agents cannot spawn agents.
func (r *Registry) ExecutorForAgent(owner string) *Executor {
	return &Executor{registry: r, owner: owner}
}

func (e *Executor) Execute(ctx context.Context, call llm.ToolCall) string {
	r := e.registry
	r.log.WithField("tool", call.Name).WithField("owner", e.owner).Debug("executing tool")

	if AgentToolNames[call.Name] {
		if !e.allowAgents {
			return fmt.Sprintf("Tool error (%s): agents cannot invoke other agents", call.Name)
		}
		return e.runAgent(ctx, call)
	}

	args := map[string]any{}
	if call.Arguments != "" {
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
			return fmt.Sprintf("Tool error (%s): invalid arguments: %v", call.Name, err)
		}
	}

	switch call.Name {
	case "search_documents":
		return e.searchDocuments(ctx, args)
	case "web_search":
		maxResults := 5
		if n, ok := args["max_results"].(float64); ok {
			maxResults = int(n)
		}
		if maxResults > 10 {
			maxResults = 10
		}
		return r.web.Search(ctx, stringArg(args, "query"), maxResults)
	case "calculate":
		return Calculate(stringArg(args, "expression"))
	case "fetch_url":
		return r.fetcher.Fetch(ctx, stringArg(args, "url"))
	case "get_datetime":
		tz := stringArg(args, "timezone_name")
		if tz == "" {
			tz = "UTC"
		}
		return CurrentDatetime(tz)
	default:
		return fmt.Sprintf("Unknown tool: %s", call.Name)
	}
}

func (e *Executor) searchDocuments(ctx context.Context, args map[string]any) string {
	query := stringArg(args, "query")
	filter := store.SearchFilter{
		DocumentType: stringArg(args, "document_type"),
	}
	if topic := stringArg(args, "topic"); topic != "" {
		filter.Topics = []string{topic}
	}
	hits, err := e.registry.retriever.Search(ctx, e.owner, query, filter, 0, stringArg(args, "search_strategy"))
	if err != nil {
		return fmt.Sprintf("Tool error (search_documents): %v", err)
	}
	if len(hits) == 0 {
		return "No relevant documents found."
	}
	return retrieval.FormatContext(hits)
}

func (e *Executor) runAgent(ctx context.Context, call llm.ToolCall) string {
	r := e.registry
	if r.agents == nil {
		return fmt.Sprintf("Tool error (%s): agents are not available", call.Name)
	}
	var args struct {
		Task string `json:"task"`
	}
	if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
		return fmt.Sprintf("Tool error (%s): invalid arguments: %v", call.Name, err)
	}
	answer, err := r.agents.RunAgent(ctx, call.Name, args.Task, e.owner)
	if err != nil {
		return fmt.Sprintf("Tool error (%s): %v", call.Name, err)
	}
	return answer
}

func stringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}
