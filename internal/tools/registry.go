package tools

import (
	"context"

	"docuchat/internal/config"
	"docuchat/internal/llm"
	"docuchat/internal/retrieval"
	"docuchat/pkg/logger"
)

// AgentToolNames is the set of tools that dispatch to sub-agents. The
// executor uses it as the recursion guard.
var AgentToolNames = map[string]bool{
	"research_agent": true,
	"docqa_agent":    true,
	"planner_agent":  true,
}

// AgentRunner executes a named sub-agent. The agent package provides the
// implementation after construction, which keeps the dependency one-way.
type AgentRunner interface {
	RunAgent(ctx context.Context, name, task, owner string) (string, error)
}

// SearchDocumentsTool is the core RAG tool, always enabled.
var SearchDocumentsTool = llm.Tool{
	Name: "search_documents",
	Description: "Search the user's uploaded documents for information relevant to their question. " +
		"Use this tool when the user asks about topics that might be covered in their documents. " +
		"You can optionally filter by document type or topic to narrow results.",
	Parameters: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "The search query to find relevant document chunks.",
			},
			"document_type": map[string]any{
				"type": "string",
				"description": "Optional filter by document type. " +
					"One of: article, report, tutorial, notes, email, code, data, other.",
			},
			"topic": map[string]any{
				"type":        "string",
				"description": "Optional filter by topic. Matches documents tagged with this topic.",
			},
			"search_strategy": map[string]any{
				"type":        "string",
				"description": "Search strategy: 'auto' (default), 'vector', or 'hybrid'.",
				"enum":        []string{"auto", "vector", "hybrid"},
			},
		},
		"required": []string{"query"},
	},
}

var WebSearchTool = llm.Tool{
	Name: "web_search",
	Description: "Search the web for current information. Use this when the user's question " +
		"requires up-to-date information not likely found in their uploaded documents, " +
		"such as recent news, current events, live data, or topics outside the documents' scope.",
	Parameters: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "The search query to find information on the web.",
			},
			"max_results": map[string]any{
				"type":        "integer",
				"description": "Maximum number of results to return (default: 5, max: 10).",
			},
		},
		"required": []string{"query"},
	},
}

var CalculatorTool = llm.Tool{
	Name: "calculate",
	Description: "Evaluate a mathematical expression. Supports arithmetic (+, -, *, /, %, **), " +
		"comparisons, and math functions (sqrt, log, log10, sin, cos, tan, ceil, floor, " +
		"abs, round, min, max). Constants: pi, e. " +
		"Use this for any calculations, unit conversions, or numeric analysis.",
	Parameters: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"expression": map[string]any{
				"type":        "string",
				"description": "The mathematical expression to evaluate (e.g., 'sqrt(144) + 3 * pi').",
			},
		},
		"required": []string{"expression"},
	},
}

var URLFetcherTool = llm.Tool{
	Name: "fetch_url",
	Description: "Fetch and read the content of a web page or URL. Use this when the user provides " +
		"a specific URL they want you to read, summarize, or answer questions about. " +
		"Returns the extracted text content of the page.",
	Parameters: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url": map[string]any{
				"type":        "string",
				"description": "The full URL to fetch (must start with http:// or https://).",
			},
		},
		"required": []string{"url"},
	},
}

var DatetimeTool = llm.Tool{
	Name: "get_datetime",
	Description: "Get the current date, time, and timestamp. Use this when the user asks about " +
		"the current date or time, or needs time-related information for any timezone.",
	Parameters: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"timezone_name": map[string]any{
				"type": "string",
				"description": "IANA timezone name (e.g., 'UTC', 'America/New_York', 'Europe/London', " +
					"'Asia/Tokyo'). Defaults to 'UTC'.",
			},
		},
		"required": []string{"timezone_name"},
	},
}

var ResearchAgentTool = llm.Tool{
	Name: "research_agent",
	Description: "Delegate a complex research question to a specialized research agent that can " +
		"search documents and the web across multiple steps and synthesize a thorough answer. " +
		"Use for questions that need information from several sources.",
	Parameters: agentTaskParameters,
}

var DocQAAgentTool = llm.Tool{
	Name: "docqa_agent",
	Description: "Delegate deep document analysis to a specialized agent that searches the user's " +
		"documents with multiple targeted queries and cross-references the findings. " +
		"Use for detailed questions about uploaded document content.",
	Parameters: agentTaskParameters,
}

var PlannerAgentTool = llm.Tool{
	Name: "planner_agent",
	Description: "Delegate a multi-step request to a planning agent that decomposes it into " +
		"sub-tasks, executes them with the available tools, and compiles the results. " +
		"Use for requests that combine several distinct actions.",
	Parameters: agentTaskParameters,
}

var agentTaskParameters = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"task": map[string]any{
			"type":        "string",
			"description": "The full task or question to hand to the agent, with all relevant context.",
		},
	},
	"required": []string{"task"},
}

// Registry binds tool declarations to their implementations and enablement.
type Registry struct {
	cfg       config.ToolsConfig
	retriever *retrieval.Retriever
	web       *WebSearch
	fetcher   *URLFetcher
	agents    AgentRunner
	log       *logger.Logger
}

func NewRegistry(cfg config.ToolsConfig, retriever *retrieval.Retriever) *Registry {
	return &Registry{
		cfg:       cfg,
		retriever: retriever,
		web:       NewWebSearch(cfg.TavilyAPIKey),
		fetcher:   NewURLFetcher(cfg),
		log:       logger.New("tools"),
	}
}

// SetAgentRunner attaches the sub-agent dispatcher. Without it the agent
// tools stay unlisted.
func (r *Registry) SetAgentRunner(agents AgentRunner) {
	r.agents = agents
}

// EnabledTools lists the declarations for the top-level model.
// search_documents is always present; everything else follows config.
func (r *Registry) EnabledTools() []llm.Tool {
	tools := []llm.Tool{SearchDocumentsTool}
	if r.cfg.WebSearchEnabled && r.cfg.TavilyAPIKey != "" {
		tools = append(tools, WebSearchTool)
	}
	if r.cfg.CalculatorEnabled {
		tools = append(tools, CalculatorTool)
	}
	if r.cfg.URLFetcherEnabled {
		tools = append(tools, URLFetcherTool)
	}
	if r.cfg.DatetimeEnabled {
		tools = append(tools, DatetimeTool)
	}
	if r.cfg.AgentsEnabled && r.agents != nil {
		tools = append(tools, ResearchAgentTool, DocQAAgentTool, PlannerAgentTool)
	}
	return tools
}

// NonAgentEnabledTools is EnabledTools without the agent tools, for agents
// themselves.
func (r *Registry) NonAgentEnabledTools() []llm.Tool {
	all := r.EnabledTools()
	tools := all[:0:0]
	for _, t := range all {
		if !AgentToolNames[t.Name] {
			tools = append(tools, t)
		}
	}
	return tools
}

// ResearchTools is the research agent's subset.
func (r *Registry) ResearchTools() []llm.Tool {
	tools := []llm.Tool{SearchDocumentsTool}
	if r.cfg.WebSearchEnabled && r.cfg.TavilyAPIKey != "" {
		tools = append(tools, WebSearchTool)
	}
	if r.cfg.URLFetcherEnabled {
		tools = append(tools, URLFetcherTool)
	}
	if r.cfg.CalculatorEnabled {
		tools = append(tools, CalculatorTool)
	}
	return tools
}

// DocQATools is the document Q&A agent's subset.
func (r *Registry) DocQATools() []llm.Tool {
	tools := []llm.Tool{SearchDocumentsTool}
	if r.cfg.CalculatorEnabled {
		tools = append(tools, CalculatorTool)
	}
	return tools
}
