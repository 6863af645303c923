package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"docuchat/pkg/logger"
)

const tavilySearchURL = "https://api.tavily.com/search"

// WebSearch queries the Tavily search API and formats the results for the
// model. Every failure path returns a readable message string.
type WebSearch struct {
	client *http.Client
	apiKey string
	url    string
	log    *logger.Logger
}

func NewWebSearch(apiKey string) *WebSearch {
	return &WebSearch{
		client: &http.Client{Timeout: 15 * time.Second},
		apiKey: apiKey,
		url:    tavilySearchURL,
		log:    logger.New("tools.websearch"),
	}
}

type tavilyResponse struct {
	Answer  string `json:"answer"`
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

func (w *WebSearch) Search(ctx context.Context, query string, maxResults int) string {
	if w.apiKey == "" {
		return "Web search is not configured. Please set the Tavily API key."
	}

	payload, err := json.Marshal(map[string]any{
		"api_key":        w.apiKey,
		"query":          query,
		"max_results":    maxResults,
		"include_answer": true,
		"search_depth":   "basic",
	})
	if err != nil {
		return "Web search failed due to an unexpected error."
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
	if err != nil {
		return "Web search failed due to an unexpected error."
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		w.log.WithError(err).Warn("web search request failed")
		return "Web search failed due to an unexpected error."
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		w.log.WithField("status", resp.StatusCode).Warn("web search endpoint error")
		return fmt.Sprintf("Web search failed: HTTP %d", resp.StatusCode)
	}

	var data tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		w.log.WithError(err).Warn("web search response malformed")
		return "Web search failed due to an unexpected error."
	}

	var parts []string
	if data.Answer != "" {
		parts = append(parts, "Summary: "+data.Answer)
	}
	if len(data.Results) == 0 && data.Answer == "" {
		return "No web search results found."
	}
	for i, result := range data.Results {
		title := result.Title
		if title == "" {
			title = "Untitled"
		}
		parts = append(parts, fmt.Sprintf("[%d] %s\n    URL: %s\n    %s", i+1, title, result.URL, result.Content))
	}
	return strings.Join(parts, "\n\n")
}
