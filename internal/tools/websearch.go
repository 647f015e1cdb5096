package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"medassist/internal/errors"
	"medassist/internal/llm"
)

const tavilyEndpoint = "https://api.tavily.com/search"

// WebSearch queries the Tavily search API.
type WebSearch struct {
	client     *http.Client
	apiKey     string
	endpoint   string
	maxResults int
}

// NewWebSearch builds the web_search tool. maxResults is the default result
// count when the model does not pass one.
func NewWebSearch(apiKey string, maxResults int) *WebSearch {
	if maxResults < 1 || maxResults > 10 {
		maxResults = 5
	}
	return &WebSearch{
		client:     &http.Client{Timeout: 30 * time.Second},
		apiKey:     apiKey,
		endpoint:   tavilyEndpoint,
		maxResults: maxResults,
	}
}

func (t *WebSearch) Definition() llm.ToolSchema {
	return llm.ToolSchema{
		Name:        "web_search",
		Description: "Search the web for current information. Returns relevant results with summaries and URLs.",
		Parameters: llm.ParameterSchema{
			Type: "object",
			Properties: map[string]llm.Property{
				"query": {
					Type:        "string",
					Description: "The search query to execute",
				},
				"max_results": {
					Type:        "integer",
					Description: "Maximum number of results (1-10)",
				},
			},
			Required: []string{"query"},
		},
	}
}

func (t *WebSearch) Execute(ctx context.Context, call Call) (*Result, error) {
	if t.apiKey == "" {
		return errorResult(call, "Web search is not configured: TAVILY_API_KEY is unset.", fmt.Errorf("missing tavily api key")), nil
	}
	query := stringArg(call.Arguments, "query")
	if query == "" {
		return errorResult(call, "Error: query parameter required", fmt.Errorf("missing query")), nil
	}
	maxResults := intArg(call.Arguments, "max_results", t.maxResults, 1, 10)

	reqBody, err := json.Marshal(map[string]any{
		"api_key":        t.apiKey,
		"query":          query,
		"max_results":    maxResults,
		"search_depth":   "basic",
		"include_answer": true,
	})
	if err != nil {
		return errorResult(call, fmt.Sprintf("Error encoding request: %v", err), err), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return errorResult(call, fmt.Sprintf("Error creating request: %v", err), err), nil
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		transient := errors.NewTransientError(err, "web search request failed")
		return errorResult(call, fmt.Sprintf("Error making request: %v", err), transient), nil
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		transient := errors.NewTransientError(err, "web search response unreadable")
		return errorResult(call, fmt.Sprintf("Error reading response: %v", err), transient), nil
	}
	if resp.StatusCode != http.StatusOK {
		err := errors.FromHTTPStatus(resp.StatusCode, fmt.Errorf("search API returned status %d", resp.StatusCode))
		return errorResult(call, fmt.Sprintf("API error (status %d): %s", resp.StatusCode, string(body)), err), nil
	}

	var tavilyResp struct {
		Query   string `json:"query"`
		Answer  string `json:"answer"`
		Results []struct {
			Title   string `json:"title"`
			URL     string `json:"url"`
			Content string `json:"content"`
		} `json:"results"`
	}
	if err := json.Unmarshal(body, &tavilyResp); err != nil {
		return errorResult(call, fmt.Sprintf("Error parsing response: %v", err), err), nil
	}

	var output strings.Builder
	fmt.Fprintf(&output, "Search: %s\n\n", tavilyResp.Query)
	if tavilyResp.Answer != "" {
		fmt.Fprintf(&output, "Summary: %s\n\n", tavilyResp.Answer)
	}
	fmt.Fprintf(&output, "%d Results:\n\n", len(tavilyResp.Results))
	for i, result := range tavilyResp.Results {
		fmt.Fprintf(&output, "%d. %s\n   URL: %s\n   %s\n\n", i+1, result.Title, result.URL, result.Content)
	}

	return &Result{
		CallID:  call.ID,
		Content: output.String(),
		Metadata: map[string]any{
			"query":         tavilyResp.Query,
			"results_count": len(tavilyResp.Results),
		},
	}, nil
}
