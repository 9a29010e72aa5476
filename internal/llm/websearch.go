package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// WebSearch is the lookup tool offered to the tool-capable tier for brand and
// product verification. Silently disabled (returns empty) when no API key is
// configured.
type WebSearch struct {
	apiKey   string
	endpoint string
	http     *http.Client
	logger   *slog.Logger
}

func NewWebSearch(apiKey, endpoint string, logger *slog.Logger) *WebSearch {
	if logger == nil {
		logger = slog.Default()
	}
	if endpoint == "" {
		endpoint = "https://serpapi.com/search"
	}
	return &WebSearch{
		apiKey:   apiKey,
		endpoint: endpoint,
		http:     &http.Client{Timeout: 15 * time.Second},
		logger:   logger,
	}
}

// WebSearchTool is the tool definition advertised to the model.
func WebSearchTool() Tool {
	return Tool{
		Name:        "web_search",
		Description: "Look up a product or brand on the web. Use for unfamiliar brand names or ambiguous product descriptions.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query":       map[string]any{"type": "string"},
				"search_type": map[string]any{"type": "string", "enum": []string{"product", "brand"}},
			},
			"required": []string{"query"},
		},
	}
}

type webSearchArgs struct {
	Query      string `json:"query"`
	SearchType string `json:"search_type"`
}

// Execute implements ToolExecutor for the web_search tool.
func (w *WebSearch) Execute(ctx context.Context, call ToolCall) (string, error) {
	if call.Name != "web_search" {
		return "", fmt.Errorf("unknown tool: %s", call.Name)
	}
	var args webSearchArgs
	if err := json.Unmarshal(call.Arguments, &args); err != nil {
		return "", fmt.Errorf("decode web_search arguments: %w", err)
	}
	if w.apiKey == "" {
		w.logger.Debug("websearch.disabled", "query", args.Query)
		return "", nil
	}

	q := url.Values{}
	q.Set("q", args.Query)
	q.Set("api_key", w.apiKey)
	q.Set("num", "3")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}
	resp, err := w.http.Do(req)
	if err != nil {
		return "", err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			w.logger.Warn("websearch.body_close_error", "error", err)
		}
	}()
	if resp.StatusCode/100 != 2 {
		return "", fmt.Errorf("web search status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	var body struct {
		OrganicResults []struct {
			Title   string `json:"title"`
			Snippet string `json:"snippet"`
		} `json:"organic_results"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return "", fmt.Errorf("decode search response: %w", err)
	}

	var b strings.Builder
	for i, r := range body.OrganicResults {
		if i >= 3 {
			break
		}
		b.WriteString(r.Title)
		b.WriteString(": ")
		b.WriteString(r.Snippet)
		b.WriteString("\n")
	}
	w.logger.Info("websearch.ok", "query", args.Query, "type", args.SearchType, "results", len(body.OrganicResults))
	return b.String(), nil
}
