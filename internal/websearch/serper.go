// Package websearch fetches live market context for the research stage via
// the Serper Google search API.
package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type OrganicResult struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

type Results struct {
	Organic []OrganicResult `json:"organic"`
}

type Searcher interface {
	Search(ctx context.Context, query string) (*Results, error)
}

type SerperClient struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
}

func NewSerperClient(apiKey string) *SerperClient {
	return &SerperClient{
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL: "https://google.serper.dev/search",
	}
}

func (c *SerperClient) Search(ctx context.Context, query string) (*Results, error) {
	payload := map[string]string{"q": query}
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("X-API-KEY", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("serper API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	var result Results
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &result, nil
}

// PromptContext renders the top search results as a prompt block, capped at
// max results.
func (r *Results) PromptContext(max int) string {
	if r == nil || len(r.Organic) == 0 {
		return ""
	}
	var b strings.Builder
	for i, res := range r.Organic {
		if i >= max {
			break
		}
		fmt.Fprintf(&b, "- %s: %s\n", res.Title, res.Snippet)
	}
	return b.String()
}
