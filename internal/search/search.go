// Package search answers questions that need current information via
// the Perplexity API, with the output cleaned up for speech.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/murmur-assistant/murmur/internal/httpkit"
	"github.com/murmur-assistant/murmur/internal/tools"
)

const (
	defaultEndpoint = "https://api.perplexity.ai/chat/completions"
	searchModel     = "sonar"

	// Search queries run a full model pass upstream, so the timeout is
	// generous.
	searchTimeout = 60 * time.Second
)

// Client calls the Perplexity search API.
type Client struct {
	endpoint string
	apiKey   string
	client   *http.Client
	logger   *slog.Logger
}

// NewClient creates a search client. An empty apiKey is allowed; the
// tool reports itself unavailable instead of failing at startup.
func NewClient(apiKey string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		endpoint: defaultEndpoint,
		apiKey:   apiKey,
		client:   httpkit.NewClient(httpkit.WithTimeout(searchTimeout)),
		logger:   logger,
	}
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// Search runs one query and returns the raw answer text.
func (c *Client) Search(ctx context.Context, query string) (string, error) {
	payload := map[string]any{
		"model": searchModel,
		"messages": []map[string]string{
			{"role": "user", "content": query},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		httpkit.DrainAndClose(resp.Body, 1024)
		return "", fmt.Errorf("search: API returned status %d", resp.StatusCode)
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("search: decode response: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", nil
	}
	return result.Choices[0].Message.Content, nil
}

var (
	citationPattern = regexp.MustCompile(`\[\d+\]`)
	emphasisPattern = regexp.MustCompile(`\*+`)
	linkPattern     = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	spacesPattern   = regexp.MustCompile(`  +`)
)

// cleanForSpeech strips markdown artifacts that sound wrong when read
// aloud: citation markers, emphasis asterisks, and link syntax.
func cleanForSpeech(text string) string {
	text = citationPattern.ReplaceAllString(text, "")
	text = linkPattern.ReplaceAllString(text, "$1")
	text = emphasisPattern.ReplaceAllString(text, "")
	text = spacesPattern.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// RegisterTool adds the internet search tool.
func RegisterTool(reg *tools.Registry, client *Client) error {
	return reg.Register(&tools.Tool{
		Name:        "search_internet",
		Description: "Search the internet for current information, news, or to answer questions that require up-to-date knowledge.",
		Schema: tools.Schema{
			{Name: "query", Type: tools.TypeString, Required: true, Description: "The search query"},
		},
		Handler: client.handleSearch,
	})
}

func (c *Client) handleSearch(ctx context.Context, args map[string]any) (string, error) {
	if !c.Configured() {
		return "Search unavailable: no Perplexity API key configured", nil
	}

	query := args["query"].(string)
	content, err := c.Search(ctx, query)
	if err != nil {
		c.logger.Warn("search failed", "error", err)
		return "Search error: " + err.Error(), nil
	}
	if content == "" {
		return "No results found for your search.", nil
	}
	return cleanForSpeech(content), nil
}
