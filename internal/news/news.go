// Package news fetches headlines from the BBC news feed and prepares
// them for the model to narrate.
package news

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/murmur-assistant/murmur/internal/httpkit"
	"github.com/murmur-assistant/murmur/internal/tools"
)

const DefaultFeedURL = "https://bbc-news-api.vercel.app/news?lang=english"

// interestGuidance steers which stories the model picks to read aloud.
const interestGuidance = `Select the top 5 most interesting articles based on this profile:

HIGH PRIORITY (report these first):
- AI, agentic engineering, big tech (OpenAI, Anthropic, Meta, Google AI, agents, models, chips, regulation)
- Major world events, breaking news, significant geopolitical developments
- US politics and policy with real impact
- NYC/NJ local: transit (MTA, PATH, NJ Transit), housing, zoning, mayor
- Finance, markets, business regulation, crypto, layoffs

MEDIUM PRIORITY:
- Gaming industry, live-service games, creator economy
- Science and technology breakthroughs
- Business operations, startups, acquisitions

LOW PRIORITY (skip unless exceptional):
- Celebrity news, entertainment gossip
- Sports (unless historic/major upset)
- Generic travel, food, lifestyle listicles
- Repeated coverage of same story (pick best one)

When reporting, be concise: give headline + 1 sentence on why it matters.`

// Article is one deduplicated feed entry.
type Article struct {
	Title   string
	Summary string
	Section string
	URL     string
}

// Client fetches the news feed.
type Client struct {
	feedURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewClient creates a news client. feedURL empty selects the default
// BBC feed.
func NewClient(feedURL string, logger *slog.Logger) *Client {
	if feedURL == "" {
		feedURL = DefaultFeedURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		feedURL: feedURL,
		client:  httpkit.NewClient(httpkit.WithTimeout(10 * time.Second)),
		logger:  logger,
	}
}

// Fetch returns the deduplicated articles from the feed.
func (c *Client) Fetch(ctx context.Context) ([]Article, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.feedURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("news feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		httpkit.DrainAndClose(resp.Body, 1024)
		return nil, fmt.Errorf("news feed: status %d", resp.StatusCode)
	}

	// Sections arrive as top-level keys ("Latest", "World", ...) each
	// holding an article list; "status" is metadata.
	var feed map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("news feed: decode: %w", err)
	}

	return extractArticles(feed), nil
}

type feedItem struct {
	Title    string `json:"title"`
	Summary  string `json:"summary"`
	NewsLink string `json:"news_link"`
}

func extractArticles(feed map[string]json.RawMessage) []Article {
	sections := make([]string, 0, len(feed))
	for section := range feed {
		if section == "status" {
			continue
		}
		sections = append(sections, section)
	}
	sort.Strings(sections)

	seen := make(map[string]bool)
	var articles []Article
	for _, section := range sections {
		var items []feedItem
		if err := json.Unmarshal(feed[section], &items); err != nil {
			continue
		}
		for _, item := range items {
			u := normalizeURL(item.NewsLink)
			title := strings.TrimSpace(item.Title)
			if u == "" || title == "" || seen[u] {
				continue
			}
			seen[u] = true
			articles = append(articles, Article{
				Title:   title,
				Summary: strings.TrimSpace(item.Summary),
				Section: section,
				URL:     u,
			})
		}
	}
	return articles
}

// normalizeURL strips tracking parameters and repairs a known feed bug
// where the host is doubled, so deduplication works.
func normalizeURL(u string) string {
	if u == "" {
		return ""
	}
	u = strings.ReplaceAll(u, "bbc.comhttps://", "https://")
	if i := strings.Index(u, "?"); i >= 0 {
		u = u[:i]
	}
	return strings.TrimSpace(u)
}

// RegisterTool adds the news headline tool.
func RegisterTool(reg *tools.Registry, client *Client) error {
	return reg.Register(&tools.Tool{
		Name:        "get_news",
		Description: "Get the latest news headlines. Returns top stories for you to select the most interesting.",
		Handler:     client.handleGetNews,
	})
}

func (c *Client) handleGetNews(ctx context.Context, args map[string]any) (string, error) {
	articles, err := c.Fetch(ctx)
	if err != nil {
		c.logger.Warn("news fetch failed", "error", err)
		return "News service error: " + err.Error(), nil
	}
	if len(articles) == 0 {
		return "No news articles found.", nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d articles.\n\n", len(articles))
	b.WriteString(interestGuidance)
	b.WriteString("\n\n--- ARTICLES ---\n\n")
	for i, a := range articles {
		fmt.Fprintf(&b, "%d. [%s] %s\n", i+1, a.Section, a.Title)
		if a.Summary != "" {
			fmt.Fprintf(&b, "   %s\n", a.Summary)
		}
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String()), nil
}
