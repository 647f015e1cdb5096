package tools

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	lru "github.com/hashicorp/golang-lru/v2"

	"medassist/internal/errors"
	"medassist/internal/llm"
)

const (
	crawlUserAgent  = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
	maxCrawlContent = 20000
	crawlCacheSize  = 128
)

// Crawl fetches a URL and extracts its readable text. Extracted pages are
// cached so repeat visits within a research run do not refetch.
type Crawl struct {
	client *http.Client
	cache  *lru.Cache[string, crawlPage]
}

type crawlPage struct {
	title string
	text  string
}

func NewCrawl() *Crawl {
	cache, _ := lru.New[string, crawlPage](crawlCacheSize)
	return &Crawl{
		client: &http.Client{Timeout: 30 * time.Second},
		cache:  cache,
	}
}

func (t *Crawl) Definition() llm.ToolSchema {
	return llm.ToolSchema{
		Name:        "crawl",
		Description: "Fetch a web page and return its readable text content. Use only URLs obtained from search results.",
		Parameters: llm.ParameterSchema{
			Type: "object",
			Properties: map[string]llm.Property{
				"url": {
					Type:        "string",
					Description: "The absolute http(s) URL to fetch",
				},
			},
			Required: []string{"url"},
		},
	}
}

func (t *Crawl) Execute(ctx context.Context, call Call) (*Result, error) {
	rawURL := stringArg(call.Arguments, "url")
	if rawURL == "" {
		return errorResult(call, "Error: url parameter required", fmt.Errorf("missing url")), nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return errorResult(call, fmt.Sprintf("Error: invalid URL %q", rawURL), fmt.Errorf("invalid url")), nil
	}

	if page, ok := t.cache.Get(rawURL); ok {
		return &Result{
			CallID:   call.ID,
			Content:  renderCrawlOutput(rawURL, page),
			Metadata: map[string]any{"url": rawURL, "title": page.title, "cached": true},
		}, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return errorResult(call, fmt.Sprintf("Error creating request: %v", err), err), nil
	}
	req.Header.Set("User-Agent", crawlUserAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := t.client.Do(req)
	if err != nil {
		transient := errors.NewTransientError(err, "page fetch failed")
		return errorResult(call, fmt.Sprintf("Error fetching page: %v", err), transient), nil
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		statusErr := errors.FromHTTPStatus(resp.StatusCode, fmt.Errorf("page returned status %d", resp.StatusCode))
		return errorResult(call, fmt.Sprintf("Error: page returned status %d", resp.StatusCode), statusErr), nil
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return errorResult(call, fmt.Sprintf("Error parsing page: %v", err), err), nil
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	text := extractReadableText(doc)
	if len(text) > maxCrawlContent {
		text = text[:maxCrawlContent] + "\n\n[content truncated]"
	}

	page := crawlPage{title: title, text: text}
	t.cache.Add(rawURL, page)

	return &Result{
		CallID:   call.ID,
		Content:  renderCrawlOutput(rawURL, page),
		Metadata: map[string]any{"url": rawURL, "title": title},
	}, nil
}

func renderCrawlOutput(rawURL string, page crawlPage) string {
	var output strings.Builder
	fmt.Fprintf(&output, "URL: %s\n", rawURL)
	if page.title != "" {
		fmt.Fprintf(&output, "Title: %s\n", page.title)
	}
	output.WriteString("\n")
	output.WriteString(page.text)
	return output.String()
}

// extractReadableText collects paragraph-level text, skipping script, style,
// and navigation noise.
func extractReadableText(doc *goquery.Document) string {
	doc.Find("script, style, noscript, nav, header, footer, aside").Remove()

	var parts []string
	root := doc.Find("article, main").First()
	if root.Length() == 0 {
		root = doc.Find("body").First()
	}
	root.Find("h1, h2, h3, h4, p, li, td, pre").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text != "" {
			parts = append(parts, text)
		}
	})
	if len(parts) == 0 {
		return strings.TrimSpace(root.Text())
	}
	return strings.Join(parts, "\n")
}
