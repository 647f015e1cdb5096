package tools

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"medassist/internal/llm"
	"medassist/internal/logging"
)

const (
	pubmedBaseURL  = "https://pubmed.ncbi.nlm.nih.gov"
	maxPubmedPages = 5
)

// AbstractSearch retrieves medical literature abstracts from PubMed.
type AbstractSearch struct {
	client  *http.Client
	baseURL string
	logger  logging.Logger
}

func NewAbstractSearch() *AbstractSearch {
	return &AbstractSearch{
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: pubmedBaseURL,
		logger:  logging.NewComponentLogger("Tools"),
	}
}

func (t *AbstractSearch) Definition() llm.ToolSchema {
	return llm.ToolSchema{
		Name:        "abstract_search",
		Description: "Search PubMed for medical literature and return article abstracts with PMIDs and URLs.",
		Parameters: llm.ParameterSchema{
			Type: "object",
			Properties: map[string]llm.Property{
				"query": {
					Type:        "string",
					Description: "Search keywords or a medical question",
				},
				"num_results": {
					Type:        "integer",
					Description: "Number of abstracts to return (1-10, default 5)",
				},
			},
			Required: []string{"query"},
		},
	}
}

// abstractRecord is one fetched PubMed article.
type abstractRecord struct {
	PMID     string
	Title    string
	Abstract string
	URL      string
}

func (t *AbstractSearch) Execute(ctx context.Context, call Call) (*Result, error) {
	query := stringArg(call.Arguments, "query")
	if query == "" {
		return errorResult(call, "Error: query parameter required", fmt.Errorf("missing query")), nil
	}
	numResults := intArg(call.Arguments, "num_results", 5, 1, 10)

	records, err := t.search(ctx, call, query, numResults)
	if err != nil {
		return errorResult(call, fmt.Sprintf("Error searching PubMed: %v", err), err), nil
	}
	if len(records) == 0 {
		return &Result{CallID: call.ID, Content: fmt.Sprintf("No PubMed results for %q.", query)}, nil
	}

	var output strings.Builder
	fmt.Fprintf(&output, "PubMed results for %q (%d abstracts):\n\n", query, len(records))
	for i, rec := range records {
		fmt.Fprintf(&output, "%d. %s\n   PMID: %s\n   URL: %s\n   Abstract: %s\n\n", i+1, rec.Title, rec.PMID, rec.URL, rec.Abstract)
	}

	return &Result{
		CallID:   call.ID,
		Content:  output.String(),
		Metadata: map[string]any{"query": query, "results_count": len(records)},
	}, nil
}

// search pages through result listings until enough abstracts are collected.
func (t *AbstractSearch) search(ctx context.Context, call Call, query string, numResults int) ([]abstractRecord, error) {
	var records []abstractRecord
	for page := 1; page <= maxPubmedPages && len(records) < numResults; page++ {
		call.Progress(fmt.Sprintf("Searching PubMed page %d (%d/%d abstracts collected)", page, len(records), numResults))
		listURL := fmt.Sprintf("%s/?term=%s&page=%d", t.baseURL, url.QueryEscape(query), page)
		doc, err := t.fetchDocument(ctx, listURL)
		if err != nil {
			return records, err
		}

		var links []string
		doc.Find("div.docsum-wrap a.docsum-title").Each(func(_ int, s *goquery.Selection) {
			if href, ok := s.Attr("href"); ok {
				links = append(links, href)
			}
		})
		if len(links) == 0 {
			break
		}

		for _, href := range links {
			if len(records) >= numResults {
				break
			}
			rec, err := t.fetchArticle(ctx, href)
			if err != nil {
				t.logger.Debug("Skipping PubMed article %s: %v", href, err)
				continue
			}
			if rec.Abstract == "" {
				continue
			}
			records = append(records, rec)
		}
	}
	return records, nil
}

func (t *AbstractSearch) fetchArticle(ctx context.Context, href string) (abstractRecord, error) {
	pmid := strings.Trim(href, "/")
	articleURL := t.baseURL + "/" + pmid + "/"

	doc, err := t.fetchDocument(ctx, articleURL)
	if err != nil {
		return abstractRecord{}, err
	}

	title := strings.Join(strings.Fields(doc.Find("h1.heading-title").First().Text()), " ")
	abstract := strings.Join(strings.Fields(doc.Find("div.abstract-content").First().Text()), " ")

	return abstractRecord{
		PMID:     pmid,
		Title:    title,
		Abstract: abstract,
		URL:      articleURL,
	}, nil
}

func (t *AbstractSearch) fetchDocument(ctx context.Context, rawURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", crawlUserAgent)

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d from %s", resp.StatusCode, rawURL)
	}
	return goquery.NewDocumentFromReader(resp.Body)
}
