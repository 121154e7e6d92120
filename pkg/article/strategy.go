package article

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	nurl "net/url"
	"time"

	"github.com/go-shiori/dom"
	readability "github.com/go-shiori/go-readability"
	"github.com/markusmobius/go-trafilatura"
	"golang.org/x/net/html"
)

// Extraction is the output of one extraction strategy: the article markup
// plus whatever metadata the strategy could recover.
type Extraction struct {
	HTML         string
	PageTitle    string
	ArticleTitle string
	Byline       string
	Description  string
}

// Len returns the serialized content length, the quantity the selection rule
// compares.
func (e *Extraction) Len() int {
	if e == nil {
		return 0
	}
	return len(e.HTML)
}

// Strategy is one way of extracting readable content for a URL. body is the
// already-fetched page; strategies are free to ignore it and fetch on their
// own.
type Strategy interface {
	Name() string
	Extract(ctx context.Context, pageURL string, body []byte) (*Extraction, error)
}

// readabilityStrategy extracts content from the fetched body with a DOM-based
// readability heuristic. This is the primary strategy: its metadata is used
// even when the other strategy wins on content length.
type readabilityStrategy struct{}

func (readabilityStrategy) Name() string { return "readability" }

func (readabilityStrategy) Extract(_ context.Context, pageURL string, body []byte) (*Extraction, error) {
	u, err := nurl.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parsing url: %w", err)
	}

	art, err := readability.FromReader(bytes.NewReader(body), u)
	if err != nil {
		return nil, fmt.Errorf("readability: %w", err)
	}

	return &Extraction{
		HTML:         art.Content,
		PageTitle:    pageTitle(body),
		ArticleTitle: art.Title,
		Byline:       art.Byline,
		Description:  art.Excerpt,
	}, nil
}

// pageTitle pulls the <title> element out of the raw page.
func pageTitle(body []byte) string {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return ""
	}

	var title string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if title != "" {
			return
		}
		if n.Type == html.ElementNode && n.Data == "title" {
			if n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
				title = n.FirstChild.Data
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return title
}

// scrapeStrategy is the second, independent extraction attempt. It performs
// its own fetch of the URL and runs a different heuristic, so pages that come
// out empty or very short under the readability pass get a second chance.
type scrapeStrategy struct {
	client    *http.Client
	userAgent string
}

func newScrapeStrategy(timeout time.Duration, userAgent string) *scrapeStrategy {
	return &scrapeStrategy{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

func (scrapeStrategy) Name() string { return "scrape" }

func (s *scrapeStrategy) Extract(ctx context.Context, pageURL string, _ []byte) (*Extraction, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetching: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}

	u, err := nurl.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parsing url: %w", err)
	}

	result, err := trafilatura.Extract(bytes.NewReader(body), trafilatura.Options{
		OriginalURL:   u,
		IncludeImages: true,
		IncludeLinks:  true,
	})
	if err != nil {
		return nil, fmt.Errorf("trafilatura: %w", err)
	}

	markup := ""
	if result.ContentNode != nil {
		markup = dom.OuterHTML(result.ContentNode)
	}

	return &Extraction{
		HTML:         markup,
		PageTitle:    result.Metadata.Title,
		ArticleTitle: result.Metadata.Title,
		Byline:       result.Metadata.Author,
		Description:  result.Metadata.Description,
	}, nil
}
