package article

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"repocket/pkg/repocket/ident"
	"repocket/pkg/repocket/logging"
)

const (
	// DefaultUserAgent identifies fetches to origin servers.
	DefaultUserAgent = "repocket/v0.3.0"
	// DefaultTimeout bounds every network operation in a synthesis run.
	DefaultTimeout = 30 * time.Second
)

// Metadata fallbacks for pages that expose nothing usable.
const (
	unknownAuthor      = "Unknown"
	defaultPageTitle   = "Page"
	defaultTitle       = "Article"
	defaultDescription = "Description"
)

// Options configures a Pipeline.
type Options struct {
	// Format is the requested packaging: epub, pdf or html. Binary sources
	// override it to pdf.
	Format string
	// Timeout bounds each fetch and probe. Zero means DefaultTimeout.
	Timeout time.Duration
	// UserAgent is sent on every outbound request. Empty means
	// DefaultUserAgent.
	UserAgent string
}

// Pipeline turns a source URL into a packaged on-device document. It never
// reports an error to the caller: anything that goes wrong is rendered into
// the document itself so the reader learns about the failure on the device.
type Pipeline struct {
	client    *http.Client
	primary   Strategy
	secondary Strategy
	sanitizer Sanitizer
	format    string
	userAgent string
	now       func() time.Time
	log       *logging.Logger
}

// Option overrides a Pipeline collaborator, mainly for tests.
type Option func(*Pipeline)

func WithHTTPClient(c *http.Client) Option {
	return func(p *Pipeline) { p.client = c }
}

func WithStrategies(primary, secondary Strategy) Option {
	return func(p *Pipeline) {
		p.primary = primary
		p.secondary = secondary
	}
}

func WithSanitizer(s Sanitizer) Option {
	return func(p *Pipeline) { p.sanitizer = s }
}

func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

func New(opts Options, options ...Option) *Pipeline {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	format := opts.Format
	if format == "" {
		format = FormatEPUB
	}

	p := &Pipeline{
		client:    &http.Client{Timeout: timeout},
		primary:   readabilityStrategy{},
		secondary: newScrapeStrategy(timeout, userAgent),
		sanitizer: NewSanitizer(),
		format:    format,
		userAgent: userAgent,
		now:       time.Now,
		log:       logging.Get("article"),
	}
	for _, o := range options {
		o(p)
	}
	return p
}

// Synthesize produces a packaged document for sourceURL. The returned
// document is always usable; failures come back as a renderable failure
// document rather than an error.
func (p *Pipeline) Synthesize(ctx context.Context, sourceURL string) *Document {
	id := ident.FromURL(sourceURL)

	// The secondary strategy fetches on its own, so it runs concurrently
	// with the primary fetch and extraction.
	secondaryCh := make(chan *Extraction, 1)
	go func() {
		ext, err := p.secondary.Extract(ctx, sourceURL, nil)
		if err != nil {
			p.log.Debug("secondary extraction failed", "url", sourceURL, "error", err)
			ext = &Extraction{
				HTML: fmt.Sprintf("<p>fallback extractor didn't work: %s</p>", encodeText(err.Error())),
			}
		}
		secondaryCh <- ext
	}()

	body, contentType, err := p.fetch(ctx, sourceURL)
	if err != nil {
		p.log.Warn("fetch failed", "url", sourceURL, "error", err)
		return p.failureDocument(id, sourceURL, err)
	}

	if isBinaryContent(contentType) {
		p.log.Debug("binary source, packaging as-is", "url", sourceURL, "type", contentType)
		return &Document{
			ID:        id,
			SourceURL: sourceURL,
			Canonical: sourceURL,
			FileType:  FormatPDF,
			Payload:   body,
		}
	}

	primary, err := p.primary.Extract(ctx, sourceURL, body)
	if err != nil {
		p.log.Warn("extraction failed", "url", sourceURL, "error", err)
		// The secondary result might still be salvageable.
		primary = &Extraction{}
	}
	secondary := <-secondaryCh

	content := primary.HTML
	if secondary.Len() > primary.Len() {
		p.log.Debug("using secondary extraction",
			"url", sourceURL, "primary", primary.Len(), "secondary", secondary.Len())
		content = secondary.HTML
	}
	if content == "" {
		return p.failureDocument(id, sourceURL, fmt.Errorf("no readable content"))
	}

	content = p.sanitizer.Clean(content)
	images := p.resolveImages(ctx, content)
	content = rewriteImages(content, images)

	doc := &Document{
		ID:          id,
		SourceURL:   sourceURL,
		Canonical:   sourceURL,
		PageTitle:   encodeText(firstNonEmpty(primary.PageTitle, secondary.PageTitle, defaultPageTitle)),
		Title:       encodeText(firstNonEmpty(primary.ArticleTitle, secondary.ArticleTitle, defaultTitle)),
		Author:      firstNonEmpty(primary.Byline, secondary.Byline, unknownAuthor),
		Description: encodeText(firstNonEmpty(primary.Description, secondary.Description, defaultDescription)),
		Header:      p.header(sourceURL),
		Images:      images,
	}
	p.pack(doc, content)
	return doc
}

func (p *Pipeline) fetch(ctx context.Context, sourceURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetching: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", fmt.Errorf("fetching: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("reading body: %w", err)
	}
	return body, resp.Header.Get("Content-Type"), nil
}

func isBinaryContent(contentType string) bool {
	return strings.HasPrefix(contentType, "application/pdf")
}

// header renders the provenance banner shown above the article content.
func (p *Pipeline) header(sourceURL string) string {
	u := encodeText(sourceURL)
	return fmt.Sprintf(
		`A rePocket-able version of <a class="shortened" href=%q>%s</a><br />Retrieved on %s`,
		sourceURL, u, p.now().Format("2006-01-02 15:04:05 MST"))
}

// failureDocument packages the failure reason so it shows up on the device as
// a regular, openable document.
func (p *Pipeline) failureDocument(id ident.ID, sourceURL string, cause error) *Document {
	doc := &Document{
		ID:          id,
		SourceURL:   sourceURL,
		PageTitle:   "repocket failed",
		Title:       defaultTitle,
		Author:      unknownAuthor,
		Description: defaultDescription,
		Header:      "Could not get the article contents",
		Failed:      true,
	}
	content := fmt.Sprintf(
		"<p>Could not get the article contents.</p><p>Reason: %s</p><p>Source: %s</p>",
		encodeText(cause.Error()), encodeText(sourceURL))
	p.pack(doc, content)
	return doc
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
