package article

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"

	epub "github.com/go-shiori/go-epub"
)

//go:embed template.html
var pageTemplate string

// pack serializes content into doc.Payload in the requested format. The epub
// builder can fail on malformed input or unreachable images; when it does the
// document degrades to the html rendition so the run still produces a file.
func (p *Pipeline) pack(doc *Document, content string) {
	rendered := p.renderPage(doc, content)

	switch p.format {
	case FormatHTML:
		doc.FileType = FormatHTML
		doc.Payload = rendered
	case FormatPDF:
		// No local HTML-to-PDF conversion; ship the page itself.
		doc.FileType = FormatHTML
		doc.Payload = rendered
	default:
		payload, err := p.buildEPUB(doc, content)
		if err != nil {
			p.log.Warn("epub packaging failed, falling back to html",
				"url", doc.SourceURL, "error", err)
			doc.FileType = FormatHTML
			doc.Payload = rendered
			return
		}
		doc.FileType = FormatEPUB
		doc.Payload = payload
	}
}

// renderPage fills the embedded page template.
func (p *Pipeline) renderPage(doc *Document, content string) []byte {
	canonical := ""
	if doc.Canonical != "" {
		canonical = fmt.Sprintf(`<link rel="canonical" href=%q />`, doc.Canonical)
	}

	page := pageTemplate
	page = strings.ReplaceAll(page, "{{page_title}}", doc.PageTitle)
	page = strings.ReplaceAll(page, "{{canonical}}", canonical)
	page = strings.ReplaceAll(page, "{{header}}", doc.Header)
	page = strings.ReplaceAll(page, "{{article_title}}", doc.Title)
	page = strings.ReplaceAll(page, "{{content}}", content)
	return []byte(page)
}

// buildEPUB assembles a single-section epub. Referenced images are embedded
// by their remote URL under the local names already present in the content;
// the first one doubles as the cover.
func (p *Pipeline) buildEPUB(doc *Document, content string) ([]byte, error) {
	book, err := epub.NewEpub(doc.Title)
	if err != nil {
		return nil, fmt.Errorf("creating epub: %w", err)
	}
	book.SetAuthor(doc.Author)
	book.SetDescription(doc.Description)
	if doc.Canonical != "" {
		book.SetIdentifier(doc.Canonical)
	}

	internalByName := make(map[string]string, len(doc.Images))
	for src, name := range doc.Images {
		internal, err := book.AddImage(src, name)
		if err != nil {
			p.log.Debug("embedding image failed", "url", src, "error", err)
			continue
		}
		internalByName[name] = internal
	}

	// The first embedded image appearing in the content becomes the cover.
	cover := ""
	for _, m := range imgSrcRe.FindAllStringSubmatch(content, -1) {
		if internal, ok := internalByName[m[1]]; ok {
			cover = internal
			break
		}
	}
	for name, internal := range internalByName {
		content = strings.ReplaceAll(content, name, internal)
	}
	if cover != "" {
		if err := book.SetCover(cover, ""); err != nil {
			p.log.Debug("setting cover failed", "url", doc.SourceURL, "error", err)
		}
	}

	section := fmt.Sprintf(`<p class="header">%s</p><h1>%s</h1>%s`, doc.Header, doc.Title, content)
	if _, err := book.AddSection(section, doc.Title, "article.xhtml", ""); err != nil {
		return nil, fmt.Errorf("adding section: %w", err)
	}

	var buf bytes.Buffer
	if _, err := book.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("serializing epub: %w", err)
	}
	return buf.Bytes(), nil
}
