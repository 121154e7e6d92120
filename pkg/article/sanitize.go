package article

import (
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Sanitizer reduces extracted markup to a safe, XHTML-compatible subset.
// Clean must be idempotent: cleaning already-clean markup returns it
// unchanged.
type Sanitizer interface {
	Clean(markup string) string
}

var (
	imgTagRe    = regexp.MustCompile(`<img([^>]*?)\s*/?>`)
	emptyImgRe  = regexp.MustCompile(`<img\s*/>`)
	sourceTagRe = regexp.MustCompile(`<source([^>]*?)\s*/?>`)
	mapBlockRe  = regexp.MustCompile(`(?s)<map\b.*?</map>`)
)

// MarkupSanitizer is the default Sanitizer: an allowlist-based HTML filter
// followed by a fixup pass that repairs the constructs epub readers choke on.
type MarkupSanitizer struct {
	policy *bluemonday.Policy
}

func NewSanitizer() *MarkupSanitizer {
	p := bluemonday.NewPolicy()
	p.AllowStandardURLs()
	p.AllowElements(
		"a", "abbr", "article", "aside", "b", "blockquote", "br", "caption",
		"cite", "code", "dd", "del", "dfn", "dl", "dt", "em", "figcaption",
		"figure", "h1", "h2", "h3", "h4", "h5", "h6", "hr", "i", "img", "ins",
		"kbd", "li", "main", "mark", "ol", "p", "pre", "q", "s", "samp",
		"section", "small", "source", "span", "strike", "strong", "sub", "sup",
		"table", "tbody", "td", "tfoot", "th", "thead", "time", "tr", "u",
		"ul", "var", "wbr",
	)
	p.AllowAttrs("href").OnElements("a")
	p.AllowAttrs("src").OnElements("img", "source")
	p.AllowAttrs("datetime").OnElements("time")

	return &MarkupSanitizer{policy: p}
}

func (s *MarkupSanitizer) Clean(markup string) string {
	// Image maps go first, whole block included; the allowlist pass would
	// unwrap them and keep their contents.
	out := mapBlockRe.ReplaceAllString(markup, "")
	out = s.policy.Sanitize(out)

	// Void elements must be self-closed for the XHTML inside an epub, and an
	// img stripped down to no attributes renders as a broken-image box.
	out = imgTagRe.ReplaceAllString(out, `<img$1 />`)
	out = emptyImgRe.ReplaceAllString(out, "")
	out = sourceTagRe.ReplaceAllString(out, `<source$1 />`)
	out = strings.ReplaceAll(out, "<hr>", "<hr />")
	out = strings.ReplaceAll(out, "<br>", "<br />")

	return out
}

// encodeText escapes the characters that would break markup when a metadata
// field is interpolated into a template or epub manifest.
var textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func encodeText(s string) string {
	return textEscaper.Replace(s)
}
