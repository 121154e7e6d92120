package article

import (
	"repocket/pkg/repocket/ident"
)

// File types a document can be packaged as.
const (
	FormatEPUB = "epub"
	FormatPDF  = "pdf"
	FormatHTML = "html"
)

// Document is the transient result of one synthesis run. It is consumed by
// the store immediately and never persisted as a struct; only its payload and
// descriptors land on disk.
type Document struct {
	// ID is derived from the source URL, so re-synthesizing the same article
	// overwrites the same file set.
	ID        ident.ID
	SourceURL string

	PageTitle   string
	Title       string
	Author      string
	Description string
	// Header is the provenance banner injected above the content.
	Header string
	// Canonical is the resolved source URL, empty for failure documents.
	Canonical string

	// FileType is the container the payload was packaged as. Binary sources
	// force "pdf" regardless of the requested format.
	FileType string
	Payload  []byte

	// Images maps original image URLs to their assigned local resource names.
	Images map[string]string

	// Failed marks a renderable failure document: still packageable, but its
	// header carries the failure reason instead of article content.
	Failed bool
}
