package pocket

import (
	"fmt"
	"strings"
)

// maxQueryCount is the service-imposed ceiling on items per retrieve call.
const maxQueryCount = 30

// Query is the JSON body of a retrieve call. Optional fields are omitted
// when unset; `since` is always sent so the server can answer incrementally.
type Query struct {
	State       string `json:"state,omitempty"`
	Favorite    *int   `json:"favorite,omitempty"`
	Tag         string `json:"tag,omitempty"`
	ContentType string `json:"contentType,omitempty"`
	Sort        string `json:"sort,omitempty"`
	DetailType  string `json:"detailType,omitempty"`
	Search      string `json:"search,omitempty"`
	Domain      string `json:"domain,omitempty"`
	Since       uint64 `json:"since"`
	Count       int    `json:"count,omitempty"`
	Offset      *int   `json:"offset,omitempty"`
	Total       *int   `json:"total,omitempty"`
}

// QueryBuilder assembles a Query, validating enum fields as they are set.
type QueryBuilder struct {
	query Query
	err   error
}

// NewQuery returns an empty builder.
func NewQuery() *QueryBuilder {
	return &QueryBuilder{}
}

func (b *QueryBuilder) setEnum(field *string, value string, allowed ...string) *QueryBuilder {
	if b.err != nil {
		return b
	}
	lowered := strings.ToLower(value)
	for _, a := range allowed {
		if lowered == a {
			*field = lowered
			return b
		}
	}
	b.err = fmt.Errorf("invalid value %q, allowed: %s", value, strings.Join(allowed, ", "))
	return b
}

// State filters by item state: unread, archive or all.
func (b *QueryBuilder) State(state string) *QueryBuilder {
	return b.setEnum(&b.query.State, state, "unread", "archive", "all")
}

// Favorite filters by favorite flag (0 or 1).
func (b *QueryBuilder) Favorite(fav int) *QueryBuilder {
	if b.err == nil {
		if fav != 0 && fav != 1 {
			b.err = fmt.Errorf("favorite must be 0 or 1, got %d", fav)
			return b
		}
		b.query.Favorite = &fav
	}
	return b
}

// Tag filters by a single tag.
func (b *QueryBuilder) Tag(tag string) *QueryBuilder {
	if b.err == nil {
		b.query.Tag = tag
	}
	return b
}

// ContentType filters by content type: article, video or image.
func (b *QueryBuilder) ContentType(ct string) *QueryBuilder {
	return b.setEnum(&b.query.ContentType, ct, "article", "video", "image")
}

// Sort orders the results: newest, oldest, title or site.
func (b *QueryBuilder) Sort(sort string) *QueryBuilder {
	return b.setEnum(&b.query.Sort, sort, "newest", "oldest", "title", "site")
}

// DetailType selects the response shape: simple or complete.
func (b *QueryBuilder) DetailType(dt string) *QueryBuilder {
	return b.setEnum(&b.query.DetailType, dt, "simple", "complete")
}

// Search filters by free-text search.
func (b *QueryBuilder) Search(search string) *QueryBuilder {
	if b.err == nil {
		b.query.Search = search
	}
	return b
}

// Domain filters by site domain.
func (b *QueryBuilder) Domain(domain string) *QueryBuilder {
	if b.err == nil {
		b.query.Domain = domain
	}
	return b
}

// Since restricts the response to items changed after the watermark.
func (b *QueryBuilder) Since(ts uint64) *QueryBuilder {
	if b.err == nil {
		b.query.Since = ts
	}
	return b
}

// Count limits the number of returned items, truncated at the service cap.
func (b *QueryBuilder) Count(count int) *QueryBuilder {
	if b.err == nil {
		if count > maxQueryCount {
			count = maxQueryCount
		}
		b.query.Count = count
	}
	return b
}

// Offset skips the first n results.
func (b *QueryBuilder) Offset(offset int) *QueryBuilder {
	if b.err == nil {
		b.query.Offset = &offset
	}
	return b
}

// Total asks the server to include the total result count (0 or 1).
func (b *QueryBuilder) Total(total int) *QueryBuilder {
	if b.err == nil {
		if total != 0 && total != 1 {
			b.err = fmt.Errorf("total must be 0 or 1, got %d", total)
			return b
		}
		b.query.Total = &total
	}
	return b
}

// Build returns the assembled query or the first validation error.
func (b *QueryBuilder) Build() (*Query, error) {
	if b.err != nil {
		return nil, b.err
	}
	q := b.query
	return &q, nil
}
