package pocket

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Item is one entry of the reading list as the service returns it. Numeric
// fields arrive as JSON strings on the wire.
type Item struct {
	ItemID        WireUint64 `json:"item_id"`
	ResolvedID    WireUint64 `json:"resolved_id"`
	SortID        int        `json:"sort_id"`
	GivenURL      string     `json:"given_url"`
	ResolvedURL   string     `json:"resolved_url"`
	GivenTitle    string     `json:"given_title"`
	ResolvedTitle string     `json:"resolved_title"`
	Favorite      WireBool   `json:"favorite"`
	Status        string     `json:"status"`
	Excerpt       string     `json:"excerpt"`
	IsArticle     WireBool   `json:"is_article"`
	HasImage      WireBool   `json:"has_image"`
	HasVideo      WireBool   `json:"has_video"`
	WordCount     WireUint64 `json:"word_count"`
	Lang          string     `json:"lang"`
	TimeToRead    int        `json:"time_to_read"`
}

// URL returns the resolved URL, the item's source of truth for synthesis.
// Items the service has not resolved yet fall back to the URL they were
// saved with.
func (i Item) URL() string {
	if i.ResolvedURL != "" {
		return i.ResolvedURL
	}
	return i.GivenURL
}

// ID returns the resolved numeric id used by archive and tag calls.
func (i Item) ID() uint64 {
	return uint64(i.ResolvedID)
}

// Title returns the best available display title.
func (i Item) Title() string {
	if i.ResolvedTitle != "" {
		return i.ResolvedTitle
	}
	return i.GivenTitle
}

// RetrieveResult is the parsed response of a retrieve call.
type RetrieveResult struct {
	Status   int
	Complete int
	// Since is the server-side watermark to pass on the next query.
	Since uint64
	Items []Item
}

type retrieveEnvelope struct {
	Status   int             `json:"status"`
	Complete int             `json:"complete"`
	Since    uint64          `json:"since"`
	List     json.RawMessage `json:"list"`
}

// parseRetrieveResult decodes a retrieve response body. The `list` field is
// an object keyed by item id, except when empty, where the service sends an
// empty array instead.
func parseRetrieveResult(data []byte) (*RetrieveResult, error) {
	var env retrieveEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("parsing retrieve response: %w", err)
	}

	result := &RetrieveResult{
		Status:   env.Status,
		Complete: env.Complete,
		Since:    env.Since,
	}

	trimmed := bytes.TrimSpace(env.List)
	if len(trimmed) == 0 || trimmed[0] == '[' {
		return result, nil
	}

	var list map[string]Item
	if err := json.Unmarshal(trimmed, &list); err != nil {
		return nil, fmt.Errorf("parsing item list: %w", err)
	}

	for _, item := range list {
		result.Items = append(result.Items, item)
	}
	sort.Slice(result.Items, func(a, b int) bool {
		return result.Items[a].SortID < result.Items[b].SortID
	})

	return result, nil
}

// WireUint64 decodes a uint64 that may arrive as a JSON string, a number, or
// an empty string.
type WireUint64 uint64

// UnmarshalJSON implements json.Unmarshaler.
func (u *WireUint64) UnmarshalJSON(data []byte) error {
	s := string(bytes.Trim(bytes.TrimSpace(data), `"`))
	if s == "" || s == "null" {
		*u = 0
		return nil
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return fmt.Errorf("parsing numeric field %q: %w", s, err)
	}
	*u = WireUint64(v)
	return nil
}

// WireBool decodes a boolean that arrives as "0"/"1", 0/1 or an empty string.
type WireBool bool

// UnmarshalJSON implements json.Unmarshaler.
func (b *WireBool) UnmarshalJSON(data []byte) error {
	s := string(bytes.Trim(bytes.TrimSpace(data), `"`))
	switch s {
	case "", "0", "null", "false":
		*b = false
	case "1", "true":
		*b = true
	default:
		return fmt.Errorf("parsing boolean field %q", s)
	}
	return nil
}
