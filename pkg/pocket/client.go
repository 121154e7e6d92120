// Package pocket is the client for the remote reading-list service: the
// incremental retrieve call, the archive/tag write calls, and the device
// authorization flow that produces the credentials file.
package pocket

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"repocket/pkg/repocket/logging"
)

const (
	defaultBaseURL = "https://getpocket.com/v3"
	userAgent      = "repocket/v0.3.0"
)

// HTTPClient is the interface the client needs from an HTTP transport.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the reading-list API.
type Client struct {
	creds      Credentials
	baseURL    string
	httpClient HTTPClient
	log        *logging.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP transport.
func WithHTTPClient(httpClient HTTPClient) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithBaseURL points the client at a different API endpoint. Used in tests.
func WithBaseURL(url string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// NewClient creates a client from loaded credentials.
func NewClient(creds Credentials, opts ...ClientOption) *Client {
	c := &Client{
		creds:      creds,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        logging.Get("pocket"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// retrieveRequest merges the credentials into the query payload, which is how
// the service expects authentication.
type retrieveRequest struct {
	ConsumerKey string `json:"consumer_key"`
	AccessToken string `json:"access_token"`
	*Query
}

// Retrieve fetches reading-list items matching the query.
func (c *Client) Retrieve(ctx context.Context, query *Query) (*RetrieveResult, error) {
	payload := retrieveRequest{
		ConsumerKey: c.creds.ConsumerKey,
		AccessToken: c.creds.AccessToken,
		Query:       query,
	}

	body, err := c.post(ctx, "/get", payload)
	if err != nil {
		return nil, err
	}

	result, err := parseRetrieveResult(body)
	if err != nil {
		return nil, err
	}

	c.log.Debug("retrieve complete", "items", len(result.Items), "since", result.Since)
	return result, nil
}

// sendAction is one entry of a /send actions array.
type sendAction struct {
	Action string `json:"action"`
	ItemID string `json:"item_id"`
	Tags   string `json:"tags,omitempty"`
}

type sendRequest struct {
	ConsumerKey string       `json:"consumer_key"`
	AccessToken string       `json:"access_token"`
	Actions     []sendAction `json:"actions"`
}

// Archive marks the given items as archived on the remote service. A non-2xx
// response is an error and the caller must not advance local state.
func (c *Client) Archive(ctx context.Context, ids []uint64) error {
	if len(ids) == 0 {
		return nil
	}

	actions := make([]sendAction, 0, len(ids))
	for _, id := range ids {
		actions = append(actions, sendAction{Action: "archive", ItemID: strconv.FormatUint(id, 10)})
	}

	_, err := c.post(ctx, "/send", sendRequest{
		ConsumerKey: c.creds.ConsumerKey,
		AccessToken: c.creds.AccessToken,
		Actions:     actions,
	})
	if err != nil {
		return fmt.Errorf("archiving %d items: %w", len(ids), err)
	}

	c.log.Info("archived items remotely", "count", len(ids))
	return nil
}

// AddTags attaches tags to a single remote item.
func (c *Client) AddTags(ctx context.Context, id uint64, tags []string) error {
	if len(tags) == 0 {
		return nil
	}

	_, err := c.post(ctx, "/send", sendRequest{
		ConsumerKey: c.creds.ConsumerKey,
		AccessToken: c.creds.AccessToken,
		Actions: []sendAction{{
			Action: "tags_add",
			ItemID: strconv.FormatUint(id, 10),
			Tags:   strings.Join(tags, ","),
		}},
	})
	if err != nil {
		return fmt.Errorf("tagging item %d: %w", id, err)
	}
	return nil
}

// post issues a JSON POST and returns the response body for 2xx responses.
func (c *Client) post(ctx context.Context, path string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=UTF8")
	req.Header.Set("X-Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError(resp.StatusCode)
	}

	return body, nil
}

// statusError maps the service's documented error statuses to diagnostics.
func statusError(code int) error {
	switch code {
	case http.StatusBadRequest:
		return fmt.Errorf("status %d: invalid request, check the query syntax", code)
	case http.StatusUnauthorized:
		return fmt.Errorf("status %d: problem authenticating the user", code)
	case http.StatusForbidden:
		return fmt.Errorf("status %d: access denied, missing permission or rate limited", code)
	case http.StatusServiceUnavailable:
		return fmt.Errorf("status %d: service down for scheduled maintenance", code)
	default:
		return fmt.Errorf("status %d: unexpected response", code)
	}
}
