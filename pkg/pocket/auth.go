package pocket

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultAuthBaseURL = "https://getpocket.com"
	// DefaultRedirectURI is the application-scheme callback registered with
	// the service.
	DefaultRedirectURI = "pocketapp112512:authorizationFinished"
)

// AuthUser is the outcome of a completed authorization: the access token and
// the account it belongs to.
type AuthUser struct {
	AccessToken string `json:"access_token"`
	Username    string `json:"username"`
}

// AuthFlow drives the three-step device authorization: obtain a request
// token, send the user to the browser to approve it, then exchange it for an
// access token.
type AuthFlow struct {
	consumerKey string
	redirectURI string
	baseURL     string
	httpClient  HTTPClient
}

// AuthOption configures an AuthFlow.
type AuthOption func(*AuthFlow)

// WithAuthBaseURL points the flow at a different endpoint. Used in tests.
func WithAuthBaseURL(url string) AuthOption {
	return func(f *AuthFlow) {
		f.baseURL = strings.TrimRight(url, "/")
	}
}

// WithAuthHTTPClient sets a custom HTTP transport.
func WithAuthHTTPClient(c HTTPClient) AuthOption {
	return func(f *AuthFlow) {
		f.httpClient = c
	}
}

// NewAuthFlow creates an authorization flow for the given consumer key.
func NewAuthFlow(consumerKey string, opts ...AuthOption) *AuthFlow {
	f := &AuthFlow{
		consumerKey: consumerKey,
		redirectURI: DefaultRedirectURI,
		baseURL:     defaultAuthBaseURL,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// RequestToken obtains the short-lived request token that starts the flow.
func (f *AuthFlow) RequestToken(ctx context.Context) (string, error) {
	body, err := f.post(ctx, "/v3/oauth/request", map[string]string{
		"consumer_key": f.consumerKey,
		"redirect_uri": f.redirectURI,
	})
	if err != nil {
		return "", fmt.Errorf("obtaining request token: %w", err)
	}

	var result struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("parsing request token response: %w", err)
	}
	if result.Code == "" {
		return "", fmt.Errorf("request token response contained no code")
	}
	return result.Code, nil
}

// AuthorizeURL is the browser URL where the user approves the request token.
func (f *AuthFlow) AuthorizeURL(requestToken string) string {
	return fmt.Sprintf("%s/auth/authorize?request_token=%s&redirect_uri=%s",
		f.baseURL, url.QueryEscape(requestToken), url.QueryEscape(f.redirectURI))
}

// ExchangeToken converts an approved request token into the user's access
// token.
func (f *AuthFlow) ExchangeToken(ctx context.Context, requestToken string) (*AuthUser, error) {
	body, err := f.post(ctx, "/v3/oauth/authorize", map[string]string{
		"consumer_key": f.consumerKey,
		"code":         requestToken,
	})
	if err != nil {
		return nil, fmt.Errorf("exchanging request token: %w", err)
	}

	var user AuthUser
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, fmt.Errorf("parsing access token response: %w", err)
	}
	if user.AccessToken == "" {
		return nil, fmt.Errorf("authorization response contained no access token")
	}
	return &user, nil
}

func (f *AuthFlow) post(ctx context.Context, path string, payload map[string]string) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=UTF8")
	req.Header.Set("X-Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, err
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
