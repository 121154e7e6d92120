package pocket

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthFlow(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		var payload map[string]string
		require.NoError(t, json.Unmarshal(body, &payload))
		require.Equal(t, "consumer-key", payload["consumer_key"])

		switch r.URL.Path {
		case "/v3/oauth/request":
			assert.NotEmpty(t, payload["redirect_uri"])
			_, _ = w.Write([]byte(`{"code":"req-token"}`))
		case "/v3/oauth/authorize":
			assert.Equal(t, "req-token", payload["code"])
			_, _ = w.Write([]byte(`{"access_token":"acc-token","username":"reader"}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	flow := NewAuthFlow("consumer-key", WithAuthBaseURL(srv.URL))

	token, err := flow.RequestToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "req-token", token)

	authURL := flow.AuthorizeURL(token)
	assert.Contains(t, authURL, "request_token=req-token")
	assert.Contains(t, authURL, "redirect_uri=")

	user, err := flow.ExchangeToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "acc-token", user.AccessToken)
	assert.Equal(t, "reader", user.Username)
}

func TestAuthFlowRequestTokenError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	flow := NewAuthFlow("bad-key", WithAuthBaseURL(srv.URL))
	_, err := flow.RequestToken(context.Background())
	require.Error(t, err)
}

func TestAuthFlowEmptyCode(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	flow := NewAuthFlow("key", WithAuthBaseURL(srv.URL))
	_, err := flow.RequestToken(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no code")
}
