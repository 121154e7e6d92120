package article

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repocket/pkg/repocket/ident"
)

func TestImageSources(t *testing.T) {
	t.Parallel()

	markup := `<p><img src="https://example.com/a.png" /></p>` +
		`<img src="https://example.com/b.jpg" />` +
		`<img src="https://example.com/a.png" />` +
		`<img src="/relative.png" />`

	assert.Equal(t,
		[]string{"https://example.com/a.png", "https://example.com/b.jpg"},
		imageSources(markup))
}

func TestLocalImageName(t *testing.T) {
	t.Parallel()

	name, err := localImageName("https://example.com/a.png", "image/png")
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("p%s.png", ident.FromURL("https://example.com/a.png")), name)

	// Parameters on the media type do not leak into the name.
	withParams, err := localImageName("https://example.com/a.png", "image/png; charset=binary")
	require.NoError(t, err)
	assert.Equal(t, name, withParams)

	_, err = localImageName("https://example.com/page", "text/html")
	require.Error(t, err)
}

func TestRewriteImagesReplacesEveryOccurrence(t *testing.T) {
	t.Parallel()

	markup := `<img src="https://example.com/a.png" /><p>see https://example.com/a.png</p>`
	out := rewriteImages(markup, map[string]string{"https://example.com/a.png": "pabc.png"})
	assert.NotContains(t, out, "https://example.com/a.png")
	assert.Equal(t, `<img src="pabc.png" /><p>see pabc.png</p>`, out)
}

func TestResolveImages(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodHead, r.Method)
		switch r.URL.Path {
		case "/a.png":
			w.Header().Set("Content-Type", "image/png")
		case "/b":
			w.Header().Set("Content-Type", "image/jpeg")
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	p := New(Options{Format: FormatHTML})
	markup := fmt.Sprintf(
		`<img src="%s/a.png" /><img src="%s/b" /><img src="%s/missing.gif" />`,
		srv.URL, srv.URL, srv.URL)

	images := p.resolveImages(context.Background(), markup)
	require.Len(t, images, 2)

	// The extension follows the probed type, not the URL.
	assert.Equal(t,
		fmt.Sprintf("p%s.jpeg", ident.FromURL(srv.URL+"/b")),
		images[srv.URL+"/b"])

	// Failed probes leave the remote URL untouched.
	out := rewriteImages(markup, images)
	assert.Contains(t, out, srv.URL+"/missing.gif")
	assert.NotContains(t, out, srv.URL+"/a.png")
}
