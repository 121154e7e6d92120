package article

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"regexp"
	"strings"

	"repocket/pkg/repocket/ident"
)

var imgSrcRe = regexp.MustCompile(`<img[^>]*?src="([^"]+)"`)

// imageSources returns the distinct remote image URLs referenced by the
// markup, in order of first appearance. Non-absolute references are skipped;
// the device cannot fetch them anyway.
func imageSources(markup string) []string {
	seen := make(map[string]struct{})
	var urls []string
	for _, m := range imgSrcRe.FindAllStringSubmatch(markup, -1) {
		src := m[1]
		if !strings.HasPrefix(src, "http://") && !strings.HasPrefix(src, "https://") {
			continue
		}
		if _, ok := seen[src]; ok {
			continue
		}
		seen[src] = struct{}{}
		urls = append(urls, src)
	}
	return urls
}

// localImageName derives the stable on-device resource name for an image URL.
// The extension comes from the probed media type, so two probes of the same
// URL always agree.
func localImageName(imageURL, mediaType string) (string, error) {
	mt, _, err := mime.ParseMediaType(mediaType)
	if err != nil {
		return "", fmt.Errorf("parsing media type %q: %w", mediaType, err)
	}
	slash := strings.IndexByte(mt, '/')
	if slash < 0 || !strings.HasPrefix(mt, "image/") {
		return "", fmt.Errorf("not an image media type: %q", mt)
	}
	return fmt.Sprintf("p%s.%s", ident.FromURL(imageURL), mt[slash+1:]), nil
}

// resolveImages probes each referenced image with a HEAD request and assigns
// it a local name. Images whose probe fails are left referencing the remote
// URL; a missing picture is better than a failed document.
func (p *Pipeline) resolveImages(ctx context.Context, markup string) map[string]string {
	images := make(map[string]string)
	for _, src := range imageSources(markup) {
		mediaType, err := p.probeImage(ctx, src)
		if err != nil {
			p.log.Debug("image probe failed", "url", src, "error", err)
			continue
		}
		name, err := localImageName(src, mediaType)
		if err != nil {
			p.log.Debug("skipping image", "url", src, "error", err)
			continue
		}
		images[src] = name
	}
	return images
}

func (p *Pipeline) probeImage(ctx context.Context, imageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, imageURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}
	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		return "", fmt.Errorf("no content type")
	}
	return ct, nil
}

// rewriteImages replaces every occurrence of each mapped URL with its local
// name.
func rewriteImages(markup string, images map[string]string) string {
	for src, name := range images {
		markup = strings.ReplaceAll(markup, src, name)
	}
	return markup
}
