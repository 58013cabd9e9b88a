package platform

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"creator_mirror/internal/domain"
)

var (
	shareURLPattern = regexp.MustCompile(`https?://(?:[a-zA-Z0-9-]+\.)?(?:douyin|iesdouyin|tiktok)\.com/[^\s#?]+`)
	douyinRefPattern = regexp.MustCompile(`/user/([A-Za-z0-9_-]+)`)
	tiktokRefPattern = regexp.MustCompile(`tiktok\.com/@([A-Za-z0-9_.-]+)`)
)

// ExtractShareURL pulls the first recognized share URL out of free-form text
// (share messages wrap the link in promotional noise). Returns the input
// unchanged when nothing matches, so downstream parsing reports the error.
func ExtractShareURL(text string) string {
	if m := shareURLPattern.FindString(text); m != "" {
		return m
	}
	return strings.TrimSpace(text)
}

// TagForURL maps a profile URL to a platform tag.
func TagForURL(url string) (string, error) {
	switch {
	case strings.Contains(url, "douyin.com"):
		return "douyin", nil
	case strings.Contains(url, "tiktok.com"):
		return "tiktok", nil
	}
	return "", fmt.Errorf("%w: no tag for url %q", domain.ErrUnknownPlatform, url)
}

// ExtractSubjectRef pulls the listing-API reference out of a resolved profile
// URL: the sec_user_id path segment for douyin, the @handle for tiktok.
func ExtractSubjectRef(url string) (string, error) {
	if m := douyinRefPattern.FindStringSubmatch(url); m != nil {
		return m[1], nil
	}
	if m := tiktokRefPattern.FindStringSubmatch(url); m != nil {
		return m[1], nil
	}
	return "", fmt.Errorf("%w: no subject reference in url %q", domain.ErrIdentityUnresolved, url)
}

// Resolver expands shortened share links by following redirects.
type Resolver struct {
	client *http.Client
}

func NewResolver(timeout time.Duration) *Resolver {
	return &Resolver{client: &http.Client{Timeout: timeout}}
}

// Resolve follows redirects and returns the final URL. Best-effort: on any
// failure the original URL is returned so sync can still try the raw link.
func (r *Resolver) Resolve(ctx context.Context, rawURL string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return rawURL
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return rawURL
	}
	defer resp.Body.Close()

	if resp.Request != nil && resp.Request.URL != nil {
		return resp.Request.URL.String()
	}
	return rawURL
}
