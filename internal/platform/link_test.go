package platform

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"creator_mirror/internal/domain"
)

func TestExtractShareURL(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "bare url",
			input: "https://www.douyin.com/user/MS4wLjABAAAAtest",
			want:  "https://www.douyin.com/user/MS4wLjABAAAAtest",
		},
		{
			name:  "url wrapped in share message",
			input: "7.43 pao:/ check this creator! https://v.douyin.com/abc123/ copy and open",
			want:  "https://v.douyin.com/abc123/",
		},
		{
			name:  "tiktok profile",
			input: "look: https://www.tiktok.com/@somebody",
			want:  "https://www.tiktok.com/@somebody",
		},
		{
			name:  "iesdouyin share link",
			input: "https://www.iesdouyin.com/share/user/xyz",
			want:  "https://www.iesdouyin.com/share/user/xyz",
		},
		{
			name:  "no url returns trimmed input",
			input: "  just some text  ",
			want:  "just some text",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractShareURL(tt.input))
		})
	}
}

func TestTagForURL(t *testing.T) {
	tag, err := TagForURL("https://www.douyin.com/user/MS4w")
	require.NoError(t, err)
	assert.Equal(t, "douyin", tag)

	tag, err = TagForURL("https://www.tiktok.com/@somebody")
	require.NoError(t, err)
	assert.Equal(t, "tiktok", tag)

	_, err = TagForURL("https://example.com/whatever")
	assert.ErrorIs(t, err, domain.ErrUnknownPlatform)
}

func TestExtractSubjectRef(t *testing.T) {
	ref, err := ExtractSubjectRef("https://www.douyin.com/user/MS4wLjABAAAA_test-123?from_tab_name=main")
	require.NoError(t, err)
	assert.Equal(t, "MS4wLjABAAAA_test-123", ref)

	ref, err = ExtractSubjectRef("https://www.tiktok.com/@some.handle_1")
	require.NoError(t, err)
	assert.Equal(t, "some.handle_1", ref)

	_, err = ExtractSubjectRef("https://www.douyin.com/video/7001")
	assert.ErrorIs(t, err, domain.ErrIdentityUnresolved)
}

func TestResolver_FollowsRedirects(t *testing.T) {
	final := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer final.Close()

	short := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, final.URL+"/user/MS4w", http.StatusFound)
	}))
	defer short.Close()

	resolver := NewResolver(5 * time.Second)

	got := resolver.Resolve(context.Background(), short.URL)
	assert.Equal(t, final.URL+"/user/MS4w", got)
}

func TestResolver_ReturnsInputOnFailure(t *testing.T) {
	resolver := NewResolver(500 * time.Millisecond)

	got := resolver.Resolve(context.Background(), "http://127.0.0.1:1/nope")
	assert.Equal(t, "http://127.0.0.1:1/nope", got)
}

func TestRegistry(t *testing.T) {
	_, err := NewRegistry().Get("douyin")
	assert.ErrorIs(t, err, domain.ErrUnknownPlatform)
}
