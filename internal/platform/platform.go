// Package platform normalizes platform-specific listing and profile APIs
// into one canonical subject/item/page shape.
package platform

import (
	"context"
	"fmt"

	"creator_mirror/internal/domain"
)

// Page is one canonical page of a subject's catalog.
//
// Precondition: items arrive in strictly descending create-time order, as
// returned by the platform listing endpoint. The incremental stop rule in the
// sync engine depends on it.
type Page struct {
	Items      []domain.ContentItem
	NextCursor string // canonical cursor, opaque to callers
	HasMore    bool
}

// Client is the per-platform fetch capability. Implementations wrap one
// listing endpoint and one profile endpoint and construct share links.
type Client interface {
	// Tag returns the platform tag carried on subjects, items and tasks.
	Tag() string
	Name() string

	FetchProfile(ctx context.Context, subjectRef string) (*domain.Subject, error)
	FetchPage(ctx context.Context, subjectRef, cursor string) (*Page, error)

	// ShareLink builds the canonical share link for an item.
	ShareLink(subjectUID, itemID string) string
}

// Registry selects a Client by platform tag.
type Registry struct {
	clients map[string]Client
}

func NewRegistry(clients ...Client) *Registry {
	m := make(map[string]Client, len(clients))
	for _, c := range clients {
		m[c.Tag()] = c
	}
	return &Registry{clients: m}
}

func (r *Registry) Get(tag string) (Client, error) {
	c, ok := r.clients[tag]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownPlatform, tag)
	}
	return c, nil
}

func (r *Registry) Tags() []string {
	tags := make([]string, 0, len(r.clients))
	for tag := range r.clients {
		tags = append(tags, tag)
	}
	return tags
}
