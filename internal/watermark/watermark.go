// Package watermark decides which items on a fetched page are new relative
// to a subject's last-known create time, and when pagination can stop.
//
// Precondition: platform listing endpoints return pages in strictly
// descending create-time order. The stop rule relies on it; if an upstream
// violates the order, items may be missed or re-fetched, never corrupted.
package watermark

import "creator_mirror/internal/domain"

// Select returns the items with create time strictly greater than the
// watermark, preserving page order, and whether pagination should stop after
// this page. Stop is true iff any item on the page is at or before the
// watermark: everything on later pages is older still.
func Select(items []domain.ContentItem, mark int64) (newItems []domain.ContentItem, stop bool) {
	for _, it := range items {
		if it.CreateTime > mark {
			newItems = append(newItems, it)
		} else {
			stop = true
		}
	}
	return newItems, stop
}

// Advance validates the cursor for the next page. It returns false when the
// upstream signalled the end, or when the cursor is missing or unchanged,
// which guards against infinite loops on a misbehaving endpoint.
func Advance(current, next string, hasMore bool) (string, bool) {
	if !hasMore {
		return "", false
	}
	if next == "" || next == current {
		return "", false
	}
	return next, true
}
