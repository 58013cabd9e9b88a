package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrIdentityUnresolved means the input reference could not be mapped to a
	// canonical subject uid. Run-fatal.
	ErrIdentityUnresolved = errors.New("could not resolve subject identity")

	// ErrSyncInFlight means the subject already has an active sync run.
	ErrSyncInFlight = errors.New("sync already in flight for subject")

	ErrUnknownPlatform = errors.New("unknown platform")
	ErrSubjectNotFound = errors.New("subject not found")
	ErrTaskNotFound    = errors.New("task not found")
)

// UpstreamError wraps a listing/profile endpoint failure. Aborts the fetch
// phase of the current run.
type UpstreamError struct {
	Platform string
	Op       string
	Err      error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s %s: %v", e.Platform, e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// DownloadError wraps a single item's retrieval failure. Never run-fatal.
type DownloadError struct {
	ItemID string
	Err    error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download item %s: %v", e.ItemID, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }
