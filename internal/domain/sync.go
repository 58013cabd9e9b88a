package domain

import "time"

// ItemOutcome tags the result of processing a single item during dispatch.
type ItemOutcome string

const (
	ItemSynced     ItemOutcome = "synced" // persisted, not yet dispatched
	ItemDownloaded ItemOutcome = "downloaded"
	ItemSkipped    ItemOutcome = "skipped" // gated off by preference, marked processed
	ItemFailed     ItemOutcome = "failed"  // retrieval failed, stays undownloaded
)

// SyncStats holds statistics about one sync run.
type SyncStats struct {
	SubjectUID string
	Platform   string
	Fetched    int // new items returned by the watermark gate
	Downloaded int
	Skipped    int
	Failed     int
	Duration   time.Duration
}
