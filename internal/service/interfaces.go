package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"time"

	"creator_mirror/internal/domain"
	"creator_mirror/internal/platform"
)

type ItemStore interface {
	// Insert is idempotent by item id; it reports whether a row was created.
	Insert(ctx context.Context, item *domain.ContentItem) (bool, error)
	// LatestCreateTime returns the subject's watermark, 0 when no items exist.
	LatestCreateTime(ctx context.Context, subjectUID string) (int64, error)
	ListUndownloaded(ctx context.Context, subjectUID string) ([]domain.ContentItem, error)
	MarkDownloaded(ctx context.Context, itemID string) error
	DeleteBySubject(ctx context.Context, subjectUID string) error
}

type SubjectStore interface {
	// Upsert merges non-destructively: only non-empty fields overwrite.
	Upsert(ctx context.Context, subject *domain.Subject) error
	GetByUID(ctx context.Context, uid string) (*domain.Subject, error)
	GetByRef(ctx context.Context, platform, subjectRef string) (*domain.Subject, error)
	List(ctx context.Context) ([]domain.Subject, error)
	ListAutoUpdate(ctx context.Context) ([]domain.Subject, error)
	SetAutoUpdate(ctx context.Context, uid string, enabled bool) error
	SetPreference(ctx context.Context, uid string, video, gallery *bool) error
	Delete(ctx context.Context, uid string) error
}

type TaskStore interface {
	Create(ctx context.Context, task *domain.Task) error
	// Update never regresses progress; empty message/targetID leave the
	// stored values untouched.
	Update(ctx context.Context, taskID string, progress int, status domain.TaskStatus, message, targetID string) error
	Get(ctx context.Context, taskID string) (*domain.Task, error)
	ListActive(ctx context.Context) ([]domain.Task, error)
	// FailRunning sweeps tasks orphaned by a previous process to failed.
	FailRunning(ctx context.Context, message string) (int64, error)
}

type SettingStore interface {
	Get(ctx context.Context, key, fallback string) (string, error)
	Set(ctx context.Context, key, value string) error
	GlobalDownloadDefault(ctx context.Context, t domain.ContentType) (bool, error)
	AutoUpdateInterval(ctx context.Context) (time.Duration, error)
}

// Downloader is the external media retrieval port. The engine never
// interprets the bytes; single-file vs archive handling belongs to the
// implementation.
type Downloader interface {
	Fetch(ctx context.Context, shareURL, destFolder, filename, itemID string) error
}

type Publisher interface {
	Publish(ctx context.Context, item *domain.ContentItem, outcome domain.ItemOutcome) error
	Close() error
}

// LinkResolver expands shortened share links. Best-effort: implementations
// return the input on failure.
type LinkResolver interface {
	Resolve(ctx context.Context, rawURL string) string
}

type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Platform mirrors platform.Client so mockgen produces a mock that satisfies
// it; any implementation slots into a platform.Registry.
type Platform interface {
	Tag() string
	Name() string
	FetchProfile(ctx context.Context, subjectRef string) (*domain.Subject, error)
	FetchPage(ctx context.Context, subjectRef, cursor string) (*platform.Page, error)
	ShareLink(subjectUID, itemID string) string
}
