package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"time"

	"creator_mirror/internal/domain"
	"creator_mirror/internal/platform"
	"creator_mirror/internal/watermark"
)

// SyncService drives one end-to-end sync run for a single subject:
// resolve identity, fetch new items past the watermark, persist, gate by
// download preferences, dispatch downloads, report progress.
type SyncService struct {
	platforms  *platform.Registry
	items      ItemStore
	subjects   SubjectStore
	tasks      TaskStore
	settings   SettingStore
	downloader Downloader
	publisher  Publisher // optional
	active     *activeSet
	logger     *slog.Logger
}

func NewSyncService(
	platforms *platform.Registry,
	items ItemStore,
	subjects SubjectStore,
	tasks TaskStore,
	settings SettingStore,
	downloader Downloader,
	publisher Publisher,
	logger *slog.Logger,
) *SyncService {
	return &SyncService{
		platforms:  platforms,
		items:      items,
		subjects:   subjects,
		tasks:      tasks,
		settings:   settings,
		downloader: downloader,
		publisher:  publisher,
		active:     newActiveSet(),
		logger:     logger,
	}
}

// Busy reports whether the subject already has a run in flight.
func (s *SyncService) Busy(platformTag, subjectRef string) bool {
	return s.active.Busy(runKey(platformTag, subjectRef))
}

// SyncSubject executes one sync run. Only one run per subject may be in
// flight; a concurrent request is rejected with domain.ErrSyncInFlight.
// taskID may be empty for scheduler-driven runs that need no task record.
func (s *SyncService) SyncSubject(ctx context.Context, platformTag, subjectRef, taskID string) (*domain.SyncStats, error) {
	rec := NewRecorder(s.tasks, s.logger, taskID)

	key := runKey(platformTag, subjectRef)
	if !s.active.TryAcquire(key) {
		rec.Fail(ctx, domain.ErrSyncInFlight.Error())
		return nil, fmt.Errorf("%w: %s", domain.ErrSyncInFlight, key)
	}
	defer s.active.Release(key)

	start := time.Now()
	logger := s.logger.With("platform", platformTag, "subject_ref", subjectRef)

	client, err := s.platforms.Get(platformTag)
	if err != nil {
		rec.Fail(ctx, err.Error())
		return nil, err
	}

	// Resolving: a previously-seen subject gives us the canonical uid and
	// with it the watermark; an unseen subject starts from zero.
	rec.Progress(ctx, 2, "resolving subject")

	var uid string
	var mark int64
	switch stored, err := s.subjects.GetByRef(ctx, platformTag, subjectRef); {
	case err == nil:
		uid = stored.UID
	case !errors.Is(err, domain.ErrSubjectNotFound):
		rec.Fail(ctx, err.Error())
		return nil, fmt.Errorf("look up subject: %w", err)
	}
	if uid != "" {
		if mark, err = s.items.LatestCreateTime(ctx, uid); err != nil {
			rec.Fail(ctx, err.Error())
			return nil, fmt.Errorf("read watermark: %w", err)
		}
	}

	rec.Progress(ctx, 5, "fetching profile")
	profile, err := client.FetchProfile(ctx, subjectRef)
	if err != nil {
		rec.Fail(ctx, err.Error())
		return nil, err
	}

	newItems, err := s.fetchNew(ctx, client, subjectRef, mark, rec)
	if err != nil {
		rec.Fail(ctx, err.Error())
		return nil, err
	}

	if uid == "" {
		uid = profile.UID
	}
	if uid == "" && len(newItems) > 0 {
		uid = newItems[0].SubjectUID
	}
	if uid == "" {
		rec.Fail(ctx, domain.ErrIdentityUnresolved.Error())
		return nil, fmt.Errorf("%w: %s", domain.ErrIdentityUnresolved, key)
	}

	stats := &domain.SyncStats{SubjectUID: uid, Platform: platformTag, Fetched: len(newItems)}
	logger = logger.With("uid", uid)
	logger.Info("fetched new items", "count", len(newItems), "watermark", mark)

	// Persisting: merge the subject record, then insert items one by one so
	// a crash mid-run leaves earlier items durably recorded.
	profile.UID = uid
	if profile.SubjectRef == "" {
		profile.SubjectRef = subjectRef
	}
	if err := s.subjects.Upsert(ctx, profile); err != nil {
		rec.Fail(ctx, err.Error())
		return stats, fmt.Errorf("upsert subject: %w", err)
	}

	rec.Promote(ctx, 30, "persisting fetched items", uid)
	for i := range newItems {
		item := &newItems[i]
		item.SubjectUID = uid
		item.Platform = platformTag
		inserted, err := s.items.Insert(ctx, item)
		if err != nil {
			rec.Fail(ctx, err.Error())
			return stats, fmt.Errorf("insert item %s: %w", item.ItemID, err)
		}
		if inserted {
			s.publish(ctx, item, domain.ItemSynced)
		}
	}

	// Gating and dispatching cover every persisted-but-undownloaded item of
	// this subject, not only this run's fetch, so earlier failures get
	// another chance.
	pending, err := s.items.ListUndownloaded(ctx, uid)
	if err != nil {
		rec.Fail(ctx, err.Error())
		return stats, fmt.Errorf("list undownloaded: %w", err)
	}

	if len(pending) == 0 {
		rec.Complete(ctx, "already up to date, nothing to download")
		stats.Duration = time.Since(start)
		logger.Info("sync completed", "fetched", 0)
		return stats, nil
	}

	subject, err := s.subjects.GetByUID(ctx, uid)
	if err != nil {
		rec.Fail(ctx, err.Error())
		return stats, fmt.Errorf("load subject preferences: %w", err)
	}
	videoDefault, err := s.settings.GlobalDownloadDefault(ctx, domain.ContentTypeVideo)
	if err != nil {
		rec.Fail(ctx, err.Error())
		return stats, fmt.Errorf("read global defaults: %w", err)
	}
	galleryDefault, err := s.settings.GlobalDownloadDefault(ctx, domain.ContentTypeGallery)
	if err != nil {
		rec.Fail(ctx, err.Error())
		return stats, fmt.Errorf("read global defaults: %w", err)
	}

	total := len(pending)
	for i := range pending {
		item := &pending[i]
		rec.Progress(ctx, 30+(i*60)/total,
			fmt.Sprintf("processing %d/%d: %s", i+1, total, itemLabel(item)))

		globalDefault := videoDefault
		if item.Type == domain.ContentTypeGallery {
			globalDefault = galleryDefault
		}
		if !subject.ShouldDownload(item.Type, globalDefault) {
			// Gated off: mark processed without retrieval so the next run
			// does not pick it up again.
			if err := s.items.MarkDownloaded(ctx, item.ItemID); err != nil {
				rec.Fail(ctx, err.Error())
				return stats, fmt.Errorf("mark item %s: %w", item.ItemID, err)
			}
			stats.Skipped++
			s.publish(ctx, item, domain.ItemSkipped)
			logger.Info("skipped by preference", "item_id", item.ItemID, "content_type", item.Type)
			continue
		}

		name := item.Desc
		if name == "" {
			name = item.ItemID
		}
		if err := s.downloader.Fetch(ctx, item.ShareURL, destFolder(subject, item.Type), name, item.ItemID); err != nil {
			// A single item's failure leaves it undownloaded for the next
			// run; only identity resolution is run-fatal.
			stats.Failed++
			s.publish(ctx, item, domain.ItemFailed)
			logger.Error("download failed", "item_id", item.ItemID, "error", err)
			continue
		}
		if err := s.items.MarkDownloaded(ctx, item.ItemID); err != nil {
			rec.Fail(ctx, err.Error())
			return stats, fmt.Errorf("mark item %s: %w", item.ItemID, err)
		}
		stats.Downloaded++
		s.publish(ctx, item, domain.ItemDownloaded)
	}

	rec.Progress(ctx, 90, "finalizing")
	rec.Complete(ctx, fmt.Sprintf("sync completed: %d downloaded, %d skipped, %d failed",
		stats.Downloaded, stats.Skipped, stats.Failed))

	stats.Duration = time.Since(start)
	logger.Info("sync completed",
		"fetched", stats.Fetched,
		"downloaded", stats.Downloaded,
		"skipped", stats.Skipped,
		"failed", stats.Failed,
		"duration", stats.Duration,
	)
	return stats, nil
}

// fetchNew pages through the listing endpoint until the watermark gate stops
// it: a page containing anything at or before the watermark, an empty page,
// or an exhausted/stuck cursor.
func (s *SyncService) fetchNew(ctx context.Context, client platform.Client, subjectRef string, mark int64, rec *Recorder) ([]domain.ContentItem, error) {
	var collected []domain.ContentItem
	cursor := ""
	progress := 10

	for {
		page, err := client.FetchPage(ctx, subjectRef, cursor)
		if err != nil {
			return nil, err
		}
		if len(page.Items) == 0 {
			break
		}

		fresh, stop := watermark.Select(page.Items, mark)
		collected = append(collected, fresh...)

		if progress < 28 {
			progress += 3
		}
		rec.Progress(ctx, progress, fmt.Sprintf("fetched %d new items", len(collected)))

		if stop {
			break
		}
		next, ok := watermark.Advance(cursor, page.NextCursor, page.HasMore)
		if !ok {
			break
		}
		cursor = next
	}

	return collected, nil
}

func (s *SyncService) publish(ctx context.Context, item *domain.ContentItem, outcome domain.ItemOutcome) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, item, outcome); err != nil {
		s.logger.Error("failed to publish item event",
			"item_id", item.ItemID,
			"outcome", outcome,
			"error", err,
		)
	}
}

func runKey(platformTag, subjectRef string) string {
	return platformTag + "/" + subjectRef
}

func destFolder(subject *domain.Subject, t domain.ContentType) string {
	bucket := "videos"
	if t == domain.ContentTypeGallery {
		bucket = "notes"
	}
	return path.Join(fmt.Sprintf("%s_%s", subject.Nickname, subject.UID), bucket)
}

func itemLabel(item *domain.ContentItem) string {
	runes := []rune(item.Desc)
	if len(runes) == 0 {
		return item.ItemID
	}
	if len(runes) > 20 {
		runes = runes[:20]
	}
	return string(runes)
}
