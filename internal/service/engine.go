package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"creator_mirror/internal/domain"
	"creator_mirror/internal/platform"
)

// Engine is the caller-facing surface of the sync core: it turns raw input
// references into background sync runs and exposes subject/task management.
// The HTTP layer on top of it is intentionally out of this package.
type Engine struct {
	sync       *SyncService
	subjects   SubjectStore
	items      ItemStore
	tasks      TaskStore
	settings   SettingStore
	resolver   LinkResolver
	txManager  TransactionManager
	logger     *slog.Logger
	runTimeout time.Duration
}

func NewEngine(
	sync *SyncService,
	subjects SubjectStore,
	items ItemStore,
	tasks TaskStore,
	settings SettingStore,
	resolver LinkResolver,
	txManager TransactionManager,
	logger *slog.Logger,
	runTimeout time.Duration,
) *Engine {
	return &Engine{
		sync:       sync,
		subjects:   subjects,
		items:      items,
		tasks:      tasks,
		settings:   settings,
		resolver:   resolver,
		txManager:  txManager,
		logger:     logger,
		runTimeout: runTimeout,
	}
}

// StartFullSync maps a pasted share link or profile URL to a platform and
// subject reference, then runs a sync in the background. The returned task id
// is pollable immediately.
func (e *Engine) StartFullSync(ctx context.Context, rawInput string) (string, error) {
	link := platform.ExtractShareURL(rawInput)
	resolved := e.resolver.Resolve(ctx, link)

	tag, err := platform.TagForURL(resolved)
	if err != nil {
		return "", err
	}
	ref, err := platform.ExtractSubjectRef(resolved)
	if err != nil {
		return "", err
	}

	return e.startRun(ctx, tag, ref, ref)
}

// StartIncrementalSync runs a sync for an already-known subject by its
// canonical uid.
func (e *Engine) StartIncrementalSync(ctx context.Context, uid string) (string, error) {
	subject, err := e.subjects.GetByUID(ctx, uid)
	if err != nil {
		return "", err
	}
	return e.startRun(ctx, subject.Platform, subject.SubjectRef, subject.UID)
}

func (e *Engine) startRun(ctx context.Context, platformTag, subjectRef, targetID string) (string, error) {
	if e.sync.Busy(platformTag, subjectRef) {
		return "", fmt.Errorf("%w: %s", domain.ErrSyncInFlight, targetID)
	}

	taskID := uuid.NewString()
	task := &domain.Task{
		ID:       taskID,
		TargetID: targetID,
		Status:   domain.TaskPending,
	}
	if err := e.tasks.Create(ctx, task); err != nil {
		return "", fmt.Errorf("create task: %w", err)
	}

	// The run outlives the caller's request context; only process shutdown
	// tears it down, which is why running tasks get swept on restart.
	go func() {
		runCtx, cancel := context.WithTimeout(context.Background(), e.runTimeout)
		defer cancel()

		if _, err := e.sync.SyncSubject(runCtx, platformTag, subjectRef, taskID); err != nil {
			e.logger.Error("sync run failed",
				"task_id", taskID,
				"platform", platformTag,
				"subject_ref", subjectRef,
				"error", err,
			)
		}
	}()

	return taskID, nil
}

// SyncAll synchronizes every auto-update subject, one at a time. Individual
// failures (including in-flight rejections) are logged and do not stop the
// pass. The scheduler drives this once per cycle.
func (e *Engine) SyncAll(ctx context.Context) error {
	subjects, err := e.subjects.ListAutoUpdate(ctx)
	if err != nil {
		return fmt.Errorf("list auto-update subjects: %w", err)
	}
	if len(subjects) == 0 {
		e.logger.Info("no auto-update subjects")
		return nil
	}

	e.logger.Info("starting auto-update pass", "subjects", len(subjects))
	for _, subject := range subjects {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if _, err := e.sync.SyncSubject(ctx, subject.Platform, subject.SubjectRef, ""); err != nil {
			e.logger.Error("auto-update failed for subject",
				"uid", subject.UID,
				"nickname", subject.Nickname,
				"error", err,
			)
		}
	}
	return nil
}

func (e *Engine) GetTask(ctx context.Context, taskID string) (*domain.Task, error) {
	return e.tasks.Get(ctx, taskID)
}

func (e *Engine) ActiveTasks(ctx context.Context) ([]domain.Task, error) {
	return e.tasks.ListActive(ctx)
}

func (e *Engine) ListSubjects(ctx context.Context) ([]domain.Subject, error) {
	return e.subjects.List(ctx)
}

func (e *Engine) SetAutoUpdate(ctx context.Context, uid string, enabled bool) error {
	return e.subjects.SetAutoUpdate(ctx, uid, enabled)
}

// SetPreference writes the subject's tri-state download overrides; nil leaves
// the stored override untouched.
func (e *Engine) SetPreference(ctx context.Context, uid string, video, gallery *bool) error {
	return e.subjects.SetPreference(ctx, uid, video, gallery)
}

// PurgeSubject removes a subject and all of its item records atomically.
func (e *Engine) PurgeSubject(ctx context.Context, uid string) error {
	return e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := e.items.DeleteBySubject(txCtx, uid); err != nil {
			return fmt.Errorf("delete items: %w", err)
		}
		if err := e.subjects.Delete(txCtx, uid); err != nil {
			return fmt.Errorf("delete subject: %w", err)
		}
		return nil
	})
}
