package service

import (
	"context"
	"log/slog"

	"creator_mirror/internal/domain"
)

// Recorder represents exactly one sync invocation as a monotonically
// progressing task record. A recorder with an empty task id (scheduler-driven
// runs) is a no-op, so the orchestrator reports progress unconditionally.
//
// Record-keeping failures are logged, never returned: a broken progress row
// must not abort an otherwise healthy run.
type Recorder struct {
	tasks  TaskStore
	logger *slog.Logger
	taskID string
	last   int
}

func NewRecorder(tasks TaskStore, logger *slog.Logger, taskID string) *Recorder {
	return &Recorder{tasks: tasks, logger: logger, taskID: taskID}
}

// Progress reports a running update. Values below the last reported progress
// are clamped up so the sequence never decreases.
func (r *Recorder) Progress(ctx context.Context, progress int, message string) {
	r.update(ctx, progress, domain.TaskRunning, message, "")
}

// Promote reports progress and rewrites the task target from the raw input
// reference to the resolved canonical subject uid.
func (r *Recorder) Promote(ctx context.Context, progress int, message, targetID string) {
	r.update(ctx, progress, domain.TaskRunning, message, targetID)
}

func (r *Recorder) Complete(ctx context.Context, message string) {
	r.update(ctx, 100, domain.TaskCompleted, message, "")
}

func (r *Recorder) Fail(ctx context.Context, message string) {
	r.update(ctx, 100, domain.TaskFailed, message, "")
}

func (r *Recorder) update(ctx context.Context, progress int, status domain.TaskStatus, message, targetID string) {
	if r.taskID == "" {
		return
	}
	if progress < r.last {
		progress = r.last
	}
	r.last = progress

	if err := r.tasks.Update(ctx, r.taskID, progress, status, message, targetID); err != nil {
		r.logger.Error("failed to update task",
			"task_id", r.taskID,
			"progress", progress,
			"status", status,
			"error", err,
		)
	}
}
