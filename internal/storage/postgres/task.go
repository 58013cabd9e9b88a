package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"creator_mirror/internal/domain"
)

type TaskStore struct {
	db *sqlx.DB
}

func NewTaskStore(db *sqlx.DB) *TaskStore {
	return &TaskStore{db: db}
}

func (s *TaskStore) Create(ctx context.Context, task *domain.Task) error {
	now := time.Now().Unix()
	if task.Status == "" {
		task.Status = domain.TaskPending
	}
	task.CreatedAt = now
	task.UpdatedAt = now

	_, err := GetExecutor(ctx, s.db).ExecContext(ctx, `
		INSERT INTO tasks (id, target_id, status, progress, message, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		task.ID, task.TargetID, task.Status, task.Progress, task.Message,
		task.CreatedAt, task.UpdatedAt,
	)
	return err
}

// Update applies a progress report. GREATEST keeps progress non-decreasing
// even if reports arrive out of order; empty message/targetID leave the
// stored values untouched.
func (s *TaskStore) Update(ctx context.Context, taskID string, progress int, status domain.TaskStatus, message, targetID string) error {
	query := `
		UPDATE tasks SET
			progress   = GREATEST(progress, $2),
			status     = $3,
			message    = CASE WHEN $4 <> '' THEN $4 ELSE message END,
			target_id  = CASE WHEN $5 <> '' THEN $5 ELSE target_id END,
			updated_at = $6
		WHERE id = $1`

	res, err := GetExecutor(ctx, s.db).ExecContext(ctx, query,
		taskID, progress, status, message, targetID, time.Now().Unix())
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

func (s *TaskStore) Get(ctx context.Context, taskID string) (*domain.Task, error) {
	var task domain.Task
	err := s.db.GetContext(ctx, &task, `
		SELECT id, target_id, status, progress, message, created_at, updated_at
		FROM tasks WHERE id = $1`, taskID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrTaskNotFound
	}
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (s *TaskStore) ListActive(ctx context.Context) ([]domain.Task, error) {
	var tasks []domain.Task
	err := s.db.SelectContext(ctx, &tasks, `
		SELECT id, target_id, status, progress, message, created_at, updated_at
		FROM tasks
		WHERE status IN ($1, $2)
		ORDER BY created_at DESC`,
		domain.TaskPending, domain.TaskRunning)
	return tasks, err
}

// FailRunning sweeps tasks left in running state by a previous process to
// failed. No run survives a restart, so anything still running is orphaned.
func (s *TaskStore) FailRunning(ctx context.Context, message string) (int64, error) {
	res, err := GetExecutor(ctx, s.db).ExecContext(ctx, `
		UPDATE tasks SET
			status = $1, progress = 100, message = $2, updated_at = $3
		WHERE status = $4`,
		domain.TaskFailed, message, time.Now().Unix(), domain.TaskRunning)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
