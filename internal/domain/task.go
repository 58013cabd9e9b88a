package domain

// TaskStatus is the lifecycle state of one sync invocation.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
)

// Terminal reports whether the status admits no further transitions.
func (s TaskStatus) Terminal() bool {
	return s == TaskCompleted || s == TaskFailed
}

// Task is one tracked sync invocation, exposed for progress polling.
// TargetID starts as the raw input reference and is promoted to the
// canonical subject uid once identity is resolved.
type Task struct {
	ID        string     `db:"id"`
	TargetID  string     `db:"target_id"`
	Status    TaskStatus `db:"status"`
	Progress  int        `db:"progress"` // 0-100, non-decreasing within a run
	Message   string     `db:"message"`
	CreatedAt int64      `db:"created_at"`
	UpdatedAt int64      `db:"updated_at"`
}

// SchedulerStatus is a snapshot of the background scheduler, epoch seconds.
type SchedulerStatus struct {
	LastRun   int64 `json:"last_run"`
	NextRun   int64 `json:"next_run"`
	IsRunning bool  `json:"is_running"`
}
