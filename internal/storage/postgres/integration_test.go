//go:build integration

package postgres

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"creator_mirror/internal/domain"
	"creator_mirror/testdata/utils"
)

type PostgresIntegrationSuite struct {
	suite.Suite
	ctx       context.Context
	container *postgres.PostgresContainer
	db        *sqlx.DB
}

func (s *PostgresIntegrationSuite) SetupSuite() {
	s.ctx = context.Background()

	migrationsPath, err := filepath.Abs("../../../migrations")
	s.Require().NoError(err)

	container, err := postgres.Run(s.ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("test_db"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		postgres.WithInitScripts(
			filepath.Join(migrationsPath, "001_create_subjects.up.sql"),
			filepath.Join(migrationsPath, "002_create_items.up.sql"),
			filepath.Join(migrationsPath, "003_create_tasks.up.sql"),
			filepath.Join(migrationsPath, "004_create_settings.up.sql"),
		),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	s.Require().NoError(err)
	s.container = container

	connStr, err := container.ConnectionString(s.ctx, "sslmode=disable")
	s.Require().NoError(err)

	db, err := sqlx.Connect("postgres", connStr)
	s.Require().NoError(err)
	s.db = db
}

func (s *PostgresIntegrationSuite) TearDownSuite() {
	if s.db != nil {
		s.db.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

func (s *PostgresIntegrationSuite) SetupTest() {
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM items")
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM subjects")
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM tasks")
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM settings")
}

func TestPostgresIntegrationSuite(t *testing.T) {
	suite.Run(t, new(PostgresIntegrationSuite))
}

func (s *PostgresIntegrationSuite) seedSubject(uid string) {
	store := NewSubjectStore(s.db)
	err := store.Upsert(s.ctx, &domain.Subject{
		UID:        uid,
		SubjectRef: "ref-" + uid,
		Platform:   "douyin",
		Nickname:   "creator-" + uid,
	})
	s.Require().NoError(err)
}

func (s *PostgresIntegrationSuite) TestItemStore_InsertIdempotent() {
	store := NewItemStore(s.db)

	item := &domain.ContentItem{
		ItemID:     "7001",
		Desc:       "first description",
		ShareURL:   "https://share/7001",
		SubjectUID: "u1",
		Nickname:   "alice",
		Platform:   "douyin",
		CreateTime: 1700000100,
		Type:       domain.ContentTypeVideo,
	}

	created, err := store.Insert(s.ctx, item)
	s.NoError(err)
	s.True(created)

	// Same id again: no-op, original description survives.
	item.Desc = "second description"
	created, err = store.Insert(s.ctx, item)
	s.NoError(err)
	s.False(created)

	var desc string
	err = s.db.GetContext(s.ctx, &desc, "SELECT description FROM items WHERE item_id = $1", "7001")
	s.NoError(err)
	s.Equal("first description", desc)
}

func (s *PostgresIntegrationSuite) TestItemStore_LatestCreateTime() {
	store := NewItemStore(s.db)

	mark, err := store.LatestCreateTime(s.ctx, "u1")
	s.NoError(err)
	s.Equal(int64(0), mark)

	for i, ts := range []int64{1700000100, 1700000300, 1700000200} {
		_, err := store.Insert(s.ctx, &domain.ContentItem{
			ItemID:     string(rune('a' + i)),
			SubjectUID: "u1",
			Platform:   "douyin",
			CreateTime: ts,
			Type:       domain.ContentTypeVideo,
		})
		s.Require().NoError(err)
	}

	mark, err = store.LatestCreateTime(s.ctx, "u1")
	s.NoError(err)
	s.Equal(int64(1700000300), mark)
}

func (s *PostgresIntegrationSuite) TestItemStore_MarkDownloadedAndList() {
	store := NewItemStore(s.db)

	for _, id := range []string{"a1", "a2", "a3"} {
		_, err := store.Insert(s.ctx, &domain.ContentItem{
			ItemID:     id,
			SubjectUID: "u1",
			Platform:   "douyin",
			CreateTime: 1700000100,
			Type:       domain.ContentTypeVideo,
		})
		s.Require().NoError(err)
	}

	s.NoError(store.MarkDownloaded(s.ctx, "a2"))

	pending, err := store.ListUndownloaded(s.ctx, "u1")
	s.NoError(err)
	s.Len(pending, 2)
	for _, it := range pending {
		s.NotEqual("a2", it.ItemID)
		s.False(it.Downloaded)
	}
}

func (s *PostgresIntegrationSuite) TestSubjectStore_UpsertMergesNonDestructively() {
	store := NewSubjectStore(s.db)

	err := store.Upsert(s.ctx, &domain.Subject{
		UID:        "u1",
		SubjectRef: "ref-1",
		Platform:   "douyin",
		Nickname:   "alice",
		Signature:  "original signature",
	})
	s.NoError(err)

	// Flags set by the operator survive later profile refreshes.
	s.NoError(store.SetAutoUpdate(s.ctx, "u1", true))
	s.NoError(store.SetPreference(s.ctx, "u1", utils.Ptr(false), nil))

	// A refresh with empty fields must not blank stored values.
	err = store.Upsert(s.ctx, &domain.Subject{
		UID:      "u1",
		Platform: "douyin",
		Nickname: "alice renamed",
	})
	s.NoError(err)

	subject, err := store.GetByUID(s.ctx, "u1")
	s.NoError(err)
	s.Equal("ref-1", subject.SubjectRef)
	s.Equal("alice renamed", subject.Nickname)
	s.Equal("original signature", subject.Signature)
	s.True(subject.AutoUpdate)
	s.Require().NotNil(subject.DownloadVideoOverride)
	s.False(*subject.DownloadVideoOverride)
	s.Nil(subject.DownloadGalleryOverride)
}

func (s *PostgresIntegrationSuite) TestSubjectStore_GetByRef() {
	s.seedSubject("u1")
	store := NewSubjectStore(s.db)

	subject, err := store.GetByRef(s.ctx, "douyin", "ref-u1")
	s.NoError(err)
	s.Equal("u1", subject.UID)

	_, err = store.GetByRef(s.ctx, "tiktok", "ref-u1")
	s.ErrorIs(err, domain.ErrSubjectNotFound)
}

func (s *PostgresIntegrationSuite) TestSubjectStore_ListAutoUpdate() {
	s.seedSubject("u1")
	s.seedSubject("u2")
	store := NewSubjectStore(s.db)

	s.NoError(store.SetAutoUpdate(s.ctx, "u2", true))

	subjects, err := store.ListAutoUpdate(s.ctx)
	s.NoError(err)
	s.Len(subjects, 1)
	s.Equal("u2", subjects[0].UID)
}

func (s *PostgresIntegrationSuite) TestSubjectStore_SetPreferenceTriState() {
	s.seedSubject("u1")
	store := NewSubjectStore(s.db)

	s.NoError(store.SetPreference(s.ctx, "u1", utils.Ptr(true), utils.Ptr(false)))

	// nil leaves existing overrides alone.
	s.NoError(store.SetPreference(s.ctx, "u1", nil, utils.Ptr(true)))

	subject, err := store.GetByUID(s.ctx, "u1")
	s.NoError(err)
	s.Require().NotNil(subject.DownloadVideoOverride)
	s.True(*subject.DownloadVideoOverride)
	s.Require().NotNil(subject.DownloadGalleryOverride)
	s.True(*subject.DownloadGalleryOverride)
}

func (s *PostgresIntegrationSuite) TestSubjectStore_SetPreferenceUnknownSubject() {
	store := NewSubjectStore(s.db)

	err := store.SetPreference(s.ctx, "missing", utils.Ptr(true), nil)
	s.ErrorIs(err, domain.ErrSubjectNotFound)
}

func (s *PostgresIntegrationSuite) TestTaskStore_ProgressNeverRegresses() {
	store := NewTaskStore(s.db)

	task := &domain.Task{ID: "task-1", TargetID: "u1", Status: domain.TaskPending}
	s.NoError(store.Create(s.ctx, task))

	s.NoError(store.Update(s.ctx, "task-1", 40, domain.TaskRunning, "fetching", ""))
	// A stale lower report cannot move progress backwards.
	s.NoError(store.Update(s.ctx, "task-1", 20, domain.TaskRunning, "late report", ""))

	got, err := store.Get(s.ctx, "task-1")
	s.NoError(err)
	s.Equal(40, got.Progress)
	s.Equal("late report", got.Message)
}

func (s *PostgresIntegrationSuite) TestTaskStore_EmptyFieldsPreserved() {
	store := NewTaskStore(s.db)

	task := &domain.Task{ID: "task-1", TargetID: "ref-1", Status: domain.TaskPending}
	s.NoError(store.Create(s.ctx, task))

	s.NoError(store.Update(s.ctx, "task-1", 30, domain.TaskRunning, "persisting", "u1"))
	s.NoError(store.Update(s.ctx, "task-1", 50, domain.TaskRunning, "", ""))

	got, err := store.Get(s.ctx, "task-1")
	s.NoError(err)
	s.Equal("persisting", got.Message)
	s.Equal("u1", got.TargetID)
}

func (s *PostgresIntegrationSuite) TestTaskStore_UpdateUnknownTask() {
	store := NewTaskStore(s.db)

	err := store.Update(s.ctx, "missing", 10, domain.TaskRunning, "x", "")
	s.ErrorIs(err, domain.ErrTaskNotFound)
}

func (s *PostgresIntegrationSuite) TestTaskStore_ListActive() {
	store := NewTaskStore(s.db)

	s.NoError(store.Create(s.ctx, &domain.Task{ID: "t-pending", Status: domain.TaskPending}))
	s.NoError(store.Create(s.ctx, &domain.Task{ID: "t-running", Status: domain.TaskRunning}))
	s.NoError(store.Create(s.ctx, &domain.Task{ID: "t-done", Status: domain.TaskCompleted}))

	active, err := store.ListActive(s.ctx)
	s.NoError(err)
	s.Len(active, 2)
	for _, task := range active {
		s.NotEqual("t-done", task.ID)
	}
}

func (s *PostgresIntegrationSuite) TestTaskStore_FailRunningSweepsOrphans() {
	store := NewTaskStore(s.db)

	s.NoError(store.Create(s.ctx, &domain.Task{ID: "t1", Status: domain.TaskRunning}))
	s.NoError(store.Create(s.ctx, &domain.Task{ID: "t2", Status: domain.TaskRunning}))
	s.NoError(store.Create(s.ctx, &domain.Task{ID: "t3", Status: domain.TaskCompleted}))

	swept, err := store.FailRunning(s.ctx, "interrupted by restart")
	s.NoError(err)
	s.Equal(int64(2), swept)

	got, err := store.Get(s.ctx, "t1")
	s.NoError(err)
	s.Equal(domain.TaskFailed, got.Status)
	s.Equal(100, got.Progress)
	s.Equal("interrupted by restart", got.Message)

	got, err = store.Get(s.ctx, "t3")
	s.NoError(err)
	s.Equal(domain.TaskCompleted, got.Status)
}

func (s *PostgresIntegrationSuite) TestSettingStore_DefaultsAndOverrides() {
	store := NewSettingStore(s.db)

	s.NoError(store.EnsureDefaults(s.ctx))

	enabled, err := store.GlobalDownloadDefault(s.ctx, domain.ContentTypeVideo)
	s.NoError(err)
	s.True(enabled)

	interval, err := store.AutoUpdateInterval(s.ctx)
	s.NoError(err)
	s.Equal(120*time.Minute, interval)

	s.NoError(store.Set(s.ctx, KeyDownloadVideo, "false"))
	s.NoError(store.Set(s.ctx, KeyAutoUpdateInterval, "30"))

	enabled, err = store.GlobalDownloadDefault(s.ctx, domain.ContentTypeVideo)
	s.NoError(err)
	s.False(enabled)

	interval, err = store.AutoUpdateInterval(s.ctx)
	s.NoError(err)
	s.Equal(30*time.Minute, interval)

	// EnsureDefaults never clobbers operator values.
	s.NoError(store.EnsureDefaults(s.ctx))
	enabled, err = store.GlobalDownloadDefault(s.ctx, domain.ContentTypeVideo)
	s.NoError(err)
	s.False(enabled)
}

func (s *PostgresIntegrationSuite) TestSettingStore_InvalidInterval() {
	store := NewSettingStore(s.db)

	s.NoError(store.Set(s.ctx, KeyAutoUpdateInterval, "not-a-number"))

	_, err := store.AutoUpdateInterval(s.ctx)
	s.Error(err)
}

func (s *PostgresIntegrationSuite) TestTransaction_Commit() {
	tm := NewTransactionManager(s.db)
	items := NewItemStore(s.db)

	err := tm.WithTransaction(s.ctx, func(ctx context.Context) error {
		_, err := items.Insert(ctx, &domain.ContentItem{
			ItemID:     "tx-1",
			SubjectUID: "u1",
			Platform:   "douyin",
			CreateTime: 1700000100,
			Type:       domain.ContentTypeVideo,
		})
		return err
	})
	s.NoError(err)

	var count int
	err = s.db.GetContext(s.ctx, &count, "SELECT COUNT(*) FROM items WHERE item_id = $1", "tx-1")
	s.NoError(err)
	s.Equal(1, count)
}

func (s *PostgresIntegrationSuite) TestTransaction_RollsBackPurge() {
	s.seedSubject("u1")
	items := NewItemStore(s.db)
	tm := NewTransactionManager(s.db)

	_, err := items.Insert(s.ctx, &domain.ContentItem{
		ItemID:     "a1",
		SubjectUID: "u1",
		Platform:   "douyin",
		CreateTime: 1700000100,
		Type:       domain.ContentTypeVideo,
	})
	s.Require().NoError(err)

	err = tm.WithTransaction(s.ctx, func(ctx context.Context) error {
		if err := items.DeleteBySubject(ctx, "u1"); err != nil {
			return err
		}
		return context.Canceled
	})
	s.Error(err)

	// The delete rolled back with the transaction.
	var count int
	err = s.db.GetContext(s.ctx, &count, "SELECT COUNT(*) FROM items WHERE subject_uid = $1", "u1")
	s.NoError(err)
	s.Equal(1, count)
}
