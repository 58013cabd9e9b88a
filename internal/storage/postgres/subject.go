package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"creator_mirror/internal/domain"
)

type SubjectStore struct {
	db *sqlx.DB
}

func NewSubjectStore(db *sqlx.DB) *SubjectStore {
	return &SubjectStore{db: db}
}

const subjectColumns = `
	id, uid, subject_ref, platform, nickname, avatar_url, signature,
	auto_update, download_video_override, download_gallery_override,
	created_at, updated_at`

// Upsert merges the freshly observed profile into the stored subject.
// Non-destructive: empty observed fields never overwrite stored values, and
// auto_update plus the download overrides are not touched at all.
func (s *SubjectStore) Upsert(ctx context.Context, subject *domain.Subject) error {
	query := `
		INSERT INTO subjects (
			uid, subject_ref, platform, nickname, avatar_url, signature,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		ON CONFLICT (uid) DO UPDATE SET
			subject_ref = COALESCE(NULLIF(EXCLUDED.subject_ref, ''), subjects.subject_ref),
			platform    = COALESCE(NULLIF(EXCLUDED.platform, ''), subjects.platform),
			nickname    = COALESCE(NULLIF(EXCLUDED.nickname, ''), subjects.nickname),
			avatar_url  = COALESCE(NULLIF(EXCLUDED.avatar_url, ''), subjects.avatar_url),
			signature   = COALESCE(NULLIF(EXCLUDED.signature, ''), subjects.signature),
			updated_at  = EXCLUDED.updated_at`

	_, err := GetExecutor(ctx, s.db).ExecContext(ctx, query,
		subject.UID,
		subject.SubjectRef,
		subject.Platform,
		subject.Nickname,
		subject.AvatarURL,
		subject.Signature,
		time.Now().Unix(),
	)
	return err
}

func (s *SubjectStore) GetByUID(ctx context.Context, uid string) (*domain.Subject, error) {
	var subject domain.Subject
	err := s.db.GetContext(ctx, &subject,
		"SELECT"+subjectColumns+" FROM subjects WHERE uid = $1", uid)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrSubjectNotFound
	}
	if err != nil {
		return nil, err
	}
	return &subject, nil
}

func (s *SubjectStore) GetByRef(ctx context.Context, platform, subjectRef string) (*domain.Subject, error) {
	var subject domain.Subject
	err := s.db.GetContext(ctx, &subject,
		"SELECT"+subjectColumns+" FROM subjects WHERE platform = $1 AND subject_ref = $2",
		platform, subjectRef)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrSubjectNotFound
	}
	if err != nil {
		return nil, err
	}
	return &subject, nil
}

func (s *SubjectStore) List(ctx context.Context) ([]domain.Subject, error) {
	var subjects []domain.Subject
	err := s.db.SelectContext(ctx, &subjects,
		"SELECT"+subjectColumns+" FROM subjects ORDER BY updated_at DESC")
	return subjects, err
}

func (s *SubjectStore) ListAutoUpdate(ctx context.Context) ([]domain.Subject, error) {
	var subjects []domain.Subject
	err := s.db.SelectContext(ctx, &subjects,
		"SELECT"+subjectColumns+" FROM subjects WHERE auto_update ORDER BY updated_at DESC")
	return subjects, err
}

func (s *SubjectStore) SetAutoUpdate(ctx context.Context, uid string, enabled bool) error {
	res, err := GetExecutor(ctx, s.db).ExecContext(ctx,
		"UPDATE subjects SET auto_update = $2, updated_at = $3 WHERE uid = $1",
		uid, enabled, time.Now().Unix())
	if err != nil {
		return err
	}
	return requireRow(res)
}

// SetPreference writes the tri-state download overrides; a nil value leaves
// the stored override unchanged.
func (s *SubjectStore) SetPreference(ctx context.Context, uid string, video, gallery *bool) error {
	query := `
		UPDATE subjects SET
			download_video_override   = COALESCE($2, download_video_override),
			download_gallery_override = COALESCE($3, download_gallery_override),
			updated_at = $4
		WHERE uid = $1`

	res, err := GetExecutor(ctx, s.db).ExecContext(ctx, query,
		uid, video, gallery, time.Now().Unix())
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *SubjectStore) Delete(ctx context.Context, uid string) error {
	res, err := GetExecutor(ctx, s.db).ExecContext(ctx,
		"DELETE FROM subjects WHERE uid = $1", uid)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrSubjectNotFound
	}
	return nil
}
