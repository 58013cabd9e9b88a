package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"creator_mirror/internal/domain"
)

type ItemStore struct {
	db *sqlx.DB
}

func NewItemStore(db *sqlx.DB) *ItemStore {
	return &ItemStore{db: db}
}

// Insert is idempotent by item_id: a duplicate id is a no-op and the stored
// row keeps its original field values. Reports whether a row was created.
func (s *ItemStore) Insert(ctx context.Context, item *domain.ContentItem) (bool, error) {
	query := `
		INSERT INTO items (
			item_id, description, share_url, subject_uid, nickname,
			platform, create_time, content_type, downloaded
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, FALSE)
		ON CONFLICT (item_id) DO NOTHING`

	res, err := GetExecutor(ctx, s.db).ExecContext(ctx, query,
		item.ItemID,
		item.Desc,
		item.ShareURL,
		item.SubjectUID,
		item.Nickname,
		item.Platform,
		item.CreateTime,
		item.Type,
	)
	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// LatestCreateTime derives the subject's watermark. Returns 0 when the
// subject has no items yet.
func (s *ItemStore) LatestCreateTime(ctx context.Context, subjectUID string) (int64, error) {
	var mark int64
	err := s.db.GetContext(ctx, &mark,
		"SELECT COALESCE(MAX(create_time), 0) FROM items WHERE subject_uid = $1",
		subjectUID,
	)
	return mark, err
}

func (s *ItemStore) ListUndownloaded(ctx context.Context, subjectUID string) ([]domain.ContentItem, error) {
	query := `
		SELECT id, item_id, description, share_url, subject_uid, nickname,
		       platform, create_time, content_type, downloaded
		FROM items
		WHERE subject_uid = $1 AND NOT downloaded
		ORDER BY create_time DESC`

	var items []domain.ContentItem
	err := s.db.SelectContext(ctx, &items, query, subjectUID)
	return items, err
}

func (s *ItemStore) ListBySubject(ctx context.Context, subjectUID string) ([]domain.ContentItem, error) {
	query := `
		SELECT id, item_id, description, share_url, subject_uid, nickname,
		       platform, create_time, content_type, downloaded
		FROM items
		WHERE subject_uid = $1
		ORDER BY create_time DESC`

	var items []domain.ContentItem
	err := s.db.SelectContext(ctx, &items, query, subjectUID)
	return items, err
}

// MarkDownloaded flips the one-way downloaded transition, used both after a
// successful retrieval and when preferences gate an item off.
func (s *ItemStore) MarkDownloaded(ctx context.Context, itemID string) error {
	_, err := GetExecutor(ctx, s.db).ExecContext(ctx,
		"UPDATE items SET downloaded = TRUE WHERE item_id = $1",
		itemID,
	)
	return err
}

func (s *ItemStore) DeleteBySubject(ctx context.Context, subjectUID string) error {
	_, err := GetExecutor(ctx, s.db).ExecContext(ctx,
		"DELETE FROM items WHERE subject_uid = $1",
		subjectUID,
	)
	return err
}
