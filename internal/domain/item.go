package domain

// ContentItem is one platform-normalized piece of content.
// ItemID is unique and immutable; rows are inserted once and never rewritten,
// except for the one-way downloaded transition.
type ContentItem struct {
	ID         int64       `db:"id"`
	ItemID     string      `db:"item_id"`
	Desc       string      `db:"description"`
	ShareURL   string      `db:"share_url"`
	SubjectUID string      `db:"subject_uid"`
	Nickname   string      `db:"nickname"`
	Platform   string      `db:"platform"`
	CreateTime int64       `db:"create_time"` // epoch seconds, as reported by the platform
	Type       ContentType `db:"content_type"`
	Downloaded bool        `db:"downloaded"`
}
