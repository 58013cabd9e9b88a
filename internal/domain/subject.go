package domain

// ContentType classifies a content item.
type ContentType string

const (
	ContentTypeVideo   ContentType = "video"
	ContentTypeGallery ContentType = "gallery"
)

// Subject is a tracked content creator on a given platform.
type Subject struct {
	ID         int64  `db:"id"`
	UID        string `db:"uid"`         // canonical platform-stable id
	SubjectRef string `db:"subject_ref"` // opaque reference used by listing APIs (e.g. sec_user_id)
	Platform   string `db:"platform"`
	Nickname   string `db:"nickname"`
	AvatarURL  string `db:"avatar_url"`
	Signature  string `db:"signature"`
	AutoUpdate bool   `db:"auto_update"`

	// nil means inherit the global default for that content type.
	DownloadVideoOverride   *bool `db:"download_video_override"`
	DownloadGalleryOverride *bool `db:"download_gallery_override"`

	CreatedAt int64 `db:"created_at"`
	UpdatedAt int64 `db:"updated_at"`
}

// ShouldDownload resolves the download decision for a content type:
// subject override if set, else the global default.
func (s *Subject) ShouldDownload(t ContentType, globalDefault bool) bool {
	var override *bool
	if s != nil {
		switch t {
		case ContentTypeGallery:
			override = s.DownloadGalleryOverride
		default:
			override = s.DownloadVideoOverride
		}
	}
	if override != nil {
		return *override
	}
	return globalDefault
}
