package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShouldDownload(t *testing.T) {
	yes, no := true, false

	tests := []struct {
		name          string
		subject       *Subject
		contentType   ContentType
		globalDefault bool
		want          bool
	}{
		{"nil override inherits global true", &Subject{}, ContentTypeVideo, true, true},
		{"nil override inherits global false", &Subject{}, ContentTypeVideo, false, false},
		{"override false beats global true", &Subject{DownloadVideoOverride: &no}, ContentTypeVideo, true, false},
		{"override true beats global false", &Subject{DownloadVideoOverride: &yes}, ContentTypeVideo, false, true},
		{"gallery uses its own override", &Subject{DownloadVideoOverride: &no, DownloadGalleryOverride: &yes}, ContentTypeGallery, false, true},
		{"nil subject inherits global", nil, ContentTypeVideo, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.subject.ShouldDownload(tt.contentType, tt.globalDefault))
		})
	}
}
