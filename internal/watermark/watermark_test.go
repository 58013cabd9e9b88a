package watermark

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"creator_mirror/internal/domain"
)

func page(times ...int64) []domain.ContentItem {
	items := make([]domain.ContentItem, 0, len(times))
	for _, t := range times {
		items = append(items, domain.ContentItem{CreateTime: t})
	}
	return items
}

func times(items []domain.ContentItem) []int64 {
	var out []int64
	for _, it := range items {
		out = append(out, it.CreateTime)
	}
	return out
}

func TestSelect(t *testing.T) {
	tests := []struct {
		name     string
		items    []domain.ContentItem
		mark     int64
		wantNew  []int64
		wantStop bool
	}{
		{
			name:     "all new",
			items:    page(150, 120, 110),
			mark:     100,
			wantNew:  []int64{150, 120, 110},
			wantStop: false,
		},
		{
			name:     "partial page stops",
			items:    page(150, 120, 90),
			mark:     100,
			wantNew:  []int64{150, 120},
			wantStop: true,
		},
		{
			name:     "boundary is not new",
			items:    page(150, 100),
			mark:     100,
			wantNew:  []int64{150},
			wantStop: true,
		},
		{
			name:     "all old",
			items:    page(80, 70),
			mark:     100,
			wantNew:  nil,
			wantStop: true,
		},
		{
			name:     "empty page",
			items:    nil,
			mark:     100,
			wantNew:  nil,
			wantStop: false,
		},
		{
			name:     "zero watermark takes everything",
			items:    page(3, 2, 1),
			mark:     0,
			wantNew:  []int64{3, 2, 1},
			wantStop: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, stop := Select(tt.items, tt.mark)
			assert.Equal(t, tt.wantNew, times(got))
			assert.Equal(t, tt.wantStop, stop)
		})
	}
}

func TestAdvance(t *testing.T) {
	next, ok := Advance("0", "20", true)
	assert.True(t, ok)
	assert.Equal(t, "20", next)

	_, ok = Advance("20", "20", true)
	assert.False(t, ok, "unchanged cursor must stop pagination")

	_, ok = Advance("20", "", true)
	assert.False(t, ok, "missing cursor must stop pagination")

	_, ok = Advance("20", "40", false)
	assert.False(t, ok, "has_more=false must stop pagination")
}
