package tiktok

// listResponse mirrors the tiktok web listing endpoint. Unlike douyin the
// cursor is an opaque token and timestamps are camelCased.
type listResponse struct {
	Data listData `json:"data"`
}

type listData struct {
	ItemList []item `json:"itemList"`
	Cursor   string `json:"cursor"`
	HasMore  bool   `json:"hasMore"`
}

type item struct {
	ID         string `json:"id"`
	Desc       string `json:"desc"`
	CreateTime int64  `json:"createTime"`
	ImagePost  *struct {
		Images []struct {
			URL string `json:"url"`
		} `json:"images"`
	} `json:"imagePost"` // present only for photo-mode posts
	Author author `json:"author"`
}

type author struct {
	ID          string `json:"id"`
	SecUID      string `json:"secUid"`
	UniqueID    string `json:"uniqueId"`
	Nickname    string `json:"nickname"`
	Signature   string `json:"signature"`
	AvatarThumb string `json:"avatarThumb"`
}

type profileResponse struct {
	Data profileData `json:"data"`
}

type profileData struct {
	User author `json:"user"`
}
