package douyin

// listResponse mirrors the douyin web listing endpoint. The cursor is an
// integer offset and create_time is epoch seconds.
type listResponse struct {
	Data listData `json:"data"`
}

type listData struct {
	AwemeList []aweme `json:"aweme_list"`
	MaxCursor int64   `json:"max_cursor"`
	HasMore   int     `json:"has_more"`
}

type aweme struct {
	AwemeID    string `json:"aweme_id"`
	Desc       string `json:"desc"`
	CreateTime int64  `json:"create_time"`
	AwemeType  int    `json:"aweme_type"` // 68 marks gallery posts
	Author     author `json:"author"`
}

type author struct {
	UID         string      `json:"uid"`
	SecUID      string      `json:"sec_uid"`
	Nickname    string      `json:"nickname"`
	Signature   string      `json:"signature"`
	AvatarThumb avatarThumb `json:"avatar_thumb"`
}

type avatarThumb struct {
	URLList []string `json:"url_list"`
}

func (a avatarThumb) first() string {
	if len(a.URLList) > 0 {
		return a.URLList[0]
	}
	return ""
}

type profileResponse struct {
	Data profileData `json:"data"`
}

type profileData struct {
	User author `json:"user"`
}
