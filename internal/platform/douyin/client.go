// Package douyin implements the platform capability for douyin creators.
package douyin

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"creator_mirror/internal/domain"
	"creator_mirror/internal/platform"
)

const (
	Tag  = "douyin"
	name = "Douyin"

	galleryAwemeType = 68
)

type Config struct {
	ListURL      string
	ProfileURL   string
	PageSize     int
	Timeout      time.Duration
	RequestDelay time.Duration
}

type Client struct {
	httpClient *http.Client
	listURL    string
	profileURL string
	pageSize   int
	limiter    *rate.Limiter
	logger     *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		listURL:    cfg.ListURL,
		profileURL: cfg.ProfileURL,
		pageSize:   cfg.PageSize,
		limiter:    rate.NewLimiter(rate.Every(cfg.RequestDelay), 1),
		logger:     logger.With("platform", Tag),
	}
}

func (c *Client) Tag() string  { return Tag }
func (c *Client) Name() string { return name }

func (c *Client) ShareLink(_, itemID string) string {
	return "https://www.iesdouyin.com/share/video/" + itemID
}

func (c *Client) FetchProfile(ctx context.Context, subjectRef string) (*domain.Subject, error) {
	q := url.Values{}
	q.Set("sec_user_id", subjectRef)

	var resp profileResponse
	if err := c.get(ctx, c.profileURL, q, &resp); err != nil {
		return nil, &domain.UpstreamError{Platform: Tag, Op: "profile", Err: err}
	}

	return subjectFromAuthor(resp.Data.User, subjectRef), nil
}

func (c *Client) FetchPage(ctx context.Context, subjectRef, cursor string) (*platform.Page, error) {
	offset := int64(0)
	if cursor != "" {
		parsed, err := strconv.ParseInt(cursor, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse cursor %q: %w", cursor, err)
		}
		offset = parsed
	}

	q := url.Values{}
	q.Set("sec_user_id", subjectRef)
	q.Set("max_cursor", strconv.FormatInt(offset, 10))
	q.Set("count", strconv.Itoa(c.pageSize))

	var resp listResponse
	if err := c.get(ctx, c.listURL, q, &resp); err != nil {
		return nil, &domain.UpstreamError{Platform: Tag, Op: "list", Err: err}
	}

	page := &platform.Page{
		NextCursor: strconv.FormatInt(resp.Data.MaxCursor, 10),
		HasMore:    resp.Data.HasMore != 0,
	}
	for _, a := range resp.Data.AwemeList {
		page.Items = append(page.Items, c.transform(a))
	}

	c.logger.Debug("fetched page",
		"subject_ref", subjectRef,
		"items", len(page.Items),
		"next_cursor", page.NextCursor,
		"has_more", page.HasMore,
	)

	return page, nil
}

func (c *Client) get(ctx context.Context, endpoint string, q url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) transform(a aweme) domain.ContentItem {
	contentType := domain.ContentTypeVideo
	if a.AwemeType == galleryAwemeType {
		contentType = domain.ContentTypeGallery
	}

	return domain.ContentItem{
		ItemID:     a.AwemeID,
		Desc:       a.Desc,
		ShareURL:   c.ShareLink(a.Author.UID, a.AwemeID),
		SubjectUID: a.Author.UID,
		Nickname:   a.Author.Nickname,
		Platform:   Tag,
		CreateTime: a.CreateTime,
		Type:       contentType,
	}
}

func subjectFromAuthor(a author, subjectRef string) *domain.Subject {
	ref := a.SecUID
	if ref == "" {
		ref = subjectRef
	}
	return &domain.Subject{
		UID:        a.UID,
		SubjectRef: ref,
		Platform:   Tag,
		Nickname:   a.Nickname,
		AvatarURL:  a.AvatarThumb.first(),
		Signature:  a.Signature,
	}
}
