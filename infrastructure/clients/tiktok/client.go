package tiktok

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"social-publisher/domain/model"
	"social-publisher/infrastructure/httpclient"
)

const (
	DefaultAPIBase = "https://open.tiktokapis.com"
	DefaultAuthURL = "https://www.tiktok.com/v2/auth/authorize/"

	// MaxTitleLength bounds post_info.title, in characters.
	MaxTitleLength = 2200

	DefaultPrivacyLevel = "PUBLIC_TO_EVERYONE"
	SourcePullFromURL   = "PULL_FROM_URL"
)

type Endpoints struct {
	APIBase string
	AuthURL string
}

func (e Endpoints) withDefaults() Endpoints {
	if e.APIBase == "" {
		e.APIBase = DefaultAPIBase
	}
	if e.AuthURL == "" {
		e.AuthURL = DefaultAuthURL
	}
	return e
}

// Client wraps the TikTok Content Posting and Display APIs.
type Client struct {
	http      *httpclient.Client
	endpoints Endpoints
}

func NewClient(hc *httpclient.Client, endpoints Endpoints) *Client {
	return &Client{http: hc, endpoints: endpoints.withDefaults()}
}

type postInfo struct {
	Title          string `json:"title"`
	PrivacyLevel   string `json:"privacy_level"`
	DisableDuet    bool   `json:"disable_duet"`
	DisableComment bool   `json:"disable_comment"`
	DisableStitch  bool   `json:"disable_stitch"`
	IsAIGC         bool   `json:"is_aigc"`
}

type sourceInfo struct {
	Source   string `json:"source"`
	VideoURL string `json:"video_url"`
}

type initRequest struct {
	PostInfo   postInfo   `json:"post_info"`
	SourceInfo sourceInfo `json:"source_info"`
}

func newInitRequest(content, videoURL string, opts model.TikTokOptions) initRequest {
	privacy := opts.PrivacyLevel
	if privacy == "" {
		privacy = DefaultPrivacyLevel
	}
	return initRequest{
		PostInfo: postInfo{
			Title:          truncate(content, MaxTitleLength),
			PrivacyLevel:   privacy,
			DisableDuet:    opts.DisableDuet,
			DisableComment: opts.DisableComment,
			DisableStitch:  opts.DisableStitch,
			IsAIGC:         opts.IsAIGC,
		},
		SourceInfo: sourceInfo{Source: SourcePullFromURL, VideoURL: videoURL},
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// call sends one API request. TikTok reports failures in error.code even on 200 responses.
func (c *Client) call(ctx context.Context, req *httpclient.Request, operation string) (*httpclient.Response, error) {
	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return nil, model.WrapProviderError(model.PlatformTikTok, operation, err)
	}
	if !resp.OK() {
		return nil, resp.ProviderError(model.PlatformTikTok, operation)
	}
	if code := resp.Get("error.code").String(); code != "" && code != "ok" {
		return nil, resp.ProviderError(model.PlatformTikTok, operation)
	}
	return resp, nil
}

// InitVideo starts a pull-from-URL video post and returns the publish id.
func (c *Client) InitVideo(ctx context.Context, token, content, videoURL string, opts model.TikTokOptions) (string, error) {
	resp, err := c.call(ctx, &httpclient.Request{
		Method: http.MethodPost,
		URL:    c.endpoints.APIBase + "/v2/post/publish/video/init/",
		Bearer: token,
		JSON:   newInitRequest(content, videoURL, opts),
		Class:  httpclient.ClassPublish,
	}, "publish")
	if err != nil {
		return "", err
	}
	id := resp.Get("data.publish_id").String()
	if id == "" {
		return "", model.NewProviderError(model.PlatformTikTok, "publish", resp.StatusCode, "response has no publish_id")
	}
	return id, nil
}

// PublishStatus fetches the processing status of a publish id.
func (c *Client) PublishStatus(ctx context.Context, token, publishID string) (map[string]interface{}, error) {
	resp, err := c.call(ctx, &httpclient.Request{
		Method: http.MethodPost,
		URL:    c.endpoints.APIBase + "/v2/post/publish/status/fetch/",
		Bearer: token,
		JSON:   map[string]string{"publish_id": publishID},
	}, "get_post")
	if err != nil {
		return nil, err
	}
	return resp.Map("data"), nil
}

func (c *Client) UserInfo(ctx context.Context, token string) (*model.UserProfile, error) {
	resp, err := c.call(ctx, &httpclient.Request{
		URL:    c.endpoints.APIBase + "/v2/user/info/",
		Query:  url.Values{"fields": {"open_id,union_id,avatar_url,display_name"}},
		Bearer: token,
	}, "get_profile")
	if err != nil {
		return nil, err
	}
	user := resp.Get("data.user")
	id := user.Get("open_id").String()
	if id == "" {
		return nil, model.NewProviderError(model.PlatformTikTok, "get_profile", resp.StatusCode, "response has no open_id")
	}
	name := user.Get("display_name").String()
	return &model.UserProfile{
		ID:              id,
		Username:        name,
		Name:            name,
		ProfileImageURL: user.Get("avatar_url").String(),
		Extra:           map[string]interface{}{"union_id": user.Get("union_id").String()},
	}, nil
}

func (c *Client) VideoMetrics(ctx context.Context, token, videoID string) (*model.PostMetrics, error) {
	resp, err := c.call(ctx, &httpclient.Request{
		Method: http.MethodPost,
		URL:    c.endpoints.APIBase + "/v2/video/query/",
		Query:  url.Values{"fields": {"id,like_count,comment_count,share_count,view_count"}},
		Bearer: token,
		JSON:   map[string]interface{}{"filters": map[string][]string{"video_ids": {videoID}}},
	}, "get_metrics")
	if err != nil {
		return nil, err
	}
	video := resp.Get("data.videos.0")
	if !video.Exists() {
		return nil, model.NewProviderError(model.PlatformTikTok, "get_metrics", resp.StatusCode, "video not found")
	}
	m := &model.PostMetrics{
		PostID:      videoID,
		Platform:    model.PlatformTikTok,
		Likes:       video.Get("like_count").Int(),
		Comments:    video.Get("comment_count").Int(),
		Shares:      video.Get("share_count").Int(),
		Impressions: video.Get("view_count").Int(),
		FetchedAt:   time.Now().UTC(),
	}
	m.Engagement = m.Likes + m.Comments + m.Shares
	return m, nil
}
