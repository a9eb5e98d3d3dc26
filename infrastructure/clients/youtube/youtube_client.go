package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"social-publisher/domain/model"
	"social-publisher/infrastructure/httpclient"
	"social-publisher/infrastructure/logger"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

const (
	DefaultAPIBase   = "https://youtube.googleapis.com/youtube/v3/"
	DefaultUploadURL = "https://www.googleapis.com/upload/youtube/v3/videos"
	DefaultAuthURL   = "https://accounts.google.com/o/oauth2/auth"
	DefaultTokenURL  = "https://oauth2.googleapis.com/token"
)

// Scopes requested when the caller configures none.
var DefaultScopes = []string{
	youtube.YoutubeUploadScope,
	youtube.YoutubeReadonlyScope,
	youtube.YoutubeForceSslScope,
}

type Endpoints struct {
	APIBase   string
	UploadURL string
	AuthURL   string
	TokenURL  string
}

func (e Endpoints) withDefaults() Endpoints {
	if e.APIBase == "" {
		e.APIBase = DefaultAPIBase
	}
	if e.UploadURL == "" {
		e.UploadURL = DefaultUploadURL
	}
	if e.AuthURL == "" {
		e.AuthURL = DefaultAuthURL
	}
	if e.TokenURL == "" {
		e.TokenURL = DefaultTokenURL
	}
	return e
}

func VideoURL(id string) string { return "https://www.youtube.com/watch?v=" + id }

// Client reads and deletes videos through the youtube/v3 service; uploads go through the
// shared provider client.
type Client struct {
	http      *httpclient.Client
	endpoints Endpoints
}

func NewClient(hc *httpclient.Client, endpoints Endpoints) *Client {
	return &Client{http: hc, endpoints: endpoints.withDefaults()}
}

// service builds a youtube.Service authorized with a stored access token.
func (c *Client) service(ctx context.Context, token string) (*youtube.Service, error) {
	base := context.WithValue(ctx, oauth2.HTTPClient, c.http.HTTPClient())
	authorized := oauth2.NewClient(base, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}))
	svc, err := youtube.NewService(ctx, option.WithHTTPClient(authorized), option.WithEndpoint(c.endpoints.APIBase))
	if err != nil {
		return nil, fmt.Errorf("failed to create YouTube service: %w", err)
	}
	return svc, nil
}

// Video fetches one video with its statistics.
func (c *Client) Video(ctx context.Context, token, id string) (*youtube.Video, error) {
	callCtx, cancel := c.http.Detach(ctx, httpclient.ClassMetadata)
	defer cancel()
	svc, err := c.service(callCtx, token)
	if err != nil {
		return nil, model.WrapProviderError(model.PlatformYouTube, "get_post", err)
	}
	resp, err := svc.Videos.List([]string{"snippet", "statistics", "contentDetails", "status"}).Id(id).Context(callCtx).Do()
	if err != nil {
		return nil, apiError("get_post", err)
	}
	if len(resp.Items) == 0 {
		return nil, model.NewProviderError(model.PlatformYouTube, "get_post", http.StatusNotFound, "video not found: "+id)
	}
	return resp.Items[0], nil
}

func (c *Client) DeleteVideo(ctx context.Context, token, id string) error {
	callCtx, cancel := c.http.Detach(ctx, httpclient.ClassMetadata)
	defer cancel()
	svc, err := c.service(callCtx, token)
	if err != nil {
		return model.WrapProviderError(model.PlatformYouTube, "delete", err)
	}
	if err := svc.Videos.Delete(id).Context(callCtx).Do(); err != nil {
		return apiError("delete", err)
	}
	return nil
}

// MyChannel returns the channel of the authorized account.
func (c *Client) MyChannel(ctx context.Context, token string) (*model.UserProfile, error) {
	callCtx, cancel := c.http.Detach(ctx, httpclient.ClassMetadata)
	defer cancel()
	svc, err := c.service(callCtx, token)
	if err != nil {
		return nil, model.WrapProviderError(model.PlatformYouTube, "get_profile", err)
	}
	resp, err := svc.Channels.List([]string{"snippet", "statistics"}).Mine(true).Context(callCtx).Do()
	if err != nil {
		return nil, apiError("get_profile", err)
	}
	if len(resp.Items) == 0 {
		return nil, model.NewProviderError(model.PlatformYouTube, "get_profile", http.StatusNotFound, "no channel found for authenticated user")
	}
	channel := resp.Items[0]
	profile := &model.UserProfile{ID: channel.Id, Extra: map[string]interface{}{}}
	if channel.Snippet != nil {
		profile.Name = channel.Snippet.Title
		profile.Username = channel.Snippet.CustomUrl
		if profile.Username == "" {
			profile.Username = channel.Snippet.Title
		}
		if channel.Snippet.Thumbnails != nil && channel.Snippet.Thumbnails.Default != nil {
			profile.ProfileImageURL = channel.Snippet.Thumbnails.Default.Url
		}
	}
	if channel.Statistics != nil {
		profile.FollowersCount = int64(channel.Statistics.SubscriberCount)
		profile.Extra["video_count"] = int64(channel.Statistics.VideoCount)
		profile.Extra["view_count"] = int64(channel.Statistics.ViewCount)
	}
	return profile, nil
}

// VideoMap flattens a video into the generic post view.
func VideoMap(v *youtube.Video) map[string]interface{} {
	out := map[string]interface{}{"id": v.Id, "url": VideoURL(v.Id)}
	if v.Snippet != nil {
		out["title"] = v.Snippet.Title
		out["description"] = v.Snippet.Description
		out["published_at"] = v.Snippet.PublishedAt
		out["channel_id"] = v.Snippet.ChannelId
		out["tags"] = v.Snippet.Tags
		out["category_id"] = v.Snippet.CategoryId
	}
	if v.Status != nil {
		out["privacy_status"] = v.Status.PrivacyStatus
		out["upload_status"] = v.Status.UploadStatus
		if v.Status.PublishAt != "" {
			out["publish_at"] = v.Status.PublishAt
		}
	}
	if v.ContentDetails != nil {
		out["duration"] = v.ContentDetails.Duration
	}
	return out
}

// VideoMetrics converts video statistics. Views count as impressions.
func VideoMetrics(v *youtube.Video) *model.PostMetrics {
	m := &model.PostMetrics{PostID: v.Id, Platform: model.PlatformYouTube, FetchedAt: time.Now().UTC()}
	if v.Statistics != nil {
		m.Likes = int64(v.Statistics.LikeCount)
		m.Comments = int64(v.Statistics.CommentCount)
		m.Impressions = int64(v.Statistics.ViewCount)
		m.Extra = map[string]int64{"favorites": int64(v.Statistics.FavoriteCount)}
	}
	m.Engagement = m.Likes + m.Comments
	return m
}

func apiError(operation string, err error) error {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return model.WrapProviderError(model.PlatformYouTube, operation, err)
	}
	msg := gerr.Message
	if msg == "" {
		msg = httpclient.ErrorMessage([]byte(gerr.Body))
	}
	logger.GetLogger().
		WithField("platform", model.PlatformYouTube).
		WithField("operation", operation).
		WithField("status", gerr.Code).
		WithField("error", msg).
		Error("Provider call failed")
	return model.NewProviderError(model.PlatformYouTube, operation, gerr.Code, msg)
}
