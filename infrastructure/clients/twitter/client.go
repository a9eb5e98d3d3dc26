package twitter

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"social-publisher/domain/model"
	"social-publisher/infrastructure/httpclient"
)

const (
	DefaultAPIBase   = "https://api.twitter.com/2"
	DefaultUploadURL = "https://upload.twitter.com/1.1/media/upload.json"
	DefaultAuthURL   = "https://twitter.com/i/oauth2/authorize"
	DefaultTokenURL  = "https://api.twitter.com/2/oauth2/token"
)

// Endpoints lets tests point the client at local servers. Empty fields use the defaults.
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

// Client wraps the Twitter v2 API.
type Client struct {
	http      *httpclient.Client
	endpoints Endpoints
}

func NewClient(hc *httpclient.Client, endpoints Endpoints) *Client {
	return &Client{http: hc, endpoints: endpoints.withDefaults()}
}

// PostURL is the public URL of a tweet.
func PostURL(id string) string { return "https://twitter.com/i/web/status/" + id }

type tweetMedia struct {
	MediaIDs []string `json:"media_ids"`
}

type tweetReply struct {
	InReplyToTweetID string `json:"in_reply_to_tweet_id"`
}

type createTweetRequest struct {
	Text  string      `json:"text"`
	Media *tweetMedia `json:"media,omitempty"`
	Reply *tweetReply `json:"reply,omitempty"`
}

// CreateTweet posts a tweet and returns its id.
func (c *Client) CreateTweet(ctx context.Context, token, text string, mediaIDs []string, replyTo string) (string, error) {
	body := createTweetRequest{Text: text}
	if len(mediaIDs) > 0 {
		body.Media = &tweetMedia{MediaIDs: mediaIDs}
	}
	if replyTo != "" {
		body.Reply = &tweetReply{InReplyToTweetID: replyTo}
	}
	resp, err := c.http.Do(ctx, &httpclient.Request{
		Method: http.MethodPost,
		URL:    c.endpoints.APIBase + "/tweets",
		Bearer: token,
		JSON:   body,
		Class:  httpclient.ClassPublish,
	})
	if err != nil {
		return "", model.WrapProviderError(model.PlatformTwitter, "publish", err)
	}
	if !resp.OK() {
		return "", resp.ProviderError(model.PlatformTwitter, "publish")
	}
	return resp.Get("data.id").String(), nil
}

func (c *Client) DeleteTweet(ctx context.Context, token, id string) error {
	resp, err := c.http.Do(ctx, &httpclient.Request{
		Method: http.MethodDelete,
		URL:    c.endpoints.APIBase + "/tweets/" + url.PathEscape(id),
		Bearer: token,
	})
	if err != nil {
		return model.WrapProviderError(model.PlatformTwitter, "delete", err)
	}
	if !resp.OK() {
		return resp.ProviderError(model.PlatformTwitter, "delete")
	}
	if !resp.Get("data.deleted").Bool() {
		return model.NewProviderError(model.PlatformTwitter, "delete", resp.StatusCode, "tweet was not deleted")
	}
	return nil
}

func (c *Client) GetTweet(ctx context.Context, token, id string, fields string) (*httpclient.Response, error) {
	resp, err := c.http.Do(ctx, &httpclient.Request{
		URL:    c.endpoints.APIBase + "/tweets/" + url.PathEscape(id),
		Query:  url.Values{"tweet.fields": {fields}},
		Bearer: token,
	})
	if err != nil {
		return nil, model.WrapProviderError(model.PlatformTwitter, "get_post", err)
	}
	if !resp.OK() {
		return nil, resp.ProviderError(model.PlatformTwitter, "get_post")
	}
	return resp, nil
}

// Me returns the authenticated user.
func (c *Client) Me(ctx context.Context, token string) (*model.UserProfile, error) {
	resp, err := c.http.Do(ctx, &httpclient.Request{
		URL:    c.endpoints.APIBase + "/users/me",
		Query:  url.Values{"user.fields": {"name,username,profile_image_url,public_metrics,verified"}},
		Bearer: token,
	})
	if err != nil {
		return nil, model.WrapProviderError(model.PlatformTwitter, "get_profile", err)
	}
	if !resp.OK() {
		return nil, resp.ProviderError(model.PlatformTwitter, "get_profile")
	}
	data := resp.Get("data")
	if !data.Get("id").Exists() {
		return nil, model.NewProviderError(model.PlatformTwitter, "get_profile", resp.StatusCode, "response has no user id")
	}
	return &model.UserProfile{
		ID:              data.Get("id").String(),
		Username:        data.Get("username").String(),
		Name:            data.Get("name").String(),
		ProfileImageURL: data.Get("profile_image_url").String(),
		FollowersCount:  data.Get("public_metrics.followers_count").Int(),
		Extra: map[string]interface{}{
			"following_count": data.Get("public_metrics.following_count").Int(),
			"tweet_count":     data.Get("public_metrics.tweet_count").Int(),
			"verified":        data.Get("verified").Bool(),
		},
	}, nil
}

func (c *Client) Metrics(ctx context.Context, token, id string) (*model.PostMetrics, error) {
	resp, err := c.GetTweet(ctx, token, id, "public_metrics")
	if err != nil {
		return nil, err
	}
	pm := resp.Get("data.public_metrics")
	if !pm.Exists() {
		return nil, model.NewProviderError(model.PlatformTwitter, "get_metrics", resp.StatusCode, fmt.Sprintf("no metrics for tweet %s", id))
	}
	m := &model.PostMetrics{
		PostID:      id,
		Platform:    model.PlatformTwitter,
		Likes:       pm.Get("like_count").Int(),
		Shares:      pm.Get("retweet_count").Int(),
		Comments:    pm.Get("reply_count").Int(),
		Impressions: pm.Get("impression_count").Int(),
		Extra:       map[string]int64{"quotes": pm.Get("quote_count").Int(), "bookmarks": pm.Get("bookmark_count").Int()},
		FetchedAt:   time.Now().UTC(),
	}
	m.Engagement = m.Likes + m.Shares + m.Comments + m.Extra["quotes"]
	return m, nil
}
