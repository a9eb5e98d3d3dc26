package facebook

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"social-publisher/domain/model"
	"social-publisher/infrastructure/httpclient"
)

const (
	DefaultGraphBase = "https://graph.facebook.com/v18.0"
	DefaultAuthURL   = "https://www.facebook.com/v18.0/dialog/oauth"
)

type Endpoints struct {
	GraphBase string
	AuthURL   string
}

func (e Endpoints) withDefaults() Endpoints {
	if e.GraphBase == "" {
		e.GraphBase = DefaultGraphBase
	}
	if e.AuthURL == "" {
		e.AuthURL = DefaultAuthURL
	}
	return e
}

// Client wraps the Graph API calls used for pages and user feeds.
type Client struct {
	http      *httpclient.Client
	endpoints Endpoints
}

func NewClient(hc *httpclient.Client, endpoints Endpoints) *Client {
	return &Client{http: hc, endpoints: endpoints.withDefaults()}
}

func PostURL(id string) string { return "https://www.facebook.com/" + id }

// Page is a page the user manages.
type Page struct {
	ID                  string `json:"id"`
	Name                string `json:"name"`
	AccessToken         string `json:"access_token"`
	InstagramBusinessID string `json:"instagram_business_id,omitempty"`
}

type postForm struct {
	Message              string `url:"message,omitempty"`
	URL                  string `url:"url,omitempty"`
	AccessToken          string `url:"access_token"`
	Published            *bool  `url:"published,omitempty"`
	ScheduledPublishTime int64  `url:"scheduled_publish_time,omitempty"`
}

type fieldsQuery struct {
	Fields      string `url:"fields,omitempty"`
	AccessToken string `url:"access_token"`
}

// Post publishes to /{target}/feed, or /{target}/photos when photoURL is set.
// A non-zero scheduleAt creates an unpublished post scheduled for that time.
func (c *Client) Post(ctx context.Context, token, target, message, photoURL string, scheduleAt time.Time) (string, error) {
	if target == "" {
		target = "me"
	}
	edge := "feed"
	form := postForm{Message: message, AccessToken: token}
	if photoURL != "" {
		edge = "photos"
		form.URL = photoURL
	}
	if !scheduleAt.IsZero() {
		published := false
		form.Published = &published
		form.ScheduledPublishTime = scheduleAt.Unix()
	}
	operation := "publish"
	if !scheduleAt.IsZero() {
		operation = "schedule"
	}
	resp, err := c.http.Do(ctx, &httpclient.Request{
		Method: http.MethodPost,
		URL:    c.endpoints.GraphBase + "/" + url.PathEscape(target) + "/" + edge,
		Form:   form,
		Class:  httpclient.ClassPublish,
	})
	if err != nil {
		return "", model.WrapProviderError(model.PlatformFacebook, operation, err)
	}
	if !resp.OK() {
		return "", resp.ProviderError(model.PlatformFacebook, operation)
	}
	if id := resp.Get("post_id").String(); id != "" {
		return id, nil
	}
	return resp.Get("id").String(), nil
}

func (c *Client) get(ctx context.Context, token, path, fields, operation string) (*httpclient.Response, error) {
	resp, err := c.http.Do(ctx, &httpclient.Request{
		URL:   c.endpoints.GraphBase + path,
		Query: httpclient.Values(fieldsQuery{Fields: fields, AccessToken: token}),
	})
	if err != nil {
		return nil, model.WrapProviderError(model.PlatformFacebook, operation, err)
	}
	if !resp.OK() {
		return nil, resp.ProviderError(model.PlatformFacebook, operation)
	}
	return resp, nil
}

func (c *Client) Delete(ctx context.Context, token, id string) error {
	resp, err := c.http.Do(ctx, &httpclient.Request{
		Method: http.MethodDelete,
		URL:    c.endpoints.GraphBase + "/" + url.PathEscape(id),
		Query:  httpclient.Values(fieldsQuery{AccessToken: token}),
	})
	if err != nil {
		return model.WrapProviderError(model.PlatformFacebook, "delete", err)
	}
	if !resp.OK() {
		return resp.ProviderError(model.PlatformFacebook, "delete")
	}
	return nil
}

func (c *Client) GetPost(ctx context.Context, token, id string) (map[string]interface{}, error) {
	resp, err := c.get(ctx, token, "/"+url.PathEscape(id), "id,message,created_time,permalink_url,full_picture", "get_post")
	if err != nil {
		return nil, err
	}
	return resp.Map(""), nil
}

func (c *Client) Me(ctx context.Context, token string) (*model.UserProfile, error) {
	resp, err := c.get(ctx, token, "/me", "id,name,email,picture", "get_profile")
	if err != nil {
		return nil, err
	}
	id := resp.Get("id").String()
	if id == "" {
		return nil, model.NewProviderError(model.PlatformFacebook, "get_profile", resp.StatusCode, "response has no user id")
	}
	name := resp.Get("name").String()
	username := name
	if username == "" {
		username = id
	}
	return &model.UserProfile{
		ID:              id,
		Username:        username,
		Name:            name,
		ProfileImageURL: resp.Get("picture.data.url").String(),
		Extra:           map[string]interface{}{"email": resp.Get("email").String()},
	}, nil
}

// Pages lists the pages the user manages, with their linked Instagram business accounts.
func (c *Client) Pages(ctx context.Context, token string) ([]Page, error) {
	resp, err := c.get(ctx, token, "/me/accounts", "id,name,access_token,instagram_business_account", "list_pages")
	if err != nil {
		return nil, err
	}
	var pages []Page
	for _, p := range resp.Get("data").Array() {
		pages = append(pages, Page{
			ID:                  p.Get("id").String(),
			Name:                p.Get("name").String(),
			AccessToken:         p.Get("access_token").String(),
			InstagramBusinessID: p.Get("instagram_business_account.id").String(),
		})
	}
	return pages, nil
}

func (c *Client) Metrics(ctx context.Context, token, id string) (*model.PostMetrics, error) {
	resp, err := c.get(ctx, token, "/"+url.PathEscape(id),
		"shares,likes.summary(total_count).limit(0),comments.summary(total_count).limit(0)", "get_metrics")
	if err != nil {
		return nil, err
	}
	m := &model.PostMetrics{
		PostID:    id,
		Platform:  model.PlatformFacebook,
		Likes:     resp.Get("likes.summary.total_count").Int(),
		Comments:  resp.Get("comments.summary.total_count").Int(),
		Shares:    resp.Get("shares.count").Int(),
		FetchedAt: time.Now().UTC(),
	}
	m.Engagement = m.Likes + m.Comments + m.Shares
	return m, nil
}
