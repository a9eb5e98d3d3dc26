package instagram

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"social-publisher/domain/model"
	"social-publisher/infrastructure/clients/facebook"
	"social-publisher/infrastructure/httpclient"
)

// MaxCaptionLength is the longest caption the media endpoint accepts, in characters.
const MaxCaptionLength = 2200

// InsightMetrics are requested for every media item.
var InsightMetrics = []string{"engagement", "impressions", "reach", "likes", "comments", "saves", "shares"}

type Endpoints struct {
	GraphBase string
}

func (e Endpoints) withDefaults() Endpoints {
	if e.GraphBase == "" {
		e.GraphBase = facebook.DefaultGraphBase
	}
	return e
}

// Client calls the Instagram Graph API. Accounts are reached through the Facebook
// pages they are linked to, so it shares the Graph base URL with the facebook client.
type Client struct {
	http      *httpclient.Client
	endpoints Endpoints
	pages     *facebook.Client
}

func NewClient(hc *httpclient.Client, endpoints Endpoints) *Client {
	e := endpoints.withDefaults()
	return &Client{
		http:      hc,
		endpoints: e,
		pages:     facebook.NewClient(hc, facebook.Endpoints{GraphBase: e.GraphBase}),
	}
}

func PostURL(id string) string { return "https://www.instagram.com/p/" + id }

type containerForm struct {
	ImageURL    string `url:"image_url"`
	Caption     string `url:"caption,omitempty"`
	AccessToken string `url:"access_token"`
}

type publishForm struct {
	CreationID  string `url:"creation_id"`
	AccessToken string `url:"access_token"`
}

type graphQuery struct {
	Fields      string `url:"fields,omitempty"`
	Metric      string `url:"metric,omitempty"`
	AccessToken string `url:"access_token"`
}

// CreateContainer stages an image for publishing and returns the container id.
func (c *Client) CreateContainer(ctx context.Context, token, accountID, imageURL, caption string) (string, error) {
	return c.post(ctx, "/"+url.PathEscape(accountID)+"/media", "create_container",
		containerForm{ImageURL: imageURL, Caption: caption, AccessToken: token})
}

// PublishContainer publishes a staged container and returns the media id.
func (c *Client) PublishContainer(ctx context.Context, token, accountID, creationID string) (string, error) {
	return c.post(ctx, "/"+url.PathEscape(accountID)+"/media_publish", "publish",
		publishForm{CreationID: creationID, AccessToken: token})
}

func (c *Client) post(ctx context.Context, path, operation string, form interface{}) (string, error) {
	resp, err := c.http.Do(ctx, &httpclient.Request{
		Method: http.MethodPost,
		URL:    c.endpoints.GraphBase + path,
		Form:   form,
		Class:  httpclient.ClassPublish,
	})
	if err != nil {
		return "", model.WrapProviderError(model.PlatformInstagram, operation, err)
	}
	if !resp.OK() {
		return "", resp.ProviderError(model.PlatformInstagram, operation)
	}
	id := resp.Get("id").String()
	if id == "" {
		return "", model.NewProviderError(model.PlatformInstagram, operation, resp.StatusCode, "response has no id")
	}
	return id, nil
}

func (c *Client) get(ctx context.Context, path, operation string, q graphQuery) (*httpclient.Response, error) {
	resp, err := c.http.Do(ctx, &httpclient.Request{
		URL:   c.endpoints.GraphBase + path,
		Query: httpclient.Values(q),
	})
	if err != nil {
		return nil, model.WrapProviderError(model.PlatformInstagram, operation, err)
	}
	if !resp.OK() {
		return nil, resp.ProviderError(model.PlatformInstagram, operation)
	}
	return resp, nil
}

// BusinessAccountID returns the first Instagram business account linked to one of the user's pages.
func (c *Client) BusinessAccountID(ctx context.Context, token string) (string, error) {
	pages, err := c.pages.Pages(ctx, token)
	if err != nil {
		return "", model.WrapProviderError(model.PlatformInstagram, "list_accounts", err)
	}
	for _, p := range pages {
		if p.InstagramBusinessID != "" {
			return p.InstagramBusinessID, nil
		}
	}
	return "", model.NewProviderError(model.PlatformInstagram, "list_accounts", 0, "no Instagram business account is linked to the user's pages")
}

func (c *Client) Profile(ctx context.Context, token, accountID string) (*model.UserProfile, error) {
	resp, err := c.get(ctx, "/"+url.PathEscape(accountID), "get_profile", graphQuery{
		Fields:      "id,username,name,profile_picture_url,followers_count,media_count",
		AccessToken: token,
	})
	if err != nil {
		return nil, err
	}
	return &model.UserProfile{
		ID:              resp.Get("id").String(),
		Username:        resp.Get("username").String(),
		Name:            resp.Get("name").String(),
		ProfileImageURL: resp.Get("profile_picture_url").String(),
		FollowersCount:  resp.Get("followers_count").Int(),
		Extra:           map[string]interface{}{"media_count": resp.Get("media_count").Int()},
	}, nil
}

func (c *Client) GetMedia(ctx context.Context, token, id string) (map[string]interface{}, error) {
	resp, err := c.get(ctx, "/"+url.PathEscape(id), "get_post", graphQuery{
		Fields:      "id,caption,media_type,media_url,permalink,timestamp,like_count,comments_count",
		AccessToken: token,
	})
	if err != nil {
		return nil, err
	}
	return resp.Map(""), nil
}

// Insights reads the media insights. Metrics outside the common view are kept in Extra.
func (c *Client) Insights(ctx context.Context, token, id string) (*model.PostMetrics, error) {
	resp, err := c.get(ctx, "/"+url.PathEscape(id)+"/insights", "get_metrics", graphQuery{
		Metric:      strings.Join(InsightMetrics, ","),
		AccessToken: token,
	})
	if err != nil {
		return nil, err
	}
	m := &model.PostMetrics{PostID: id, Platform: model.PlatformInstagram, Extra: map[string]int64{}, FetchedAt: time.Now().UTC()}
	for _, item := range resp.Get("data").Array() {
		value := item.Get("values.0.value").Int()
		switch name := item.Get("name").String(); name {
		case "likes":
			m.Likes = value
		case "comments":
			m.Comments = value
		case "shares":
			m.Shares = value
		case "impressions":
			m.Impressions = value
		case "engagement":
			m.Engagement = value
		default:
			m.Extra[name] = value
		}
	}
	return m, nil
}

func captionLength(s string) int { return utf8.RuneCountInString(s) }
