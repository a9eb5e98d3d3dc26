package linkedin

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"social-publisher/domain/model"
	"social-publisher/infrastructure/httpclient"
)

const (
	DefaultAPIBase  = "https://api.linkedin.com/v2"
	DefaultAuthURL  = "https://www.linkedin.com/oauth/v2/authorization"
	DefaultTokenURL = "https://www.linkedin.com/oauth/v2/accessToken"

	// MaxContentLength is the longest share commentary accepted.
	MaxContentLength = 3000

	restliHeader  = "X-Restli-Protocol-Version"
	restliVersion = "2.0.0"
	shareContent  = "com.linkedin.ugc.ShareContent"
	memberNetwork = "com.linkedin.ugc.MemberNetworkVisibility"
	uploadRequest = "com.linkedin.digitalmedia.uploading.MediaUploadHttpRequest"
)

// Lifecycle states of a UGC post.
const (
	LifecyclePublished = "PUBLISHED"
	LifecycleDraft     = "DRAFT"
)

type Endpoints struct {
	APIBase  string
	AuthURL  string
	TokenURL string
}

func (e Endpoints) withDefaults() Endpoints {
	if e.APIBase == "" {
		e.APIBase = DefaultAPIBase
	}
	if e.AuthURL == "" {
		e.AuthURL = DefaultAuthURL
	}
	if e.TokenURL == "" {
		e.TokenURL = DefaultTokenURL
	}
	return e
}

// Client wraps the LinkedIn v2 REST API.
type Client struct {
	http      *httpclient.Client
	endpoints Endpoints
}

func NewClient(hc *httpclient.Client, endpoints Endpoints) *Client {
	return &Client{http: hc, endpoints: endpoints.withDefaults()}
}

func PostURL(id string) string { return "https://www.linkedin.com/feed/update/" + id }

// PersonURN builds the member URN for a profile id.
func PersonURN(id string) string { return "urn:li:person:" + id }

func (c *Client) request(method, path, token string, class httpclient.Class) *httpclient.Request {
	return &httpclient.Request{
		Method: method,
		URL:    c.endpoints.APIBase + path,
		Bearer: token,
		Header: map[string]string{restliHeader: restliVersion},
		Class:  class,
	}
}

// Me returns the authenticated member.
func (c *Client) Me(ctx context.Context, token string) (*model.UserProfile, error) {
	resp, err := c.http.Do(ctx, c.request(http.MethodGet, "/me", token, httpclient.ClassMetadata))
	if err != nil {
		return nil, model.WrapProviderError(model.PlatformLinkedIn, "get_profile", err)
	}
	if !resp.OK() {
		return nil, resp.ProviderError(model.PlatformLinkedIn, "get_profile")
	}
	id := resp.Get("id").String()
	if id == "" {
		return nil, model.NewProviderError(model.PlatformLinkedIn, "get_profile", resp.StatusCode, "response has no member id")
	}
	name := strings.TrimSpace(resp.Get("localizedFirstName").String() + " " + resp.Get("localizedLastName").String())
	return &model.UserProfile{
		ID:       id,
		Username: name,
		Name:     name,
		Extra: map[string]interface{}{
			"person_urn": PersonURN(id),
			"headline":   resp.Get("localizedHeadline").String(),
		},
	}, nil
}

type ugcMedia struct {
	Status string `json:"status"`
	Media  string `json:"media"`
}

type shareCommentary struct {
	Text string `json:"text"`
}

type ugcShareContent struct {
	ShareCommentary    shareCommentary `json:"shareCommentary"`
	ShareMediaCategory string          `json:"shareMediaCategory"`
	Media              []ugcMedia      `json:"media,omitempty"`
}

type ugcPost struct {
	Author          string                     `json:"author"`
	LifecycleState  string                     `json:"lifecycleState"`
	SpecificContent map[string]ugcShareContent `json:"specificContent"`
	Visibility      map[string]string          `json:"visibility"`
}

func newUGCPost(author, lifecycle, text, visibility string, assets []model.MediaAsset) ugcPost {
	content := ugcShareContent{ShareCommentary: shareCommentary{Text: text}, ShareMediaCategory: "NONE"}
	if len(assets) > 0 {
		content.ShareMediaCategory = "IMAGE"
		for _, a := range assets {
			content.Media = append(content.Media, ugcMedia{Status: a.Status, Media: a.Reference})
		}
	}
	if visibility == "" {
		visibility = "PUBLIC"
	}
	return ugcPost{
		Author:          author,
		LifecycleState:  lifecycle,
		SpecificContent: map[string]ugcShareContent{shareContent: content},
		Visibility:      map[string]string{memberNetwork: visibility},
	}
}

// CreatePost creates a UGC post and returns the id from the X-RestLi-Id header.
func (c *Client) CreatePost(ctx context.Context, token string, post ugcPost) (string, error) {
	req := c.request(http.MethodPost, "/ugcPosts", token, httpclient.ClassPublish)
	req.JSON = post
	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return "", model.WrapProviderError(model.PlatformLinkedIn, "publish", err)
	}
	if !resp.OK() {
		return "", resp.ProviderError(model.PlatformLinkedIn, "publish")
	}
	id := resp.Header.Get("X-RestLi-Id")
	if id == "" {
		id = resp.Get("id").String()
	}
	return id, nil
}

type registerUploadRequest struct {
	RegisterUploadRequest registerUpload `json:"registerUploadRequest"`
}

type registerUpload struct {
	Recipes              []string              `json:"recipes"`
	Owner                string                `json:"owner"`
	ServiceRelationships []serviceRelationship `json:"serviceRelationships"`
}

type serviceRelationship struct {
	RelationshipType string `json:"relationshipType"`
	Identifier       string `json:"identifier"`
}

// RegisterUpload declares a feed image owned by owner and returns the upload URL and asset URN.
func (c *Client) RegisterUpload(ctx context.Context, token, owner string) (string, string, error) {
	req := c.request(http.MethodPost, "/assets?action=registerUpload", token, httpclient.ClassMedia)
	req.JSON = registerUploadRequest{RegisterUploadRequest: registerUpload{
		Recipes: []string{"urn:li:digitalmediaRecipe:feedshare-image"},
		Owner:   owner,
		ServiceRelationships: []serviceRelationship{{
			RelationshipType: "OWNER",
			Identifier:       "urn:li:userGeneratedContent",
		}},
	}}
	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return "", "", model.WrapProviderError(model.PlatformLinkedIn, "register_upload", err)
	}
	if !resp.OK() {
		return "", "", resp.ProviderError(model.PlatformLinkedIn, "register_upload")
	}
	// gjson paths treat dots as separators, so the mechanism key is escaped.
	uploadURL := resp.Get(`value.uploadMechanism.` + escapePath(uploadRequest) + `.uploadUrl`).String()
	asset := resp.Get("value.asset").String()
	if uploadURL == "" || asset == "" {
		return "", "", model.NewProviderError(model.PlatformLinkedIn, "register_upload", resp.StatusCode, "response has no upload url or asset")
	}
	return uploadURL, asset, nil
}

// PutBytes uploads raw media bytes to a URL returned by RegisterUpload.
func (c *Client) PutBytes(ctx context.Context, token, uploadURL string, media *httpclient.Media) error {
	resp, err := c.http.Do(ctx, &httpclient.Request{
		Method:      http.MethodPut,
		URL:         uploadURL,
		Bearer:      token,
		Body:        media.Data,
		ContentType: media.ContentType,
		Class:       httpclient.ClassMedia,
	})
	if err != nil {
		return model.WrapProviderError(model.PlatformLinkedIn, "upload_media", err)
	}
	if !resp.OK() {
		return resp.ProviderError(model.PlatformLinkedIn, "upload_media")
	}
	return nil
}

func (c *Client) DeletePost(ctx context.Context, token, id string) error {
	resp, err := c.http.Do(ctx, c.request(http.MethodDelete, "/ugcPosts/"+url.PathEscape(id), token, httpclient.ClassMetadata))
	if err != nil {
		return model.WrapProviderError(model.PlatformLinkedIn, "delete", err)
	}
	if !resp.OK() {
		return resp.ProviderError(model.PlatformLinkedIn, "delete")
	}
	return nil
}

func (c *Client) GetPost(ctx context.Context, token, id string) (map[string]interface{}, error) {
	resp, err := c.http.Do(ctx, c.request(http.MethodGet, "/ugcPosts/"+url.PathEscape(id), token, httpclient.ClassMetadata))
	if err != nil {
		return nil, model.WrapProviderError(model.PlatformLinkedIn, "get_post", err)
	}
	if !resp.OK() {
		return nil, resp.ProviderError(model.PlatformLinkedIn, "get_post")
	}
	return resp.Map(""), nil
}

func (c *Client) Metrics(ctx context.Context, token, id string) (*model.PostMetrics, error) {
	req := c.request(http.MethodGet, "/socialMetadata/"+url.PathEscape(id), token, httpclient.ClassMetadata)
	req.Query = url.Values{"fields": {"totalShareStatistics"}}
	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return nil, model.WrapProviderError(model.PlatformLinkedIn, "get_metrics", err)
	}
	if !resp.OK() {
		return nil, resp.ProviderError(model.PlatformLinkedIn, "get_metrics")
	}
	stats := resp.Get("value.totalShareStatistics")
	if !stats.Exists() {
		stats = resp.Get("totalShareStatistics")
	}
	m := &model.PostMetrics{
		PostID:      id,
		Platform:    model.PlatformLinkedIn,
		Likes:       stats.Get("likeCount").Int(),
		Shares:      stats.Get("shareCount").Int(),
		Comments:    stats.Get("commentCount").Int(),
		Impressions: stats.Get("impressionCount").Int(),
		Extra:       map[string]int64{"clicks": stats.Get("clickCount").Int(), "unique_impressions": stats.Get("uniqueImpressionsCount").Int()},
		FetchedAt:   time.Now().UTC(),
	}
	m.Engagement = m.Likes + m.Shares + m.Comments
	return m, nil
}

func escapePath(key string) string {
	return strings.ReplaceAll(key, ".", `\.`)
}
