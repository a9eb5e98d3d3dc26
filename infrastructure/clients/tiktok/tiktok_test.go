package tiktok

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"social-publisher/domain/model"
	"social-publisher/infrastructure/httpclient"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingTransport struct{ calls int32 }

func (c *countingTransport) RoundTrip(*http.Request) (*http.Response, error) {
	atomic.AddInt32(&c.calls, 1)
	return nil, errors.New("network disabled")
}

func offline() (*countingTransport, *httpclient.Client) {
	transport := &countingTransport{}
	return transport, httpclient.NewClient(&http.Client{Transport: transport}, httpclient.Timeouts{}, 0)
}

func serve(t *testing.T, handler http.HandlerFunc) (*httpclient.Client, Endpoints) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return httpclient.NewClient(srv.Client(), httpclient.Timeouts{}, 0), Endpoints{APIBase: srv.URL}
}

func TestPublisher_InitPayloadShape(t *testing.T) {
	var body map[string]interface{}
	var auth, path string
	hc, endpoints := serve(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		auth = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		_, _ = w.Write([]byte(`{"data":{"publish_id":"v_pub_url~v2.123"},"error":{"code":"ok","message":""}}`))
	})

	res := NewPublisher(hc, endpoints).PublishPost(context.Background(), "tok", &model.PublishRequest{
		Content:   strings.Repeat("a", MaxTitleLength+50),
		MediaURLs: []string{"https://cdn.example.com/clip.mp4", "https://cdn.example.com/ignored.mp4"},
		Options:   model.TikTokOptions{DisableDuet: true, IsAIGC: true},
	})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "v_pub_url~v2.123", res.PostID)
	assert.Equal(t, "/v2/post/publish/video/init/", path)
	assert.Equal(t, "Bearer tok", auth)

	info := body["post_info"].(map[string]interface{})
	assert.Len(t, info["title"], MaxTitleLength)
	assert.Equal(t, DefaultPrivacyLevel, info["privacy_level"])
	assert.Equal(t, true, info["disable_duet"])
	assert.Equal(t, false, info["disable_comment"])
	assert.Equal(t, false, info["disable_stitch"])
	assert.Equal(t, true, info["is_aigc"])

	source := body["source_info"].(map[string]interface{})
	assert.Equal(t, SourcePullFromURL, source["source"])
	assert.Equal(t, "https://cdn.example.com/clip.mp4", source["video_url"])
}

func TestPublisher_ErrorCodeOnOKStatus(t *testing.T) {
	hc, endpoints := serve(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{},"error":{"code":"spam_risk_too_many_posts","message":"The daily post cap is reached"}}`))
	})
	res := NewPublisher(hc, endpoints).PublishPost(context.Background(), "tok", &model.PublishRequest{
		MediaURLs: []string{"https://cdn.example.com/clip.mp4"},
		Options:   model.TikTokOptions{PrivacyLevel: "SELF_ONLY"},
	})
	assert.False(t, res.Success)
	assert.Equal(t, model.KindProviderAPI, res.ErrorKind)
	assert.Contains(t, res.Error, "daily post cap")
}

func TestPublisher_UnsupportedAndValidationMakeNoCalls(t *testing.T) {
	transport, hc := offline()
	p := NewPublisher(hc, Endpoints{})

	res := p.SchedulePost(context.Background(), "tok", &model.PublishRequest{MediaURLs: []string{"https://cdn.example.com/a.mp4"}}, time.Now().Add(time.Hour))
	assert.Equal(t, model.KindUnsupported, res.ErrorKind)
	assert.Contains(t, res.Error, "does not support scheduling")

	assert.True(t, errors.Is(p.DeletePost(context.Background(), "tok", "v1"), model.ErrUnsupported))

	res = p.PublishPost(context.Background(), "tok", &model.PublishRequest{Content: "no video"})
	assert.Equal(t, model.KindInvalidRequest, res.ErrorKind)

	assert.Equal(t, int32(0), atomic.LoadInt32(&transport.calls))
}

func TestPublisher_ProfileMetricsAndStatus(t *testing.T) {
	hc, endpoints := serve(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v2/user/info/":
			assert.Equal(t, "open_id,union_id,avatar_url,display_name", r.URL.Query().Get("fields"))
			_, _ = w.Write([]byte(`{"data":{"user":{"open_id":"open-1","union_id":"u-1","avatar_url":"https://p16/a.jpg","display_name":"Ann"}},"error":{"code":"ok"}}`))
		case "/v2/video/query/":
			var req struct {
				Filters struct {
					VideoIDs []string `json:"video_ids"`
				} `json:"filters"`
			}
			_ = json.NewDecoder(r.Body).Decode(&req)
			assert.Equal(t, []string{"7300"}, req.Filters.VideoIDs)
			_, _ = w.Write([]byte(`{"data":{"videos":[{"id":"7300","like_count":10,"comment_count":2,"share_count":1,"view_count":900}]},"error":{"code":"ok"}}`))
		case "/v2/post/publish/status/fetch/":
			_, _ = w.Write([]byte(`{"data":{"status":"PUBLISH_COMPLETE"},"error":{"code":"ok"}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	p := NewPublisher(hc, endpoints)

	v := p.VerifyCredentials(context.Background(), "tok")
	require.True(t, v.Valid, v.Error)
	assert.Equal(t, "open-1", v.UserID)
	assert.Equal(t, "Ann", v.Username)

	m, err := p.GetPostMetrics(context.Background(), "tok", "7300")
	require.NoError(t, err)
	assert.Equal(t, int64(900), m.Impressions)
	assert.Equal(t, int64(13), m.Engagement)

	status, err := p.GetPost(context.Background(), "tok", "v_pub_url~v2.123")
	require.NoError(t, err)
	assert.Equal(t, "PUBLISH_COMPLETE", status["status"])
}

func TestOAuthHandler_ExchangeSendsClientKey(t *testing.T) {
	var form url.Values
	hc, endpoints := serve(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/oauth/token/", r.URL.Path)
		_ = r.ParseForm()
		form = r.PostForm
		_, _ = w.Write([]byte(`{"access_token":"act.1","expires_in":86400,"open_id":"open-1","refresh_token":"rft.1","scope":"user.info.basic,video.publish","token_type":"Bearer"}`))
	})

	b, err := NewOAuthHandler(hc, endpoints).ExchangeCodeForToken(context.Background(), model.TokenExchangeRequest{
		Code: "c", ClientID: "key", ClientSecret: "secret", RedirectURI: "https://app/cb",
	})
	require.NoError(t, err)
	assert.Equal(t, "key", form.Get("client_key"))
	assert.Empty(t, form.Get("client_id"))
	assert.Equal(t, "authorization_code", form.Get("grant_type"))
	assert.Equal(t, "act.1", b.AccessToken)
	assert.Equal(t, "rft.1", b.RefreshToken)
	assert.Equal(t, "open-1", b.UserID)
	assert.Equal(t, int64(86400), b.ExpiresIn)
}

func TestOAuthHandler_RefreshAndFailure(t *testing.T) {
	var grant string
	hc, endpoints := serve(t, func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		grant = r.PostForm.Get("grant_type")
		if r.PostForm.Get("refresh_token") == "expired" {
			_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Refresh token is invalid or expired."}`))
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"act.2","refresh_token":"rft.2","expires_in":86400}`))
	})
	h := NewOAuthHandler(hc, endpoints)

	b, err := h.RefreshAccessToken(context.Background(), model.TokenRefreshRequest{RefreshToken: "rft.1", ClientID: "key"})
	require.NoError(t, err)
	assert.Equal(t, "refresh_token", grant)
	assert.Equal(t, "act.2", b.AccessToken)

	_, err = h.RefreshAccessToken(context.Background(), model.TokenRefreshRequest{RefreshToken: "expired", ClientID: "key"})
	var pe *model.PlatformError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, model.KindOAuth, pe.Kind)
	assert.Equal(t, model.OperationTokenRefresh, pe.Operation)
	assert.Contains(t, pe.Message, "Refresh token is invalid")
}

func TestOAuthHandler_AuthCodeURL(t *testing.T) {
	u, err := url.Parse(NewOAuthHandler(nil, Endpoints{}).AuthCodeURL(model.OAuthClient{
		ClientID: "key", RedirectURI: "https://app/cb", Scopes: []string{"user.info.basic", "video.publish"},
	}, "st", ""))
	require.NoError(t, err)
	assert.Equal(t, "www.tiktok.com", u.Host)
	assert.Equal(t, "key", u.Query().Get("client_key"))
	assert.Equal(t, "user.info.basic,video.publish", u.Query().Get("scope"))
}
