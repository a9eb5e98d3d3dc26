package facebook

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"social-publisher/domain/model"
	"social-publisher/domain/repository"
	"social-publisher/infrastructure/httpclient"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	method string
	path   string
	params url.Values
}

type recorder struct {
	mu      sync.Mutex
	calls   []call
	respond func(r *http.Request, params url.Values) (int, string)
}

func (rec *recorder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	rec.mu.Lock()
	rec.calls = append(rec.calls, call{method: r.Method, path: r.URL.Path, params: r.Form})
	rec.mu.Unlock()
	status, body := rec.respond(r, r.Form)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func newServer(t *testing.T, respond func(r *http.Request, params url.Values) (int, string)) (*recorder, *httpclient.Client, Endpoints) {
	t.Helper()
	rec := &recorder{respond: respond}
	srv := httptest.NewServer(rec)
	t.Cleanup(srv.Close)
	return rec, httpclient.NewClient(srv.Client(), httpclient.Timeouts{}, 0), Endpoints{GraphBase: srv.URL + "/v18.0"}
}

func okPost(*http.Request, url.Values) (int, string) {
	return http.StatusOK, `{"id":"page_1"}`
}

func TestPublisher_FeedWithoutMedia(t *testing.T) {
	rec, hc, endpoints := newServer(t, func(r *http.Request, params url.Values) (int, string) {
		if strings.HasSuffix(r.URL.Path, "/me/accounts") {
			return http.StatusOK, `{"data":[{"id":"99","name":"Other","access_token":"page-99-token"},{"id":"123","name":"Acme","access_token":"page-123-token"}]}`
		}
		return okPost(r, params)
	})

	res := NewPublisher(hc, endpoints).PublishPost(context.Background(), "user-token", &model.PublishRequest{
		Content: "Hello page",
		Options: model.FacebookOptions{PageID: "123"},
	})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "page_1", res.PostID)
	assert.Equal(t, "https://www.facebook.com/page_1", res.URL)

	require.Len(t, rec.calls, 2)
	assert.Equal(t, "/v18.0/me/accounts", rec.calls[0].path)
	assert.Equal(t, "user-token", rec.calls[0].params.Get("access_token"))
	assert.Equal(t, http.MethodPost, rec.calls[1].method)
	assert.Equal(t, "/v18.0/123/feed", rec.calls[1].path)
	assert.Equal(t, "Hello page", rec.calls[1].params.Get("message"))
	assert.Equal(t, "page-123-token", rec.calls[1].params.Get("access_token"))
	assert.Empty(t, rec.calls[1].params.Get("url"))
}

func TestPublisher_UnlistedPageKeepsStoredToken(t *testing.T) {
	rec, hc, endpoints := newServer(t, func(r *http.Request, params url.Values) (int, string) {
		if strings.HasSuffix(r.URL.Path, "/me/accounts") {
			return http.StatusOK, `{"data":[]}`
		}
		return okPost(r, params)
	})

	at := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	res := NewPublisher(hc, endpoints).SchedulePost(context.Background(), "stored-page-token", &model.PublishRequest{
		Content: "Soon",
		Options: model.FacebookOptions{PageID: "555"},
	}, at)
	require.True(t, res.Success, res.Error)

	require.Len(t, rec.calls, 2)
	assert.Equal(t, "/v18.0/555/feed", rec.calls[1].path)
	assert.Equal(t, "stored-page-token", rec.calls[1].params.Get("access_token"))
}

func TestPublisher_PhotosWithMedia(t *testing.T) {
	rec, hc, endpoints := newServer(t, func(*http.Request, url.Values) (int, string) {
		return http.StatusOK, `{"id":"photo_9","post_id":"123_9"}`
	})

	res := NewPublisher(hc, endpoints).PublishPost(context.Background(), "tok", &model.PublishRequest{
		Content:   "Look",
		MediaURLs: []string{"https://cdn.example.com/a.jpg", "https://cdn.example.com/b.jpg"},
	})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "123_9", res.PostID)

	require.Len(t, rec.calls, 1)
	assert.Equal(t, "/v18.0/me/photos", rec.calls[0].path)
	assert.Equal(t, "https://cdn.example.com/a.jpg", rec.calls[0].params.Get("url"))
}

func TestPublisher_ScheduleIsNative(t *testing.T) {
	rec, hc, endpoints := newServer(t, okPost)
	at := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)

	res := NewPublisher(hc, endpoints).SchedulePost(context.Background(), "tok", &model.PublishRequest{Content: "Soon"}, at)
	require.True(t, res.Success, res.Error)
	assert.Contains(t, res.Message, "2030-01-02T03:04:05Z")

	require.Len(t, rec.calls, 1)
	assert.Equal(t, "/v18.0/me/feed", rec.calls[0].path)
	assert.Equal(t, "false", rec.calls[0].params.Get("published"))
	assert.Equal(t, "1893553445", rec.calls[0].params.Get("scheduled_publish_time"))
}

func TestPublisher_ProviderErrorNormalized(t *testing.T) {
	_, hc, endpoints := newServer(t, func(*http.Request, url.Values) (int, string) {
		return http.StatusBadRequest, `{"error":{"message":"(#200) Permissions error","type":"OAuthException","code":200}}`
	})

	res := NewPublisher(hc, endpoints).PublishPost(context.Background(), "tok", &model.PublishRequest{Content: "x"})
	assert.False(t, res.Success)
	assert.Equal(t, model.PlatformFacebook, res.Platform)
	assert.Contains(t, res.Error, "Permissions error")
}

func TestOAuthHandler_TwoStepExchangeInOrder(t *testing.T) {
	rec, hc, endpoints := newServer(t, func(_ *http.Request, params url.Values) (int, string) {
		if params.Get("grant_type") == "fb_exchange_token" {
			return http.StatusOK, `{"access_token":"long-lived","token_type":"bearer"}`
		}
		return http.StatusOK, `{"access_token":"short-lived","token_type":"bearer","expires_in":3600}`
	})

	h := NewOAuthHandler(hc, endpoints, model.PlatformFacebook)
	b, err := h.ExchangeCodeForToken(context.Background(), model.TokenExchangeRequest{
		Code: "code-1", ClientID: "app", ClientSecret: "secret", RedirectURI: "https://app/cb",
	})
	require.NoError(t, err)
	assert.Equal(t, "long-lived", b.AccessToken)
	assert.Equal(t, int64(DefaultLongLivedExpiresIn), b.ExpiresIn)

	require.Len(t, rec.calls, 2)
	first, second := rec.calls[0], rec.calls[1]
	assert.Equal(t, http.MethodGet, first.method)
	assert.Equal(t, "/v18.0/oauth/access_token", first.path)
	assert.Equal(t, "code-1", first.params.Get("code"))
	assert.Empty(t, first.params.Get("grant_type"))
	assert.Equal(t, "fb_exchange_token", second.params.Get("grant_type"))
	assert.Equal(t, "short-lived", second.params.Get("fb_exchange_token"))
}

func TestOAuthHandler_ExchangeFailureIsTagged(t *testing.T) {
	rec, hc, endpoints := newServer(t, func(*http.Request, url.Values) (int, string) {
		return http.StatusBadRequest, `{"error":{"message":"Error validating verification code.","type":"OAuthException","code":100}}`
	})

	h := NewOAuthHandler(hc, endpoints, model.PlatformInstagram)
	_, err := h.ExchangeCodeForToken(context.Background(), model.TokenExchangeRequest{Code: "bad", ClientID: "app"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrOAuth))
	var pe *model.PlatformError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, model.OperationTokenExchange, pe.Operation)
	assert.Equal(t, model.PlatformInstagram, pe.Platform)
	assert.Equal(t, http.StatusBadRequest, pe.StatusCode)
	assert.Len(t, rec.calls, 1)
}

func TestOAuthHandler_ErrorFieldWithOKStatus(t *testing.T) {
	_, hc, endpoints := newServer(t, func(*http.Request, url.Values) (int, string) {
		return http.StatusOK, `{"error":{"message":"Invalid token"}}`
	})
	_, err := NewOAuthHandler(hc, endpoints, "").RefreshAccessToken(context.Background(), model.TokenRefreshRequest{AccessToken: "old"})
	var pe *model.PlatformError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, model.OperationTokenRefresh, pe.Operation)
	assert.Equal(t, model.PlatformFacebook, pe.Platform)
}

func TestOAuthHandler_RefreshExtendsCurrentToken(t *testing.T) {
	rec, hc, endpoints := newServer(t, func(*http.Request, url.Values) (int, string) {
		return http.StatusOK, `{"access_token":"extended","expires_in":5100000}`
	})
	b, err := NewOAuthHandler(hc, endpoints, model.PlatformFacebook).RefreshAccessToken(context.Background(),
		model.TokenRefreshRequest{AccessToken: "current", ClientID: "app", ClientSecret: "s"})
	require.NoError(t, err)
	assert.Equal(t, "extended", b.AccessToken)
	assert.Equal(t, int64(5100000), b.ExpiresIn)
	assert.Equal(t, "fb_extend_token", rec.calls[0].params.Get("grant_type"))
	assert.Equal(t, "current", rec.calls[0].params.Get("fb_exchange_token"))
}

func TestOAuthHandler_AuthCodeURL(t *testing.T) {
	h := NewOAuthHandler(nil, Endpoints{}, model.PlatformFacebook)
	u := h.AuthCodeURL(model.OAuthClient{ClientID: "app", RedirectURI: "https://app/cb", Scopes: []string{"pages_show_list", "pages_manage_posts"}}, "st", "")
	assert.True(t, strings.HasPrefix(u, DefaultAuthURL+"?"))
	parsed, err := url.Parse(u)
	require.NoError(t, err)
	assert.Equal(t, "pages_show_list,pages_manage_posts", parsed.Query().Get("scope"))
	assert.Equal(t, "st", parsed.Query().Get("state"))
}

func TestClient_PagesAndMetrics(t *testing.T) {
	_, hc, endpoints := newServer(t, func(r *http.Request, _ url.Values) (int, string) {
		if strings.HasSuffix(r.URL.Path, "/me/accounts") {
			return http.StatusOK, `{"data":[{"id":"p1","name":"Acme","access_token":"pt","instagram_business_account":{"id":"ig1"}}]}`
		}
		return http.StatusOK, `{"shares":{"count":3},"likes":{"summary":{"total_count":12}},"comments":{"summary":{"total_count":4}}}`
	})
	c := NewClient(hc, endpoints)

	pages, err := c.Pages(context.Background(), "tok")
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, Page{ID: "p1", Name: "Acme", AccessToken: "pt", InstagramBusinessID: "ig1"}, pages[0])

	m, err := c.Metrics(context.Background(), "tok", "123_9")
	require.NoError(t, err)
	assert.Equal(t, int64(12), m.Likes)
	assert.Equal(t, int64(4), m.Comments)
	assert.Equal(t, int64(3), m.Shares)
	assert.Equal(t, int64(19), m.Engagement)
}

func TestPublisher_AccountMetadataUsesFirstPage(t *testing.T) {
	_, hc, endpoints := newServer(t, func(r *http.Request, _ url.Values) (int, string) {
		return http.StatusOK, `{"data":[{"id":"p1","name":"Acme","instagram_business_account":{"id":"ig1"}},{"id":"p2","name":"Other"}]}`
	})
	p, ok := NewPublisher(hc, endpoints).(repository.IAccountMetadata)
	require.True(t, ok)

	meta, err := p.AccountMetadata(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		model.MetaPageID:             "p1",
		model.MetaPageName:           "Acme",
		model.MetaInstagramAccountID: "ig1",
	}, meta)
}
