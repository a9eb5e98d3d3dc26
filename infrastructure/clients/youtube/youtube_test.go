package youtube

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
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

type upload struct {
	contentType string
	auth        string
	query       url.Values
	meta        map[string]interface{}
	partType    string
	video       []byte
}

type fakeYouTube struct {
	uploads []upload
	deleted []string
}

func (f *fakeYouTube) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.URL.Path == "/media/clip.mp4":
		w.Header().Set("Content-Type", "video/mp4")
		_, _ = w.Write([]byte("fake-mp4-bytes"))
	case r.URL.Path == "/upload/youtube/v3/videos":
		u := upload{contentType: r.Header.Get("Content-Type"), auth: r.Header.Get("Authorization"), query: r.URL.Query()}
		_, params, _ := mime.ParseMediaType(u.contentType)
		mr := multipart.NewReader(r.Body, params["boundary"])
		if part, err := mr.NextPart(); err == nil {
			_ = json.NewDecoder(part).Decode(&u.meta)
		}
		if part, err := mr.NextPart(); err == nil {
			u.partType = part.Header.Get("Content-Type")
			u.video, _ = io.ReadAll(part)
		}
		f.uploads = append(f.uploads, u)
		_, _ = w.Write([]byte(`{"id":"dQw4w9WgXcQ","status":{"uploadStatus":"uploaded"}}`))
	case r.URL.Path == "/youtube/v3/videos" && r.Method == http.MethodDelete:
		f.deleted = append(f.deleted, r.URL.Query().Get("id"))
		w.WriteHeader(http.StatusNoContent)
	case r.URL.Path == "/youtube/v3/videos":
		if r.URL.Query().Get("id") == "missing" {
			_, _ = w.Write([]byte(`{"items":[]}`))
			return
		}
		_, _ = w.Write([]byte(`{"items":[{"id":"dQw4w9WgXcQ",
			"snippet":{"title":"Launch","description":"desc","categoryId":"22"},
			"status":{"privacyStatus":"public","uploadStatus":"processed"},
			"statistics":{"viewCount":"1000","likeCount":"50","commentCount":"7","favoriteCount":"0"}}]}`))
	case r.URL.Path == "/youtube/v3/channels":
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"code":401,"message":"Request had invalid authentication credentials."}}`))
			return
		}
		_, _ = w.Write([]byte(`{"items":[{"id":"UC123","snippet":{"title":"Acme","customUrl":"@acme"},
			"statistics":{"subscriberCount":"4200","videoCount":"31","viewCount":"99000"}}]}`))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func setup(t *testing.T) (*fakeYouTube, *httptest.Server, *httpclient.Client, Endpoints) {
	t.Helper()
	fake := &fakeYouTube{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	endpoints := Endpoints{APIBase: srv.URL + "/youtube/v3/", UploadURL: srv.URL + "/upload/youtube/v3/videos"}
	return fake, srv, httpclient.NewClient(srv.Client(), httpclient.Timeouts{}, 0), endpoints
}

func TestPublisher_MultipartUpload(t *testing.T) {
	fake, srv, hc, endpoints := setup(t)

	res := NewPublisher(hc, endpoints).PublishPost(context.Background(), "tok", &model.PublishRequest{
		Content:   "Our launch video",
		MediaURLs: []string{srv.URL + "/media/clip.mp4"},
		Options:   model.YouTubeOptions{Title: "Launch", Tags: []string{"launch", "demo"}},
	})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "dQw4w9WgXcQ", res.PostID)
	assert.Equal(t, "https://www.youtube.com/watch?v=dQw4w9WgXcQ", res.URL)

	require.Len(t, fake.uploads, 1)
	u := fake.uploads[0]
	assert.True(t, strings.HasPrefix(u.contentType, "multipart/related"))
	_, params, err := mime.ParseMediaType(u.contentType)
	require.NoError(t, err)
	assert.Regexp(t, `^===============youtube-[0-9a-f]+==$`, params["boundary"])
	assert.Equal(t, "multipart", u.query.Get("uploadType"))
	assert.Equal(t, "snippet,status", u.query.Get("part"))
	assert.Equal(t, "Bearer tok", u.auth)

	snippet := u.meta["snippet"].(map[string]interface{})
	assert.Equal(t, "Launch", snippet["title"])
	assert.Equal(t, "Our launch video", snippet["description"])
	assert.Equal(t, DefaultCategoryID, snippet["categoryId"])
	assert.Equal(t, []interface{}{"launch", "demo"}, snippet["tags"])
	status := u.meta["status"].(map[string]interface{})
	assert.Equal(t, DefaultPrivacyStatus, status["privacyStatus"])
	assert.NotContains(t, status, "publishAt")

	assert.Equal(t, "video/mp4", u.partType)
	assert.Equal(t, []byte("fake-mp4-bytes"), u.video)
}

func TestPublisher_ScheduleSetsPublishAt(t *testing.T) {
	fake, srv, hc, endpoints := setup(t)
	at := time.Date(2030, 5, 1, 12, 0, 0, 0, time.UTC)

	res := NewPublisher(hc, endpoints).SchedulePost(context.Background(), "tok", &model.PublishRequest{
		MediaURLs: []string{srv.URL + "/media/clip.mp4"},
		Options:   model.YouTubeOptions{Title: "Later", PrivacyStatus: "public"},
	}, at)
	require.True(t, res.Success, res.Error)

	status := fake.uploads[0].meta["status"].(map[string]interface{})
	assert.Equal(t, "private", status["privacyStatus"])
	assert.Equal(t, "2030-05-01T12:00:00Z", status["publishAt"])
}

func TestPublisher_ValidationMakesNoCalls(t *testing.T) {
	transport := &countingTransport{}
	hc := httpclient.NewClient(&http.Client{Transport: transport}, httpclient.Timeouts{}, 0)
	p := NewPublisher(hc, Endpoints{})

	res := p.PublishPost(context.Background(), "tok", &model.PublishRequest{MediaURLs: []string{"https://cdn.example.com/a.mp4"}})
	assert.Equal(t, model.KindInvalidRequest, res.ErrorKind)
	assert.Contains(t, res.Error, "title")

	res = p.PublishPost(context.Background(), "tok", &model.PublishRequest{Options: model.YouTubeOptions{Title: "t"}})
	assert.Equal(t, model.KindInvalidRequest, res.ErrorKind)

	assert.Equal(t, int32(0), atomic.LoadInt32(&transport.calls))
}

func TestPublisher_ReadThroughService(t *testing.T) {
	fake, _, hc, endpoints := setup(t)
	p := NewPublisher(hc, endpoints)

	post, err := p.GetPost(context.Background(), "tok", "dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.Equal(t, "Launch", post["title"])
	assert.Equal(t, "public", post["privacy_status"])

	m, err := p.GetPostMetrics(context.Background(), "tok", "dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), m.Impressions)
	assert.Equal(t, int64(50), m.Likes)
	assert.Equal(t, int64(7), m.Comments)
	assert.Equal(t, int64(57), m.Engagement)

	_, err = p.GetPost(context.Background(), "tok", "missing")
	var pe *model.PlatformError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, http.StatusNotFound, pe.StatusCode)

	require.NoError(t, p.DeletePost(context.Background(), "tok", "dQw4w9WgXcQ"))
	assert.Equal(t, []string{"dQw4w9WgXcQ"}, fake.deleted)
}

func TestPublisher_ProfileAndVerify(t *testing.T) {
	_, _, hc, endpoints := setup(t)
	p := NewPublisher(hc, endpoints)

	profile, err := p.GetUserProfile(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "UC123", profile.ID)
	assert.Equal(t, "@acme", profile.Username)
	assert.Equal(t, int64(4200), profile.FollowersCount)

	v := p.VerifyCredentials(context.Background(), "expired")
	assert.False(t, v.Valid)
	assert.Contains(t, v.Error, "invalid authentication credentials")
}

func TestOAuthHandler_OfflineConsentAndRefresh(t *testing.T) {
	var form url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		form = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"ya29.new","expires_in":3599,"token_type":"Bearer","scope":"https://www.googleapis.com/auth/youtube.upload"}`))
	}))
	defer srv.Close()
	hc := httpclient.NewClient(srv.Client(), httpclient.Timeouts{}, 0)
	h := NewOAuthHandler(hc, Endpoints{TokenURL: srv.URL + "/token"})

	authURL, err := url.Parse(h.AuthCodeURL(model.OAuthClient{ClientID: "cid", RedirectURI: "https://app/cb"}, "st", ""))
	require.NoError(t, err)
	assert.Equal(t, "offline", authURL.Query().Get("access_type"))
	assert.Equal(t, "consent", authURL.Query().Get("prompt"))
	assert.Contains(t, authURL.Query().Get("scope"), "youtube.upload")

	b, err := h.RefreshAccessToken(context.Background(), model.TokenRefreshRequest{RefreshToken: "1//keep", ClientID: "cid", ClientSecret: "sec"})
	require.NoError(t, err)
	assert.Equal(t, "refresh_token", form.Get("grant_type"))
	assert.Equal(t, "ya29.new", b.AccessToken)
	assert.Equal(t, "1//keep", b.RefreshToken)
	assert.InDelta(t, 3599, b.ExpiresIn, 2)
}

func TestMultipartBodyLayout(t *testing.T) {
	body := multipartBody("B", []byte(`{"a":1}`), []byte("vid"))
	want := "--B\r\nContent-Type: application/json; charset=UTF-8\r\n\r\n{\"a\":1}\r\n--B\r\nContent-Type: video/mp4\r\n\r\nvid\r\n--B--\r\n"
	assert.True(t, bytes.Equal([]byte(want), body))
}
