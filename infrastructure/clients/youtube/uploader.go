package youtube

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"social-publisher/domain/model"
	"social-publisher/infrastructure/httpclient"
)

const (
	DefaultCategoryID    = "22"
	DefaultPrivacyStatus = "private"
)

type snippet struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	CategoryID  string   `json:"categoryId"`
	Tags        []string `json:"tags,omitempty"`
}

type status struct {
	PrivacyStatus string `json:"privacyStatus"`
	PublishAt     string `json:"publishAt,omitempty"`
}

type videoMetadata struct {
	Snippet snippet `json:"snippet"`
	Status  status  `json:"status"`
}

func newVideoMetadata(content string, opts model.YouTubeOptions, publishAt time.Time) videoMetadata {
	m := videoMetadata{
		Snippet: snippet{
			Title:       opts.Title,
			Description: content,
			CategoryID:  opts.CategoryID,
			Tags:        opts.Tags,
		},
		Status: status{PrivacyStatus: opts.PrivacyStatus},
	}
	if m.Snippet.CategoryID == "" {
		m.Snippet.CategoryID = DefaultCategoryID
	}
	if m.Status.PrivacyStatus == "" {
		m.Status.PrivacyStatus = DefaultPrivacyStatus
	}
	if !publishAt.IsZero() {
		m.Status.PrivacyStatus = "private"
		m.Status.PublishAt = publishAt.UTC().Format(time.RFC3339)
	}
	return m
}

func newBoundary() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return "===============youtube-" + hex.EncodeToString(b) + "=="
}

// multipartBody builds a multipart/related body with the JSON metadata part followed by the video part.
func multipartBody(boundary string, meta []byte, video []byte) []byte {
	var buf bytes.Buffer
	buf.WriteString("--" + boundary + "\r\n")
	buf.WriteString("Content-Type: application/json; charset=UTF-8\r\n\r\n")
	buf.Write(meta)
	buf.WriteString("\r\n--" + boundary + "\r\n")
	buf.WriteString("Content-Type: video/mp4\r\n\r\n")
	buf.Write(video)
	buf.WriteString("\r\n--" + boundary + "--\r\n")
	return buf.Bytes()
}

// Upload downloads videoURL and uploads it with its metadata in one multipart request.
// A non-zero publishAt uploads the video as private, to go public at that time.
func (c *Client) Upload(ctx context.Context, token, videoURL, content string, opts model.YouTubeOptions, publishAt time.Time) (string, error) {
	operation := "publish"
	if !publishAt.IsZero() {
		operation = "schedule"
	}
	media, err := c.http.Download(ctx, videoURL)
	if err != nil {
		return "", model.WrapProviderError(model.PlatformYouTube, "upload_media", err)
	}
	meta, err := json.Marshal(newVideoMetadata(content, opts, publishAt))
	if err != nil {
		return "", model.WrapProviderError(model.PlatformYouTube, operation, err)
	}
	boundary := newBoundary()
	resp, err := c.http.Do(ctx, &httpclient.Request{
		Method:      http.MethodPost,
		URL:         c.endpoints.UploadURL,
		Query:       url.Values{"uploadType": {"multipart"}, "part": {"snippet,status"}},
		Bearer:      token,
		Body:        multipartBody(boundary, meta, media.Data),
		ContentType: `multipart/related; boundary="` + boundary + `"`,
		Class:       httpclient.ClassMedia,
	})
	if err != nil {
		return "", model.WrapProviderError(model.PlatformYouTube, operation, err)
	}
	if !resp.OK() {
		return "", resp.ProviderError(model.PlatformYouTube, operation)
	}
	id := resp.Get("id").String()
	if id == "" {
		return "", model.NewProviderError(model.PlatformYouTube, operation, resp.StatusCode, "response has no video id")
	}
	return id, nil
}
