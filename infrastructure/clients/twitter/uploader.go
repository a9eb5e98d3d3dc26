package twitter

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"social-publisher/domain/model"
	"social-publisher/infrastructure/httpclient"
	"social-publisher/infrastructure/logger"
)

// SimpleUploadLimit is the largest payload sent in a single upload call; larger media goes chunked.
const SimpleUploadLimit = 5 * 1024 * 1024

// ChunkSize bounds each APPEND segment.
const ChunkSize = 5 * 1024 * 1024

type simpleUploadForm struct {
	MediaData     string `url:"media_data"`
	MediaCategory string `url:"media_category"`
}

type initForm struct {
	Command       string `url:"command"`
	TotalBytes    int    `url:"total_bytes"`
	MediaType     string `url:"media_type"`
	MediaCategory string `url:"media_category"`
}

type appendForm struct {
	Command      string `url:"command"`
	MediaID      string `url:"media_id"`
	SegmentIndex int    `url:"segment_index"`
	MediaData    string `url:"media_data"`
}

type finalizeForm struct {
	Command string `url:"command"`
	MediaID string `url:"media_id"`
}

// Uploader re-uploads remote media to Twitter.
type Uploader struct {
	client      *Client
	simpleLimit int
	chunkSize   int
}

func NewUploader(client *Client) *Uploader {
	return &Uploader{client: client, simpleLimit: SimpleUploadLimit, chunkSize: ChunkSize}
}

// MediaCategory maps a MIME type to the upload category.
func MediaCategory(mimeType string) string {
	switch {
	case strings.HasPrefix(mimeType, "video/"), mimeType == "application/mp4":
		return "tweet_video"
	case mimeType == "image/gif":
		return "tweet_gif"
	default:
		return "tweet_image"
	}
}

// UploadAll uploads every URL in order. Failed items are logged and skipped; when any item
// failed the returned error is a partial_media_failure alongside the successful assets.
func (u *Uploader) UploadAll(ctx context.Context, token string, mediaURLs []string) ([]model.MediaAsset, error) {
	assets := make([]model.MediaAsset, 0, len(mediaURLs))
	failed := 0
	for _, mediaURL := range mediaURLs {
		id, err := u.Upload(ctx, token, mediaURL)
		if err != nil {
			failed++
			logger.GetLogger().
				WithField("platform", model.PlatformTwitter).
				WithField("media_url", mediaURL).
				WithField("error", err).
				Warn("Skipping media item that failed to upload")
			continue
		}
		assets = append(assets, model.MediaAsset{Platform: model.PlatformTwitter, Reference: id, Status: "uploaded", SourceURL: mediaURL})
	}
	if failed > 0 {
		return assets, &model.PlatformError{
			Kind:      model.KindPartialMediaFailure,
			Platform:  model.PlatformTwitter,
			Operation: "upload_media",
			Message:   fmt.Sprintf("%d of %d media items failed to upload", failed, len(mediaURLs)),
		}
	}
	return assets, nil
}

// Upload downloads mediaURL and returns the Twitter media id.
func (u *Uploader) Upload(ctx context.Context, token, mediaURL string) (string, error) {
	media, err := u.client.http.Download(ctx, mediaURL)
	if err != nil {
		return "", model.WrapProviderError(model.PlatformTwitter, "upload_media", err)
	}
	category := MediaCategory(media.ContentType)
	if len(media.Data) <= u.simpleLimit {
		return u.simpleUpload(ctx, token, media.Data, category)
	}
	return u.chunkedUpload(ctx, token, media, category)
}

func (u *Uploader) simpleUpload(ctx context.Context, token string, data []byte, category string) (string, error) {
	return u.call(ctx, token, "upload", simpleUploadForm{
		MediaData:     base64.StdEncoding.EncodeToString(data),
		MediaCategory: category,
	}, true)
}

func (u *Uploader) chunkedUpload(ctx context.Context, token string, media *httpclient.Media, category string) (string, error) {
	mediaID, err := u.call(ctx, token, "upload_init", initForm{
		Command:       "INIT",
		TotalBytes:    len(media.Data),
		MediaType:     media.ContentType,
		MediaCategory: category,
	}, true)
	if err != nil {
		return "", err
	}
	segment := 0
	for offset := 0; offset < len(media.Data); offset += u.chunkSize {
		end := offset + u.chunkSize
		if end > len(media.Data) {
			end = len(media.Data)
		}
		if _, err := u.call(ctx, token, "upload_append", appendForm{
			Command:      "APPEND",
			MediaID:      mediaID,
			SegmentIndex: segment,
			MediaData:    base64.StdEncoding.EncodeToString(media.Data[offset:end]),
		}, false); err != nil {
			return "", err
		}
		segment++
	}
	if _, err := u.call(ctx, token, "upload_finalize", finalizeForm{Command: "FINALIZE", MediaID: mediaID}, false); err != nil {
		return "", err
	}
	return mediaID, nil
}

// call posts one upload command. When wantID is set the response must carry media_id_string.
func (u *Uploader) call(ctx context.Context, token, operation string, form interface{}, wantID bool) (string, error) {
	resp, err := u.client.http.Do(ctx, &httpclient.Request{
		Method: http.MethodPost,
		URL:    u.client.endpoints.UploadURL,
		Bearer: token,
		Form:   form,
		Class:  httpclient.ClassMedia,
	})
	if err != nil {
		return "", model.WrapProviderError(model.PlatformTwitter, operation, err)
	}
	if !resp.OK() {
		return "", resp.ProviderError(model.PlatformTwitter, operation)
	}
	if !wantID {
		return "", nil
	}
	id := resp.Get("media_id_string").String()
	if id == "" {
		return "", model.NewProviderError(model.PlatformTwitter, operation, resp.StatusCode, "response has no media id")
	}
	return id, nil
}
