package linkedin

import (
	"context"
	"fmt"

	"social-publisher/domain/model"
	"social-publisher/infrastructure/logger"
)

// Uploader registers and uploads feed images for a member.
type Uploader struct {
	client *Client
}

func NewUploader(client *Client) *Uploader { return &Uploader{client: client} }

// Upload downloads mediaURL, registers an upload owned by personURN and PUTs the bytes.
func (u *Uploader) Upload(ctx context.Context, token, personURN, mediaURL string) (*model.MediaAsset, error) {
	media, err := u.client.http.Download(ctx, mediaURL)
	if err != nil {
		return nil, model.WrapProviderError(model.PlatformLinkedIn, "upload_media", err)
	}
	uploadURL, asset, err := u.client.RegisterUpload(ctx, token, personURN)
	if err != nil {
		return nil, err
	}
	if err := u.client.PutBytes(ctx, token, uploadURL, media); err != nil {
		return nil, err
	}
	return &model.MediaAsset{Platform: model.PlatformLinkedIn, Reference: asset, Status: "READY", SourceURL: mediaURL}, nil
}

// UploadAll uploads each URL, logging and skipping failures.
func (u *Uploader) UploadAll(ctx context.Context, token, personURN string, mediaURLs []string) ([]model.MediaAsset, error) {
	assets := make([]model.MediaAsset, 0, len(mediaURLs))
	failed := 0
	for _, mediaURL := range mediaURLs {
		asset, err := u.Upload(ctx, token, personURN, mediaURL)
		if err != nil {
			failed++
			logger.GetLogger().
				WithField("platform", model.PlatformLinkedIn).
				WithField("media_url", mediaURL).
				WithField("error", err).
				Warn("Skipping media item that failed to upload")
			continue
		}
		assets = append(assets, *asset)
	}
	if failed > 0 {
		return assets, &model.PlatformError{
			Kind:      model.KindPartialMediaFailure,
			Platform:  model.PlatformLinkedIn,
			Operation: "upload_media",
			Message:   fmt.Sprintf("%d of %d media items failed to upload", failed, len(mediaURLs)),
		}
	}
	return assets, nil
}
