package youtube

import (
	"context"
	"fmt"
	"time"

	"social-publisher/domain/model"
	"social-publisher/domain/repository"
	"social-publisher/infrastructure/httpclient"
	"social-publisher/infrastructure/logger"
)

type publisher struct {
	client *Client
}

func NewPublisher(hc *httpclient.Client, endpoints Endpoints) repository.IPublisher {
	return &publisher{client: NewClient(hc, endpoints)}
}

func (p *publisher) Platform() model.Platform { return model.PlatformYouTube }

func (p *publisher) PublishPost(ctx context.Context, token string, req *model.PublishRequest) *model.PublishResult {
	return p.upload(ctx, token, req, time.Time{})
}

// SchedulePost uploads the video as private with publishAt set.
func (p *publisher) SchedulePost(ctx context.Context, token string, req *model.PublishRequest, at time.Time) *model.PublishResult {
	if at.IsZero() {
		return model.Failed(model.PlatformYouTube, model.NewInvalidRequestError(model.PlatformYouTube, "schedule", "scheduled time is required"))
	}
	res := p.upload(ctx, token, req, at)
	if res.Success {
		res.Message = fmt.Sprintf("uploaded as private; goes public at %s", at.UTC().Format(time.RFC3339))
	}
	return res
}

func (p *publisher) upload(ctx context.Context, token string, req *model.PublishRequest, at time.Time) *model.PublishResult {
	opts, _ := req.Options.(model.YouTubeOptions)
	switch {
	case opts.Title == "":
		return model.Failed(model.PlatformYouTube, model.NewInvalidRequestError(model.PlatformYouTube, "publish", "YouTube videos require a title"))
	case len(req.MediaURLs) == 0:
		return model.Failed(model.PlatformYouTube, model.NewInvalidRequestError(model.PlatformYouTube, "publish", "YouTube posts require a video URL"))
	}
	id, err := p.client.Upload(ctx, token, req.MediaURLs[0], req.Content, opts, at)
	if err != nil {
		return model.Failed(model.PlatformYouTube, err)
	}
	return model.Succeeded(model.PlatformYouTube, id, VideoURL(id))
}

// UploadMedia is a pass-through; the video is uploaded together with its metadata at publish time.
func (p *publisher) UploadMedia(_ context.Context, _ string, mediaURLs []string, _ model.PublishOptions) ([]model.MediaAsset, error) {
	assets := make([]model.MediaAsset, 0, len(mediaURLs))
	for _, u := range mediaURLs {
		assets = append(assets, model.MediaAsset{Platform: model.PlatformYouTube, Reference: u, Status: "READY", SourceURL: u})
	}
	return assets, nil
}

func (p *publisher) DeletePost(ctx context.Context, token, postID string) error {
	return p.client.DeleteVideo(ctx, token, postID)
}

func (p *publisher) GetPost(ctx context.Context, token, postID string) (map[string]interface{}, error) {
	v, err := p.client.Video(ctx, token, postID)
	if err != nil {
		return nil, err
	}
	return VideoMap(v), nil
}

func (p *publisher) VerifyCredentials(ctx context.Context, token string) *model.VerifyResult {
	profile, err := p.client.MyChannel(ctx, token)
	if err != nil {
		logger.GetLogger().WithField("platform", model.PlatformYouTube).WithField("error", err).Warn("Credential verification failed")
		return &model.VerifyResult{Valid: false, Error: err.Error()}
	}
	return &model.VerifyResult{Valid: true, UserID: profile.ID, Username: profile.Username}
}

func (p *publisher) GetUserProfile(ctx context.Context, token string) (*model.UserProfile, error) {
	return p.client.MyChannel(ctx, token)
}

func (p *publisher) GetPostMetrics(ctx context.Context, token, postID string) (*model.PostMetrics, error) {
	v, err := p.client.Video(ctx, token, postID)
	if err != nil {
		return nil, err
	}
	return VideoMetrics(v), nil
}
