package tiktok

import (
	"context"
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

func (p *publisher) Platform() model.Platform { return model.PlatformTikTok }

// PublishPost asks TikTok to pull the first media URL as a video. The returned post id is the
// publish id; processing continues on TikTok's side.
func (p *publisher) PublishPost(ctx context.Context, token string, req *model.PublishRequest) *model.PublishResult {
	if len(req.MediaURLs) == 0 {
		return model.Failed(model.PlatformTikTok,
			model.NewInvalidRequestError(model.PlatformTikTok, "publish", "TikTok posts require a video URL"))
	}
	opts, _ := req.Options.(model.TikTokOptions)
	id, err := p.client.InitVideo(ctx, token, req.Content, req.MediaURLs[0], opts)
	if err != nil {
		return model.Failed(model.PlatformTikTok, err)
	}
	res := model.Succeeded(model.PlatformTikTok, id, "")
	res.Message = "video submitted; TikTok processes it asynchronously"
	return res
}

func (p *publisher) SchedulePost(_ context.Context, _ string, _ *model.PublishRequest, _ time.Time) *model.PublishResult {
	return model.Failed(model.PlatformTikTok,
		model.NewUnsupportedError(model.PlatformTikTok, "schedule", "TikTok API does not support scheduling; queue the post and publish it at the scheduled time"))
}

// UploadMedia is a pass-through; TikTok pulls the video from its URL at publish time.
func (p *publisher) UploadMedia(_ context.Context, _ string, mediaURLs []string, _ model.PublishOptions) ([]model.MediaAsset, error) {
	assets := make([]model.MediaAsset, 0, len(mediaURLs))
	for _, u := range mediaURLs {
		assets = append(assets, model.MediaAsset{Platform: model.PlatformTikTok, Reference: u, Status: "READY", SourceURL: u})
	}
	return assets, nil
}

func (p *publisher) DeletePost(_ context.Context, _, _ string) error {
	return model.NewUnsupportedError(model.PlatformTikTok, "delete", "TikTok API does not support deleting videos")
}

func (p *publisher) GetPost(ctx context.Context, token, postID string) (map[string]interface{}, error) {
	return p.client.PublishStatus(ctx, token, postID)
}

func (p *publisher) VerifyCredentials(ctx context.Context, token string) *model.VerifyResult {
	profile, err := p.client.UserInfo(ctx, token)
	if err != nil {
		logger.GetLogger().WithField("platform", model.PlatformTikTok).WithField("error", err).Warn("Credential verification failed")
		return &model.VerifyResult{Valid: false, Error: err.Error()}
	}
	return &model.VerifyResult{Valid: true, UserID: profile.ID, Username: profile.Username}
}

func (p *publisher) GetUserProfile(ctx context.Context, token string) (*model.UserProfile, error) {
	return p.client.UserInfo(ctx, token)
}

func (p *publisher) GetPostMetrics(ctx context.Context, token, postID string) (*model.PostMetrics, error) {
	return p.client.VideoMetrics(ctx, token, postID)
}
