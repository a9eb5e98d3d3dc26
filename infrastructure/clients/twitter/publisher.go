package twitter

import (
	"context"
	"time"

	"social-publisher/domain/model"
	"social-publisher/domain/repository"
	"social-publisher/infrastructure/httpclient"
	"social-publisher/infrastructure/logger"
)

type publisher struct {
	client   *Client
	uploader *Uploader
}

func NewPublisher(hc *httpclient.Client, endpoints Endpoints) repository.IPublisher {
	client := NewClient(hc, endpoints)
	return &publisher{client: client, uploader: NewUploader(client)}
}

func (p *publisher) Platform() model.Platform { return model.PlatformTwitter }

func (p *publisher) PublishPost(ctx context.Context, token string, req *model.PublishRequest) *model.PublishResult {
	opts, _ := req.Options.(model.TwitterOptions)

	var mediaIDs []string
	var mediaErr error
	if len(req.MediaURLs) > 0 {
		var assets []model.MediaAsset
		assets, mediaErr = p.UploadMedia(ctx, token, req.MediaURLs, opts)
		for _, a := range assets {
			mediaIDs = append(mediaIDs, a.Reference)
		}
	}

	id, err := p.client.CreateTweet(ctx, token, req.Content, mediaIDs, opts.ReplyToTweetID)
	if err != nil {
		return model.Failed(model.PlatformTwitter, err)
	}
	res := model.Succeeded(model.PlatformTwitter, id, PostURL(id))
	if mediaErr != nil && res.Success {
		res.Message = mediaErr.Error()
	}
	return res
}

func (p *publisher) SchedulePost(_ context.Context, _ string, _ *model.PublishRequest, _ time.Time) *model.PublishResult {
	return model.Failed(model.PlatformTwitter,
		model.NewUnsupportedError(model.PlatformTwitter, "schedule", "Twitter API does not support scheduling; queue the post and publish it at the scheduled time"))
}

func (p *publisher) UploadMedia(ctx context.Context, token string, mediaURLs []string, _ model.PublishOptions) ([]model.MediaAsset, error) {
	return p.uploader.UploadAll(ctx, token, mediaURLs)
}

func (p *publisher) DeletePost(ctx context.Context, token, postID string) error {
	return p.client.DeleteTweet(ctx, token, postID)
}

func (p *publisher) GetPost(ctx context.Context, token, postID string) (map[string]interface{}, error) {
	resp, err := p.client.GetTweet(ctx, token, postID, "created_at,public_metrics,attachments,author_id")
	if err != nil {
		return nil, err
	}
	return resp.Map("data"), nil
}

func (p *publisher) VerifyCredentials(ctx context.Context, token string) *model.VerifyResult {
	profile, err := p.client.Me(ctx, token)
	if err != nil {
		logger.GetLogger().WithField("platform", model.PlatformTwitter).WithField("error", err).Warn("Credential verification failed")
		return &model.VerifyResult{Valid: false, Error: err.Error()}
	}
	return &model.VerifyResult{Valid: true, UserID: profile.ID, Username: profile.Username}
}

func (p *publisher) GetUserProfile(ctx context.Context, token string) (*model.UserProfile, error) {
	return p.client.Me(ctx, token)
}

func (p *publisher) GetPostMetrics(ctx context.Context, token, postID string) (*model.PostMetrics, error) {
	return p.client.Metrics(ctx, token, postID)
}
