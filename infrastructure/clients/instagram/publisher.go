package instagram

import (
	"context"
	"fmt"
	"time"

	"social-publisher/domain/model"
	"social-publisher/domain/repository"
	"social-publisher/infrastructure/clients/facebook"
	"social-publisher/infrastructure/httpclient"
	"social-publisher/infrastructure/logger"
)

type publisher struct {
	client *Client
}

func NewPublisher(hc *httpclient.Client, endpoints Endpoints) repository.IPublisher {
	return &publisher{client: NewClient(hc, endpoints)}
}

// NewOAuthHandler is the Facebook login flow tagged as Instagram.
func NewOAuthHandler(hc *httpclient.Client, endpoints facebook.Endpoints) repository.IOAuthHandler {
	return facebook.NewOAuthHandler(hc, endpoints, model.PlatformInstagram)
}

func (p *publisher) Platform() model.Platform { return model.PlatformInstagram }

// PublishPost creates a media container for the first URL and publishes it.
func (p *publisher) PublishPost(ctx context.Context, token string, req *model.PublishRequest) *model.PublishResult {
	opts, _ := req.Options.(model.InstagramOptions)
	if err := validate(opts, req); err != nil {
		return model.Failed(model.PlatformInstagram, err)
	}
	creationID, err := p.client.CreateContainer(ctx, token, opts.InstagramAccountID, req.MediaURLs[0], req.Content)
	if err != nil {
		return model.Failed(model.PlatformInstagram, err)
	}
	id, err := p.client.PublishContainer(ctx, token, opts.InstagramAccountID, creationID)
	if err != nil {
		return model.Failed(model.PlatformInstagram, err)
	}
	return model.Succeeded(model.PlatformInstagram, id, PostURL(id))
}

func validate(opts model.InstagramOptions, req *model.PublishRequest) error {
	switch {
	case opts.InstagramAccountID == "":
		return model.NewInvalidRequestError(model.PlatformInstagram, "publish", "Instagram account id is required")
	case len(req.MediaURLs) == 0:
		return model.NewInvalidRequestError(model.PlatformInstagram, "publish", "Instagram posts require at least one media URL")
	case captionLength(req.Content) > MaxCaptionLength:
		return model.NewInvalidRequestError(model.PlatformInstagram, "publish",
			fmt.Sprintf("caption exceeds %d characters", MaxCaptionLength))
	}
	return nil
}

func (p *publisher) SchedulePost(_ context.Context, _ string, _ *model.PublishRequest, _ time.Time) *model.PublishResult {
	return model.Failed(model.PlatformInstagram,
		model.NewUnsupportedError(model.PlatformInstagram, "schedule", "Instagram API does not support scheduling; queue the post and publish it at the scheduled time"))
}

// UploadMedia is a pass-through; containers reference the URLs directly.
func (p *publisher) UploadMedia(_ context.Context, _ string, mediaURLs []string, _ model.PublishOptions) ([]model.MediaAsset, error) {
	assets := make([]model.MediaAsset, 0, len(mediaURLs))
	for _, u := range mediaURLs {
		assets = append(assets, model.MediaAsset{Platform: model.PlatformInstagram, Reference: u, Status: "READY", SourceURL: u})
	}
	return assets, nil
}

func (p *publisher) DeletePost(_ context.Context, _, _ string) error {
	return model.NewUnsupportedError(model.PlatformInstagram, "delete", "Instagram API does not support deleting media")
}

func (p *publisher) GetPost(ctx context.Context, token, postID string) (map[string]interface{}, error) {
	return p.client.GetMedia(ctx, token, postID)
}

func (p *publisher) VerifyCredentials(ctx context.Context, token string) *model.VerifyResult {
	id, err := p.client.BusinessAccountID(ctx, token)
	if err != nil {
		logger.GetLogger().WithField("platform", model.PlatformInstagram).WithField("error", err).Warn("Credential verification failed")
		return &model.VerifyResult{Valid: false, Error: err.Error()}
	}
	return &model.VerifyResult{Valid: true, UserID: id}
}

func (p *publisher) GetUserProfile(ctx context.Context, token string) (*model.UserProfile, error) {
	id, err := p.client.BusinessAccountID(ctx, token)
	if err != nil {
		return nil, err
	}
	return p.client.Profile(ctx, token, id)
}

func (p *publisher) GetPostMetrics(ctx context.Context, token, postID string) (*model.PostMetrics, error) {
	return p.client.Insights(ctx, token, postID)
}

func (p *publisher) AccountMetadata(ctx context.Context, token string) (map[string]string, error) {
	id, err := p.client.BusinessAccountID(ctx, token)
	if err != nil {
		return nil, err
	}
	return map[string]string{model.MetaInstagramAccountID: id}, nil
}
