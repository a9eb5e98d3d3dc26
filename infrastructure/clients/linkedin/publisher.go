package linkedin

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"social-publisher/domain/model"
	"social-publisher/domain/repository"
	"social-publisher/infrastructure/httpclient"
	"social-publisher/infrastructure/logger"
)

// DraftMessage explains the result of SchedulePost.
const DraftMessage = "LinkedIn does not support scheduled posts; the post was saved as a DRAFT and must be published manually or by the scheduler"

type publisher struct {
	client   *Client
	uploader *Uploader
}

func NewPublisher(hc *httpclient.Client, endpoints Endpoints) repository.IPublisher {
	client := NewClient(hc, endpoints)
	return &publisher{client: client, uploader: NewUploader(client)}
}

func (p *publisher) Platform() model.Platform { return model.PlatformLinkedIn }

func (p *publisher) PublishPost(ctx context.Context, token string, req *model.PublishRequest) *model.PublishResult {
	return p.create(ctx, token, req, LifecyclePublished)
}

// SchedulePost creates a DRAFT post; LinkedIn has no native scheduling.
func (p *publisher) SchedulePost(ctx context.Context, token string, req *model.PublishRequest, _ time.Time) *model.PublishResult {
	res := p.create(ctx, token, req, LifecycleDraft)
	if res.Success {
		res.Message = DraftMessage
	}
	return res
}

func (p *publisher) create(ctx context.Context, token string, req *model.PublishRequest, lifecycle string) *model.PublishResult {
	if utf8.RuneCountInString(req.Content) > MaxContentLength {
		return model.Failed(model.PlatformLinkedIn, model.NewInvalidRequestError(model.PlatformLinkedIn, "publish",
			fmt.Sprintf("content exceeds %d characters", MaxContentLength)))
	}
	opts, _ := req.Options.(model.LinkedInOptions)
	author, err := p.author(ctx, token, opts)
	if err != nil {
		return model.Failed(model.PlatformLinkedIn, err)
	}
	opts.PersonURN = author

	var assets []model.MediaAsset
	var mediaErr error
	if len(req.MediaURLs) > 0 {
		assets, mediaErr = p.UploadMedia(ctx, token, req.MediaURLs, opts)
	}
	id, err := p.client.CreatePost(ctx, token, newUGCPost(author, lifecycle, req.Content, opts.Visibility, assets))
	if err != nil {
		return model.Failed(model.PlatformLinkedIn, err)
	}
	res := model.Succeeded(model.PlatformLinkedIn, id, PostURL(id))
	if mediaErr != nil && res.Success {
		res.Message = mediaErr.Error()
	}
	return res
}

func (p *publisher) author(ctx context.Context, token string, opts model.LinkedInOptions) (string, error) {
	if opts.PersonURN != "" {
		return opts.PersonURN, nil
	}
	me, err := p.client.Me(ctx, token)
	if err != nil {
		return "", err
	}
	return PersonURN(me.ID), nil
}

func (p *publisher) UploadMedia(ctx context.Context, token string, mediaURLs []string, opts model.PublishOptions) ([]model.MediaAsset, error) {
	o, _ := opts.(model.LinkedInOptions)
	owner, err := p.author(ctx, token, o)
	if err != nil {
		return nil, err
	}
	return p.uploader.UploadAll(ctx, token, owner, mediaURLs)
}

func (p *publisher) DeletePost(ctx context.Context, token, postID string) error {
	return p.client.DeletePost(ctx, token, postID)
}

func (p *publisher) GetPost(ctx context.Context, token, postID string) (map[string]interface{}, error) {
	return p.client.GetPost(ctx, token, postID)
}

func (p *publisher) VerifyCredentials(ctx context.Context, token string) *model.VerifyResult {
	me, err := p.client.Me(ctx, token)
	if err != nil {
		logger.GetLogger().WithField("platform", model.PlatformLinkedIn).WithField("error", err).Warn("Credential verification failed")
		return &model.VerifyResult{Valid: false, Error: err.Error()}
	}
	return &model.VerifyResult{Valid: true, UserID: me.ID, Username: me.Name}
}

func (p *publisher) GetUserProfile(ctx context.Context, token string) (*model.UserProfile, error) {
	return p.client.Me(ctx, token)
}

func (p *publisher) GetPostMetrics(ctx context.Context, token, postID string) (*model.PostMetrics, error) {
	return p.client.Metrics(ctx, token, postID)
}

func (p *publisher) AccountMetadata(ctx context.Context, token string) (map[string]string, error) {
	me, err := p.client.Me(ctx, token)
	if err != nil {
		return nil, err
	}
	return map[string]string{model.MetaPersonURN: PersonURN(me.ID)}, nil
}
