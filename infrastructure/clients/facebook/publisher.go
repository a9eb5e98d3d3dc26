package facebook

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

func (p *publisher) Platform() model.Platform { return model.PlatformFacebook }

// PublishPost posts text to the feed, or the first media URL to photos.
func (p *publisher) PublishPost(ctx context.Context, token string, req *model.PublishRequest) *model.PublishResult {
	opts, _ := req.Options.(model.FacebookOptions)
	id, err := p.client.Post(ctx, p.pageToken(ctx, token, opts.PageID), opts.PageID, req.Content, firstURL(req.MediaURLs), time.Time{})
	if err != nil {
		return model.Failed(model.PlatformFacebook, err)
	}
	return model.Succeeded(model.PlatformFacebook, id, PostURL(id))
}

// SchedulePost uses native scheduling on the same endpoints.
func (p *publisher) SchedulePost(ctx context.Context, token string, req *model.PublishRequest, at time.Time) *model.PublishResult {
	if at.IsZero() {
		return model.Failed(model.PlatformFacebook, model.NewInvalidRequestError(model.PlatformFacebook, "schedule", "scheduled time is required"))
	}
	opts, _ := req.Options.(model.FacebookOptions)
	id, err := p.client.Post(ctx, p.pageToken(ctx, token, opts.PageID), opts.PageID, req.Content, firstURL(req.MediaURLs), at)
	if err != nil {
		return model.Failed(model.PlatformFacebook, err)
	}
	res := model.Succeeded(model.PlatformFacebook, id, PostURL(id))
	res.Message = fmt.Sprintf("scheduled for %s", at.UTC().Format(time.RFC3339))
	return res
}

// UploadMedia is a pass-through; the Graph API fetches media URLs itself.
func (p *publisher) UploadMedia(_ context.Context, _ string, mediaURLs []string, _ model.PublishOptions) ([]model.MediaAsset, error) {
	assets := make([]model.MediaAsset, 0, len(mediaURLs))
	for _, u := range mediaURLs {
		assets = append(assets, model.MediaAsset{Platform: model.PlatformFacebook, Reference: u, Status: "READY", SourceURL: u})
	}
	return assets, nil
}

func (p *publisher) DeletePost(ctx context.Context, token, postID string) error {
	return p.client.Delete(ctx, token, postID)
}

func (p *publisher) GetPost(ctx context.Context, token, postID string) (map[string]interface{}, error) {
	return p.client.GetPost(ctx, token, postID)
}

func (p *publisher) VerifyCredentials(ctx context.Context, token string) *model.VerifyResult {
	me, err := p.client.Me(ctx, token)
	if err != nil {
		logger.GetLogger().WithField("platform", model.PlatformFacebook).WithField("error", err).Warn("Credential verification failed")
		return &model.VerifyResult{Valid: false, Error: err.Error()}
	}
	return &model.VerifyResult{Valid: true, UserID: me.ID, Username: me.Username}
}

func (p *publisher) GetUserProfile(ctx context.Context, token string) (*model.UserProfile, error) {
	return p.client.Me(ctx, token)
}

func (p *publisher) GetPostMetrics(ctx context.Context, token, postID string) (*model.PostMetrics, error) {
	return p.client.Metrics(ctx, token, postID)
}

// pageToken swaps the user token for the page's own access token, which the Graph API
// requires for posting to a page feed. The user token is kept when the page is not among
// the user's managed pages, since the stored credential may already be a page token.
func (p *publisher) pageToken(ctx context.Context, token, pageID string) string {
	if pageID == "" || pageID == "me" {
		return token
	}
	pages, err := p.client.Pages(ctx, token)
	if err != nil {
		logger.GetLogger().
			WithField("platform", model.PlatformFacebook).
			WithField("page_id", pageID).
			WithField("error", err).
			Warn("Could not list managed pages, posting with the stored token")
		return token
	}
	for _, page := range pages {
		if page.ID == pageID && page.AccessToken != "" {
			return page.AccessToken
		}
	}
	return token
}

func firstURL(urls []string) string {
	if len(urls) == 0 {
		return ""
	}
	return urls[0]
}

// AccountMetadata records the first managed page, which becomes the default publish target.
func (p *publisher) AccountMetadata(ctx context.Context, token string) (map[string]string, error) {
	pages, err := p.client.Pages(ctx, token)
	if err != nil {
		return nil, err
	}
	meta := map[string]string{}
	if len(pages) > 0 {
		meta[model.MetaPageID] = pages[0].ID
		meta[model.MetaPageName] = pages[0].Name
		if pages[0].InstagramBusinessID != "" {
			meta[model.MetaInstagramAccountID] = pages[0].InstagramBusinessID
		}
	}
	return meta, nil
}
