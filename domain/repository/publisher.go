package repository

import (
	"context"
	"time"

	"social-publisher/domain/model"
)

// IPublisher is the uniform contract every platform implements.
// PublishPost and SchedulePost never return Go errors: failures come back as a
// failed PublishResult carrying the typed error.
type IPublisher interface {
	Platform() model.Platform
	PublishPost(ctx context.Context, accessToken string, req *model.PublishRequest) *model.PublishResult
	SchedulePost(ctx context.Context, accessToken string, req *model.PublishRequest, at time.Time) *model.PublishResult
	UploadMedia(ctx context.Context, accessToken string, mediaURLs []string, opts model.PublishOptions) ([]model.MediaAsset, error)
	DeletePost(ctx context.Context, accessToken, postID string) error
	GetPost(ctx context.Context, accessToken, postID string) (map[string]interface{}, error)
	VerifyCredentials(ctx context.Context, accessToken string) *model.VerifyResult
	GetUserProfile(ctx context.Context, accessToken string) (*model.UserProfile, error)
	GetPostMetrics(ctx context.Context, accessToken, postID string) (*model.PostMetrics, error)
}

// IOAuthHandler performs the authorization-code flow for one platform.
type IOAuthHandler interface {
	Platform() model.Platform
	UsesPKCE() bool
	AuthCodeURL(client model.OAuthClient, state, codeVerifier string) string
	ExchangeCodeForToken(ctx context.Context, req model.TokenExchangeRequest) (*model.TokenBundle, error)
	RefreshAccessToken(ctx context.Context, req model.TokenRefreshRequest) (*model.TokenBundle, error)
}

// IActivityLogger receives audit events after publishing actions. It must not block the caller.
type IActivityLogger interface {
	Log(ctx context.Context, event *model.ActivityEvent)
}

// IActivitySink is one destination of activity events.
type IActivitySink interface {
	Write(ctx context.Context, event *model.ActivityEvent) error
}

// IAccountMetadata is implemented by publishers that need account identifiers beyond the
// token (Facebook page, Instagram business account, LinkedIn person URN). The result is
// stored as credential metadata when an account is connected.
type IAccountMetadata interface {
	AccountMetadata(ctx context.Context, accessToken string) (map[string]string, error)
}
