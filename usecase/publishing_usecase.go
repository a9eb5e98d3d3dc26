package usecase

import (
	"context"
	"fmt"
	"time"

	"social-publisher/domain/model"
	"social-publisher/domain/repository"
	"social-publisher/infrastructure/logger"
	"social-publisher/infrastructure/metrics"

	"golang.org/x/sync/errgroup"
)

type IPublishingUsecase interface {
	PublishToPlatform(ctx context.Context, workspaceID string, req *model.PublishRequest) *model.PublishResult
	// PublishToMultiplePlatforms publishes concurrently and returns one result per platform in input order.
	PublishToMultiplePlatforms(ctx context.Context, workspaceID string, platforms []model.Platform, contentByPlatform map[model.Platform]string, mediaURLs []string, optionsByPlatform map[model.Platform]model.PublishOptions) []*model.PublishResult
	SchedulePost(ctx context.Context, workspaceID string, req *model.PublishRequest, at time.Time) *model.PublishResult
	VerifyCredentials(ctx context.Context, workspaceID string, platform model.Platform) (*model.VerifyResult, error)
	GetPostMetrics(ctx context.Context, workspaceID string, platform model.Platform, postID string) (*model.PostMetrics, error)
	DeletePost(ctx context.Context, workspaceID string, platform model.Platform, postID string) error
	GetPost(ctx context.Context, workspaceID string, platform model.Platform, postID string) (map[string]interface{}, error)
	GetUserProfile(ctx context.Context, workspaceID string, platform model.Platform) (*model.UserProfile, error)
}

type publishingUsecase struct {
	resolver    *credentialResolver
	registry    *Registry
	activity    repository.IActivityLogger
	fanoutLimit int
}

// NewPublishingUsecase builds the façade. fanoutLimit <= 0 publishes to all platforms at once.
func NewPublishingUsecase(
	registry *Registry,
	credentials repository.ICredential,
	clients ClientConfigFunc,
	activity repository.IActivityLogger,
	fanoutLimit int,
) IPublishingUsecase {
	return newPublishingUsecase(registry, credentials, clients, activity, fanoutLimit, time.Now)
}

func newPublishingUsecase(
	registry *Registry,
	credentials repository.ICredential,
	clients ClientConfigFunc,
	activity repository.IActivityLogger,
	fanoutLimit int,
	now func() time.Time,
) *publishingUsecase {
	return &publishingUsecase{
		resolver: &credentialResolver{
			credentials: credentials,
			registry:    registry,
			clients:     clients,
			now:         now,
		},
		registry:    registry,
		activity:    activityOrNop(activity),
		fanoutLimit: fanoutLimit,
	}
}

func (u *publishingUsecase) PublishToPlatform(ctx context.Context, workspaceID string, req *model.PublishRequest) *model.PublishResult {
	return u.dispatch(ctx, workspaceID, req, model.ActionPublish, func(pub repository.IPublisher, token string, r *model.PublishRequest) *model.PublishResult {
		return pub.PublishPost(ctx, token, r)
	})
}

func (u *publishingUsecase) SchedulePost(ctx context.Context, workspaceID string, req *model.PublishRequest, at time.Time) *model.PublishResult {
	return u.dispatch(ctx, workspaceID, req, model.ActionSchedule, func(pub repository.IPublisher, token string, r *model.PublishRequest) *model.PublishResult {
		return pub.SchedulePost(ctx, token, r, at)
	})
}

type publishCall func(pub repository.IPublisher, token string, req *model.PublishRequest) *model.PublishResult

// dispatch resolves the credential and publisher, fills account defaults into the options and
// runs call. A missing credential fails before any provider call.
func (u *publishingUsecase) dispatch(ctx context.Context, workspaceID string, req *model.PublishRequest, action string, call publishCall) *model.PublishResult {
	start := time.Now()
	platform := req.Platform
	result := u.run(ctx, workspaceID, req, call)
	metrics.RecordOperation(platform, action, result.Success, time.Since(start))
	u.activity.Log(ctx, &model.ActivityEvent{
		WorkspaceID: workspaceID,
		Action:      action,
		Platform:    platform,
		Success:     result.Success,
		PostID:      result.PostID,
		Error:       result.Error,
		OccurredAt:  u.resolver.now().UTC(),
	})
	return result
}

func (u *publishingUsecase) run(ctx context.Context, workspaceID string, req *model.PublishRequest, call publishCall) *model.PublishResult {
	platform := req.Platform
	pub, err := u.registry.Publisher(platform)
	if err != nil {
		return model.Failed(platform, err)
	}
	cred, err := u.resolver.resolve(ctx, workspaceID, platform)
	if err != nil {
		return model.Failed(platform, err)
	}
	opts := req.Options
	if opts == nil {
		if opts, err = model.DecodeOptions(platform, nil); err != nil {
			return model.Failed(platform, err)
		}
	}
	prepared := *req
	prepared.Options = model.WithCredentialDefaults(platform, opts, cred)
	return call(pub, cred.AccessToken, &prepared)
}

func (u *publishingUsecase) PublishToMultiplePlatforms(
	ctx context.Context,
	workspaceID string,
	platforms []model.Platform,
	contentByPlatform map[model.Platform]string,
	mediaURLs []string,
	optionsByPlatform map[model.Platform]model.PublishOptions,
) []*model.PublishResult {
	results := make([]*model.PublishResult, len(platforms))
	var g errgroup.Group
	if u.fanoutLimit > 0 {
		g.SetLimit(u.fanoutLimit)
	}
	for i, platform := range platforms {
		i, platform := i, platform
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					logger.GetLogger().
						WithField("platform", platform).
						WithField("panic", r).
						Error("Publisher panicked during fan-out")
					results[i] = model.Failed(platform, model.WrapProviderError(platform, "publish", fmt.Errorf("publisher panic: %v", r)))
				}
			}()
			results[i] = u.PublishToPlatform(ctx, workspaceID, &model.PublishRequest{
				Platform:  platform,
				Content:   contentByPlatform[platform],
				MediaURLs: mediaURLs,
				Options:   optionsByPlatform[platform],
			})
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (u *publishingUsecase) VerifyCredentials(ctx context.Context, workspaceID string, platform model.Platform) (*model.VerifyResult, error) {
	start := time.Now()
	pub, cred, err := u.publisherFor(ctx, workspaceID, platform)
	if err != nil {
		return nil, err
	}
	res := pub.VerifyCredentials(ctx, cred.AccessToken)
	metrics.RecordOperation(platform, "verify", res.Valid, time.Since(start))
	return res, nil
}

func (u *publishingUsecase) GetPostMetrics(ctx context.Context, workspaceID string, platform model.Platform, postID string) (*model.PostMetrics, error) {
	start := time.Now()
	pub, cred, err := u.publisherFor(ctx, workspaceID, platform)
	if err != nil {
		return nil, err
	}
	m, err := pub.GetPostMetrics(ctx, cred.AccessToken, postID)
	metrics.RecordOperation(platform, "metrics", err == nil, time.Since(start))
	return m, err
}

func (u *publishingUsecase) DeletePost(ctx context.Context, workspaceID string, platform model.Platform, postID string) error {
	start := time.Now()
	pub, cred, err := u.publisherFor(ctx, workspaceID, platform)
	if err == nil {
		err = pub.DeletePost(ctx, cred.AccessToken, postID)
	}
	metrics.RecordOperation(platform, "delete", err == nil, time.Since(start))
	u.activity.Log(ctx, &model.ActivityEvent{
		WorkspaceID: workspaceID,
		Action:      model.ActionDelete,
		Platform:    platform,
		Success:     err == nil,
		PostID:      postID,
		Error:       errString(err),
		OccurredAt:  u.resolver.now().UTC(),
	})
	return err
}

func (u *publishingUsecase) GetPost(ctx context.Context, workspaceID string, platform model.Platform, postID string) (map[string]interface{}, error) {
	start := time.Now()
	pub, cred, err := u.publisherFor(ctx, workspaceID, platform)
	if err != nil {
		return nil, err
	}
	post, err := pub.GetPost(ctx, cred.AccessToken, postID)
	metrics.RecordOperation(platform, "get_post", err == nil, time.Since(start))
	return post, err
}

func (u *publishingUsecase) GetUserProfile(ctx context.Context, workspaceID string, platform model.Platform) (*model.UserProfile, error) {
	start := time.Now()
	pub, cred, err := u.publisherFor(ctx, workspaceID, platform)
	if err != nil {
		return nil, err
	}
	profile, err := pub.GetUserProfile(ctx, cred.AccessToken)
	metrics.RecordOperation(platform, "profile", err == nil, time.Since(start))
	return profile, err
}

func (u *publishingUsecase) publisherFor(ctx context.Context, workspaceID string, platform model.Platform) (repository.IPublisher, *model.PlatformCredential, error) {
	pub, err := u.registry.Publisher(platform)
	if err != nil {
		return nil, nil, err
	}
	cred, err := u.resolver.resolve(ctx, workspaceID, platform)
	if err != nil {
		return nil, nil, err
	}
	return pub, cred, nil
}
