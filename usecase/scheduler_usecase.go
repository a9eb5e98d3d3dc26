package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"social-publisher/domain/model"
	"social-publisher/domain/repository"
	"social-publisher/infrastructure/logger"
	"social-publisher/infrastructure/metrics"

	"golang.org/x/sync/errgroup"
)

const (
	defaultUpcomingHours = 24
	maxUpcomingHours     = 24 * 31
)

// StatusBroadcaster is told about every post the sweep publishes or fails.
type StatusBroadcaster interface {
	BroadcastPostStatus(post *model.ScheduledPost)
}

type ISchedulerUsecase interface {
	QueuePost(ctx context.Context, post *model.ScheduledPost) (*model.ScheduledPost, error)
	// ProcessDue publishes every scheduled post whose time has come and records the outcome on each.
	ProcessDue(ctx context.Context) (*model.SweepReport, error)
	// ProcessDueForWorkspace is ProcessDue limited to one workspace's posts.
	ProcessDueForWorkspace(ctx context.Context, workspaceID string) (*model.SweepReport, error)
	Upcoming(ctx context.Context, workspaceID string, hours int) ([]*model.ScheduledPost, error)
	Reschedule(ctx context.Context, workspaceID string, id int64, at time.Time) error
	Cancel(ctx context.Context, workspaceID string, id int64) error
}

type schedulerUsecase struct {
	posts       repository.IScheduledPost
	publishing  IPublishingUsecase
	registry    *Registry
	broadcaster StatusBroadcaster
	activity    repository.IActivityLogger
	batchSize   int
	concurrency int
	now         func() time.Time
}

func NewSchedulerUsecase(
	posts repository.IScheduledPost,
	publishing IPublishingUsecase,
	registry *Registry,
	broadcaster StatusBroadcaster,
	activity repository.IActivityLogger,
	batchSize, concurrency int,
) ISchedulerUsecase {
	return newSchedulerUsecase(posts, publishing, registry, broadcaster, activity, batchSize, concurrency, time.Now)
}

func newSchedulerUsecase(
	posts repository.IScheduledPost,
	publishing IPublishingUsecase,
	registry *Registry,
	broadcaster StatusBroadcaster,
	activity repository.IActivityLogger,
	batchSize, concurrency int,
	now func() time.Time,
) *schedulerUsecase {
	if batchSize <= 0 {
		batchSize = 50
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	return &schedulerUsecase{
		posts:       posts,
		publishing:  publishing,
		registry:    registry,
		broadcaster: broadcaster,
		activity:    activityOrNop(activity),
		batchSize:   batchSize,
		concurrency: concurrency,
		now:         now,
	}
}

func (u *schedulerUsecase) QueuePost(ctx context.Context, post *model.ScheduledPost) (*model.ScheduledPost, error) {
	if _, err := u.registry.Publisher(post.Platform); err != nil {
		return nil, err
	}
	if strings.TrimSpace(post.Content) == "" && len(post.MediaURLs) == 0 {
		return nil, model.NewInvalidRequestError(post.Platform, "queue", "content or media_urls is required")
	}
	now := u.now().UTC()
	if post.ScheduledFor == nil || !post.ScheduledFor.After(now) {
		return nil, model.NewInvalidRequestError(post.Platform, "queue", "scheduled_for must be in the future")
	}
	if _, err := model.DecodeOptions(post.Platform, post.Options); err != nil {
		return nil, err
	}
	at := post.ScheduledFor.UTC()
	post.ScheduledFor = &at
	post.Status = model.PostStatusScheduled
	post.CreatedAt = now
	post.UpdatedAt = now
	if err := u.posts.Create(ctx, post); err != nil {
		return nil, err
	}
	u.activity.Log(ctx, &model.ActivityEvent{
		WorkspaceID: post.WorkspaceID,
		Action:      model.ActionSchedule,
		Platform:    post.Platform,
		Success:     true,
		PostID:      fmt.Sprint(post.ID),
		OccurredAt:  now,
	})
	return post, nil
}

func (u *schedulerUsecase) ProcessDue(ctx context.Context) (*model.SweepReport, error) {
	return u.sweep(ctx, "")
}

func (u *schedulerUsecase) ProcessDueForWorkspace(ctx context.Context, workspaceID string) (*model.SweepReport, error) {
	if workspaceID == "" {
		return nil, model.NewInvalidRequestError("", "process", "workspace is required")
	}
	return u.sweep(ctx, workspaceID)
}

func (u *schedulerUsecase) sweep(ctx context.Context, workspaceID string) (*model.SweepReport, error) {
	start := time.Now()
	var (
		due []*model.ScheduledPost
		err error
	)
	if workspaceID == "" {
		due, err = u.posts.FetchDue(ctx, u.now().UTC(), u.batchSize)
	} else {
		due, err = u.posts.FetchDueForWorkspace(ctx, workspaceID, u.now().UTC(), u.batchSize)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch due posts: %w", err)
	}

	results := make([]model.SweepResult, len(due))
	claimed := make([]bool, len(due))
	var g errgroup.Group
	g.SetLimit(u.concurrency)
	for i, post := range due {
		i, post := i, post
		g.Go(func() error {
			results[i], claimed[i] = u.publishDue(ctx, post)
			return nil
		})
	}
	_ = g.Wait()

	report := &model.SweepReport{Results: make([]model.SweepResult, 0, len(due))}
	for i, r := range results {
		if !claimed[i] {
			continue
		}
		report.Results = append(report.Results, r)
		report.Processed++
		if r.Success {
			report.Successful++
		} else {
			report.Failed++
		}
	}
	metrics.RecordSweep(report, time.Since(start))
	if report.Processed > 0 {
		u.activity.Log(ctx, &model.ActivityEvent{
			WorkspaceID: workspaceID,
			Action:      model.ActionSweep,
			Success:     report.Failed == 0,
			Error:       sweepSummary(report),
			OccurredAt:  u.now().UTC(),
		})
	}
	return report, nil
}

// publishDue claims one post, publishes it and stores the outcome. A post another sweep
// already claimed is skipped and reported as not claimed. Status writes use a context that
// survives sweep cancellation so a post published on the provider is never left scheduled.
func (u *schedulerUsecase) publishDue(ctx context.Context, post *model.ScheduledPost) (result model.SweepResult, claimed bool) {
	result = model.SweepResult{PostID: post.ID, Platform: post.Platform}
	ok, err := u.posts.Claim(ctx, post.ID)
	if err != nil {
		logger.GetLogger().
			WithField("post_id", post.ID).
			WithField("error", err).
			Error("Scheduled post could not be claimed")
		return result, false
	}
	if !ok {
		logger.GetLogger().WithField("post_id", post.ID).Debug("Scheduled post already claimed")
		return result, false
	}
	claimed = true
	post.Status = model.PostStatusPublishing

	published := false
	defer func() {
		if r := recover(); r != nil {
			if published {
				logger.GetLogger().
					WithField("post_id", post.ID).
					WithField("panic", r).
					Error("Panic after scheduled post was published")
				return
			}
			result.Success = false
			result.Error = fmt.Sprintf("publish panic: %v", r)
			u.markFailed(ctx, post, result.Error)
		}
	}()

	opts, err := model.DecodeOptions(post.Platform, post.Options)
	if err != nil {
		result.Error = err.Error()
		u.markFailed(ctx, post, result.Error)
		return result, true
	}
	res := u.publishing.PublishToPlatform(ctx, post.WorkspaceID, &model.PublishRequest{
		Platform:  post.Platform,
		Content:   post.Content,
		MediaURLs: post.MediaURLs,
		Options:   opts,
	})
	if !res.Success {
		result.Error = res.Error
		u.markFailed(ctx, post, res.Error)
		return result, true
	}

	published = true
	result.Success = true
	publishedAt := u.now().UTC()
	if err := u.posts.MarkPublished(context.WithoutCancel(ctx), post.ID, res.PostID, publishedAt); err != nil {
		logger.GetLogger().
			WithField("post_id", post.ID).
			WithField("error", err).
			Error("Published post could not be marked as published")
	}
	postID := res.PostID
	post.Status = model.PostStatusPublished
	post.PublishedAt = &publishedAt
	post.PlatformPostID = &postID
	post.ErrorMessage = nil
	u.broadcast(post)

	logger.GetLogger().
		WithField("post_id", post.ID).
		WithField("platform", post.Platform).
		Info("Scheduled post published")
	return result, true
}

func (u *schedulerUsecase) markFailed(ctx context.Context, post *model.ScheduledPost, msg string) {
	if msg == "" {
		msg = "unknown error"
	}
	if err := u.posts.MarkFailed(context.WithoutCancel(ctx), post.ID, msg); err != nil {
		logger.GetLogger().
			WithField("post_id", post.ID).
			WithField("error", err).
			Error("Scheduled post could not be marked as failed")
	}
	post.Status = model.PostStatusFailed
	post.ErrorMessage = &msg
	u.broadcast(post)

	logger.GetLogger().
		WithField("post_id", post.ID).
		WithField("platform", post.Platform).
		WithField("error", msg).
		Error("Scheduled post failed")
}

func (u *schedulerUsecase) broadcast(post *model.ScheduledPost) {
	if u.broadcaster != nil {
		u.broadcaster.BroadcastPostStatus(post)
	}
}

func (u *schedulerUsecase) Upcoming(ctx context.Context, workspaceID string, hours int) ([]*model.ScheduledPost, error) {
	if hours <= 0 {
		hours = defaultUpcomingHours
	}
	if hours > maxUpcomingHours {
		hours = maxUpcomingHours
	}
	now := u.now().UTC()
	return u.posts.ListUpcoming(ctx, workspaceID, now, now.Add(time.Duration(hours)*time.Hour))
}

func (u *schedulerUsecase) Reschedule(ctx context.Context, workspaceID string, id int64, at time.Time) error {
	if !at.After(u.now()) {
		return model.NewInvalidRequestError("", "reschedule", "scheduled_for must be in the future")
	}
	ok, err := u.posts.Reschedule(ctx, workspaceID, id, at.UTC())
	if err != nil {
		return err
	}
	if !ok {
		return model.ErrScheduledPostNotFound
	}
	return nil
}

func (u *schedulerUsecase) Cancel(ctx context.Context, workspaceID string, id int64) error {
	ok, err := u.posts.Cancel(ctx, workspaceID, id)
	if err != nil {
		return err
	}
	if !ok {
		return model.ErrScheduledPostNotFound
	}
	return nil
}

func sweepSummary(r *model.SweepReport) string {
	if r.Failed == 0 {
		return ""
	}
	return fmt.Sprintf("%d of %d scheduled posts failed", r.Failed, r.Processed)
}
