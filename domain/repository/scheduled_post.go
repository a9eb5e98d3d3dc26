package repository

import (
	"context"
	"time"

	"social-publisher/domain/model"
)

type IScheduledPost interface {
	Create(ctx context.Context, post *model.ScheduledPost) error
	GetByID(ctx context.Context, workspaceID string, id int64) (*model.ScheduledPost, error)
	// FetchDue returns posts in status scheduled with scheduled_for <= now, oldest first.
	FetchDue(ctx context.Context, now time.Time, limit int) ([]*model.ScheduledPost, error)
	FetchDueForWorkspace(ctx context.Context, workspaceID string, now time.Time, limit int) ([]*model.ScheduledPost, error)
	// Claim moves a scheduled post to publishing. It returns false when another sweep got there first.
	Claim(ctx context.Context, id int64) (bool, error)
	ListUpcoming(ctx context.Context, workspaceID string, from, to time.Time) ([]*model.ScheduledPost, error)
	MarkPublished(ctx context.Context, id int64, platformPostID string, publishedAt time.Time) error
	MarkFailed(ctx context.Context, id int64, errMsg string) error
	// Reschedule and Cancel only touch posts still in status scheduled; they report whether a row changed.
	Reschedule(ctx context.Context, workspaceID string, id int64, at time.Time) (bool, error)
	Cancel(ctx context.Context, workspaceID string, id int64) (bool, error)
}
