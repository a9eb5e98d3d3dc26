package http

import (
	"context"
	"time"

	"social-publisher/domain/model"
	"social-publisher/usecase"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
)

type MockOAuthUsecase struct {
	mock.Mock
}

func (m *MockOAuthUsecase) BeginAuthorization(ctx context.Context, workspaceID string, platform model.Platform) (*usecase.AuthorizationStart, error) {
	args := m.Called(ctx, workspaceID, platform)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.AuthorizationStart), args.Error(1)
}

func (m *MockOAuthUsecase) CompleteAuthorization(ctx context.Context, platform model.Platform, state, code string) (*usecase.Connection, error) {
	args := m.Called(ctx, platform, state, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.Connection), args.Error(1)
}

func (m *MockOAuthUsecase) RefreshCredential(ctx context.Context, workspaceID string, platform model.Platform) (*model.CredentialSummary, error) {
	args := m.Called(ctx, workspaceID, platform)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CredentialSummary), args.Error(1)
}

func (m *MockOAuthUsecase) Disconnect(ctx context.Context, workspaceID string, platform model.Platform) error {
	return m.Called(ctx, workspaceID, platform).Error(0)
}

func (m *MockOAuthUsecase) ListConnections(ctx context.Context, workspaceID string) ([]model.CredentialSummary, error) {
	args := m.Called(ctx, workspaceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.CredentialSummary), args.Error(1)
}

type MockPublishingUsecase struct {
	mock.Mock
}

func (m *MockPublishingUsecase) PublishToPlatform(ctx context.Context, workspaceID string, req *model.PublishRequest) *model.PublishResult {
	return m.Called(ctx, workspaceID, req).Get(0).(*model.PublishResult)
}

func (m *MockPublishingUsecase) PublishToMultiplePlatforms(ctx context.Context, workspaceID string, platforms []model.Platform, contentByPlatform map[model.Platform]string, mediaURLs []string, optionsByPlatform map[model.Platform]model.PublishOptions) []*model.PublishResult {
	return m.Called(ctx, workspaceID, platforms, contentByPlatform, mediaURLs, optionsByPlatform).Get(0).([]*model.PublishResult)
}

func (m *MockPublishingUsecase) SchedulePost(ctx context.Context, workspaceID string, req *model.PublishRequest, at time.Time) *model.PublishResult {
	return m.Called(ctx, workspaceID, req, at).Get(0).(*model.PublishResult)
}

func (m *MockPublishingUsecase) VerifyCredentials(ctx context.Context, workspaceID string, platform model.Platform) (*model.VerifyResult, error) {
	args := m.Called(ctx, workspaceID, platform)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.VerifyResult), args.Error(1)
}

func (m *MockPublishingUsecase) GetPostMetrics(ctx context.Context, workspaceID string, platform model.Platform, postID string) (*model.PostMetrics, error) {
	args := m.Called(ctx, workspaceID, platform, postID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PostMetrics), args.Error(1)
}

func (m *MockPublishingUsecase) DeletePost(ctx context.Context, workspaceID string, platform model.Platform, postID string) error {
	return m.Called(ctx, workspaceID, platform, postID).Error(0)
}

func (m *MockPublishingUsecase) GetPost(ctx context.Context, workspaceID string, platform model.Platform, postID string) (map[string]interface{}, error) {
	args := m.Called(ctx, workspaceID, platform, postID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]interface{}), args.Error(1)
}

func (m *MockPublishingUsecase) GetUserProfile(ctx context.Context, workspaceID string, platform model.Platform) (*model.UserProfile, error) {
	args := m.Called(ctx, workspaceID, platform)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UserProfile), args.Error(1)
}

type MockSchedulerUsecase struct {
	mock.Mock
}

func (m *MockSchedulerUsecase) QueuePost(ctx context.Context, post *model.ScheduledPost) (*model.ScheduledPost, error) {
	args := m.Called(ctx, post)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ScheduledPost), args.Error(1)
}

func (m *MockSchedulerUsecase) ProcessDue(ctx context.Context) (*model.SweepReport, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SweepReport), args.Error(1)
}

func (m *MockSchedulerUsecase) ProcessDueForWorkspace(ctx context.Context, workspaceID string) (*model.SweepReport, error) {
	args := m.Called(ctx, workspaceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SweepReport), args.Error(1)
}

func (m *MockSchedulerUsecase) Upcoming(ctx context.Context, workspaceID string, hours int) ([]*model.ScheduledPost, error) {
	args := m.Called(ctx, workspaceID, hours)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.ScheduledPost), args.Error(1)
}

func (m *MockSchedulerUsecase) Reschedule(ctx context.Context, workspaceID string, id int64, at time.Time) error {
	return m.Called(ctx, workspaceID, id, at).Error(0)
}

func (m *MockSchedulerUsecase) Cancel(ctx context.Context, workspaceID string, id int64) error {
	return m.Called(ctx, workspaceID, id).Error(0)
}

type fakeStream struct {
	workspace string
}

func (f *fakeStream) Serve(c *gin.Context) {
	f.workspace = c.GetString("workspace_id")
	c.String(200, "stream")
}
