package usecase

import (
	"context"
	"sync"
	"time"

	"social-publisher/domain/model"

	"github.com/stretchr/testify/mock"
)

type MockCredential struct {
	mock.Mock
}

func (m *MockCredential) Get(ctx context.Context, workspaceID string, platform model.Platform) (*model.PlatformCredential, error) {
	args := m.Called(ctx, workspaceID, platform)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PlatformCredential), args.Error(1)
}

func (m *MockCredential) Store(ctx context.Context, cred *model.PlatformCredential) error {
	return m.Called(ctx, cred).Error(0)
}

func (m *MockCredential) Delete(ctx context.Context, workspaceID string, platform model.Platform) error {
	return m.Called(ctx, workspaceID, platform).Error(0)
}

func (m *MockCredential) List(ctx context.Context, workspaceID string) ([]model.CredentialSummary, error) {
	args := m.Called(ctx, workspaceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.CredentialSummary), args.Error(1)
}

type MockPublisher struct {
	mock.Mock
	platform model.Platform
}

func (m *MockPublisher) Platform() model.Platform { return m.platform }

func (m *MockPublisher) PublishPost(ctx context.Context, token string, req *model.PublishRequest) *model.PublishResult {
	return m.Called(ctx, token, req).Get(0).(*model.PublishResult)
}

func (m *MockPublisher) SchedulePost(ctx context.Context, token string, req *model.PublishRequest, at time.Time) *model.PublishResult {
	return m.Called(ctx, token, req, at).Get(0).(*model.PublishResult)
}

func (m *MockPublisher) UploadMedia(ctx context.Context, token string, urls []string, opts model.PublishOptions) ([]model.MediaAsset, error) {
	args := m.Called(ctx, token, urls, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.MediaAsset), args.Error(1)
}

func (m *MockPublisher) DeletePost(ctx context.Context, token, postID string) error {
	return m.Called(ctx, token, postID).Error(0)
}

func (m *MockPublisher) GetPost(ctx context.Context, token, postID string) (map[string]interface{}, error) {
	args := m.Called(ctx, token, postID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]interface{}), args.Error(1)
}

func (m *MockPublisher) VerifyCredentials(ctx context.Context, token string) *model.VerifyResult {
	return m.Called(ctx, token).Get(0).(*model.VerifyResult)
}

func (m *MockPublisher) GetUserProfile(ctx context.Context, token string) (*model.UserProfile, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UserProfile), args.Error(1)
}

func (m *MockPublisher) GetPostMetrics(ctx context.Context, token, postID string) (*model.PostMetrics, error) {
	args := m.Called(ctx, token, postID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PostMetrics), args.Error(1)
}

// MockPagePublisher also describes the connected account.
type MockPagePublisher struct {
	MockPublisher
}

func (m *MockPagePublisher) AccountMetadata(ctx context.Context, token string) (map[string]string, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]string), args.Error(1)
}

type MockOAuthHandler struct {
	mock.Mock
	platform model.Platform
	pkce     bool
}

func (m *MockOAuthHandler) Platform() model.Platform { return m.platform }

func (m *MockOAuthHandler) UsesPKCE() bool { return m.pkce }

func (m *MockOAuthHandler) AuthCodeURL(client model.OAuthClient, state, verifier string) string {
	return m.Called(client, state, verifier).String(0)
}

func (m *MockOAuthHandler) ExchangeCodeForToken(ctx context.Context, req model.TokenExchangeRequest) (*model.TokenBundle, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TokenBundle), args.Error(1)
}

func (m *MockOAuthHandler) RefreshAccessToken(ctx context.Context, req model.TokenRefreshRequest) (*model.TokenBundle, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TokenBundle), args.Error(1)
}

type MockStateCache struct {
	mock.Mock
}

func (m *MockStateCache) Save(ctx context.Context, state string, value *model.OAuthState) error {
	return m.Called(ctx, state, value).Error(0)
}

func (m *MockStateCache) Consume(ctx context.Context, state string) (*model.OAuthState, error) {
	args := m.Called(ctx, state)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.OAuthState), args.Error(1)
}

type MockScheduledPost struct {
	mock.Mock
}

func (m *MockScheduledPost) Create(ctx context.Context, post *model.ScheduledPost) error {
	return m.Called(ctx, post).Error(0)
}

func (m *MockScheduledPost) GetByID(ctx context.Context, workspaceID string, id int64) (*model.ScheduledPost, error) {
	args := m.Called(ctx, workspaceID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ScheduledPost), args.Error(1)
}

func (m *MockScheduledPost) FetchDue(ctx context.Context, now time.Time, limit int) ([]*model.ScheduledPost, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.ScheduledPost), args.Error(1)
}

func (m *MockScheduledPost) FetchDueForWorkspace(ctx context.Context, workspaceID string, now time.Time, limit int) ([]*model.ScheduledPost, error) {
	args := m.Called(ctx, workspaceID, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.ScheduledPost), args.Error(1)
}

func (m *MockScheduledPost) Claim(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockScheduledPost) ListUpcoming(ctx context.Context, workspaceID string, from, to time.Time) ([]*model.ScheduledPost, error) {
	args := m.Called(ctx, workspaceID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.ScheduledPost), args.Error(1)
}

func (m *MockScheduledPost) MarkPublished(ctx context.Context, id int64, platformPostID string, at time.Time) error {
	return m.Called(ctx, id, platformPostID, at).Error(0)
}

func (m *MockScheduledPost) MarkFailed(ctx context.Context, id int64, msg string) error {
	return m.Called(ctx, id, msg).Error(0)
}

func (m *MockScheduledPost) Reschedule(ctx context.Context, workspaceID string, id int64, at time.Time) (bool, error) {
	args := m.Called(ctx, workspaceID, id, at)
	return args.Bool(0), args.Error(1)
}

func (m *MockScheduledPost) Cancel(ctx context.Context, workspaceID string, id int64) (bool, error) {
	args := m.Called(ctx, workspaceID, id)
	return args.Bool(0), args.Error(1)
}

// recordingActivity keeps every logged event.
type recordingActivity struct {
	mu     sync.Mutex
	events []model.ActivityEvent
}

func (r *recordingActivity) Log(_ context.Context, event *model.ActivityEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, *event)
}

func (r *recordingActivity) Events() []model.ActivityEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.ActivityEvent(nil), r.events...)
}

type recordingBroadcaster struct {
	mu    sync.Mutex
	posts []model.ScheduledPost
}

func (r *recordingBroadcaster) BroadcastPostStatus(post *model.ScheduledPost) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.posts = append(r.posts, *post)
}

var fixedNow = time.Date(2030, 3, 1, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func testClients(platform model.Platform) model.OAuthClient {
	return model.OAuthClient{
		ClientID:     string(platform) + "-client",
		ClientSecret: string(platform) + "-secret",
		RedirectURI:  "https://app.example.com/auth/" + string(platform) + "/callback",
		Scopes:       []string{"read", "write"},
	}
}

// memoryPosts is an in-process scheduled post store whose Claim is atomic like the SQL one.
// When fetchers is set, FetchDue blocks until that many callers have fetched.
type memoryPosts struct {
	mu       sync.Mutex
	posts    map[int64]model.ScheduledPost
	fetched  sync.WaitGroup
	fetchers int
}

func newMemoryPosts(fetchers int, posts ...*model.ScheduledPost) *memoryPosts {
	m := &memoryPosts{posts: make(map[int64]model.ScheduledPost), fetchers: fetchers}
	m.fetched.Add(fetchers)
	for _, p := range posts {
		m.posts[p.ID] = *p
	}
	return m
}

func (m *memoryPosts) Create(_ context.Context, post *model.ScheduledPost) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	post.ID = int64(len(m.posts) + 1)
	m.posts[post.ID] = *post
	return nil
}

func (m *memoryPosts) GetByID(_ context.Context, workspaceID string, id int64) (*model.ScheduledPost, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	if !ok || p.WorkspaceID != workspaceID {
		return nil, model.ErrScheduledPostNotFound
	}
	return &p, nil
}

func (m *memoryPosts) FetchDue(ctx context.Context, now time.Time, limit int) ([]*model.ScheduledPost, error) {
	return m.FetchDueForWorkspace(ctx, "", now, limit)
}

func (m *memoryPosts) FetchDueForWorkspace(_ context.Context, workspaceID string, now time.Time, limit int) ([]*model.ScheduledPost, error) {
	m.mu.Lock()
	out := make([]*model.ScheduledPost, 0)
	for _, p := range m.posts {
		if p.Status != model.PostStatusScheduled || p.ScheduledFor == nil || p.ScheduledFor.After(now) {
			continue
		}
		if workspaceID != "" && p.WorkspaceID != workspaceID {
			continue
		}
		if len(out) < limit {
			cp := p
			out = append(out, &cp)
		}
	}
	m.mu.Unlock()
	if m.fetchers > 0 {
		m.fetched.Done()
		m.fetched.Wait()
	}
	return out, nil
}

func (m *memoryPosts) Claim(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	if !ok || p.Status != model.PostStatusScheduled {
		return false, nil
	}
	p.Status = model.PostStatusPublishing
	m.posts[id] = p
	return true, nil
}

func (m *memoryPosts) ListUpcoming(context.Context, string, time.Time, time.Time) ([]*model.ScheduledPost, error) {
	return []*model.ScheduledPost{}, nil
}

func (m *memoryPosts) MarkPublished(_ context.Context, id int64, platformPostID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.posts[id]
	p.Status = model.PostStatusPublished
	p.PlatformPostID = &platformPostID
	p.PublishedAt = &at
	m.posts[id] = p
	return nil
}

func (m *memoryPosts) MarkFailed(_ context.Context, id int64, msg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.posts[id]
	p.Status = model.PostStatusFailed
	p.ErrorMessage = &msg
	m.posts[id] = p
	return nil
}

func (m *memoryPosts) Reschedule(context.Context, string, int64, time.Time) (bool, error) {
	return false, nil
}

func (m *memoryPosts) Cancel(context.Context, string, int64) (bool, error) {
	return false, nil
}

func (m *memoryPosts) status(id int64) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.posts[id].Status
}

// panicOnPublished panics when told about a published post.
type panicOnPublished struct{}

func (panicOnPublished) BroadcastPostStatus(post *model.ScheduledPost) {
	if post.Status == model.PostStatusPublished {
		panic("listener gone")
	}
}
