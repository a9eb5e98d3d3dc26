package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"social-publisher/domain/model"
	"social-publisher/domain/repository"
	"social-publisher/infrastructure/clients/oauthflow"
	"social-publisher/infrastructure/logger"
	"social-publisher/infrastructure/metrics"

	"github.com/google/uuid"
)

// AuthorizationStart is returned to the browser to begin a connect flow.
type AuthorizationStart struct {
	Platform model.Platform `json:"platform"`
	AuthURL  string         `json:"auth_url"`
	State    string         `json:"state"`
}

// Connection is the outcome of a completed authorization.
type Connection struct {
	WorkspaceID string                  `json:"workspace_id"`
	Account     model.CredentialSummary `json:"account"`
}

type IOAuthUsecase interface {
	BeginAuthorization(ctx context.Context, workspaceID string, platform model.Platform) (*AuthorizationStart, error)
	CompleteAuthorization(ctx context.Context, platform model.Platform, state, code string) (*Connection, error)
	RefreshCredential(ctx context.Context, workspaceID string, platform model.Platform) (*model.CredentialSummary, error)
	Disconnect(ctx context.Context, workspaceID string, platform model.Platform) error
	ListConnections(ctx context.Context, workspaceID string) ([]model.CredentialSummary, error)
}

type oauthUsecase struct {
	resolver *credentialResolver
	registry *Registry
	states   repository.IOAuthStateCache
	activity repository.IActivityLogger
	newState func() string
}

func NewOAuthUsecase(
	registry *Registry,
	credentials repository.ICredential,
	states repository.IOAuthStateCache,
	clients ClientConfigFunc,
	activity repository.IActivityLogger,
) IOAuthUsecase {
	return newOAuthUsecase(registry, credentials, states, clients, activity, time.Now)
}

func newOAuthUsecase(
	registry *Registry,
	credentials repository.ICredential,
	states repository.IOAuthStateCache,
	clients ClientConfigFunc,
	activity repository.IActivityLogger,
	now func() time.Time,
) *oauthUsecase {
	return &oauthUsecase{
		resolver: &credentialResolver{
			credentials: credentials,
			registry:    registry,
			clients:     clients,
			now:         now,
		},
		registry: registry,
		states:   states,
		activity: activityOrNop(activity),
		newState: uuid.NewString,
	}
}

func (u *oauthUsecase) BeginAuthorization(ctx context.Context, workspaceID string, platform model.Platform) (*AuthorizationStart, error) {
	handler, err := u.registry.OAuthHandler(platform)
	if err != nil {
		return nil, err
	}
	client := u.resolver.clients(platform)
	if client.ClientID == "" {
		return nil, model.NewInvalidRequestError(platform, "authorize", fmt.Sprintf("%s OAuth client is not configured", platform))
	}

	state := u.newState()
	verifier := ""
	if handler.UsesPKCE() {
		verifier = oauthflow.NewVerifier()
	}
	if err := u.states.Save(ctx, state, &model.OAuthState{
		WorkspaceID:  workspaceID,
		Platform:     platform,
		CodeVerifier: verifier,
		RedirectURI:  client.RedirectURI,
		CreatedAt:    u.resolver.now().UTC(),
	}); err != nil {
		return nil, fmt.Errorf("save oauth state: %w", err)
	}
	return &AuthorizationStart{
		Platform: platform,
		AuthURL:  handler.AuthCodeURL(client, state, verifier),
		State:    state,
	}, nil
}

// CompleteAuthorization handles the provider callback: the state is single use, the code is
// exchanged and the resulting credential replaces any existing one for the workspace.
func (u *oauthUsecase) CompleteAuthorization(ctx context.Context, platform model.Platform, state, code string) (*Connection, error) {
	if state == "" || code == "" {
		return nil, model.NewInvalidRequestError(platform, model.OperationTokenExchange, "state and code are required")
	}
	saved, err := u.states.Consume(ctx, state)
	if err != nil {
		return nil, err
	}
	if saved.Platform != platform {
		return nil, model.NewInvalidRequestError(platform, model.OperationTokenExchange, "state was issued for another platform")
	}
	handler, err := u.registry.OAuthHandler(platform)
	if err != nil {
		return nil, err
	}
	client := u.resolver.clients(platform)
	redirectURI := saved.RedirectURI
	if redirectURI == "" {
		redirectURI = client.RedirectURI
	}

	bundle, err := handler.ExchangeCodeForToken(ctx, model.TokenExchangeRequest{
		Code:         code,
		ClientID:     client.ClientID,
		ClientSecret: client.ClientSecret,
		RedirectURI:  redirectURI,
		CodeVerifier: saved.CodeVerifier,
	})
	metrics.RecordOAuth(platform, model.OperationTokenExchange, err == nil)
	if err != nil {
		u.logActivity(ctx, saved.WorkspaceID, model.ActionConnect, platform, err)
		return nil, err
	}

	now := u.resolver.now().UTC()
	cred := &model.PlatformCredential{
		WorkspaceID:    saved.WorkspaceID,
		Platform:       platform,
		AccessToken:    bundle.AccessToken,
		RefreshToken:   bundle.RefreshToken,
		PlatformUserID: bundle.UserID,
		Scopes:         model.NormalizeScopes(bundle.Scope),
		ExpiresAt:      bundle.ExpiresAt(now),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if len(cred.Scopes) == 0 {
		cred.Scopes = model.NormalizeScopes(strings.Join(client.Scopes, " "))
	}
	u.describeAccount(ctx, cred)

	if err := u.resolver.credentials.Store(ctx, cred); err != nil {
		u.logActivity(ctx, saved.WorkspaceID, model.ActionConnect, platform, err)
		return nil, err
	}
	u.logActivity(ctx, saved.WorkspaceID, model.ActionConnect, platform, nil)
	return &Connection{WorkspaceID: saved.WorkspaceID, Account: cred.Summary()}, nil
}

// describeAccount fills profile and account metadata. Lookups that fail leave the fields empty;
// the connection itself is still stored.
func (u *oauthUsecase) describeAccount(ctx context.Context, cred *model.PlatformCredential) {
	pub, err := u.registry.Publisher(cred.Platform)
	if err != nil {
		return
	}
	if profile, err := pub.GetUserProfile(ctx, cred.AccessToken); err != nil {
		logger.GetLogger().
			WithField("platform", cred.Platform).
			WithField("error", err).
			Warn("Could not fetch profile for new connection")
	} else {
		if profile.ID != "" {
			cred.PlatformUserID = profile.ID
		}
		cred.PlatformUsername = profile.Username
		if cred.PlatformUsername == "" {
			cred.PlatformUsername = profile.Name
		}
	}

	describer, ok := pub.(repository.IAccountMetadata)
	if !ok {
		return
	}
	meta, err := describer.AccountMetadata(ctx, cred.AccessToken)
	if err != nil {
		logger.GetLogger().
			WithField("platform", cred.Platform).
			WithField("error", err).
			Warn("Could not fetch account metadata for new connection")
		return
	}
	for k, v := range meta {
		cred.SetMeta(k, v)
	}
}

func (u *oauthUsecase) RefreshCredential(ctx context.Context, workspaceID string, platform model.Platform) (*model.CredentialSummary, error) {
	cred, err := u.resolver.credentials.Get(ctx, workspaceID, platform)
	if err != nil {
		return nil, err
	}
	refreshed, err := u.resolver.refresh(ctx, cred)
	u.logActivity(ctx, workspaceID, model.ActionRefresh, platform, err)
	if err != nil {
		return nil, err
	}
	summary := refreshed.Summary()
	return &summary, nil
}

func (u *oauthUsecase) Disconnect(ctx context.Context, workspaceID string, platform model.Platform) error {
	err := u.resolver.credentials.Delete(ctx, workspaceID, platform)
	u.logActivity(ctx, workspaceID, model.ActionDisconnect, platform, err)
	return err
}

func (u *oauthUsecase) ListConnections(ctx context.Context, workspaceID string) ([]model.CredentialSummary, error) {
	return u.resolver.credentials.List(ctx, workspaceID)
}

func (u *oauthUsecase) logActivity(ctx context.Context, workspaceID, action string, platform model.Platform, err error) {
	u.activity.Log(ctx, &model.ActivityEvent{
		WorkspaceID: workspaceID,
		Action:      action,
		Platform:    platform,
		Success:     err == nil,
		Error:       errString(err),
		OccurredAt:  u.resolver.now().UTC(),
	})
}
