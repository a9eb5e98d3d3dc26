package usecase

import (
	"context"
	"errors"
	"time"

	"social-publisher/domain/model"
	"social-publisher/domain/repository"
	"social-publisher/infrastructure/logger"
	"social-publisher/infrastructure/metrics"
)

// RefreshWindow is how close to expiry a token has to be before it is refreshed ahead of use.
const RefreshWindow = 5 * time.Minute

// ClientConfigFunc returns the registered OAuth application for a platform.
type ClientConfigFunc func(platform model.Platform) model.OAuthClient

// credentialResolver loads stored credentials and keeps their access tokens fresh.
type credentialResolver struct {
	credentials repository.ICredential
	registry    *Registry
	clients     ClientConfigFunc
	now         func() time.Time
}

// resolve returns the credential for (workspace, platform), refreshing the token first when it
// is about to expire. A failed refresh keeps the current token unless it has already expired.
func (r *credentialResolver) resolve(ctx context.Context, workspaceID string, platform model.Platform) (*model.PlatformCredential, error) {
	cred, err := r.credentials.Get(ctx, workspaceID, platform)
	if err != nil {
		return nil, err
	}
	if !cred.ExpiresWithin(r.now(), RefreshWindow) {
		return cred, nil
	}
	refreshed, err := r.refresh(ctx, cred)
	if err == nil {
		return refreshed, nil
	}
	if errors.Is(err, model.ErrUnsupported) {
		return cred, nil
	}
	if cred.ExpiresWithin(r.now(), 0) {
		return nil, err
	}
	logger.GetLogger().
		WithField("platform", platform).
		WithField("workspace_id", workspaceID).
		WithField("error", err).
		Warn("Token refresh failed; using current token until it expires")
	return cred, nil
}

// refresh exchanges the stored tokens for new ones and persists the result.
// The credential is only written when the provider returned a new token.
func (r *credentialResolver) refresh(ctx context.Context, cred *model.PlatformCredential) (*model.PlatformCredential, error) {
	handler, err := r.registry.OAuthHandler(cred.Platform)
	if err != nil {
		return nil, err
	}
	client := r.clients(cred.Platform)
	bundle, err := handler.RefreshAccessToken(ctx, model.TokenRefreshRequest{
		RefreshToken: cred.RefreshToken,
		AccessToken:  cred.AccessToken,
		ClientID:     client.ClientID,
		ClientSecret: client.ClientSecret,
	})
	metrics.RecordOAuth(cred.Platform, model.OperationTokenRefresh, err == nil)
	if err != nil {
		return nil, err
	}

	now := r.now()
	updated := *cred
	updated.AccessToken = bundle.AccessToken
	if bundle.RefreshToken != "" {
		updated.RefreshToken = bundle.RefreshToken
	}
	updated.ExpiresAt = bundle.ExpiresAt(now)
	if bundle.Scope != "" {
		updated.Scopes = model.NormalizeScopes(bundle.Scope)
	}
	updated.UpdatedAt = now
	if err := r.credentials.Store(ctx, &updated); err != nil {
		return nil, err
	}
	logger.GetLogger().
		WithField("platform", cred.Platform).
		WithField("workspace_id", cred.WorkspaceID).
		Info("Access token refreshed")
	return &updated, nil
}

type nopActivity struct{}

func (nopActivity) Log(context.Context, *model.ActivityEvent) {}

func activityOrNop(a repository.IActivityLogger) repository.IActivityLogger {
	if a == nil {
		return nopActivity{}
	}
	return a
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
