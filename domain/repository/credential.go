package repository

import (
	"context"

	"social-publisher/domain/model"
)

// ICredential persists OAuth credentials, one per (workspace, platform).
// Get and Delete return an error matching model.ErrNotConnected when nothing is stored.
type ICredential interface {
	Get(ctx context.Context, workspaceID string, platform model.Platform) (*model.PlatformCredential, error)
	Store(ctx context.Context, cred *model.PlatformCredential) error
	Delete(ctx context.Context, workspaceID string, platform model.Platform) error
	List(ctx context.Context, workspaceID string) ([]model.CredentialSummary, error)
}

// IOAuthStateCache keeps authorization state between redirect and callback.
type IOAuthStateCache interface {
	Save(ctx context.Context, state string, value *model.OAuthState) error
	// Consume returns the state and removes it; unknown or expired states return an error.
	Consume(ctx context.Context, state string) (*model.OAuthState, error)
}
