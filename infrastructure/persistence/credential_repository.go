package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"social-publisher/domain/model"
	"social-publisher/domain/repository"
	"social-publisher/infrastructure/crypto"
	"social-publisher/infrastructure/logger"
)

const credentialColumns = `id, workspace_id, platform, access_token, refresh_token, platform_user_id, platform_username, scopes, expires_at, metadata, created_at, updated_at`

type CredentialRepository struct {
	db   *sql.DB
	keys *crypto.KeyRing
}

// NewCredentialRepository stores credentials in PostgreSQL with tokens sealed by keys.
func NewCredentialRepository(db *sql.DB, keys *crypto.KeyRing) repository.ICredential {
	return &CredentialRepository{db: db, keys: keys}
}

func (r *CredentialRepository) Get(ctx context.Context, workspaceID string, platform model.Platform) (*model.PlatformCredential, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+credentialColumns+` FROM platform_credentials WHERE workspace_id=$1 AND platform=$2`, workspaceID, string(platform))
	cred, err := scanCredential(r.keys, row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NewNotConnectedError(platform)
	}
	if err != nil {
		logger.GetLogger().WithField("platform", platform).WithField("error", err).Error("Error while loading credential")
		return nil, err
	}
	return cred, nil
}

// Store upserts on (workspace_id, platform). created_at is kept from the first insert.
func (r *CredentialRepository) Store(ctx context.Context, c *model.PlatformCredential) error {
	sealed, err := sealCredential(r.keys, c)
	if err != nil {
		return err
	}
	stamp(c)
	q := `INSERT INTO platform_credentials (workspace_id, platform, access_token, refresh_token, platform_user_id, platform_username, scopes, expires_at, metadata, created_at, updated_at)
		  VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		  ON CONFLICT (workspace_id, platform) DO UPDATE SET
			access_token=EXCLUDED.access_token,
			refresh_token=EXCLUDED.refresh_token,
			platform_user_id=EXCLUDED.platform_user_id,
			platform_username=EXCLUDED.platform_username,
			scopes=EXCLUDED.scopes,
			expires_at=EXCLUDED.expires_at,
			metadata=EXCLUDED.metadata,
			updated_at=EXCLUDED.updated_at
		  RETURNING id, created_at`
	err = r.db.QueryRowContext(ctx, q, c.WorkspaceID, string(c.Platform), sealed.AccessToken, sealed.RefreshToken,
		c.PlatformUserID, c.PlatformUsername, sealed.Scopes, sealed.ExpiresAt, sealed.Metadata, c.CreatedAt, c.UpdatedAt).
		Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return fmt.Errorf("store credential: %w", err)
	}
	return nil
}

func (r *CredentialRepository) Delete(ctx context.Context, workspaceID string, platform model.Platform) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM platform_credentials WHERE workspace_id=$1 AND platform=$2`, workspaceID, string(platform))
	if err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.NewNotConnectedError(platform)
	}
	return nil
}

func (r *CredentialRepository) List(ctx context.Context, workspaceID string) ([]model.CredentialSummary, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT platform, platform_user_id, platform_username, scopes, expires_at, created_at, updated_at FROM platform_credentials WHERE workspace_id=$1 ORDER BY platform`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	defer rows.Close()
	out := make([]model.CredentialSummary, 0)
	for rows.Next() {
		s, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
