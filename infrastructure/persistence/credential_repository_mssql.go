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

type CredentialRepositoryMSSQL struct {
	db   *sql.DB
	keys *crypto.KeyRing
}

func NewCredentialRepositoryMSSQL(db *sql.DB, keys *crypto.KeyRing) repository.ICredential {
	return &CredentialRepositoryMSSQL{db: db, keys: keys}
}

func (r *CredentialRepositoryMSSQL) Get(ctx context.Context, workspaceID string, platform model.Platform) (*model.PlatformCredential, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+credentialColumns+` FROM dbo.[platform_credentials] WHERE workspace_id=@p1 AND platform=@p2`, workspaceID, string(platform))
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

// Store upserts with MERGE on (workspace_id, platform).
func (r *CredentialRepositoryMSSQL) Store(ctx context.Context, c *model.PlatformCredential) error {
	sealed, err := sealCredential(r.keys, c)
	if err != nil {
		return err
	}
	stamp(c)
	q := `MERGE dbo.[platform_credentials] AS target
USING (VALUES (@p1, @p2)) AS src(workspace_id, platform)
ON target.workspace_id = src.workspace_id AND target.platform = src.platform
WHEN MATCHED THEN UPDATE SET
    access_token=@p3,
    refresh_token=@p4,
    platform_user_id=@p5,
    platform_username=@p6,
    scopes=@p7,
    expires_at=@p8,
    metadata=@p9,
    updated_at=@p11
WHEN NOT MATCHED THEN
    INSERT (workspace_id, platform, access_token, refresh_token, platform_user_id, platform_username, scopes, expires_at, metadata, created_at, updated_at)
    VALUES (@p1, @p2, @p3, @p4, @p5, @p6, @p7, @p8, @p9, @p10, @p11)
OUTPUT INSERTED.id, INSERTED.created_at;`
	err = r.db.QueryRowContext(ctx, q, c.WorkspaceID, string(c.Platform), sealed.AccessToken, sealed.RefreshToken,
		c.PlatformUserID, c.PlatformUsername, sealed.Scopes, sealed.ExpiresAt, sealed.Metadata, c.CreatedAt, c.UpdatedAt).
		Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return fmt.Errorf("store credential (mssql): %w", err)
	}
	return nil
}

func (r *CredentialRepositoryMSSQL) Delete(ctx context.Context, workspaceID string, platform model.Platform) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM dbo.[platform_credentials] WHERE workspace_id=@p1 AND platform=@p2`, workspaceID, string(platform))
	if err != nil {
		return fmt.Errorf("delete credential (mssql): %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.NewNotConnectedError(platform)
	}
	return nil
}

func (r *CredentialRepositoryMSSQL) List(ctx context.Context, workspaceID string) ([]model.CredentialSummary, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT platform, platform_user_id, platform_username, scopes, expires_at, created_at, updated_at FROM dbo.[platform_credentials] WHERE workspace_id=@p1 ORDER BY platform`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("list credentials (mssql): %w", err)
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
