package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// EnsureCredentialSchemaMSSQL creates dbo.platform_credentials when missing.
func EnsureCredentialSchemaMSSQL(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return createTableIfMissing(ctx, db, "platform_credentials", `CREATE TABLE dbo.[platform_credentials] (
		id BIGINT IDENTITY(1,1) PRIMARY KEY,
		workspace_id NVARCHAR(255) NOT NULL,
		platform NVARCHAR(32) NOT NULL,
		access_token NVARCHAR(MAX) NOT NULL,
		refresh_token NVARCHAR(MAX) NULL,
		platform_user_id NVARCHAR(255) NOT NULL DEFAULT '',
		platform_username NVARCHAR(255) NOT NULL DEFAULT '',
		scopes NVARCHAR(MAX) NOT NULL DEFAULT '',
		expires_at DATETIME2 NULL,
		metadata NVARCHAR(MAX) NOT NULL DEFAULT '{}',
		created_at DATETIME2 NOT NULL DEFAULT SYSUTCDATETIME(),
		updated_at DATETIME2 NOT NULL DEFAULT SYSUTCDATETIME(),
		CONSTRAINT uq_platform_credentials UNIQUE (workspace_id, platform)
	)`)
}

// EnsureScheduledPostSchemaMSSQL creates dbo.scheduled_posts and adds columns introduced after it.
func EnsureScheduledPostSchemaMSSQL(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := createTableIfMissing(ctx, db, "scheduled_posts", `CREATE TABLE dbo.[scheduled_posts] (
		id BIGINT IDENTITY(1,1) PRIMARY KEY,
		workspace_id NVARCHAR(255) NOT NULL,
		platform NVARCHAR(32) NOT NULL,
		content NVARCHAR(MAX) NOT NULL DEFAULT '',
		media_urls NVARCHAR(MAX) NOT NULL DEFAULT '[]',
		status NVARCHAR(32) NOT NULL DEFAULT 'scheduled',
		scheduled_for DATETIME2 NULL,
		published_at DATETIME2 NULL,
		platform_post_id NVARCHAR(255) NULL,
		error_message NVARCHAR(MAX) NULL,
		created_at DATETIME2 NOT NULL DEFAULT SYSUTCDATETIME(),
		updated_at DATETIME2 NOT NULL DEFAULT SYSUTCDATETIME()
	);
	CREATE INDEX idx_scheduled_posts_due ON dbo.[scheduled_posts] (status, scheduled_for)`); err != nil {
		return err
	}

	// Helper to add a column if missing via COL_LENGTH check
	addIfMissing := func(table, column, ddl string) error {
		q := fmt.Sprintf(`IF COL_LENGTH('%s', '%s') IS NULL BEGIN %s END`, table, column, ddl)
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure column %s.%s: %w", table, column, err)
		}
		return nil
	}
	return addIfMissing("dbo.scheduled_posts", "options", "ALTER TABLE dbo.[scheduled_posts] ADD options NVARCHAR(MAX) NULL")
}

func createTableIfMissing(ctx context.Context, db *sql.DB, table, ddl string) error {
	q := fmt.Sprintf(`IF NOT EXISTS (SELECT * FROM sys.objects WHERE object_id = OBJECT_ID(N'dbo.[%s]') AND type in (N'U'))
BEGIN
	%s
END`, table, ddl)
	if _, err := db.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("ensure table %s: %w", table, err)
	}
	return nil
}
