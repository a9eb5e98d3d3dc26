package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

var credentialDDL = []string{
	`CREATE TABLE IF NOT EXISTS platform_credentials (
		id BIGSERIAL PRIMARY KEY,
		workspace_id TEXT NOT NULL,
		platform TEXT NOT NULL,
		access_token TEXT NOT NULL,
		refresh_token TEXT NULL,
		platform_user_id TEXT NOT NULL DEFAULT '',
		platform_username TEXT NOT NULL DEFAULT '',
		scopes TEXT NOT NULL DEFAULT '',
		expires_at TIMESTAMPTZ NULL,
		metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (workspace_id, platform)
	)`,
}

var scheduledPostDDL = []string{
	`CREATE TABLE IF NOT EXISTS scheduled_posts (
		id BIGSERIAL PRIMARY KEY,
		workspace_id TEXT NOT NULL,
		platform TEXT NOT NULL,
		content TEXT NOT NULL DEFAULT '',
		media_urls TEXT[] NOT NULL DEFAULT '{}',
		status TEXT NOT NULL DEFAULT 'scheduled',
		scheduled_for TIMESTAMPTZ NULL,
		published_at TIMESTAMPTZ NULL,
		platform_post_id TEXT NULL,
		error_message TEXT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_scheduled_posts_due ON scheduled_posts (status, scheduled_for)`,
	`CREATE INDEX IF NOT EXISTS idx_scheduled_posts_workspace ON scheduled_posts (workspace_id, scheduled_for)`,
}

// EnsureCredentialSchema creates the credential table when missing. Safe to call at startup.
func EnsureCredentialSchema(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return execAll(ctx, db, credentialDDL)
}

// EnsureScheduledPostSchema creates the scheduled post table and adds columns introduced after it.
func EnsureScheduledPostSchema(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := execAll(ctx, db, scheduledPostDDL); err != nil {
		return err
	}

	checks := []struct {
		table  string
		column string
		ddl    string
	}{
		{"scheduled_posts", "options", "ALTER TABLE scheduled_posts ADD COLUMN options JSONB NULL"},
	}
	for _, c := range checks {
		exists, err := columnExists(ctx, db, c.table, c.column)
		if err != nil {
			return err
		}
		if !exists {
			if _, err := db.ExecContext(ctx, c.ddl); err != nil {
				return fmt.Errorf("adding column %s.%s failed: %w", c.table, c.column, err)
			}
		}
	}
	return nil
}

func execAll(ctx context.Context, db *sql.DB, statements []string) error {
	for _, ddl := range statements {
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func columnExists(ctx context.Context, db *sql.DB, table, column string) (bool, error) {
	row := db.QueryRowContext(ctx, `SELECT 1 FROM information_schema.columns WHERE table_name=$1 AND column_name=$2`, table, column)
	var one int
	if err := row.Scan(&one); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
