package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"social-publisher/domain/model"
	"social-publisher/domain/repository"
)

// ScheduledPostRepositoryMSSQL keeps media_urls as a JSON array in NVARCHAR(MAX).
type ScheduledPostRepositoryMSSQL struct{ db *sql.DB }

func NewScheduledPostRepositoryMSSQL(db *sql.DB) repository.IScheduledPost {
	return &ScheduledPostRepositoryMSSQL{db: db}
}

func (r *ScheduledPostRepositoryMSSQL) Create(ctx context.Context, p *model.ScheduledPost) error {
	now := time.Now().UTC()
	if p.Status == "" {
		p.Status = model.PostStatusScheduled
	}
	p.CreatedAt, p.UpdatedAt = now, now
	media, err := json.Marshal(mediaOrEmpty(p.MediaURLs))
	if err != nil {
		return fmt.Errorf("encode media urls: %w", err)
	}
	var scheduled sql.NullTime
	if p.ScheduledFor != nil {
		scheduled = sql.NullTime{Time: p.ScheduledFor.UTC(), Valid: true}
	}
	q := `INSERT INTO dbo.[scheduled_posts] (workspace_id, platform, content, media_urls, options, status, scheduled_for, created_at, updated_at)
OUTPUT INSERTED.id
VALUES (@p1, @p2, @p3, @p4, @p5, @p6, @p7, @p8, @p9)`
	if err := r.db.QueryRowContext(ctx, q, p.WorkspaceID, string(p.Platform), p.Content, string(media),
		nullJSON(p.Options), p.Status, scheduled, p.CreatedAt, p.UpdatedAt).Scan(&p.ID); err != nil {
		return fmt.Errorf("create scheduled post (mssql): %w", err)
	}
	return nil
}

func (r *ScheduledPostRepositoryMSSQL) GetByID(ctx context.Context, workspaceID string, id int64) (*model.ScheduledPost, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+scheduledPostColumns+` FROM dbo.[scheduled_posts] WHERE workspace_id=@p1 AND id=@p2`, workspaceID, id)
	p, err := scanScheduledPostJSON(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrScheduledPostNotFound
	}
	return p, err
}

func (r *ScheduledPostRepositoryMSSQL) FetchDue(ctx context.Context, now time.Time, limit int) ([]*model.ScheduledPost, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT TOP (@p3) `+scheduledPostColumns+` FROM dbo.[scheduled_posts] WHERE status=@p1 AND scheduled_for <= @p2 ORDER BY scheduled_for ASC`,
		model.PostStatusScheduled, now.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("fetch due posts (mssql): %w", err)
	}
	return collectJSON(rows)
}

func (r *ScheduledPostRepositoryMSSQL) FetchDueForWorkspace(ctx context.Context, workspaceID string, now time.Time, limit int) ([]*model.ScheduledPost, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT TOP (@p4) `+scheduledPostColumns+` FROM dbo.[scheduled_posts] WHERE workspace_id=@p1 AND status=@p2 AND scheduled_for <= @p3 ORDER BY scheduled_for ASC`,
		workspaceID, model.PostStatusScheduled, now.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("fetch due posts (mssql): %w", err)
	}
	return collectJSON(rows)
}

func (r *ScheduledPostRepositoryMSSQL) Claim(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE dbo.[scheduled_posts] SET status=@p1, updated_at=@p2 WHERE id=@p3 AND status=@p4`,
		model.PostStatusPublishing, time.Now().UTC(), id, model.PostStatusScheduled)
	if err != nil {
		return false, fmt.Errorf("claim post (mssql): %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim post (mssql): %w", err)
	}
	return n == 1, nil
}

func (r *ScheduledPostRepositoryMSSQL) ListUpcoming(ctx context.Context, workspaceID string, from, to time.Time) ([]*model.ScheduledPost, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+scheduledPostColumns+` FROM dbo.[scheduled_posts] WHERE workspace_id=@p1 AND status=@p2 AND scheduled_for >= @p3 AND scheduled_for <= @p4 ORDER BY scheduled_for ASC`,
		workspaceID, model.PostStatusScheduled, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("list upcoming posts (mssql): %w", err)
	}
	return collectJSON(rows)
}

func (r *ScheduledPostRepositoryMSSQL) MarkPublished(ctx context.Context, id int64, platformPostID string, publishedAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE dbo.[scheduled_posts] SET status=@p1, platform_post_id=@p2, published_at=@p3, error_message=NULL, updated_at=@p4 WHERE id=@p5`,
		model.PostStatusPublished, platformPostID, publishedAt.UTC(), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("mark published (mssql): %w", err)
	}
	return nil
}

func (r *ScheduledPostRepositoryMSSQL) MarkFailed(ctx context.Context, id int64, errMsg string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE dbo.[scheduled_posts] SET status=@p1, error_message=@p2, updated_at=@p3 WHERE id=@p4`,
		model.PostStatusFailed, errMsg, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("mark failed (mssql): %w", err)
	}
	return nil
}

func (r *ScheduledPostRepositoryMSSQL) Reschedule(ctx context.Context, workspaceID string, id int64, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE dbo.[scheduled_posts] SET scheduled_for=@p1, updated_at=@p2 WHERE workspace_id=@p3 AND id=@p4 AND status=@p5`,
		at.UTC(), time.Now().UTC(), workspaceID, id, model.PostStatusScheduled)
	if err != nil {
		return false, fmt.Errorf("reschedule post (mssql): %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *ScheduledPostRepositoryMSSQL) Cancel(ctx context.Context, workspaceID string, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE dbo.[scheduled_posts] SET status=@p1, scheduled_for=NULL, updated_at=@p2 WHERE workspace_id=@p3 AND id=@p4 AND status=@p5`,
		model.PostStatusDraft, time.Now().UTC(), workspaceID, id, model.PostStatusScheduled)
	if err != nil {
		return false, fmt.Errorf("cancel post (mssql): %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func collectJSON(rows *sql.Rows) ([]*model.ScheduledPost, error) {
	defer rows.Close()
	out := make([]*model.ScheduledPost, 0)
	for rows.Next() {
		p, err := scanScheduledPostJSON(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanScheduledPostJSON(row rowScanner) (*model.ScheduledPost, error) {
	var media sql.NullString
	p, err := scanScheduledPost(row, &media)
	if err != nil {
		return nil, err
	}
	p.MediaURLs = []string{}
	if media.Valid && media.String != "" {
		if err := json.Unmarshal([]byte(media.String), &p.MediaURLs); err != nil {
			return nil, fmt.Errorf("decode media urls: %w", err)
		}
	}
	return p, nil
}
