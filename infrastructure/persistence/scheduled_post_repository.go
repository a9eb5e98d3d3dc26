package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"social-publisher/domain/model"
	"social-publisher/domain/repository"

	"github.com/lib/pq"
)

const scheduledPostColumns = `id, workspace_id, platform, content, media_urls, options, status, scheduled_for, published_at, platform_post_id, error_message, created_at, updated_at`

type ScheduledPostRepository struct{ db *sql.DB }

func NewScheduledPostRepository(db *sql.DB) repository.IScheduledPost {
	return &ScheduledPostRepository{db: db}
}

func (r *ScheduledPostRepository) Create(ctx context.Context, p *model.ScheduledPost) error {
	now := time.Now().UTC()
	if p.Status == "" {
		p.Status = model.PostStatusScheduled
	}
	p.CreatedAt, p.UpdatedAt = now, now
	q := `INSERT INTO scheduled_posts (workspace_id, platform, content, media_urls, options, status, scheduled_for, created_at, updated_at)
		  VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9) RETURNING id`
	err := r.db.QueryRowContext(ctx, q, p.WorkspaceID, string(p.Platform), p.Content, pq.Array(mediaOrEmpty(p.MediaURLs)),
		nullJSON(p.Options), p.Status, p.ScheduledFor, p.CreatedAt, p.UpdatedAt).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("create scheduled post: %w", err)
	}
	return nil
}

func (r *ScheduledPostRepository) GetByID(ctx context.Context, workspaceID string, id int64) (*model.ScheduledPost, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+scheduledPostColumns+` FROM scheduled_posts WHERE workspace_id=$1 AND id=$2`, workspaceID, id)
	p, err := scanScheduledPostPQ(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrScheduledPostNotFound
	}
	return p, err
}

func (r *ScheduledPostRepository) FetchDue(ctx context.Context, now time.Time, limit int) ([]*model.ScheduledPost, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+scheduledPostColumns+` FROM scheduled_posts WHERE status=$1 AND scheduled_for <= $2 ORDER BY scheduled_for ASC LIMIT $3`,
		model.PostStatusScheduled, now.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("fetch due posts: %w", err)
	}
	return collectPQ(rows)
}

func (r *ScheduledPostRepository) FetchDueForWorkspace(ctx context.Context, workspaceID string, now time.Time, limit int) ([]*model.ScheduledPost, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+scheduledPostColumns+` FROM scheduled_posts WHERE workspace_id=$1 AND status=$2 AND scheduled_for <= $3 ORDER BY scheduled_for ASC LIMIT $4`,
		workspaceID, model.PostStatusScheduled, now.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("fetch due posts: %w", err)
	}
	return collectPQ(rows)
}

func (r *ScheduledPostRepository) Claim(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE scheduled_posts SET status=$1, updated_at=$2 WHERE id=$3 AND status=$4`,
		model.PostStatusPublishing, time.Now().UTC(), id, model.PostStatusScheduled)
	if err != nil {
		return false, fmt.Errorf("claim post: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim post: %w", err)
	}
	return n == 1, nil
}

func (r *ScheduledPostRepository) ListUpcoming(ctx context.Context, workspaceID string, from, to time.Time) ([]*model.ScheduledPost, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+scheduledPostColumns+` FROM scheduled_posts WHERE workspace_id=$1 AND status=$2 AND scheduled_for >= $3 AND scheduled_for <= $4 ORDER BY scheduled_for ASC`,
		workspaceID, model.PostStatusScheduled, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("list upcoming posts: %w", err)
	}
	return collectPQ(rows)
}

func (r *ScheduledPostRepository) MarkPublished(ctx context.Context, id int64, platformPostID string, publishedAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE scheduled_posts SET status=$1, platform_post_id=$2, published_at=$3, error_message=NULL, updated_at=$4 WHERE id=$5`,
		model.PostStatusPublished, platformPostID, publishedAt.UTC(), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("mark published: %w", err)
	}
	return nil
}

func (r *ScheduledPostRepository) MarkFailed(ctx context.Context, id int64, errMsg string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE scheduled_posts SET status=$1, error_message=$2, updated_at=$3 WHERE id=$4`,
		model.PostStatusFailed, errMsg, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	return nil
}

func (r *ScheduledPostRepository) Reschedule(ctx context.Context, workspaceID string, id int64, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE scheduled_posts SET scheduled_for=$1, updated_at=$2 WHERE workspace_id=$3 AND id=$4 AND status=$5`,
		at.UTC(), time.Now().UTC(), workspaceID, id, model.PostStatusScheduled)
	if err != nil {
		return false, fmt.Errorf("reschedule post: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *ScheduledPostRepository) Cancel(ctx context.Context, workspaceID string, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE scheduled_posts SET status=$1, scheduled_for=NULL, updated_at=$2 WHERE workspace_id=$3 AND id=$4 AND status=$5`,
		model.PostStatusDraft, time.Now().UTC(), workspaceID, id, model.PostStatusScheduled)
	if err != nil {
		return false, fmt.Errorf("cancel post: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func collectPQ(rows *sql.Rows) ([]*model.ScheduledPost, error) {
	defer rows.Close()
	out := make([]*model.ScheduledPost, 0)
	for rows.Next() {
		p, err := scanScheduledPostPQ(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanScheduledPostPQ(row rowScanner) (*model.ScheduledPost, error) {
	var media pq.StringArray
	p, err := scanScheduledPost(row, &media)
	if err != nil {
		return nil, err
	}
	p.MediaURLs = mediaOrEmpty(media)
	return p, nil
}

// scanScheduledPost reads scheduledPostColumns; media receives the media_urls column in the
// dialect's own representation.
func scanScheduledPost(row rowScanner, media interface{}) (*model.ScheduledPost, error) {
	var (
		p          model.ScheduledPost
		platform   string
		options    sql.NullString
		scheduled  sql.NullTime
		published  sql.NullTime
		externalID sql.NullString
		errMsg     sql.NullString
	)
	if err := row.Scan(&p.ID, &p.WorkspaceID, &platform, &p.Content, media, &options, &p.Status,
		&scheduled, &published, &externalID, &errMsg, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Platform = model.Platform(platform)
	if options.Valid && options.String != "" {
		p.Options = []byte(options.String)
	}
	if scheduled.Valid {
		t := scheduled.Time
		p.ScheduledFor = &t
	}
	if published.Valid {
		t := published.Time
		p.PublishedAt = &t
	}
	if externalID.Valid {
		v := externalID.String
		p.PlatformPostID = &v
	}
	if errMsg.Valid {
		v := errMsg.String
		p.ErrorMessage = &v
	}
	return &p, nil
}

func nullJSON(raw []byte) interface{} {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return string(raw)
}

func mediaOrEmpty(urls []string) []string {
	if urls == nil {
		return []string{}
	}
	return urls
}
