package model

import (
	"encoding/json"
	"errors"
	"time"
)

// ScheduledPost status values.
const (
	PostStatusScheduled  = "scheduled"
	PostStatusPublishing = "publishing"
	PostStatusPublished  = "published"
	PostStatusFailed     = "failed"
	PostStatusDraft      = "draft"
)

// ScheduledPost is a post queued for publication by the scheduler sweep.
type ScheduledPost struct {
	ID             int64           `json:"id"`
	WorkspaceID    string          `json:"workspace_id"`
	Platform       Platform        `json:"platform"`
	Content        string          `json:"content"`
	MediaURLs      []string        `json:"media_urls"`
	Options        json.RawMessage `json:"options,omitempty"`
	Status         string          `json:"status"` // scheduled | published | failed | draft
	ScheduledFor   *time.Time      `json:"scheduled_for,omitempty"`
	PublishedAt    *time.Time      `json:"published_at,omitempty"`
	PlatformPostID *string         `json:"platform_post_id,omitempty"`
	ErrorMessage   *string         `json:"error_message,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// SweepResult is the outcome for one post processed by a sweep.
type SweepResult struct {
	PostID   int64    `json:"post_id"`
	Platform Platform `json:"platform"`
	Success  bool     `json:"success"`
	Error    string   `json:"error,omitempty"`
}

// SweepReport summarizes one scheduler sweep.
type SweepReport struct {
	Processed  int           `json:"processed"`
	Successful int           `json:"successful"`
	Failed     int           `json:"failed"`
	Results    []SweepResult `json:"results"`
}

// ErrScheduledPostNotFound is returned when a scheduled post does not exist in the workspace.
var ErrScheduledPostNotFound = errors.New("scheduled post not found")
