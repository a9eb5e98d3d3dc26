package dto

import (
	"encoding/json"
	"time"
)

// PublishRequest publishes one post to one platform
type PublishRequest struct {
	Platform  string          `json:"platform" binding:"required"`
	Content   string          `json:"content"`
	MediaURLs []string        `json:"media_urls"`
	Options   json.RawMessage `json:"options,omitempty"`
}

// MultiPublishRequest publishes the same post to several platforms.
// ContentByPlatform overrides Content per platform.
type MultiPublishRequest struct {
	Platforms         []string                   `json:"platforms" binding:"required"`
	Content           string                     `json:"content"`
	ContentByPlatform map[string]string          `json:"content_by_platform,omitempty"`
	MediaURLs         []string                   `json:"media_urls"`
	Options           map[string]json.RawMessage `json:"options,omitempty"`
}

// NativeScheduleRequest hands scheduling to the provider
type NativeScheduleRequest struct {
	PublishRequest
	ScheduledFor time.Time `json:"scheduled_for" binding:"required"`
}

// QueuePostRequest stores a post for the scheduler sweep
type QueuePostRequest struct {
	Platform     string          `json:"platform" binding:"required"`
	Content      string          `json:"content"`
	MediaURLs    []string        `json:"media_urls"`
	Options      json.RawMessage `json:"options,omitempty"`
	ScheduledFor time.Time       `json:"scheduled_for" binding:"required"`
}

// RescheduleRequest moves a queued post
type RescheduleRequest struct {
	ScheduledFor time.Time `json:"scheduled_for" binding:"required"`
}
