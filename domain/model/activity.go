package model

import "time"

// Activity actions reported to the audit trail.
const (
	ActionPublish    = "publish"
	ActionSchedule   = "schedule"
	ActionConnect    = "connect"
	ActionRefresh    = "refresh"
	ActionDisconnect = "disconnect"
	ActionDelete     = "delete"
	ActionSweep      = "sweep"
)

// ActivityEvent is emitted after a publishing action; it is informational only.
type ActivityEvent struct {
	WorkspaceID string    `json:"workspace_id" bson:"workspace_id"`
	Action      string    `json:"action" bson:"action"`
	Platform    Platform  `json:"platform,omitempty" bson:"platform,omitempty"`
	Success     bool      `json:"success" bson:"success"`
	PostID      string    `json:"post_id,omitempty" bson:"post_id,omitempty"`
	Error       string    `json:"error,omitempty" bson:"error,omitempty"`
	OccurredAt  time.Time `json:"occurred_at" bson:"occurred_at"`
}

// PublishStatusEvent is pushed to live subscribers of a workspace.
type PublishStatusEvent struct {
	Type        string   `json:"type"`
	WorkspaceID string   `json:"workspace_id"`
	PostID      int64    `json:"post_id,omitempty"`
	Platform    Platform `json:"platform"`
	Status      string   `json:"status"`
	ExternalRef *string  `json:"external_ref,omitempty"`
	Error       *string  `json:"error,omitempty"`
}
