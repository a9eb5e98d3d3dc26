package realtime

import (
	"net/http"
	"sync"

	"social-publisher/domain/model"

	"github.com/gin-gonic/gin"
)

// EventPublishStatus is the SSE event name for post status changes.
const EventPublishStatus = "publish_status"

// Hub maintains per-workspace subscribers listening for publish status events.
type Hub struct {
	mu         sync.RWMutex
	workspaces map[string]map[chan model.PublishStatusEvent]struct{}
}

func NewPublishHub() *Hub {
	return &Hub{workspaces: make(map[string]map[chan model.PublishStatusEvent]struct{})}
}

// Serve registers an SSE stream for the authenticated workspace (workspace_id set by middleware).
func (h *Hub) Serve(c *gin.Context) {
	workspaceID := c.GetString("workspace_id")
	if workspaceID == "" {
		c.Status(http.StatusUnauthorized)
		return
	}
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no") // disable nginx buffering

	ch := make(chan model.PublishStatusEvent, 8)
	h.addSubscriber(workspaceID, ch)
	defer h.removeSubscriber(workspaceID, ch)

	// Initial comment to keep connection open
	_, _ = c.Writer.Write([]byte(":ok\n\n"))
	c.Writer.Flush()

	for {
		select {
		case evt := <-ch:
			c.SSEvent(EventPublishStatus, evt)
			c.Writer.Flush()
		case <-c.Request.Context().Done():
			return
		}
	}
}

func (h *Hub) addSubscriber(workspaceID string, ch chan model.PublishStatusEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.workspaces[workspaceID] == nil {
		h.workspaces[workspaceID] = make(map[chan model.PublishStatusEvent]struct{})
	}
	h.workspaces[workspaceID][ch] = struct{}{}
}

func (h *Hub) removeSubscriber(workspaceID string, ch chan model.PublishStatusEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs := h.workspaces[workspaceID]; subs != nil {
		delete(subs, ch)
		close(ch)
		if len(subs) == 0 {
			delete(h.workspaces, workspaceID)
		}
	}
}

// Subscribers reports the open streams of a workspace.
func (h *Hub) Subscribers(workspaceID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.workspaces[workspaceID])
}

// BroadcastPostStatus sends the post's current status to every subscriber of its workspace.
// Slow subscribers miss events rather than block the sender.
func (h *Hub) BroadcastPostStatus(post *model.ScheduledPost) {
	if post == nil {
		return
	}
	evt := model.PublishStatusEvent{
		Type:        EventPublishStatus,
		WorkspaceID: post.WorkspaceID,
		PostID:      post.ID,
		Platform:    post.Platform,
		Status:      post.Status,
		ExternalRef: post.PlatformPostID,
		Error:       post.ErrorMessage,
	}
	h.mu.RLock()
	subs := h.workspaces[post.WorkspaceID]
	for ch := range subs {
		select { // non-blocking
		case ch <- evt:
		default:
		}
	}
	h.mu.RUnlock()
}
