package http

import (
	"context"
	"strconv"

	"social-publisher/domain/model"
	"social-publisher/interfaces/middleware"

	"github.com/gin-gonic/gin"
)

const defaultActivityLimit = 50

// ActivityReader lists the newest activity events of a workspace.
type ActivityReader interface {
	Recent(ctx context.Context, workspaceID string, limit int64) ([]model.ActivityEvent, error)
}

type IActivityHandler interface {
	Recent(ctx *gin.Context)
}

type ActivityHandler struct {
	reader ActivityReader
}

func NewActivityHandler(reader ActivityReader) IActivityHandler {
	return &ActivityHandler{reader: reader}
}

func (h *ActivityHandler) Recent(ctx *gin.Context) {
	if h.reader == nil {
		respondOK(ctx, []model.ActivityEvent{}, "Activity store not configured")
		return
	}
	limit := int64(defaultActivityLimit)
	if raw := ctx.Query("limit"); raw != "" {
		val, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || val <= 0 {
			respondBadRequest(ctx, "limit must be a positive number")
			return
		}
		limit = min(val, 500)
	}
	events, err := h.reader.Recent(ctx.Request.Context(), middleware.WorkspaceID(ctx), limit)
	if err != nil {
		respondError(ctx, err)
		return
	}
	if events == nil {
		events = []model.ActivityEvent{}
	}
	respondOK(ctx, events, "")
}
