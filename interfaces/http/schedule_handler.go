package http

import (
	"strconv"

	"social-publisher/domain/dto"
	"social-publisher/domain/model"
	"social-publisher/interfaces/middleware"
	"social-publisher/usecase"

	"github.com/gin-gonic/gin"
)

// StatusStream serves the live post status feed of the caller's workspace.
type StatusStream interface {
	Serve(c *gin.Context)
}

type IScheduleHandler interface {
	Queue(ctx *gin.Context)
	Upcoming(ctx *gin.Context)
	Reschedule(ctx *gin.Context)
	Cancel(ctx *gin.Context)
	Process(ctx *gin.Context)
	Stream(ctx *gin.Context)
}

type ScheduleHandler struct {
	schedulerUsecase usecase.ISchedulerUsecase
	stream           StatusStream
}

func NewScheduleHandler(schedulerUsecase usecase.ISchedulerUsecase, stream StatusStream) IScheduleHandler {
	return &ScheduleHandler{schedulerUsecase: schedulerUsecase, stream: stream}
}

func (h *ScheduleHandler) Queue(ctx *gin.Context) {
	var req dto.QueuePostRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondBadRequest(ctx, err.Error())
		return
	}
	platform, err := model.ParsePlatform(req.Platform)
	if err != nil {
		respondError(ctx, err)
		return
	}
	at := req.ScheduledFor
	post, err := h.schedulerUsecase.QueuePost(ctx.Request.Context(), &model.ScheduledPost{
		WorkspaceID:  middleware.WorkspaceID(ctx),
		Platform:     platform,
		Content:      req.Content,
		MediaURLs:    req.MediaURLs,
		Options:      req.Options,
		ScheduledFor: &at,
	})
	if err != nil {
		respondError(ctx, err)
		return
	}
	respondOK(ctx, post, "Post scheduled")
}

// Upcoming lists posts due within ?hours (default 24).
func (h *ScheduleHandler) Upcoming(ctx *gin.Context) {
	hours := 0
	if raw := ctx.Query("hours"); raw != "" {
		val, err := strconv.Atoi(raw)
		if err != nil {
			respondBadRequest(ctx, "hours must be a number")
			return
		}
		hours = val
	}
	posts, err := h.schedulerUsecase.Upcoming(ctx.Request.Context(), middleware.WorkspaceID(ctx), hours)
	if err != nil {
		respondError(ctx, err)
		return
	}
	if posts == nil {
		posts = []*model.ScheduledPost{}
	}
	respondOK(ctx, posts, "")
}

func (h *ScheduleHandler) Reschedule(ctx *gin.Context) {
	id, ok := postIDParam(ctx)
	if !ok {
		return
	}
	var req dto.RescheduleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondBadRequest(ctx, err.Error())
		return
	}
	if err := h.schedulerUsecase.Reschedule(ctx.Request.Context(), middleware.WorkspaceID(ctx), id, req.ScheduledFor); err != nil {
		respondError(ctx, err)
		return
	}
	respondOK(ctx, gin.H{"id": id, "scheduled_for": req.ScheduledFor.UTC()}, "Post rescheduled")
}

func (h *ScheduleHandler) Cancel(ctx *gin.Context) {
	id, ok := postIDParam(ctx)
	if !ok {
		return
	}
	if err := h.schedulerUsecase.Cancel(ctx.Request.Context(), middleware.WorkspaceID(ctx), id); err != nil {
		respondError(ctx, err)
		return
	}
	respondOK(ctx, nil, "Post cancelled")
}

// Process runs one sweep on demand over the caller's workspace.
func (h *ScheduleHandler) Process(ctx *gin.Context) {
	report, err := h.schedulerUsecase.ProcessDueForWorkspace(ctx.Request.Context(), middleware.WorkspaceID(ctx))
	if err != nil {
		respondError(ctx, err)
		return
	}
	respondOK(ctx, report, "")
}

func (h *ScheduleHandler) Stream(ctx *gin.Context) {
	h.stream.Serve(ctx)
}

func postIDParam(ctx *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		respondBadRequest(ctx, "invalid scheduled post id")
		return 0, false
	}
	return id, true
}
