package http

import (
	"fmt"
	"net/http"
	"strings"

	"social-publisher/domain/dto"
	"social-publisher/domain/model"
	"social-publisher/interfaces/middleware"
	"social-publisher/usecase"

	"github.com/gin-gonic/gin"
)

type IPublishHandler interface {
	Publish(ctx *gin.Context)
	PublishMulti(ctx *gin.Context)
	Schedule(ctx *gin.Context)
	GetPost(ctx *gin.Context)
	GetPostMetrics(ctx *gin.Context)
	DeletePost(ctx *gin.Context)
}

type PublishHandler struct {
	publishingUsecase usecase.IPublishingUsecase
}

func NewPublishHandler(publishingUsecase usecase.IPublishingUsecase) IPublishHandler {
	return &PublishHandler{publishingUsecase: publishingUsecase}
}

func (h *PublishHandler) Publish(ctx *gin.Context) {
	var req dto.PublishRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondBadRequest(ctx, err.Error())
		return
	}
	publishReq, err := toPublishRequest(req)
	if err != nil {
		respondError(ctx, err)
		return
	}

	result := h.publishingUsecase.PublishToPlatform(ctx.Request.Context(), middleware.WorkspaceID(ctx), publishReq)
	respondResult(ctx, result)
}

// PublishMulti fans the post out and reports every platform, failed ones included.
func (h *PublishHandler) PublishMulti(ctx *gin.Context) {
	var req dto.MultiPublishRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondBadRequest(ctx, err.Error())
		return
	}
	if len(req.Platforms) == 0 {
		respondBadRequest(ctx, "platforms must not be empty")
		return
	}

	overrides, err := keyedByPlatform(req.ContentByPlatform)
	if err != nil {
		respondError(ctx, err)
		return
	}
	rawOptions, err := keyedByPlatform(req.Options)
	if err != nil {
		respondError(ctx, err)
		return
	}

	platforms := make([]model.Platform, 0, len(req.Platforms))
	content := make(map[model.Platform]string, len(req.Platforms))
	options := make(map[model.Platform]model.PublishOptions, len(req.Platforms))
	for _, name := range req.Platforms {
		p, err := model.ParsePlatform(name)
		if err != nil {
			respondError(ctx, err)
			return
		}
		platforms = append(platforms, p)
		content[p] = req.Content
		if override, ok := overrides[p]; ok {
			content[p] = override
		}
		if raw, ok := rawOptions[p]; ok {
			opts, err := model.DecodeOptions(p, raw)
			if err != nil {
				respondError(ctx, err)
				return
			}
			options[p] = opts
		}
	}

	results := h.publishingUsecase.PublishToMultiplePlatforms(ctx.Request.Context(), middleware.WorkspaceID(ctx), platforms, content, req.MediaURLs, options)

	summary := dto.MultiPublishResponse{Results: results, Total: len(results)}
	for _, r := range results {
		if r.Success {
			summary.Successful++
		} else {
			summary.Failed++
		}
	}
	ctx.JSON(http.StatusOK, dto.Response{
		Success: summary.Failed == 0,
		Data:    summary,
	})
}

// Schedule asks the provider to publish at scheduled_for.
func (h *PublishHandler) Schedule(ctx *gin.Context) {
	var req dto.NativeScheduleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondBadRequest(ctx, err.Error())
		return
	}
	if req.ScheduledFor.IsZero() {
		respondBadRequest(ctx, "scheduled_for is required")
		return
	}
	publishReq, err := toPublishRequest(req.PublishRequest)
	if err != nil {
		respondError(ctx, err)
		return
	}

	result := h.publishingUsecase.SchedulePost(ctx.Request.Context(), middleware.WorkspaceID(ctx), publishReq, req.ScheduledFor)
	respondResult(ctx, result)
}

func (h *PublishHandler) GetPost(ctx *gin.Context) {
	platform, ok := platformParam(ctx)
	if !ok {
		return
	}
	post, err := h.publishingUsecase.GetPost(ctx.Request.Context(), middleware.WorkspaceID(ctx), platform, ctx.Param("postId"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	respondOK(ctx, post, "")
}

func (h *PublishHandler) GetPostMetrics(ctx *gin.Context) {
	platform, ok := platformParam(ctx)
	if !ok {
		return
	}
	postMetrics, err := h.publishingUsecase.GetPostMetrics(ctx.Request.Context(), middleware.WorkspaceID(ctx), platform, ctx.Param("postId"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	respondOK(ctx, postMetrics, "")
}

func (h *PublishHandler) DeletePost(ctx *gin.Context) {
	platform, ok := platformParam(ctx)
	if !ok {
		return
	}
	if err := h.publishingUsecase.DeletePost(ctx.Request.Context(), middleware.WorkspaceID(ctx), platform, ctx.Param("postId")); err != nil {
		respondError(ctx, err)
		return
	}
	respondOK(ctx, nil, "Post deleted")
}

func toPublishRequest(req dto.PublishRequest) (*model.PublishRequest, error) {
	platform, err := model.ParsePlatform(req.Platform)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Content) == "" && len(req.MediaURLs) == 0 {
		return nil, model.NewInvalidRequestError(platform, "publish", "content or media_urls is required")
	}
	opts, err := model.DecodeOptions(platform, req.Options)
	if err != nil {
		return nil, err
	}
	return &model.PublishRequest{
		Platform:  platform,
		Content:   req.Content,
		MediaURLs: req.MediaURLs,
		Options:   opts,
	}, nil
}

// respondResult always answers 200; the outcome travels in the envelope.
func respondResult(ctx *gin.Context, result *model.PublishResult) {
	ctx.JSON(http.StatusOK, dto.Response{
		Success: result.Success,
		Data:    result,
		Error:   result.Error,
	})
}

// keyedByPlatform re-keys a per-platform request map by parsed platform name.
func keyedByPlatform[V any](in map[string]V) (map[model.Platform]V, error) {
	out := make(map[model.Platform]V, len(in))
	for name, v := range in {
		p, err := model.ParsePlatform(name)
		if err != nil {
			return nil, err
		}
		if _, dup := out[p]; dup {
			return nil, model.NewInvalidRequestError(p, "publish", fmt.Sprintf("platform %s is listed more than once", p))
		}
		out[p] = v
	}
	return out, nil
}
