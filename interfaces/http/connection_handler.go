package http

import (
	"net/http"

	"social-publisher/domain/dto"
	"social-publisher/interfaces/middleware"
	"social-publisher/usecase"

	"github.com/gin-gonic/gin"
)

type IConnectionHandler interface {
	GetAuthURL(ctx *gin.Context)
	Callback(ctx *gin.Context)
	List(ctx *gin.Context)
	Refresh(ctx *gin.Context)
	Disconnect(ctx *gin.Context)
	Verify(ctx *gin.Context)
	Profile(ctx *gin.Context)
}

type ConnectionHandler struct {
	oauthUsecase      usecase.IOAuthUsecase
	publishingUsecase usecase.IPublishingUsecase
}

func NewConnectionHandler(oauthUsecase usecase.IOAuthUsecase, publishingUsecase usecase.IPublishingUsecase) IConnectionHandler {
	return &ConnectionHandler{
		oauthUsecase:      oauthUsecase,
		publishingUsecase: publishingUsecase,
	}
}

// GetAuthURL starts a connect flow for the caller's workspace.
func (h *ConnectionHandler) GetAuthURL(ctx *gin.Context) {
	platform, ok := platformParam(ctx)
	if !ok {
		return
	}
	start, err := h.oauthUsecase.BeginAuthorization(ctx.Request.Context(), middleware.WorkspaceID(ctx), platform)
	if err != nil {
		respondError(ctx, err)
		return
	}
	respondOK(ctx, start, "")
}

// Callback is hit by the provider redirect. The workspace comes from the stored state, not a token.
func (h *ConnectionHandler) Callback(ctx *gin.Context) {
	platform, ok := platformParam(ctx)
	if !ok {
		return
	}
	if providerErr := ctx.Query("error"); providerErr != "" {
		ctx.JSON(http.StatusBadRequest, dto.Response{
			Success: false,
			Error:   providerErr,
			Message: ctx.Query("error_description"),
		})
		return
	}

	conn, err := h.oauthUsecase.CompleteAuthorization(ctx.Request.Context(), platform, ctx.Query("state"), ctx.Query("code"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	respondOK(ctx, conn, "Account connected")
}

func (h *ConnectionHandler) List(ctx *gin.Context) {
	connections, err := h.oauthUsecase.ListConnections(ctx.Request.Context(), middleware.WorkspaceID(ctx))
	if err != nil {
		respondError(ctx, err)
		return
	}
	respondOK(ctx, connections, "")
}

func (h *ConnectionHandler) Refresh(ctx *gin.Context) {
	platform, ok := platformParam(ctx)
	if !ok {
		return
	}
	summary, err := h.oauthUsecase.RefreshCredential(ctx.Request.Context(), middleware.WorkspaceID(ctx), platform)
	if err != nil {
		respondError(ctx, err)
		return
	}
	respondOK(ctx, summary, "Token refreshed")
}

func (h *ConnectionHandler) Disconnect(ctx *gin.Context) {
	platform, ok := platformParam(ctx)
	if !ok {
		return
	}
	if err := h.oauthUsecase.Disconnect(ctx.Request.Context(), middleware.WorkspaceID(ctx), platform); err != nil {
		respondError(ctx, err)
		return
	}
	respondOK(ctx, nil, "Account disconnected")
}

func (h *ConnectionHandler) Verify(ctx *gin.Context) {
	platform, ok := platformParam(ctx)
	if !ok {
		return
	}
	result, err := h.publishingUsecase.VerifyCredentials(ctx.Request.Context(), middleware.WorkspaceID(ctx), platform)
	if err != nil {
		respondError(ctx, err)
		return
	}
	respondOK(ctx, result, "")
}

func (h *ConnectionHandler) Profile(ctx *gin.Context) {
	platform, ok := platformParam(ctx)
	if !ok {
		return
	}
	profile, err := h.publishingUsecase.GetUserProfile(ctx.Request.Context(), middleware.WorkspaceID(ctx), platform)
	if err != nil {
		respondError(ctx, err)
		return
	}
	respondOK(ctx, profile, "")
}
