package http

import (
	"errors"
	"net/http"

	"social-publisher/domain/dto"
	"social-publisher/domain/model"
	"social-publisher/infrastructure/logger"

	"github.com/gin-gonic/gin"
)

func respondOK(ctx *gin.Context, data interface{}, message string) {
	ctx.JSON(http.StatusOK, dto.Response{Success: true, Data: data, Message: message})
}

func respondBadRequest(ctx *gin.Context, message string) {
	ctx.JSON(http.StatusBadRequest, dto.Response{Success: false, Error: "invalid_request", Message: message})
}

// respondError maps a usecase failure to a status code. Unsupported operations are
// an answer, not a fault, so they keep 200 with success=false.
func respondError(ctx *gin.Context, err error) {
	status := http.StatusInternalServerError
	res := dto.Response{Success: false, Error: err.Error()}

	switch {
	case errors.Is(err, model.ErrOAuthStateNotFound):
		status = http.StatusBadRequest
	case errors.Is(err, model.ErrScheduledPostNotFound):
		status = http.StatusNotFound
	default:
		switch model.KindOf(err) {
		case model.KindNotConnected:
			status = http.StatusNotFound
			res.Message = "Connect the account first"
		case model.KindInvalidRequest:
			status = http.StatusBadRequest
		case model.KindUnsupported:
			status = http.StatusOK
			res.Message = "Operation not supported by this platform"
		case model.KindOAuth, model.KindProviderAPI, model.KindPartialMediaFailure:
			status = http.StatusBadGateway
		}
	}

	if status >= http.StatusInternalServerError {
		logger.GetLogger().
			WithField("path", ctx.FullPath()).
			WithField("error", err).
			Error("Request failed")
	}
	ctx.JSON(status, res)
}

// platformParam parses the :platform route segment and answers 400 when it is unknown.
func platformParam(ctx *gin.Context) (model.Platform, bool) {
	p, err := model.ParsePlatform(ctx.Param("platform"))
	if err != nil {
		respondError(ctx, err)
		return "", false
	}
	return p, true
}
