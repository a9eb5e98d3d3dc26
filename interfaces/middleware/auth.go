package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"social-publisher/domain/dto"
	"social-publisher/domain/model"
	"social-publisher/infrastructure/logger"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
)

// Context keys set by Auth.
const (
	WorkspaceIDKey = "workspace_id"
	UserNameKey    = "user_name"
)

// Auth validates the bearer token and exposes its workspace to the handlers.
func Auth(secretKey string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		res := dto.Response{Success: false, Error: "Unauthorized"}
		if secretKey == "" {
			res.Message = "Token verification is not configured"
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, res)
			return
		}

		authorization := ctx.Request.Header.Get("Authorization")
		if authorization == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, res)
			return
		}
		auth := strings.Split(authorization, "Bearer ")
		if len(auth) != 2 || auth[1] == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, res)
			return
		}

		userClaims, token, err := getClaim(auth[1], secretKey)
		if err != nil || token == nil || !token.Valid {
			res.Message = abortMessage(err)
			logger.GetLogger().WithField("error", err).Warn("Rejected API token")
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, res)
			return
		}
		if userClaims.WorkspaceID == "" {
			res.Message = "Token has no workspace"
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, res)
			return
		}

		ctx.Set(WorkspaceIDKey, userClaims.WorkspaceID)
		ctx.Set(UserNameKey, userClaims.UserName)
		ctx.Next()
	}
}

func abortMessage(err error) string {
	var ve *jwt.ValidationError
	if errors.As(err, &ve) {
		if ve.Errors&jwt.ValidationErrorMalformed != 0 {
			return "That's not even a token"
		} else if ve.Errors&(jwt.ValidationErrorExpired|jwt.ValidationErrorNotValidYet) != 0 {
			// Token is either expired or not active yet
			return "Timing is everything"
		}
		return fmt.Sprintf("Couldn't handle this token:%v", err)
	}
	return "Invalid token"
}

func getClaim(raw string, secretKey string) (model.UserClaims, *jwt.Token, error) {
	var userClaims model.UserClaims
	token, err := jwt.ParseWithClaims(
		raw,
		&userClaims,
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
			}
			return []byte(secretKey), nil
		},
	)
	return userClaims, token, err
}

// WorkspaceID returns the workspace set by Auth.
func WorkspaceID(ctx *gin.Context) string {
	return ctx.GetString(WorkspaceIDKey)
}
