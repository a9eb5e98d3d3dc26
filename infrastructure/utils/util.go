package utils

import (
	"time"

	"social-publisher/domain/model"
	"social-publisher/infrastructure/logger"

	"github.com/golang-jwt/jwt"
)

// GenerateToken signs an API token for a workspace. A zero ttl yields a token without expiry.
func GenerateToken(workspaceID, userName, secretKey string, ttl time.Duration) (string, error) {
	claims := model.UserClaims{
		UserName:    userName,
		WorkspaceID: workspaceID,
		StandardClaims: jwt.StandardClaims{
			IssuedAt: time.Now().Unix(),
			Subject:  userName,
		},
	}
	if ttl > 0 {
		claims.ExpiresAt = time.Now().Add(ttl).Unix()
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(secretKey))
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while generate token")
		return "", err
	}
	return tokenString, nil
}
