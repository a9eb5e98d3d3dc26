package model

import "github.com/golang-jwt/jwt"

// UserClaims are the JWT claims expected on API requests.
type UserClaims struct {
	UserName    string `json:"user_name"`
	WorkspaceID string `json:"workspace_id"`
	jwt.StandardClaims
}
