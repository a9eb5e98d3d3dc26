package model

import (
	"errors"
	"strings"
	"time"
)

// ErrOAuthStateNotFound is returned when an authorization state is unknown, already used or expired.
var ErrOAuthStateNotFound = errors.New("oauth state not found or expired")

// Metadata keys stored next to a credential.
const (
	MetaPageID             = "page_id"
	MetaPageName           = "page_name"
	MetaInstagramAccountID = "instagram_account_id"
	MetaPersonURN          = "person_urn"
)

// PlatformCredential stores OAuth tokens for one (workspace, platform) pair.
type PlatformCredential struct {
	ID               int64             `json:"id"`
	WorkspaceID      string            `json:"workspace_id"`
	Platform         Platform          `json:"platform"`
	AccessToken      string            `json:"-"`
	RefreshToken     string            `json:"-"`
	PlatformUserID   string            `json:"platform_user_id"`
	PlatformUsername string            `json:"platform_username"`
	Scopes           []string          `json:"scopes"`
	ExpiresAt        *time.Time        `json:"expires_at,omitempty"`
	Metadata         map[string]string `json:"metadata,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// ExpiresWithin reports whether the access token expires before now+d. Tokens without expiry never do.
func (c *PlatformCredential) ExpiresWithin(now time.Time, d time.Duration) bool {
	if c.ExpiresAt == nil {
		return false
	}
	return c.ExpiresAt.Before(now.Add(d))
}

// Meta returns a metadata value or "".
func (c *PlatformCredential) Meta(key string) string {
	if c == nil || c.Metadata == nil {
		return ""
	}
	return c.Metadata[key]
}

// SetMeta sets a metadata value, skipping empty ones.
func (c *PlatformCredential) SetMeta(key, value string) {
	if value == "" {
		return
	}
	if c.Metadata == nil {
		c.Metadata = map[string]string{}
	}
	c.Metadata[key] = value
}

// Summary strips the secrets for listing.
func (c *PlatformCredential) Summary() CredentialSummary {
	return CredentialSummary{
		Platform:         c.Platform,
		PlatformUserID:   c.PlatformUserID,
		PlatformUsername: c.PlatformUsername,
		Scopes:           c.Scopes,
		ExpiresAt:        c.ExpiresAt,
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,
	}
}

// CredentialSummary is the token-free view of a connected account.
type CredentialSummary struct {
	Platform         Platform   `json:"platform"`
	PlatformUserID   string     `json:"platform_user_id"`
	PlatformUsername string     `json:"platform_username"`
	Scopes           []string   `json:"scopes"`
	ExpiresAt        *time.Time `json:"expires_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// TokenBundle is the normalized result of a token exchange or refresh.
type TokenBundle struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
	Scope        string `json:"scope,omitempty"`
	// UserID is set by providers that return the account id with the token (TikTok open_id).
	UserID string `json:"user_id,omitempty"`
}

// ExpiresAt converts ExpiresIn to an absolute time relative to now.
func (t *TokenBundle) ExpiresAt(now time.Time) *time.Time {
	if t.ExpiresIn <= 0 {
		return nil
	}
	at := now.Add(time.Duration(t.ExpiresIn) * time.Second).UTC()
	return &at
}

// TokenExchangeRequest carries the authorization-code grant inputs.
type TokenExchangeRequest struct {
	Code         string
	ClientID     string
	ClientSecret string
	RedirectURI  string
	CodeVerifier string
}

// TokenRefreshRequest carries the refresh inputs. AccessToken is used by providers
// that extend the current token instead of using a refresh token.
type TokenRefreshRequest struct {
	RefreshToken string
	AccessToken  string
	ClientID     string
	ClientSecret string
}

// OAuthClient is the registered application for one platform.
type OAuthClient struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Scopes       []string
}

// OAuthState is kept between the authorization redirect and the callback.
type OAuthState struct {
	WorkspaceID  string    `json:"workspace_id"`
	Platform     Platform  `json:"platform"`
	CodeVerifier string    `json:"code_verifier,omitempty"`
	RedirectURI  string    `json:"redirect_uri"`
	CreatedAt    time.Time `json:"created_at"`
}

// NormalizeScopes splits provider scope strings (space or comma delimited) into an
// ordered list without blanks or duplicates.
func NormalizeScopes(raw ...string) []string {
	out := make([]string, 0)
	seen := map[string]struct{}{}
	for _, r := range raw {
		fields := strings.FieldsFunc(r, func(c rune) bool {
			return c == ' ' || c == ',' || c == '\t' || c == '\n'
		})
		for _, f := range fields {
			if _, ok := seen[f]; ok {
				continue
			}
			seen[f] = struct{}{}
			out = append(out, f)
		}
	}
	return out
}
