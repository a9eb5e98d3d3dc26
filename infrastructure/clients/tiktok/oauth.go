package tiktok

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"social-publisher/domain/model"
	"social-publisher/domain/repository"
	"social-publisher/infrastructure/httpclient"
	"social-publisher/infrastructure/logger"
)

type tokenForm struct {
	ClientKey    string `url:"client_key"`
	ClientSecret string `url:"client_secret"`
	GrantType    string `url:"grant_type"`
	Code         string `url:"code,omitempty"`
	RedirectURI  string `url:"redirect_uri,omitempty"`
	RefreshToken string `url:"refresh_token,omitempty"`
}

type oauthHandler struct {
	http      *httpclient.Client
	endpoints Endpoints
}

// NewOAuthHandler returns the TikTok login kit flow. The app id is sent as client_key.
func NewOAuthHandler(hc *httpclient.Client, endpoints Endpoints) repository.IOAuthHandler {
	return &oauthHandler{http: hc, endpoints: endpoints.withDefaults()}
}

func (h *oauthHandler) Platform() model.Platform { return model.PlatformTikTok }

func (h *oauthHandler) UsesPKCE() bool { return false }

func (h *oauthHandler) AuthCodeURL(client model.OAuthClient, state, _ string) string {
	q := url.Values{}
	q.Set("client_key", client.ClientID)
	q.Set("redirect_uri", client.RedirectURI)
	q.Set("response_type", "code")
	q.Set("scope", strings.Join(client.Scopes, ","))
	q.Set("state", state)
	return h.endpoints.AuthURL + "?" + q.Encode()
}

func (h *oauthHandler) ExchangeCodeForToken(ctx context.Context, req model.TokenExchangeRequest) (*model.TokenBundle, error) {
	return h.tokenCall(ctx, model.OperationTokenExchange, tokenForm{
		ClientKey:    req.ClientID,
		ClientSecret: req.ClientSecret,
		GrantType:    "authorization_code",
		Code:         req.Code,
		RedirectURI:  req.RedirectURI,
	})
}

func (h *oauthHandler) RefreshAccessToken(ctx context.Context, req model.TokenRefreshRequest) (*model.TokenBundle, error) {
	if req.RefreshToken == "" {
		return nil, model.NewOAuthError(model.PlatformTikTok, model.OperationTokenRefresh, 0, "refresh token is required", nil)
	}
	return h.tokenCall(ctx, model.OperationTokenRefresh, tokenForm{
		ClientKey:    req.ClientID,
		ClientSecret: req.ClientSecret,
		GrantType:    "refresh_token",
		RefreshToken: req.RefreshToken,
	})
}

func (h *oauthHandler) tokenCall(ctx context.Context, operation string, form tokenForm) (*model.TokenBundle, error) {
	resp, err := h.http.Do(ctx, &httpclient.Request{
		Method: http.MethodPost,
		URL:    h.endpoints.APIBase + "/v2/oauth/token/",
		Form:   form,
	})
	if err != nil {
		return nil, model.NewOAuthError(model.PlatformTikTok, operation, 0, err.Error(), err)
	}
	if !resp.OK() || resp.Get("error").String() != "" {
		msg := httpclient.ErrorMessage(resp.Body)
		logger.GetLogger().
			WithField("platform", model.PlatformTikTok).
			WithField("operation", operation).
			WithField("status", resp.StatusCode).
			WithField("error", msg).
			Error("OAuth call failed")
		return nil, model.NewOAuthError(model.PlatformTikTok, operation, resp.StatusCode, msg, nil)
	}
	b := &model.TokenBundle{
		AccessToken:  resp.Get("access_token").String(),
		RefreshToken: resp.Get("refresh_token").String(),
		TokenType:    resp.Get("token_type").String(),
		ExpiresIn:    resp.Get("expires_in").Int(),
		Scope:        resp.Get("scope").String(),
		UserID:       resp.Get("open_id").String(),
	}
	if b.AccessToken == "" {
		return nil, model.NewOAuthError(model.PlatformTikTok, operation, resp.StatusCode, "response has no access_token", nil)
	}
	if b.TokenType == "" {
		b.TokenType = "Bearer"
	}
	return b, nil
}
