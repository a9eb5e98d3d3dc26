package facebook

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

// DefaultLongLivedExpiresIn is about 60 days, assumed when the long-lived exchange omits expires_in.
const DefaultLongLivedExpiresIn = 5184000

type codeQuery struct {
	ClientID     string `url:"client_id"`
	RedirectURI  string `url:"redirect_uri"`
	ClientSecret string `url:"client_secret"`
	Code         string `url:"code"`
}

type exchangeQuery struct {
	GrantType       string `url:"grant_type"`
	ClientID        string `url:"client_id"`
	ClientSecret    string `url:"client_secret"`
	FBExchangeToken string `url:"fb_exchange_token"`
}

type oauthHandler struct {
	http      *httpclient.Client
	endpoints Endpoints
	platform  model.Platform
}

// NewOAuthHandler returns the Facebook login flow. Instagram uses the same flow with its own
// scopes, so platform tags the errors and results with the caller's platform.
func NewOAuthHandler(hc *httpclient.Client, endpoints Endpoints, platform model.Platform) repository.IOAuthHandler {
	if platform == "" {
		platform = model.PlatformFacebook
	}
	return &oauthHandler{http: hc, endpoints: endpoints.withDefaults(), platform: platform}
}

func (h *oauthHandler) Platform() model.Platform { return h.platform }

func (h *oauthHandler) UsesPKCE() bool { return false }

func (h *oauthHandler) AuthCodeURL(client model.OAuthClient, state, _ string) string {
	q := url.Values{}
	q.Set("client_id", client.ClientID)
	q.Set("redirect_uri", client.RedirectURI)
	q.Set("state", state)
	q.Set("response_type", "code")
	q.Set("scope", strings.Join(client.Scopes, ","))
	return h.endpoints.AuthURL + "?" + q.Encode()
}

// ExchangeCodeForToken trades the code for a short-lived token and immediately exchanges
// that for a long-lived one.
func (h *oauthHandler) ExchangeCodeForToken(ctx context.Context, req model.TokenExchangeRequest) (*model.TokenBundle, error) {
	if req.Code == "" {
		return nil, model.NewOAuthError(h.platform, model.OperationTokenExchange, 0, "authorization code is required", nil)
	}
	short, err := h.tokenCall(ctx, model.OperationTokenExchange, codeQuery{
		ClientID:     req.ClientID,
		RedirectURI:  req.RedirectURI,
		ClientSecret: req.ClientSecret,
		Code:         req.Code,
	})
	if err != nil {
		return nil, err
	}
	long, err := h.tokenCall(ctx, model.OperationTokenExchange, exchangeQuery{
		GrantType:       "fb_exchange_token",
		ClientID:        req.ClientID,
		ClientSecret:    req.ClientSecret,
		FBExchangeToken: short.AccessToken,
	})
	if err != nil {
		return nil, err
	}
	if long.ExpiresIn <= 0 {
		long.ExpiresIn = DefaultLongLivedExpiresIn
	}
	return long, nil
}

// RefreshAccessToken extends the current token; Facebook has no refresh-token grant.
func (h *oauthHandler) RefreshAccessToken(ctx context.Context, req model.TokenRefreshRequest) (*model.TokenBundle, error) {
	current := req.AccessToken
	if current == "" {
		current = req.RefreshToken
	}
	if current == "" {
		return nil, model.NewOAuthError(h.platform, model.OperationTokenRefresh, 0, "no token to extend", nil)
	}
	b, err := h.tokenCall(ctx, model.OperationTokenRefresh, exchangeQuery{
		GrantType:       "fb_extend_token",
		ClientID:        req.ClientID,
		ClientSecret:    req.ClientSecret,
		FBExchangeToken: current,
	})
	if err != nil {
		return nil, err
	}
	if b.ExpiresIn <= 0 {
		b.ExpiresIn = DefaultLongLivedExpiresIn
	}
	return b, nil
}

func (h *oauthHandler) tokenCall(ctx context.Context, operation string, params interface{}) (*model.TokenBundle, error) {
	resp, err := h.http.Do(ctx, &httpclient.Request{
		Method: http.MethodGet,
		URL:    h.endpoints.GraphBase + "/oauth/access_token",
		Query:  httpclient.Values(params),
	})
	if err != nil {
		return nil, model.NewOAuthError(h.platform, operation, 0, err.Error(), err)
	}
	if !resp.OK() || resp.Get("error").Exists() {
		msg := httpclient.ErrorMessage(resp.Body)
		logger.GetLogger().
			WithField("platform", h.platform).
			WithField("operation", operation).
			WithField("status", resp.StatusCode).
			WithField("error", msg).
			Error("OAuth call failed")
		return nil, model.NewOAuthError(h.platform, operation, resp.StatusCode, msg, nil)
	}
	b := &model.TokenBundle{
		AccessToken: resp.Get("access_token").String(),
		TokenType:   resp.Get("token_type").String(),
		ExpiresIn:   resp.Get("expires_in").Int(),
	}
	if b.AccessToken == "" {
		return nil, model.NewOAuthError(h.platform, operation, resp.StatusCode, "response has no access_token", nil)
	}
	if b.TokenType == "" {
		b.TokenType = "bearer"
	}
	return b, nil
}
