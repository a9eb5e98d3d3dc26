package youtube

import (
	"context"

	"social-publisher/domain/model"
	"social-publisher/domain/repository"
	"social-publisher/infrastructure/clients/oauthflow"
	"social-publisher/infrastructure/httpclient"

	"golang.org/x/oauth2"
)

type oauthHandler struct {
	http     *httpclient.Client
	endpoint oauth2.Endpoint
}

// NewOAuthHandler returns the Google OAuth flow. Consent is forced with offline access so
// every authorization yields a refresh token.
func NewOAuthHandler(hc *httpclient.Client, endpoints Endpoints) repository.IOAuthHandler {
	e := endpoints.withDefaults()
	return &oauthHandler{
		http: hc,
		endpoint: oauth2.Endpoint{
			AuthURL:   e.AuthURL,
			TokenURL:  e.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

func (h *oauthHandler) Platform() model.Platform { return model.PlatformYouTube }

func (h *oauthHandler) UsesPKCE() bool { return false }

func (h *oauthHandler) AuthCodeURL(client model.OAuthClient, state, _ string) string {
	if len(client.Scopes) == 0 {
		client.Scopes = DefaultScopes
	}
	return oauthflow.Config(client, h.endpoint).AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

func (h *oauthHandler) ExchangeCodeForToken(ctx context.Context, req model.TokenExchangeRequest) (*model.TokenBundle, error) {
	conf := oauthflow.Config(model.OAuthClient{ClientID: req.ClientID, ClientSecret: req.ClientSecret, RedirectURI: req.RedirectURI}, h.endpoint)
	return oauthflow.Exchange(ctx, h.http, conf, model.PlatformYouTube, req.Code, "")
}

// RefreshAccessToken keeps the stored refresh token when Google does not rotate it.
func (h *oauthHandler) RefreshAccessToken(ctx context.Context, req model.TokenRefreshRequest) (*model.TokenBundle, error) {
	conf := oauthflow.Config(model.OAuthClient{ClientID: req.ClientID, ClientSecret: req.ClientSecret}, h.endpoint)
	b, err := oauthflow.Refresh(ctx, h.http, conf, model.PlatformYouTube, req.RefreshToken)
	if err != nil {
		return nil, err
	}
	if b.RefreshToken == "" {
		b.RefreshToken = req.RefreshToken
	}
	return b, nil
}
