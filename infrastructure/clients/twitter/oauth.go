package twitter

import (
	"context"

	"social-publisher/domain/model"
	"social-publisher/domain/repository"
	"social-publisher/infrastructure/clients/oauthflow"
	"social-publisher/infrastructure/httpclient"

	"golang.org/x/oauth2"
)

// DefaultRefreshExpiresIn is assumed when a refresh response omits expires_in.
const DefaultRefreshExpiresIn = 7200

type oauthHandler struct {
	http     *httpclient.Client
	endpoint oauth2.Endpoint
}

// NewOAuthHandler returns the OAuth 2.0 + PKCE handler. The client authenticates with HTTP basic auth.
func NewOAuthHandler(hc *httpclient.Client, endpoints Endpoints) repository.IOAuthHandler {
	e := endpoints.withDefaults()
	return &oauthHandler{
		http: hc,
		endpoint: oauth2.Endpoint{
			AuthURL:   e.AuthURL,
			TokenURL:  e.TokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}
}

func (h *oauthHandler) Platform() model.Platform { return model.PlatformTwitter }

func (h *oauthHandler) UsesPKCE() bool { return true }

func (h *oauthHandler) AuthCodeURL(client model.OAuthClient, state, codeVerifier string) string {
	return oauthflow.Config(client, h.endpoint).AuthCodeURL(state, oauth2.S256ChallengeOption(codeVerifier))
}

func (h *oauthHandler) ExchangeCodeForToken(ctx context.Context, req model.TokenExchangeRequest) (*model.TokenBundle, error) {
	conf := oauthflow.Config(model.OAuthClient{ClientID: req.ClientID, ClientSecret: req.ClientSecret, RedirectURI: req.RedirectURI}, h.endpoint)
	return oauthflow.Exchange(ctx, h.http, conf, model.PlatformTwitter, req.Code, req.CodeVerifier)
}

func (h *oauthHandler) RefreshAccessToken(ctx context.Context, req model.TokenRefreshRequest) (*model.TokenBundle, error) {
	conf := oauthflow.Config(model.OAuthClient{ClientID: req.ClientID, ClientSecret: req.ClientSecret}, h.endpoint)
	b, err := oauthflow.Refresh(ctx, h.http, conf, model.PlatformTwitter, req.RefreshToken)
	if err != nil {
		return nil, err
	}
	if b.ExpiresIn <= 0 {
		b.ExpiresIn = DefaultRefreshExpiresIn
	}
	return b, nil
}
