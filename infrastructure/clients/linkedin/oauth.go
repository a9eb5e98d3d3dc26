package linkedin

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

// NewOAuthHandler returns the authorization-code handler. LinkedIn member tokens cannot be refreshed.
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

func (h *oauthHandler) Platform() model.Platform { return model.PlatformLinkedIn }

func (h *oauthHandler) UsesPKCE() bool { return false }

func (h *oauthHandler) AuthCodeURL(client model.OAuthClient, state, _ string) string {
	return oauthflow.Config(client, h.endpoint).AuthCodeURL(state)
}

func (h *oauthHandler) ExchangeCodeForToken(ctx context.Context, req model.TokenExchangeRequest) (*model.TokenBundle, error) {
	conf := oauthflow.Config(model.OAuthClient{ClientID: req.ClientID, ClientSecret: req.ClientSecret, RedirectURI: req.RedirectURI}, h.endpoint)
	return oauthflow.Exchange(ctx, h.http, conf, model.PlatformLinkedIn, req.Code, "")
}

func (h *oauthHandler) RefreshAccessToken(context.Context, model.TokenRefreshRequest) (*model.TokenBundle, error) {
	return nil, model.NewUnsupportedError(model.PlatformLinkedIn, model.OperationTokenRefresh,
		"LinkedIn does not support refreshing member tokens; reconnect the account")
}
