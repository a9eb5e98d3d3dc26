// Package oauthflow runs golang.org/x/oauth2 code exchanges and refreshes through the
// shared provider client and normalizes their results.
package oauthflow

import (
	"context"
	"errors"
	"time"

	"social-publisher/domain/model"
	"social-publisher/infrastructure/httpclient"
	"social-publisher/infrastructure/logger"

	"golang.org/x/oauth2"
)

// Config builds an oauth2.Config for endpoint from the registered client.
func Config(client model.OAuthClient, endpoint oauth2.Endpoint) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     client.ClientID,
		ClientSecret: client.ClientSecret,
		RedirectURL:  client.RedirectURI,
		Scopes:       client.Scopes,
		Endpoint:     endpoint,
	}
}

// Exchange trades an authorization code for tokens. A non-empty verifier is sent as the PKCE code_verifier.
func Exchange(ctx context.Context, hc *httpclient.Client, conf *oauth2.Config, platform model.Platform, code, verifier string) (*model.TokenBundle, error) {
	if code == "" {
		return nil, model.NewOAuthError(platform, model.OperationTokenExchange, 0, "authorization code is required", nil)
	}
	callCtx, cancel := hc.OAuth2Context(ctx)
	defer cancel()

	var opts []oauth2.AuthCodeOption
	if verifier != "" {
		opts = append(opts, oauth2.VerifierOption(verifier))
	}
	tok, err := conf.Exchange(callCtx, code, opts...)
	if err != nil {
		return nil, Wrap(platform, model.OperationTokenExchange, err)
	}
	return Bundle(tok, time.Now()), nil
}

// Refresh runs the refresh_token grant.
func Refresh(ctx context.Context, hc *httpclient.Client, conf *oauth2.Config, platform model.Platform, refreshToken string) (*model.TokenBundle, error) {
	if refreshToken == "" {
		return nil, model.NewOAuthError(platform, model.OperationTokenRefresh, 0, "no refresh token stored", nil)
	}
	callCtx, cancel := hc.OAuth2Context(ctx)
	defer cancel()

	tok, err := conf.TokenSource(callCtx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, Wrap(platform, model.OperationTokenRefresh, err)
	}
	return Bundle(tok, time.Now()), nil
}

// Bundle converts an oauth2 token to the common token shape.
func Bundle(tok *oauth2.Token, now time.Time) *model.TokenBundle {
	b := &model.TokenBundle{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
	}
	if b.TokenType == "" {
		b.TokenType = "Bearer"
	}
	switch {
	case tok.ExpiresIn > 0:
		b.ExpiresIn = tok.ExpiresIn
	case !tok.Expiry.IsZero():
		b.ExpiresIn = int64(tok.Expiry.Sub(now).Round(time.Second) / time.Second)
	}
	if s, ok := tok.Extra("scope").(string); ok {
		b.Scope = s
	}
	return b
}

// Wrap turns an oauth2 failure into an oauth_error tagged with platform and operation.
func Wrap(platform model.Platform, operation string, err error) error {
	status := 0
	msg := err.Error()
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		if re.Response != nil {
			status = re.Response.StatusCode
		}
		switch {
		case re.ErrorDescription != "":
			msg = re.ErrorDescription
		case re.ErrorCode != "":
			msg = re.ErrorCode
		default:
			if m := httpclient.ErrorMessage(re.Body); m != "" {
				msg = m
			}
		}
	}
	logger.GetLogger().
		WithField("platform", platform).
		WithField("operation", operation).
		WithField("status", status).
		WithField("error", msg).
		Error("OAuth call failed")
	return model.NewOAuthError(platform, operation, status, msg, err)
}

// NewVerifier returns a fresh PKCE code verifier.
func NewVerifier() string { return oauth2.GenerateVerifier() }
