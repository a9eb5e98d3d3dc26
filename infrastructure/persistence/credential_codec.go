package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"social-publisher/domain/model"
	"social-publisher/infrastructure/crypto"
	"social-publisher/infrastructure/logger"
)

var errNoKeyRing = errors.New("credential encryption is not configured")

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// sealedCredential is the storage form of a credential: encrypted tokens, space-joined scopes
// and JSON metadata.
type sealedCredential struct {
	AccessToken  string
	RefreshToken sql.NullString
	Scopes       string
	ExpiresAt    sql.NullTime
	Metadata     string
}

func sealCredential(keys *crypto.KeyRing, c *model.PlatformCredential) (*sealedCredential, error) {
	if keys == nil {
		return nil, errNoKeyRing
	}
	access, err := keys.Encrypt(c.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("encrypt access token: %w", err)
	}
	refresh, err := keys.Encrypt(c.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("encrypt refresh token: %w", err)
	}
	meta := "{}"
	if len(c.Metadata) > 0 {
		raw, err := json.Marshal(c.Metadata)
		if err != nil {
			return nil, fmt.Errorf("encode metadata: %w", err)
		}
		meta = string(raw)
	}
	s := &sealedCredential{
		AccessToken:  access,
		RefreshToken: sql.NullString{String: refresh, Valid: refresh != ""},
		Scopes:       strings.Join(model.NormalizeScopes(c.Scopes...), " "),
		Metadata:     meta,
	}
	if c.ExpiresAt != nil {
		s.ExpiresAt = sql.NullTime{Time: c.ExpiresAt.UTC(), Valid: true}
	}
	return s, nil
}

// scanCredential reads the full credential column list and decrypts the tokens.
func scanCredential(keys *crypto.KeyRing, row rowScanner) (*model.PlatformCredential, error) {
	if keys == nil {
		return nil, errNoKeyRing
	}
	var (
		c        model.PlatformCredential
		platform string
		access   string
		refresh  sql.NullString
		scopes   sql.NullString
		expires  sql.NullTime
		meta     sql.NullString
	)
	if err := row.Scan(&c.ID, &c.WorkspaceID, &platform, &access, &refresh, &c.PlatformUserID,
		&c.PlatformUsername, &scopes, &expires, &meta, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.Platform = model.Platform(platform)
	c.Scopes = model.NormalizeScopes(scopes.String)
	if expires.Valid {
		t := expires.Time
		c.ExpiresAt = &t
	}
	if meta.Valid && meta.String != "" {
		if err := json.Unmarshal([]byte(meta.String), &c.Metadata); err != nil {
			logger.GetLogger().WithField("credential_id", c.ID).WithField("error", err).Warn("Ignoring unreadable credential metadata")
		}
	}

	var err error
	if c.AccessToken, err = keys.Decrypt(access); err != nil {
		return nil, fmt.Errorf("decrypt access token: %w", err)
	}
	if c.RefreshToken, err = keys.Decrypt(refresh.String); err != nil {
		return nil, fmt.Errorf("decrypt refresh token: %w", err)
	}
	if keys.NeedsRotation(access) || keys.NeedsRotation(refresh.String) {
		logger.GetLogger().
			WithField("workspace_id", c.WorkspaceID).
			WithField("platform", c.Platform).
			WithField("active_key", keys.ActiveKeyID()).
			Info("Credential sealed with a retired key; it is re-encrypted on the next store")
	}
	return &c, nil
}

func scanSummary(row rowScanner) (model.CredentialSummary, error) {
	var (
		s        model.CredentialSummary
		platform string
		scopes   sql.NullString
		expires  sql.NullTime
	)
	if err := row.Scan(&platform, &s.PlatformUserID, &s.PlatformUsername, &scopes, &expires, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return s, err
	}
	s.Platform = model.Platform(platform)
	s.Scopes = model.NormalizeScopes(scopes.String)
	if expires.Valid {
		t := expires.Time
		s.ExpiresAt = &t
	}
	return s, nil
}

func stamp(c *model.PlatformCredential) {
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
}
