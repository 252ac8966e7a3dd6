package application

import (
	"time"

	"github.com/bnema/snippets-cli/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

// AccessTokenInfo is what can be read from the access token without
// verifying it. Opaque tokens leave every field empty.
type AccessTokenInfo struct {
	ExpiresAt *time.Time
	IssuedAt  *time.Time
	Subject   string
}

// Expired reports whether the token is known to have expired at now.
func (i AccessTokenInfo) Expired(now time.Time) bool {
	return i.ExpiresAt != nil && !now.Before(*i.ExpiresAt)
}

type Status struct {
	Session     domain.Session
	Profile     string
	BaseURL     string
	AccessToken AccessTokenInfo
}

// inspectAccessToken decodes the claims of a JWT access token. The server is
// the only party that verifies it; this is for display.
func inspectAccessToken(token string) AccessTokenInfo {
	if token == "" {
		return AccessTokenInfo{}
	}

	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return AccessTokenInfo{}
	}

	var info AccessTokenInfo
	if claims.ExpiresAt != nil {
		expiresAt := claims.ExpiresAt.Time
		info.ExpiresAt = &expiresAt
	}
	if claims.IssuedAt != nil {
		issuedAt := claims.IssuedAt.Time
		info.IssuedAt = &issuedAt
	}
	info.Subject = claims.Subject
	return info
}
