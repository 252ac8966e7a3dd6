package domain

import "strings"

// Credential is the access/refresh token pair issued by the service.
// It is replaced wholesale, never edited in place.
type Credential struct {
	AccessToken  string
	RefreshToken string
}

func NewCredential(accessToken, refreshToken string) (Credential, error) {
	accessToken = strings.TrimSpace(accessToken)
	refreshToken = strings.TrimSpace(refreshToken)
	if accessToken == "" || refreshToken == "" {
		return Credential{}, ErrIncompleteCredential
	}

	return Credential{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

func (c Credential) IsZero() bool {
	return c.AccessToken == "" && c.RefreshToken == ""
}

func (c Credential) Complete() bool {
	return c.AccessToken != "" && c.RefreshToken != ""
}

// WithAccessToken returns a copy holding a new access token and the same refresh token.
func (c Credential) WithAccessToken(accessToken string) Credential {
	return Credential{AccessToken: accessToken, RefreshToken: c.RefreshToken}
}
