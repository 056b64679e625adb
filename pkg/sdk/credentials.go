package sdk

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

// Credentials is the persisted subset of a session. The JSON names double as
// the durable storage keys.
type Credentials struct {
	AccessToken     string        `json:"accessToken"`
	RefreshToken    string        `json:"refreshToken,omitempty"`
	TokenType       string        `json:"tokenType,omitempty"`
	ExpiresAt       time.Time     `json:"expiresAt,omitempty"`
	IsAuthenticated bool          `json:"isAuthenticated"`
	User            *UserIdentity `json:"user,omitempty"`
}

// CredentialStore persists credentials across process restarts.
type CredentialStore interface {
	SaveCredentials(credentials *Credentials) error
	LoadCredentials() (*Credentials, error)
	DeleteCredentials() error
}

// IsExpired reports whether the access token is known to be expired. A zero
// ExpiresAt means the expiry is unknown and the token is treated as live.
func (c *Credentials) IsExpired() bool {
	if c.ExpiresAt.IsZero() {
		return false
	}
	return time.Now().After(c.ExpiresAt)
}

// OAuth2Token converts the credentials for use with an oauth2 transport.
func (c *Credentials) OAuth2Token() *oauth2.Token {
	tokenType := c.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}
	return &oauth2.Token{
		AccessToken:  c.AccessToken,
		TokenType:    tokenType,
		RefreshToken: c.RefreshToken,
		Expiry:       c.ExpiresAt,
	}
}

// TokenExpiry computes the access token expiry. expiresIn (seconds) wins;
// otherwise the JWT exp claim is read without verifying the signature, since
// the client never holds the signing key. Opaque tokens yield the zero time.
func TokenExpiry(accessToken string, expiresIn int64, now time.Time) time.Time {
	if expiresIn > 0 {
		return now.Add(time.Duration(expiresIn) * time.Second)
	}
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, &claims); err != nil {
		return time.Time{}
	}
	if claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}
