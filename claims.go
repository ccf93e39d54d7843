package accounts

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccessClaims is the payload of a signed access token
type AccessClaims struct {
	jwt.RegisteredClaims
	UID         string `json:"uid,omitempty"`
	AccountRole string `json:"role,omitempty"`
}

// AccountID returns the account the token was minted for
func (c *AccessClaims) AccountID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.RegisteredClaims.Subject
}

// Role returns the account's role as carried by the token
func (c *AccessClaims) Role() string {
	return c.AccountRole
}

// Expires returns the expiration time
func (c *AccessClaims) Expires() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// RefreshClaims is the payload of a signed refresh token. It only carries
// the account id; validity against the stored token is checked on use.
type RefreshClaims struct {
	jwt.RegisteredClaims
	UID string `json:"uid,omitempty"`
}

// AccountID returns the account the token was minted for
func (c *RefreshClaims) AccountID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.RegisteredClaims.Subject
}
