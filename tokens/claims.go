package tokens

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the registered claims carried by storefront bearer tokens.
// The subject is the username.
type Claims struct {
	jwt.RegisteredClaims
}

// Username returns the sub claim
func (c *Claims) Username() string {
	return c.Subject
}

// ExpiredAt reports whether the token is expired at now. A token without
// an exp claim counts as expired.
func (c *Claims) ExpiredAt(now time.Time, leeway time.Duration) bool {
	if c.ExpiresAt == nil {
		return true
	}
	return !now.Before(c.ExpiresAt.Time.Add(leeway))
}
