// Package tokens verifies bearer tokens and answers the two questions the
// request authenticator asks of them: is the token expired, and whose is it.
package tokens

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned when the token cannot be decoded or verified
	ErrInvalidToken = errors.New("invalid token")

	// ErrInvalidIssuer is returned when the token issuer does not match
	ErrInvalidIssuer = errors.New("invalid issuer")

	// ErrNoKeySource is returned when neither a secret nor a JWKS URL is configured
	ErrNoKeySource = errors.New("no signing key source configured")
)

var (
	hmacMethods = []string{"HS256", "HS384", "HS512"}
	rsaMethods  = []string{"RS256", "RS384", "RS512"}
)

// Config holds configuration for Validator
type Config struct {
	Secret  string
	JWKSURL string
	Issuer  string
	Leeway  time.Duration
}

// Validator verifies HMAC tokens signed with a shared secret and RSA tokens
// whose keys are published in a JWKS document.
type Validator struct {
	secret  []byte
	jwks    keyfunc.Keyfunc // nil without a JWKS URL
	issuer  string
	leeway  time.Duration
	methods []string
	now     func() time.Time
}

// NewValidator creates a validator from config. With a JWKS URL the key set
// is fetched once here and then refreshed in the background until ctx is
// done; a token whose kid is not in the set triggers a rate limited refetch.
func NewValidator(ctx context.Context, config Config) (*Validator, error) {
	if config.Secret == "" && config.JWKSURL == "" {
		return nil, ErrNoKeySource
	}

	v := &Validator{
		issuer: config.Issuer,
		leeway: config.Leeway,
		now:    time.Now,
	}
	if config.Secret != "" {
		v.secret = []byte(config.Secret)
		v.methods = append(v.methods, hmacMethods...)
	}
	if config.JWKSURL != "" {
		kf, err := keyfunc.NewDefaultCtx(ctx, []string{config.JWKSURL})
		if err != nil {
			return nil, fmt.Errorf("jwks init failed: %w", err)
		}
		v.jwks = kf
		v.methods = append(v.methods, rsaMethods...)
	}
	return v, nil
}

// Parse verifies the signature and issuer and returns the claims.
// Expiry is not checked here; see IsExpired.
func (v *Validator) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, v.keyFunc,
		jwt.WithValidMethods(v.methods),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	if v.issuer != "" && claims.Issuer != v.issuer {
		return nil, fmt.Errorf("%w: expected %s, got %s", ErrInvalidIssuer, v.issuer, claims.Issuer)
	}

	return claims, nil
}

// IsExpired reports whether the token is unusable on time grounds. A token
// that cannot be decoded or verified is treated as expired.
func (v *Validator) IsExpired(tokenString string) bool {
	claims, err := v.Parse(tokenString)
	if err != nil {
		return true
	}
	return claims.ExpiredAt(v.now(), v.leeway)
}

// ExtractUsername returns the token subject. ok is false when the token
// cannot be decoded or carries no subject.
func (v *Validator) ExtractUsername(tokenString string) (string, bool) {
	claims, err := v.Parse(tokenString)
	if err != nil {
		return "", false
	}
	username := claims.Username()
	return username, username != ""
}

func (v *Validator) keyFunc(token *jwt.Token) (interface{}, error) {
	switch token.Method.(type) {
	case *jwt.SigningMethodHMAC:
		if len(v.secret) == 0 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	case *jwt.SigningMethodRSA:
		if v.jwks == nil {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.jwks.Keyfunc(token)
	default:
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
}
