package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/ninehub/storefront/models"
	"go.uber.org/zap"
)

const bearerPrefix = "Bearer "

// TokenValidator answers questions about the token's own claims
type TokenValidator interface {
	// IsExpired reports whether the embedded expiry has passed
	IsExpired(token string) bool
	// ExtractUsername returns the embedded username, if any
	ExtractUsername(token string) (string, bool)
}

// UserStore resolves a username to a user with its authorities
type UserStore interface {
	LoadByUsername(ctx context.Context, username string) (*models.User, error)
}

// TokenRecordStore looks up the server-side record of a raw token
type TokenRecordStore interface {
	LoadByValue(ctx context.Context, raw string) (*models.TokenRecord, error)
}

// LookupError reports a failed user or token record lookup
type LookupError struct {
	Stage string // "user" or "token"
	Err   error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("%s lookup failed: %v", e.Stage, e.Err)
}

func (e *LookupError) Unwrap() error {
	return e.Err
}

// RequestAuthenticator turns a bearer credential into an Identity. A token
// is honoured only when its own claims are unexpired and carry a username,
// and its stored record is neither expired nor deactivated.
type RequestAuthenticator struct {
	validator TokenValidator
	users     UserStore
	tokens    TokenRecordStore
	logger    *zap.Logger
}

// NewRequestAuthenticator creates a new RequestAuthenticator
func NewRequestAuthenticator(validator TokenValidator, users UserStore, tokens TokenRecordStore, logger *zap.Logger) *RequestAuthenticator {
	return &RequestAuthenticator{
		validator: validator,
		users:     users,
		tokens:    tokens,
		logger:    logger,
	}
}

// Authenticate returns the identity for the request, or nil when the request
// stays anonymous. An identity already present on the context is returned
// as is without store lookups. The error is non-nil only when a lookup fails.
func (a *RequestAuthenticator) Authenticate(r *http.Request) (*Identity, error) {
	token, ok := bearerToken(r)
	if !ok {
		return nil, nil
	}

	expired := a.validator.IsExpired(token)
	username, hasUsername := a.validator.ExtractUsername(token)
	if expired || !hasUsername {
		a.logger.Debug("bearer token not usable",
			zap.String("request_id", GetRequestIDFromContext(r.Context())),
			zap.Bool("expired", expired),
			zap.Bool("has_username", hasUsername))
		return nil, nil
	}

	ctx := r.Context()
	if existing := IdentityFromContext(ctx); existing != nil {
		return existing, nil
	}

	user, err := a.users.LoadByUsername(ctx, username)
	if err != nil {
		return nil, &LookupError{Stage: "user", Err: err}
	}

	record, err := a.tokens.LoadByValue(ctx, token)
	if err != nil {
		return nil, &LookupError{Stage: "token", Err: err}
	}

	if !record.IsUsable() {
		a.logger.Debug("token record revoked",
			zap.String("request_id", GetRequestIDFromContext(ctx)),
			zap.Bool("expired", record.Expired),
			zap.Bool("deactivated", record.Deactivated))
		return nil, nil
	}

	authorities := make([]string, len(user.Authorities))
	copy(authorities, user.Authorities)

	return &Identity{
		UserID:      user.ID,
		Username:    user.Username,
		Authorities: authorities,
		Token:       token,
	}, nil
}

// bearerToken returns the credential after the literal "Bearer " prefix
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", false
	}
	return header[len(bearerPrefix):], true
}
