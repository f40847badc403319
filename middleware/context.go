package middleware

import (
	"context"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// Context key type to avoid collisions
type contextKey string

// IdentityKey is the context key for the authenticated identity
const IdentityKey contextKey = "identity"

// Identity is the authenticated principal attached to a request
type Identity struct {
	UserID      uuid.UUID
	Username    string
	Authorities []string
	// Token is the raw bearer credential the identity was built from
	Token string
}

// HasAuthority returns true if the identity holds the given authority
func (i *Identity) HasAuthority(authority string) bool {
	for _, a := range i.Authorities {
		if a == authority {
			return true
		}
	}
	return false
}

// GetRequestIDFromContext returns the request ID set by chi's RequestID
// middleware, or "" outside a routed request
func GetRequestIDFromContext(ctx context.Context) string {
	return chimiddleware.GetReqID(ctx)
}

// IdentityFromContext retrieves the identity from context, or nil when the
// request is unauthenticated
func IdentityFromContext(ctx context.Context) *Identity {
	if identity, ok := ctx.Value(IdentityKey).(*Identity); ok {
		return identity
	}
	return nil
}

// WithIdentity attaches an identity to the context
func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, IdentityKey, identity)
}
