package middleware

import (
	"errors"
	"net/http"

	"github.com/ninehub/storefront/config"
	"github.com/ninehub/storefront/internal/observability"
	"github.com/ninehub/storefront/repositories"
	"github.com/ninehub/storefront/services"
	"github.com/ninehub/storefront/utils"
	"go.uber.org/zap"
)

// AuthMiddleware provides authentication and authorization middleware
type AuthMiddleware struct {
	authenticator *RequestAuthenticator
	policy        string
	logger        *zap.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware. policy decides what
// happens when a user or token record lookup fails: config.LookupFailureAbort
// or config.LookupFailureSkip.
func NewAuthMiddleware(authenticator *RequestAuthenticator, policy string, logger *zap.Logger) *AuthMiddleware {
	if policy != config.LookupFailureSkip {
		policy = config.LookupFailureAbort
	}
	return &AuthMiddleware{
		authenticator: authenticator,
		policy:        policy,
		logger:        logger,
	}
}

// Authenticate runs the request authenticator once per request and attaches
// the resulting identity. Anonymous requests pass through.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := GetRequestIDFromContext(ctx)

		identity, err := m.authenticator.Authenticate(r)
		if err != nil {
			if m.policy == config.LookupFailureSkip {
				m.logger.Warn("credential lookup failed, continuing unauthenticated",
					zap.String("request_id", requestID),
					zap.Error(err))
				observability.AuthDecisionsTotal.WithLabelValues(observability.AuthSkipped).Inc()
				next.ServeHTTP(w, r)
				return
			}

			if isNotFound(err) {
				m.logger.Warn("credential lookup found nothing",
					zap.String("request_id", requestID),
					zap.Error(err))
				observability.AuthDecisionsTotal.WithLabelValues(observability.AuthRejected).Inc()
				_ = utils.WriteUnauthorized(w, "Invalid authentication credentials")
				return
			}

			m.logger.Error("credential lookup failed",
				zap.String("request_id", requestID),
				zap.Error(err))
			observability.AuthDecisionsTotal.WithLabelValues(observability.AuthError).Inc()
			_ = utils.WriteInternalServerError(w, "Authentication unavailable")
			return
		}

		if identity == nil {
			outcome := observability.AuthAnonymous
			if _, ok := bearerToken(r); ok {
				outcome = observability.AuthSkipped
			}
			observability.AuthDecisionsTotal.WithLabelValues(outcome).Inc()
			next.ServeHTTP(w, r)
			return
		}

		// An identity installed by an earlier pass is left alone and not recounted
		if IdentityFromContext(ctx) != nil {
			next.ServeHTTP(w, r)
			return
		}

		ctx = WithIdentity(ctx, identity)
		m.logger.Debug("authentication successful",
			zap.String("request_id", requestID),
			zap.String("username", identity.Username))
		observability.AuthDecisionsTotal.WithLabelValues(observability.AuthAuthenticated).Inc()

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAuthenticated rejects requests without an identity with 401
func (m *AuthMiddleware) RequireAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if IdentityFromContext(r.Context()) == nil {
			m.deny(w, r, http.StatusUnauthorized, "")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAuthority is a middleware that requires a specific authority.
// No identity yields 401; an identity lacking the authority yields 403.
func (m *AuthMiddleware) RequireAuthority(authority string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := IdentityFromContext(r.Context())
			if identity == nil {
				m.deny(w, r, http.StatusUnauthorized, authority)
				return
			}

			if !identity.HasAuthority(authority) {
				m.deny(w, r, http.StatusForbidden, authority)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (m *AuthMiddleware) deny(w http.ResponseWriter, r *http.Request, status int, authority string) {
	m.logger.Warn("access denied",
		zap.String("request_id", GetRequestIDFromContext(r.Context())),
		zap.String("path", r.URL.Path),
		zap.String("required_authority", authority),
		zap.Int("status", status))
	observability.AuthDecisionsTotal.WithLabelValues(observability.AuthDenied).Inc()

	if status == http.StatusForbidden {
		_ = utils.WriteForbidden(w, "Insufficient permissions")
		return
	}
	_ = utils.WriteUnauthorized(w, "Authentication required")
}

func isNotFound(err error) bool {
	return services.IsNotFoundError(err) || errors.Is(err, repositories.ErrNotFound)
}
