package handlers

import (
	"context"
	"net/http"

	"github.com/ninehub/storefront/middleware"
	"github.com/ninehub/storefront/models"
	"github.com/ninehub/storefront/utils"
	"go.uber.org/zap"
)

// UserService defines the user operations the handlers need
type UserService interface {
	ListUsers(ctx context.Context) ([]*models.User, error)
	LoadByUsername(ctx context.Context, username string) (*models.User, error)
}

// TokenService defines the token operations the handlers need
type TokenService interface {
	Logout(ctx context.Context, raw string) error
}

// UserHandler handles user-related HTTP requests
type UserHandler struct {
	users  UserService
	tokens TokenService
	logger *zap.Logger
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(users UserService, tokens TokenService, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		users:  users,
		tokens: tokens,
		logger: logger,
	}
}

// HandleListUsers handles GET /user/all
func (h *UserHandler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	users, err := h.users.ListUsers(ctx)
	if err != nil {
		h.logger.Error("failed to list users",
			zap.String("request_id", middleware.GetRequestIDFromContext(ctx)),
			zap.Error(err))
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, users)
}

// HandleCurrentUser handles GET /user/me
func (h *UserHandler) HandleCurrentUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identity := middleware.IdentityFromContext(ctx)
	if identity == nil {
		_ = utils.WriteUnauthorized(w, "Authentication required")
		return
	}

	user, err := h.users.LoadByUsername(ctx, identity.Username)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	// Authorities reflect what this request was granted
	user.Authorities = identity.Authorities
	_ = utils.WriteOK(w, user)
}

// HandleLogout handles POST /logout
func (h *UserHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identity := middleware.IdentityFromContext(ctx)
	if identity == nil {
		_ = utils.WriteUnauthorized(w, "Authentication required")
		return
	}

	if err := h.tokens.Logout(ctx, identity.Token); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Info("user logged out",
		zap.String("request_id", middleware.GetRequestIDFromContext(ctx)),
		zap.String("username", identity.Username))
	utils.WriteNoContent(w)
}
