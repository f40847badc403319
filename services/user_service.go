package services

import (
	"context"
	"errors"

	"github.com/ninehub/storefront/models"
	"github.com/ninehub/storefront/repositories"
	"go.uber.org/zap"
)

// UserService loads user accounts for authentication and administration
type UserService struct {
	userRepo repositories.UserRepository
	logger   *zap.Logger
}

// NewUserService creates a new UserService instance
func NewUserService(userRepo repositories.UserRepository, logger *zap.Logger) *UserService {
	return &UserService{
		userRepo: userRepo,
		logger:   logger,
	}
}

// LoadByUsername returns the user with its granted authorities.
// An unknown username yields ErrUserNotFound.
func (s *UserService) LoadByUsername(ctx context.Context, username string) (*models.User, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, wrap(ErrUserNotFound, err)
		}
		return nil, wrap(ErrDatabaseError, err)
	}
	return user, nil
}

// ListUsers returns every user ordered by creation time
func (s *UserService) ListUsers(ctx context.Context) ([]*models.User, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, wrap(ErrDatabaseError, err)
	}
	return users, nil
}
