package services

import (
	"context"
	"errors"

	"github.com/ninehub/storefront/models"
	"github.com/ninehub/storefront/repositories"
	"go.uber.org/zap"
)

// TokenService exposes the server-side state of issued tokens
type TokenService struct {
	tokenRepo repositories.TokenRepository
	logger    *zap.Logger
}

// NewTokenService creates a new TokenService instance
func NewTokenService(tokenRepo repositories.TokenRepository, logger *zap.Logger) *TokenService {
	return &TokenService{
		tokenRepo: tokenRepo,
		logger:    logger,
	}
}

// LoadByValue returns the record stored for the exact raw token.
// A missing record yields ErrTokenNotFound.
func (s *TokenService) LoadByValue(ctx context.Context, raw string) (*models.TokenRecord, error) {
	record, err := s.tokenRepo.GetByValue(ctx, raw)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, wrap(ErrTokenNotFound, err)
		}
		return nil, wrap(ErrDatabaseError, err)
	}
	return record, nil
}

// Logout deactivates the token so later requests carrying it stay anonymous
func (s *TokenService) Logout(ctx context.Context, raw string) error {
	if err := s.tokenRepo.Deactivate(ctx, raw); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return wrap(ErrTokenNotFound, err)
		}
		return wrap(ErrDatabaseError, err)
	}

	s.logger.Info("token deactivated")
	return nil
}
