package repositories

import (
	"context"
	"errors"

	"github.com/ninehub/storefront/models"
)

// ErrNotFound is returned (wrapped) when a lookup matches no row
var ErrNotFound = errors.New("not found")

// UserRepository handles user data operations
type UserRepository interface {
	// GetByUsername retrieves a user by its login name with authorities resolved
	GetByUsername(ctx context.Context, username string) (*models.User, error)

	// List retrieves all users ordered by creation time
	List(ctx context.Context) ([]*models.User, error)
}

// TokenRepository handles persisted token record operations
type TokenRepository interface {
	// GetByValue retrieves a token record by exact raw token value
	GetByValue(ctx context.Context, value string) (*models.TokenRecord, error)

	// Deactivate marks the token record with the given value as deactivated
	Deactivate(ctx context.Context, value string) error
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	Users  UserRepository
	Tokens TokenRepository
}
