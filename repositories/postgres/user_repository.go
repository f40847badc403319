package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ninehub/storefront/models"
	"github.com/ninehub/storefront/repositories"
	"go.uber.org/zap"
)

const userColumns = `id, username, first_name, role, active, created_at, updated_at`

// errUnknownRole marks a row whose role has no authority mapping
var errUnknownRole = errors.New("unknown role")

// UserRepository implements the repositories.UserRepository interface
type UserRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *DB, logger *zap.Logger) repositories.UserRepository {
	return &UserRepository{
		db:     db,
		logger: logger,
	}
}

// GetByUsername retrieves a user by username
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE username = $1
	`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %q: %w", username, repositories.ErrNotFound)
		}
		if errors.Is(err, errUnknownRole) {
			r.logger.Warn("user has an unknown role", zap.Error(err))
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// List retrieves all users
func (r *UserRepository) List(ctx context.Context) ([]*models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		ORDER BY created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	users := make([]*models.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if errors.Is(err, errUnknownRole) {
			r.logger.Warn("skipping user with unknown role", zap.Error(err))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user rows: %w", err)
	}

	r.logger.Debug("users listed", zap.Int("count", len(users)))
	return users, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanUser reads one user row and resolves its authorities from the role.
// A role outside the known set yields errUnknownRole.
func scanUser(row rowScanner) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.FirstName,
		&user.Role,
		&user.Active,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if !user.Role.IsValid() {
		return nil, fmt.Errorf("user %q: %w %q", user.Username, errUnknownRole, user.Role)
	}
	user.Authorities = user.Role.Authorities()
	return user, nil
}
