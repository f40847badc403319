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

// TokenRepository implements the repositories.TokenRepository interface
type TokenRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewTokenRepository creates a new token record repository
func NewTokenRepository(db *DB, logger *zap.Logger) repositories.TokenRepository {
	return &TokenRepository{
		db:     db,
		logger: logger,
	}
}

// GetByValue retrieves a token record by its raw value
func (r *TokenRepository) GetByValue(ctx context.Context, value string) (*models.TokenRecord, error) {
	query := `
		SELECT id, value, expired, deactivated, user_id, created_at
		FROM tokens
		WHERE value = $1
	`

	record := &models.TokenRecord{}
	err := r.db.QueryRowContext(ctx, query, value).Scan(
		&record.ID,
		&record.Value,
		&record.Expired,
		&record.Deactivated,
		&record.UserID,
		&record.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("token record: %w", repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get token record: %w", err)
	}

	return record, nil
}

// Deactivate marks a token record as deactivated
func (r *TokenRepository) Deactivate(ctx context.Context, value string) error {
	query := `UPDATE tokens SET deactivated = true WHERE value = $1`

	result, err := r.db.ExecContext(ctx, query, value)
	if err != nil {
		return fmt.Errorf("failed to deactivate token record: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("token record: %w", repositories.ErrNotFound)
	}

	r.logger.Debug("token record deactivated")
	return nil
}
