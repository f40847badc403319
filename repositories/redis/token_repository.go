// Package redis provides a Redis-backed implementation of
// repositories.TokenRepository. Each token record is a hash stored at
// <prefix><raw token> with the fields id, expired, deactivated, user_id and
// created_at.
package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/ninehub/storefront/models"
	"github.com/ninehub/storefront/repositories"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultKeyPrefix = "storefront:token:"

const (
	fieldID          = "id"
	fieldExpired     = "expired"
	fieldDeactivated = "deactivated"
	fieldUserID      = "user_id"
	fieldCreatedAt   = "created_at"
)

// Config contains configuration options for the Redis token store
type Config struct {
	// Client is the Redis client instance
	Client *redis.Client

	// KeyPrefix is the prefix for all token keys
	// Default: "storefront:token:"
	KeyPrefix string

	Logger *zap.Logger
}

// TokenRepository implements repositories.TokenRepository on Redis hashes
type TokenRepository struct {
	client    *redis.Client
	keyPrefix string
	logger    *zap.Logger
}

// New creates a new Redis token repository
func New(config Config) (*TokenRepository, error) {
	if config.Client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = defaultKeyPrefix
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}

	return &TokenRepository{
		client:    config.Client,
		keyPrefix: config.KeyPrefix,
		logger:    config.Logger,
	}, nil
}

// GetByValue retrieves a token record by its raw value
func (r *TokenRepository) GetByValue(ctx context.Context, value string) (*models.TokenRecord, error) {
	fields, err := r.client.HGetAll(ctx, r.key(value)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get token record: %w", err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("token record: %w", repositories.ErrNotFound)
	}

	record, err := decodeRecord(value, fields)
	if err != nil {
		return nil, fmt.Errorf("failed to decode token record: %w", err)
	}
	return record, nil
}

// Deactivate marks a token record as deactivated
func (r *TokenRepository) Deactivate(ctx context.Context, value string) error {
	key := r.key(value)

	n, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("failed to check token record: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("token record: %w", repositories.ErrNotFound)
	}

	if err := r.client.HSet(ctx, key, fieldDeactivated, "1").Err(); err != nil {
		return fmt.Errorf("failed to deactivate token record: %w", err)
	}

	r.logger.Debug("token record deactivated")
	return nil
}

// Save writes a token record. A positive ttl bounds the key lifetime.
func (r *TokenRepository) Save(ctx context.Context, record *models.TokenRecord, ttl time.Duration) error {
	if record.Value == "" {
		return fmt.Errorf("token value is required")
	}
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	key := r.key(record.Value)
	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, key,
		fieldID, record.ID.String(),
		fieldExpired, formatBool(record.Expired),
		fieldDeactivated, formatBool(record.Deactivated),
		fieldUserID, record.UserID.String(),
		fieldCreatedAt, record.CreatedAt.Format(time.RFC3339Nano),
	)
	if ttl > 0 {
		pipe.Expire(ctx, key, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save token record: %w", err)
	}
	return nil
}

// HealthCheck pings the Redis server
func (r *TokenRepository) HealthCheck(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}
	return nil
}

func (r *TokenRepository) key(value string) string {
	return r.keyPrefix + value
}

func decodeRecord(value string, fields map[string]string) (*models.TokenRecord, error) {
	record := &models.TokenRecord{Value: value}

	var err error
	if record.Expired, err = parseBool(fields[fieldExpired]); err != nil {
		return nil, fmt.Errorf("field %s: %w", fieldExpired, err)
	}
	if record.Deactivated, err = parseBool(fields[fieldDeactivated]); err != nil {
		return nil, fmt.Errorf("field %s: %w", fieldDeactivated, err)
	}
	if s := fields[fieldID]; s != "" {
		if record.ID, err = uuid.Parse(s); err != nil {
			return nil, fmt.Errorf("field %s: %w", fieldID, err)
		}
	}
	if s := fields[fieldUserID]; s != "" {
		if record.UserID, err = uuid.Parse(s); err != nil {
			return nil, fmt.Errorf("field %s: %w", fieldUserID, err)
		}
	}
	if s := fields[fieldCreatedAt]; s != "" {
		if record.CreatedAt, err = time.Parse(time.RFC3339Nano, s); err != nil {
			return nil, fmt.Errorf("field %s: %w", fieldCreatedAt, err)
		}
	}
	return record, nil
}

// parseBool treats a missing field as false
func parseBool(s string) (bool, error) {
	if s == "" {
		return false, nil
	}
	return strconv.ParseBool(s)
}

func formatBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
