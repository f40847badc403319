package models

import (
	"time"

	"github.com/google/uuid"
)

// TokenRecord is the server-side state of an issued bearer token.
// Expired and Deactivated are independent of the token's own exp claim.
type TokenRecord struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Value       string    `json:"-" db:"value"`
	Expired     bool      `json:"expired" db:"expired"`
	Deactivated bool      `json:"deactivated" db:"deactivated"`
	UserID      uuid.UUID `json:"user_id" db:"user_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// IsUsable reports whether the record still allows authentication
func (t *TokenRecord) IsUsable() bool {
	return !t.Expired && !t.Deactivated
}
