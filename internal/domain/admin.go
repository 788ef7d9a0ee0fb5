package domain

import (
	"time"

	"github.com/google/uuid"
)

// AdminUser is an operator account. Admin auth is a separate realm from
// player tokens.
type AdminUser struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}
