package users

import (
	"time"

	"github.com/gatehouse-api/gatehouse/internal/roles"
)

// User represents an account guarded by the access control layer.
// HashedPassword never serializes.
type User struct {
	ID             int64        `json:"id"`
	Email          string       `json:"email"`
	HashedPassword string       `json:"-"`
	IsActive       bool         `json:"is_active"`
	IsBlocked      bool         `json:"is_blocked"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
	DeletedAt      *time.Time   `json:"deleted_at,omitempty"`
	Roles          []roles.Role `json:"roles"`
}

// Summary is the listing projection of a user.
type Summary struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	IsActive  bool   `json:"is_active"`
	IsBlocked bool   `json:"is_blocked"`
}
