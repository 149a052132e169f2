package models

import (
	"time"

	"github.com/google/uuid"
)

// RoleAdmin is the only role in this system; the admin area is the sole
// authenticated surface.
const RoleAdmin = "admin"

// AdminUser is a staff account for the admin inbox.
type AdminUser struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FullName     string    `json:"full_name,omitempty"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
