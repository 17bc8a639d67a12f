package models

import (
	"time"

	"github.com/google/uuid"
)

// User defines the user model based on the 'users' table
type User struct {
	ID          uuid.UUID `json:"id" db:"id" example:"5f0c7a53-3f6b-4d0e-9a57-8d0f2b1c9e11"`
	Email       string    `json:"email" db:"email" example:"student@example.com"`
	DisplayName string    `json:"displayName" db:"display_name" example:"Jane Doe"`
	PhotoURL    *string   `json:"photoURL,omitempty" db:"photo_url"`
	Role        Role      `json:"role" db:"role" example:"Student"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

// UserFilter narrows user listings
type UserFilter struct {
	Search string
	Page   int
	Limit  int
}
