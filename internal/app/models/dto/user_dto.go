package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/scholarstream/api/internal/app/models"
)

// CreateUserRequest registers a user after a successful identity-provider sign in
type CreateUserRequest struct {
	Email       string  `json:"email" binding:"required,email" example:"student@example.com"`
	DisplayName string  `json:"displayName" example:"Jane Doe"`
	Name        string  `json:"name" example:"Jane Doe"`
	PhotoURL    *string `json:"photoURL,omitempty"`
}

// ResolvedName prefers displayName and falls back to name
func (r CreateUserRequest) ResolvedName() string {
	if r.DisplayName != "" {
		return r.DisplayName
	}
	return r.Name
}

// UpdateRoleRequest changes a user's role
type UpdateRoleRequest struct {
	Role string `json:"role" binding:"required" example:"Moderator"`
}

// UserFilterRequest represents user listing parameters
type UserFilterRequest struct {
	SearchText string `form:"searchText"`
	Page       int    `form:"page,default=1" binding:"min=1"`
	Limit      int    `form:"limit,default=10" binding:"min=1,max=100"`
}

// UserResponse represents a user in API responses
type UserResponse struct {
	ID          uuid.UUID   `json:"id"`
	Email       string      `json:"email"`
	DisplayName string      `json:"displayName"`
	PhotoURL    *string     `json:"photoURL,omitempty"`
	Role        models.Role `json:"role"`
	CreatedAt   time.Time   `json:"createdAt"`
}

// CreateUserResponse reports whether the user was inserted or already existed
type CreateUserResponse struct {
	User    UserResponse `json:"user"`
	Created bool         `json:"created"`
}

// RoleResponse is the public role lookup result
type RoleResponse struct {
	Role models.Role `json:"role" example:"Student"`
}

// UserListResponse represents a list of users with pagination
type UserListResponse struct {
	Users      []UserResponse `json:"users"`
	Pagination PaginationInfo `json:"pagination"`
}

// FromUser converts a models.User to a UserResponse
func FromUser(u *models.User) UserResponse {
	if u == nil {
		return UserResponse{}
	}
	return UserResponse{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		PhotoURL:    u.PhotoURL,
		Role:        u.Role,
		CreatedAt:   u.CreatedAt,
	}
}

// FromUsers converts a slice of users
func FromUsers(users []*models.User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, FromUser(u))
	}
	return out
}
