package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/scholarstream/api/internal/app/models"
	"github.com/scholarstream/api/internal/app/repositories"
	"github.com/scholarstream/api/internal/pkg/apperrors"
	"github.com/scholarstream/api/internal/pkg/logger"
)

// RoleResolver maps an authenticated email onto a role
type RoleResolver interface {
	ResolveRole(ctx context.Context, email string) (models.Role, error)
}

// AuthorizationService handles authorization operations
type AuthorizationService struct {
	userRepo repositories.IUserRepository
}

// NewAuthorizationService creates a new AuthorizationService
func NewAuthorizationService(userRepo repositories.IUserRepository) *AuthorizationService {
	return &AuthorizationService{
		userRepo: userRepo,
	}
}

// ResolveRole returns the stored role for email. An email without a user
// record is a Student; store failures are returned so callers can fail closed.
func (s *AuthorizationService) ResolveRole(ctx context.Context, email string) (models.Role, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrResourceNotFound) {
			return models.RoleStudent, nil
		}
		logger.Error().Err(err).Str("email", email).Msg("Error resolving user role")
		return "", fmt.Errorf("error resolving role: %w", err)
	}

	role, ok := models.ParseRole(string(user.Role))
	if !ok {
		logger.Warn().Str("email", email).Str("role", string(user.Role)).Msg("Stored role is not recognised, treating as Student")
		return models.RoleStudent, nil
	}
	return role, nil
}

// IsStaff reports whether the role may review applications
func IsStaff(role models.Role) bool {
	return role == models.RoleModerator || role == models.RoleAdmin
}
