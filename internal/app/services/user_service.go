package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/scholarstream/api/internal/app/auth"
	"github.com/scholarstream/api/internal/app/models"
	"github.com/scholarstream/api/internal/app/models/dto"
	"github.com/scholarstream/api/internal/app/repositories"
	"github.com/scholarstream/api/internal/pkg/apperrors"
)

// UserService defines the interface for user operations
type UserService interface {
	Register(ctx context.Context, req *dto.CreateUserRequest) (*models.User, bool, error)
	GetUsersByFilter(ctx context.Context, filter models.UserFilter) ([]*models.User, int64, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetRole(ctx context.Context, email string) (models.Role, error)
	UpdateRole(ctx context.Context, id uuid.UUID, role string) (*models.User, error)
	DeleteUser(ctx context.Context, id uuid.UUID) error
}

// userServiceImpl implements UserService
type userServiceImpl struct {
	userRepo repositories.IUserRepository
	roles    auth.RoleResolver
	logger   zerolog.Logger
}

// NewUserService creates a new UserService
func NewUserService(userRepo repositories.IUserRepository, roles auth.RoleResolver, logger zerolog.Logger) UserService {
	return &userServiceImpl{
		userRepo: userRepo,
		roles:    roles,
		logger:   logger,
	}
}

// Register creates the user on first sign in. Registering an email that
// already exists returns the stored record with created=false.
func (s *userServiceImpl) Register(ctx context.Context, req *dto.CreateUserRequest) (*models.User, bool, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return nil, false, apperrors.NewValidationError("email is required")
	}

	user := &models.User{
		Email:       email,
		DisplayName: strings.TrimSpace(req.ResolvedName()),
		PhotoURL:    req.PhotoURL,
		Role:        models.RoleStudent,
	}
	created, err := s.userRepo.CreateIfNotExists(ctx, user)
	if err != nil {
		return nil, false, fmt.Errorf("error registering user: %w", err)
	}
	if created {
		s.logger.Info().Str("email", email).Str("userID", user.ID.String()).Msg("User registered")
	}
	return user, created, nil
}

// GetUsersByFilter lists users matching the search text
func (s *userServiceImpl) GetUsersByFilter(ctx context.Context, filter models.UserFilter) ([]*models.User, int64, error) {
	return s.userRepo.List(ctx, filter)
}

// GetByEmail returns the user registered under email
func (s *userServiceImpl) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.userRepo.GetByEmail(ctx, email)
}

// GetRole returns the role of email; unknown emails are Students
func (s *userServiceImpl) GetRole(ctx context.Context, email string) (models.Role, error) {
	return s.roles.ResolveRole(ctx, email)
}

// UpdateRole changes a user's role. role is matched case-insensitively.
func (s *userServiceImpl) UpdateRole(ctx context.Context, id uuid.UUID, role string) (*models.User, error) {
	parsed, ok := models.ParseRole(role)
	if !ok {
		return nil, apperrors.ErrInvalidRole
	}

	user, err := s.userRepo.UpdateRole(ctx, id, parsed)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("userID", id.String()).Str("role", string(parsed)).Msg("User role updated")
	return user, nil
}

// DeleteUser hard-deletes a user
func (s *userServiceImpl) DeleteUser(ctx context.Context, id uuid.UUID) error {
	if err := s.userRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Str("userID", id.String()).Msg("User deleted")
	return nil
}
