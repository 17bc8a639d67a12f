package seed

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	appModels "github.com/scholarstream/api/internal/app/models"
	appRepos "github.com/scholarstream/api/internal/app/repositories"
)

// EnsureAdmin makes sure the configured account exists with the Admin role.
// An empty email is a no-op. An existing user is promoted.
func EnsureAdmin(ctx context.Context, userRepo appRepos.IUserRepository, email, name string, lgr zerolog.Logger) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil
	}
	if name == "" {
		name = "Administrator"
	}

	admin := &appModels.User{Email: email, DisplayName: name, Role: appModels.RoleAdmin}
	created, err := userRepo.CreateIfNotExists(ctx, admin)
	if err != nil {
		return fmt.Errorf("error creating admin user: %w", err)
	}
	if created {
		lgr.Info().Str("email", email).Msg("Admin user created")
		return nil
	}

	if admin.Role == appModels.RoleAdmin {
		lgr.Debug().Str("email", email).Msg("Admin user already present")
		return nil
	}
	if _, err := userRepo.UpdateRole(ctx, admin.ID, appModels.RoleAdmin); err != nil {
		return fmt.Errorf("error promoting admin user: %w", err)
	}
	lgr.Info().Str("email", email).Str("previousRole", string(admin.Role)).Msg("Existing user promoted to admin")
	return nil
}
