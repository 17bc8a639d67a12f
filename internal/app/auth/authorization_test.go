package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/scholarstream/api/internal/app/models"
	"github.com/scholarstream/api/internal/app/repositories"
	"github.com/scholarstream/api/internal/app/repositories/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingUsers struct {
	repositories.IUserRepository
}

func (failingUsers) GetByEmail(context.Context, string) (*models.User, error) {
	return nil, errors.New("connection reset")
}

func TestResolveRole(t *testing.T) {
	ctx := context.Background()
	users := memory.NewUserRepository()
	_, err := users.CreateIfNotExists(ctx, &models.User{Email: "boss@example.com", Role: models.RoleAdmin})
	require.NoError(t, err)
	_, err = users.CreateIfNotExists(ctx, &models.User{Email: "mod@example.com", Role: models.Role("moderator")})
	require.NoError(t, err)

	svc := NewAuthorizationService(users)

	role, err := svc.ResolveRole(ctx, "boss@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, role)

	role, err = svc.ResolveRole(ctx, "mod@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleModerator, role)

	role, err = svc.ResolveRole(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, role)
}

func TestResolveRole_StoreFailure(t *testing.T) {
	svc := NewAuthorizationService(failingUsers{})

	role, err := svc.ResolveRole(context.Background(), "boss@example.com")
	assert.Error(t, err)
	assert.Empty(t, role)
}

func TestIsStaff(t *testing.T) {
	assert.True(t, IsStaff(models.RoleAdmin))
	assert.True(t, IsStaff(models.RoleModerator))
	assert.False(t, IsStaff(models.RoleStudent))
}
