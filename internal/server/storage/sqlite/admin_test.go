package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/chatdesk/internal/models"
	"github.com/iudanet/chatdesk/internal/server/storage"
)

func TestAdminStorage_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	admin := &models.Admin{
		Name:         "Alice",
		Email:        "alice@example.com",
		PasswordHash: "bcrypt-hash",
		Role:         models.RoleSuperAdmin,
	}
	require.NoError(t, s.CreateAdmin(ctx, admin))
	assert.NotZero(t, admin.ID)
	assert.False(t, admin.CreatedAt.IsZero())

	byEmail, err := s.GetAdminByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, admin.ID, byEmail.ID)
	assert.Equal(t, "Alice", byEmail.Name)
	assert.Equal(t, "bcrypt-hash", byEmail.PasswordHash)
	assert.Equal(t, models.RoleSuperAdmin, byEmail.Role)

	byID, err := s.GetAdminByID(ctx, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", byID.Email)
}

func TestAdminStorage_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	createTestAdmin(t, ctx, s, "dup@example.com")

	err := s.CreateAdmin(ctx, &models.Admin{
		Name:         "Other",
		Email:        "dup@example.com",
		PasswordHash: "hash",
		Role:         models.RoleAdmin,
	})
	assert.ErrorIs(t, err, storage.ErrAdminAlreadyExists)
}

func TestAdminStorage_NotFound(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	_, err := s.GetAdminByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, storage.ErrAdminNotFound)

	_, err = s.GetAdminByID(ctx, 42)
	assert.ErrorIs(t, err, storage.ErrAdminNotFound)
}
