package boltdb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"

	"github.com/iudanet/chatdesk/internal/client/storage"
	"github.com/iudanet/chatdesk/internal/models"
)

func TestStorage_SaveGetDeleteAuth(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	auth := &storage.AuthData{
		Identity: models.Identity{
			ID:    "7",
			Email: "admin@example.com",
			Name:  "Admin",
			Role:  models.RoleAdmin,
		},
		AccessToken:  "access-token",
		RefreshToken: "refresh-token",
		SavedAt:      time.Now().Unix(),
	}

	// До сохранения GetAuth выдает ErrAuthNotFound
	_, err := store.GetAuth(ctx)
	assert.ErrorIs(t, err, storage.ErrAuthNotFound)

	require.NoError(t, store.SaveAuth(ctx, auth))

	got, err := store.GetAuth(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, auth.Identity.ID, got.Identity.ID)
	assert.Equal(t, auth.Identity.Email, got.Identity.Email)
	assert.Equal(t, auth.Identity.Role, got.Identity.Role)
	assert.Equal(t, auth.AccessToken, got.AccessToken)
	assert.Equal(t, auth.RefreshToken, got.RefreshToken)
	assert.Equal(t, auth.SavedAt, got.SavedAt)
	assert.False(t, got.Sealed)

	// Перезапись целиком
	auth.AccessToken = "access-token-2"
	require.NoError(t, store.SaveAuth(ctx, auth))
	got, err = store.GetAuth(ctx)
	require.NoError(t, err)
	assert.Equal(t, "access-token-2", got.AccessToken)
	assert.Equal(t, "refresh-token", got.RefreshToken)

	require.NoError(t, store.DeleteAuth(ctx))

	_, err = store.GetAuth(ctx)
	assert.ErrorIs(t, err, storage.ErrAuthNotFound)

	// Повторное удаление не ошибка
	assert.NoError(t, store.DeleteAuth(ctx))
}

func TestStorage_SaveAuth_Nil(t *testing.T) {
	store := createTestStorage(t)

	err := store.SaveAuth(context.Background(), nil)
	assert.Error(t, err)
}

func TestStorage_Auth_BucketMissing(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	err := store.db.Update(func(tx *bbolt.Tx) error {
		return tx.DeleteBucket(bucketAuth)
	})
	require.NoError(t, err)

	_, err = store.GetAuth(ctx)
	assert.ErrorContains(t, err, "auth bucket not found")

	err = store.SaveAuth(ctx, &storage.AuthData{AccessToken: "x"})
	assert.ErrorContains(t, err, "auth bucket not found")

	err = store.DeleteAuth(ctx)
	assert.ErrorContains(t, err, "auth bucket not found")
}
