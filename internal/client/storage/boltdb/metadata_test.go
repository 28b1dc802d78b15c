package boltdb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"

	"github.com/iudanet/chatdesk/internal/crypto"
)

func TestGetOrCreateSalt(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	salt, err := store.GetOrCreateSalt(ctx)
	require.NoError(t, err)
	assert.Len(t, salt, crypto.SaltSize)

	// Второй вызов возвращает ту же соль
	again, err := store.GetOrCreateSalt(ctx)
	require.NoError(t, err)
	assert.Equal(t, salt, again)
}

func TestGetOrCreateSalt_BucketMissing(t *testing.T) {
	store := createTestStorage(t)

	err := store.db.Update(func(tx *bbolt.Tx) error {
		return tx.DeleteBucket(bucketMetadata)
	})
	require.NoError(t, err)

	_, err = store.GetOrCreateSalt(context.Background())
	assert.ErrorContains(t, err, "metadata bucket not found")
}
