package boltdb

import (
	"context"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/iudanet/chatdesk/internal/crypto"
)

var keyStorageSalt = []byte("storage_salt")

// GetOrCreateSalt returns the salt used to derive the token sealing key.
// The salt is generated once per database file.
func (s *Storage) GetOrCreateSalt(ctx context.Context) ([]byte, error) {
	var salt []byte

	err := s.update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketMetadata)
		if bucket == nil {
			return fmt.Errorf("metadata bucket not found")
		}

		if existing := bucket.Get(keyStorageSalt); existing != nil {
			// копируем: память bbolt недоступна после завершения транзакции
			salt = append([]byte(nil), existing...)
			return nil
		}

		generated, err := crypto.GenerateSalt()
		if err != nil {
			return err
		}
		if err := bucket.Put(keyStorageSalt, generated); err != nil {
			return fmt.Errorf("failed to save storage salt: %w", err)
		}
		salt = generated
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get storage salt: %w", err)
	}

	return salt, nil
}
