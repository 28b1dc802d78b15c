package boltdb

import (
	"context"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/iudanet/chatdesk/internal/client/storage"
	"github.com/iudanet/chatdesk/internal/models"
)

var (
	keySnapshot     = []byte("snapshot")
	keyActiveThread = []byte("active_thread")
)

// SaveSnapshot stores the cached conversation
func (s *Storage) SaveSnapshot(ctx context.Context, snap *models.Snapshot) error {
	if snap == nil {
		return fmt.Errorf("snapshot is nil")
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	return s.update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketChat)
		if bucket == nil {
			return fmt.Errorf("chat bucket not found")
		}

		if err := bucket.Put(keySnapshot, data); err != nil {
			return fmt.Errorf("failed to save snapshot: %w", err)
		}
		return nil
	})
}

// GetSnapshot retrieves the cached conversation
func (s *Storage) GetSnapshot(ctx context.Context) (*models.Snapshot, error) {
	var snap *models.Snapshot

	err := s.view(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketChat)
		if bucket == nil {
			return fmt.Errorf("chat bucket not found")
		}

		data := bucket.Get(keySnapshot)
		if data == nil {
			return storage.ErrSnapshotNotFound
		}

		snap = &models.Snapshot{}
		if err := json.Unmarshal(data, snap); err != nil {
			return fmt.Errorf("failed to unmarshal snapshot: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return snap, nil
}

// DeleteSnapshot removes the cached conversation
func (s *Storage) DeleteSnapshot(ctx context.Context) error {
	return s.deleteChatKey(keySnapshot)
}

// SaveActiveThread stores the id of the active thread
func (s *Storage) SaveActiveThread(ctx context.Context, threadID string) error {
	return s.update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketChat)
		if bucket == nil {
			return fmt.Errorf("chat bucket not found")
		}

		if err := bucket.Put(keyActiveThread, []byte(threadID)); err != nil {
			return fmt.Errorf("failed to save active thread: %w", err)
		}
		return nil
	})
}

// GetActiveThread returns the stored thread id or "" if there is none
func (s *Storage) GetActiveThread(ctx context.Context) (string, error) {
	var threadID string

	err := s.view(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketChat)
		if bucket == nil {
			return fmt.Errorf("chat bucket not found")
		}

		// Get возвращает слайс, валидный только внутри транзакции
		threadID = string(bucket.Get(keyActiveThread))
		return nil
	})
	if err != nil {
		return "", err
	}

	return threadID, nil
}

// DeleteActiveThread removes the active thread marker
func (s *Storage) DeleteActiveThread(ctx context.Context) error {
	return s.deleteChatKey(keyActiveThread)
}

func (s *Storage) deleteChatKey(key []byte) error {
	return s.update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketChat)
		if bucket == nil {
			return fmt.Errorf("chat bucket not found")
		}

		if err := bucket.Delete(key); err != nil {
			return fmt.Errorf("failed to delete %s: %w", key, err)
		}
		return nil
	})
}
