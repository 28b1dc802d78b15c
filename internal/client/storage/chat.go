package storage

import (
	"context"

	"github.com/iudanet/chatdesk/internal/models"
)

//go:generate moq -out chat_mock.go . ChatCacheStorage

// ChatCacheStorage keeps the last successfully loaded or completed
// conversation and the id of the active thread. It is used as an offline
// fallback only; the server stays the source of truth.
type ChatCacheStorage interface {
	// SaveSnapshot replaces the cached conversation
	SaveSnapshot(ctx context.Context, snap *models.Snapshot) error

	// GetSnapshot returns ErrSnapshotNotFound when nothing is cached
	GetSnapshot(ctx context.Context) (*models.Snapshot, error)

	// DeleteSnapshot is idempotent
	DeleteSnapshot(ctx context.Context) error

	// SaveActiveThread запоминает текущий тред
	SaveActiveThread(ctx context.Context, threadID string) error

	// GetActiveThread returns "" when no thread was saved
	GetActiveThread(ctx context.Context) (string, error)

	// DeleteActiveThread is idempotent
	DeleteActiveThread(ctx context.Context) error
}
