package storage

import "context"

//go:generate moq -out metadata_mock.go . MetadataStorage

// MetadataStorage defines interface for storing client metadata
type MetadataStorage interface {
	// GetOrCreateSalt returns the per-database salt for the token sealing key,
	// generating and persisting it on first use
	GetOrCreateSalt(ctx context.Context) ([]byte, error)
}
