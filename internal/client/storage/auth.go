package storage

import (
	"context"

	"github.com/iudanet/chatdesk/internal/models"
)

//go:generate moq -out auth_mock.go . AuthStorage

// AuthStorage defines interface for storing authentication data on client.
// This is the lowest storage layer - it works with raw data (tokens may be
// sealed already) and doesn't perform any encryption itself.
// Identity and both tokens are written as one record, so a reader never
// observes a half-updated session.
type AuthStorage interface {
	// SaveAuth replaces the stored record as a whole
	SaveAuth(ctx context.Context, auth *AuthData) error

	// GetAuth retrieves stored authentication data as-is.
	// Returns ErrAuthNotFound if no auth data exists
	GetAuth(ctx context.Context) (*AuthData, error)

	// DeleteAuth removes stored authentication data (logout).
	// Deleting a missing record is not an error.
	DeleteAuth(ctx context.Context) error
}

// AuthData represents authentication information in storage.
// When Sealed is true the tokens are base64 AES-GCM ciphertext, otherwise plaintext.
type AuthData struct {
	Identity     models.Identity `json:"identity"`
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
	SavedAt      int64           `json:"saved_at"`
	Sealed       bool            `json:"sealed"`
}
