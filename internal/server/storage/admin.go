package storage

import (
	"context"

	"github.com/iudanet/chatdesk/internal/models"
)

//go:generate moq -out admin_mock.go . AdminStorage

// AdminStorage defines interface for admin accounts persistence
type AdminStorage interface {
	// CreateAdmin creates a new admin and fills admin.ID
	// Returns ErrAdminAlreadyExists if email is taken
	CreateAdmin(ctx context.Context, admin *models.Admin) error

	// GetAdminByEmail retrieves admin by email
	// Returns ErrAdminNotFound if admin doesn't exist
	GetAdminByEmail(ctx context.Context, email string) (*models.Admin, error)

	// GetAdminByID retrieves admin by ID
	// Returns ErrAdminNotFound if admin doesn't exist
	GetAdminByID(ctx context.Context, id int64) (*models.Admin, error)
}
