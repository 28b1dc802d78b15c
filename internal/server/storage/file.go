package storage

import (
	"context"

	"github.com/iudanet/chatdesk/internal/models"
)

// FileStorage хранит запись о единственном документе базы знаний
type FileStorage interface {
	// ReplaceFile stores file as the only document and returns the previous one.
	// previous is nil when nothing was uploaded before.
	ReplaceFile(ctx context.Context, file *models.UploadedFile) (previous *models.UploadedFile, err error)

	// GetFile returns the current document
	// Returns ErrFileNotFound if nothing was uploaded
	GetFile(ctx context.Context) (*models.UploadedFile, error)
}
