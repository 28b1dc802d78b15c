package storage

import (
	"context"

	"github.com/iudanet/chatdesk/internal/models"
)

// ContactStorage defines interface for contact form submissions
type ContactStorage interface {
	// CreateContact stores a submission and fills ID and CreatedAt
	CreateContact(ctx context.Context, contact *models.Contact) error

	// ListContacts returns all submissions, newest first
	ListContacts(ctx context.Context) ([]models.Contact, error)

	// CountContacts returns the number of submissions
	CountContacts(ctx context.Context) (int, error)
}
