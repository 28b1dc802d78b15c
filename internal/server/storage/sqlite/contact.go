package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/iudanet/chatdesk/internal/models"
)

// CreateContact stores a contact form submission
func (s *Storage) CreateContact(ctx context.Context, c *models.Contact) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO contacts (fullname, email, phoneno, company, inquirytype, subject, message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := s.db.ExecContext(ctx, query,
		c.FullName,
		c.Email,
		c.Phone,
		c.Company,
		c.InquiryType,
		c.Subject,
		c.Message,
		c.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert contact: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get contact id: %w", err)
	}
	c.ID = id

	return nil
}

// ListContacts returns all submissions, newest first
func (s *Storage) ListContacts(ctx context.Context) ([]models.Contact, error) {
	query := `
		SELECT id, fullname, email, phoneno, company, inquirytype, subject, message, created_at
		FROM contacts
		ORDER BY id DESC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query contacts: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	contacts := []models.Contact{}
	for rows.Next() {
		var c models.Contact
		if err := rows.Scan(
			&c.ID,
			&c.FullName,
			&c.Email,
			&c.Phone,
			&c.Company,
			&c.InquiryType,
			&c.Subject,
			&c.Message,
			&c.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan contact: %w", err)
		}
		contacts = append(contacts, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return contacts, nil
}

// CountContacts returns the number of submissions
func (s *Storage) CountContacts(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM contacts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count contacts: %w", err)
	}
	return n, nil
}
