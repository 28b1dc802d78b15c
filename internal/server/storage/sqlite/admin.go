package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iudanet/chatdesk/internal/models"
	"github.com/iudanet/chatdesk/internal/server/storage"
)

// CreateAdmin creates a new admin in the storage
func (s *Storage) CreateAdmin(ctx context.Context, admin *models.Admin) error {
	now := time.Now().UTC()
	if admin.CreatedAt.IsZero() {
		admin.CreatedAt = now
	}
	if admin.UpdatedAt.IsZero() {
		admin.UpdatedAt = admin.CreatedAt
	}

	query := `
		INSERT INTO admins (name, email, password_hash, role, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := s.db.ExecContext(ctx, query,
		admin.Name,
		admin.Email,
		admin.PasswordHash,
		admin.Role,
		admin.CreatedAt.UTC(),
		admin.UpdatedAt.UTC(),
	)
	if err != nil {
		// Проверяем на duplicate email
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return storage.ErrAdminAlreadyExists
		}
		return fmt.Errorf("failed to insert admin: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get admin id: %w", err)
	}
	admin.ID = id

	return nil
}

// GetAdminByEmail retrieves admin by email
func (s *Storage) GetAdminByEmail(ctx context.Context, email string) (*models.Admin, error) {
	query := `
		SELECT id, name, email, password_hash, role, created_at, updated_at
		FROM admins
		WHERE email = ?
	`
	return s.scanAdmin(s.db.QueryRowContext(ctx, query, email))
}

// GetAdminByID retrieves admin by ID
func (s *Storage) GetAdminByID(ctx context.Context, id int64) (*models.Admin, error) {
	query := `
		SELECT id, name, email, password_hash, role, created_at, updated_at
		FROM admins
		WHERE id = ?
	`
	return s.scanAdmin(s.db.QueryRowContext(ctx, query, id))
}

func (s *Storage) scanAdmin(row *sql.Row) (*models.Admin, error) {
	admin := &models.Admin{}

	err := row.Scan(
		&admin.ID,
		&admin.Name,
		&admin.Email,
		&admin.PasswordHash,
		&admin.Role,
		&admin.CreatedAt,
		&admin.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrAdminNotFound
		}
		return nil, fmt.Errorf("failed to get admin: %w", err)
	}

	return admin, nil
}
