package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iudanet/chatdesk/internal/models"
	"github.com/iudanet/chatdesk/internal/server/storage"
)

// ReplaceFile makes file the only stored document and returns the previous record
func (s *Storage) ReplaceFile(ctx context.Context, file *models.UploadedFile) (*models.UploadedFile, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	previous, err := scanFile(tx.QueryRowContext(ctx,
		`SELECT id, filename, filepath, uploaded_at FROM files ORDER BY uploaded_at DESC LIMIT 1`,
	))
	if err != nil && !errors.Is(err, storage.ErrFileNotFound) {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM files`); err != nil {
		return nil, fmt.Errorf("failed to delete previous file: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO files (id, filename, filepath, uploaded_at) VALUES (?, ?, ?, ?)`,
		file.ID, file.Filename, file.Filepath, file.UploadedAt.UTC(),
	); err != nil {
		return nil, fmt.Errorf("failed to insert file: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit file: %w", err)
	}
	return previous, nil
}

// GetFile returns the current document
func (s *Storage) GetFile(ctx context.Context) (*models.UploadedFile, error) {
	return scanFile(s.db.QueryRowContext(ctx,
		`SELECT id, filename, filepath, uploaded_at FROM files ORDER BY uploaded_at DESC LIMIT 1`,
	))
}

func scanFile(row *sql.Row) (*models.UploadedFile, error) {
	f := &models.UploadedFile{}
	if err := row.Scan(&f.ID, &f.Filename, &f.Filepath, &f.UploadedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrFileNotFound
		}
		return nil, fmt.Errorf("failed to get file: %w", err)
	}
	return f, nil
}
