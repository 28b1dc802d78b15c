package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/iudanet/chatdesk/internal/models"
)

// AppendMessage adds a message to the thread, creating the thread if needed.
// Thread title follows the latest message.
func (s *Storage) AppendMessage(ctx context.Context, threadID string, msg models.Message) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now().UTC()

	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO threads (id, created_at) VALUES (?, ?)`,
		threadID, now,
	); err != nil {
		return fmt.Errorf("failed to create thread: %w", err)
	}

	result, err := tx.ExecContext(ctx,
		`INSERT INTO messages (thread_id, sender, text, created_at) VALUES (?, ?, ?, ?)`,
		threadID, msg.Sender, msg.Text, now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	msgID, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get message id: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE threads SET title = ?, last_message_id = ? WHERE id = ?`,
		msg.Text, msgID, threadID,
	); err != nil {
		return fmt.Errorf("failed to update thread: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit message: %w", err)
	}
	return nil
}

// GetHistory returns a page of thread messages in chronological order
func (s *Storage) GetHistory(ctx context.Context, threadID string, limit, offset int) ([]models.Message, error) {
	query := `
		SELECT sender, text
		FROM messages
		WHERE thread_id = ?
		ORDER BY id
		LIMIT ? OFFSET ?
	`

	rows, err := s.db.QueryContext(ctx, query, threadID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	messages := []models.Message{}
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.Sender, &m.Text); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return messages, nil
}

// ListThreads returns threads with at least one message, most recently active first
func (s *Storage) ListThreads(ctx context.Context) ([]models.Thread, error) {
	query := `
		SELECT id, title
		FROM threads
		WHERE last_message_id > 0
		ORDER BY last_message_id DESC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query threads: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	threads := []models.Thread{}
	for rows.Next() {
		var t models.Thread
		if err := rows.Scan(&t.ID, &t.Title); err != nil {
			return nil, fmt.Errorf("failed to scan thread: %w", err)
		}
		threads = append(threads, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return threads, nil
}
