package storage

import (
	"context"

	"github.com/iudanet/chatdesk/internal/models"
)

//go:generate moq -out chat_mock.go . ChatStorage

// ChatStorage хранит треды и сообщения.
// Тред создается неявно первым сообщением; его заголовок - текст последнего сообщения.
type ChatStorage interface {
	// AppendMessage adds a message to the thread, creating the thread if needed
	AppendMessage(ctx context.Context, threadID string, msg models.Message) error

	// GetHistory returns messages of a thread in chronological order.
	// Unknown thread yields an empty slice.
	GetHistory(ctx context.Context, threadID string, limit, offset int) ([]models.Message, error)

	// ListThreads returns threads ordered by last activity, newest first
	ListThreads(ctx context.Context) ([]models.Thread, error)
}
