package api

import (
	"fmt"

	"github.com/iudanet/chatdesk/internal/models"
)

// SendRequest представляет тело POST /chat/send.
// Ответ - поток сырых текстовых чанков без фрейминга.
type SendRequest struct {
	Message  string `json:"message"`
	ThreadID string `json:"thread_id"`
}

// HistoryResponse представляет ответ GET /chat/history/{threadId}
type HistoryResponse []models.Message

// Validate checks every message in the page.
func (h HistoryResponse) Validate() error {
	for i, m := range h {
		if err := m.Validate(); err != nil {
			return fmt.Errorf("message %d: %w", i, err)
		}
	}
	return nil
}

// ThreadsResponse представляет ответ GET /chat/threads
type ThreadsResponse []models.Thread

// Validate checks every thread in the list.
func (t ThreadsResponse) Validate() error {
	for i, th := range t {
		if err := th.Validate(); err != nil {
			return fmt.Errorf("thread %d: %w", i, err)
		}
	}
	return nil
}
