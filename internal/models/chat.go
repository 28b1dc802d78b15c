package models

import "fmt"

// Sender автор сообщения в треде
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Valid reports whether s is a known sender.
func (s Sender) Valid() bool {
	return s == SenderUser || s == SenderBot
}

// Message одно сообщение в треде.
// Сообщение пользователя неизменяемо после добавления; сообщение бота
// создается пустым и дописывается по мере прихода чанков.
type Message struct {
	Sender Sender `json:"sender"`
	Text   string `json:"text"`
}

// Validate checks the fields documented by the history endpoint.
func (m Message) Validate() error {
	if !m.Sender.Valid() {
		return fmt.Errorf("unknown sender %q", m.Sender)
	}
	return nil
}

// Thread именованный контекст переписки, хранящийся на сервере
type Thread struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Validate checks that the thread carries an identifier.
func (t Thread) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("thread id is empty")
	}
	return nil
}

// Snapshot последняя известная копия сообщений активного треда (local fallback)
type Snapshot struct {
	ThreadID string    `json:"thread_id"`
	Messages []Message `json:"messages"`
}

// CloneMessages returns a copy that does not share the backing array.
func CloneMessages(in []Message) []Message {
	out := make([]Message, len(in))
	copy(out, in)
	return out
}
