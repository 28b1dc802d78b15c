package chat

import "github.com/iudanet/chatdesk/internal/models"

// EventKind тип изменения состояния сессии
type EventKind int

const (
	// EventMessageAppended a message was appended at Index
	EventMessageAppended EventKind = iota + 1
	// EventMessageUpdated the streaming bot message at Index has new text
	EventMessageUpdated
	// EventStreamFinished the stream ended normally; Message is final
	EventStreamFinished
	// EventStreamFailed the stream failed; Err is set. Index is -1 when the
	// empty placeholder was dropped.
	EventStreamFailed
	// EventMessagesReplaced the whole sequence was replaced (history, new thread)
	EventMessagesReplaced
	// EventThreadsUpdated the thread list was refreshed
	EventThreadsUpdated
)

func (k EventKind) String() string {
	switch k {
	case EventMessageAppended:
		return "message_appended"
	case EventMessageUpdated:
		return "message_updated"
	case EventStreamFinished:
		return "stream_finished"
	case EventStreamFailed:
		return "stream_failed"
	case EventMessagesReplaced:
		return "messages_replaced"
	case EventThreadsUpdated:
		return "threads_updated"
	}
	return "unknown"
}

// Event описывает одно изменение. Что рисовать, решает получатель.
type Event struct {
	Err      error
	ThreadID string
	Message  models.Message
	Messages []models.Message
	Threads  []models.Thread
	Kind     EventKind
	Index    int
}
