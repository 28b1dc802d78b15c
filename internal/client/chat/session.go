package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"github.com/iudanet/chatdesk/internal/client/api"
	"github.com/iudanet/chatdesk/internal/client/metrics"
	"github.com/iudanet/chatdesk/internal/client/storage"
	"github.com/iudanet/chatdesk/internal/models"
	"github.com/iudanet/chatdesk/internal/validation"
	pkgapi "github.com/iudanet/chatdesk/pkg/api"
)

const (
	// GreetingText показывается, когда истории нет ни на сервере, ни в кэше
	GreetingText = "Hi! How can I help you today?"
	// NewChatText показывается в только что созданном треде
	NewChatText = "New chat started!"

	// DefaultHistoryLimit размер страницы истории по умолчанию
	DefaultHistoryLimit = 50

	readBufferSize = 4 << 10
)

// Transport authenticated access to the backend; *api.Executor implements it.
type Transport interface {
	DoJSON(ctx context.Context, method, path string, query url.Values, in, out any) error
	OpenStream(ctx context.Context, path string, in any) (io.ReadCloser, error)
}

// Page параметры пагинации истории
type Page struct {
	Limit  int
	Offset int
}

// History результат LoadHistory
type History struct {
	ThreadID string
	Messages []models.Message
	// Cached is true when the server could not be reached and the messages
	// come from the local snapshot or a synthesized greeting.
	Cached bool
	// Err причина fallback, nil при ответе сервера; api.ErrAuthExpired
	// означает, что нужен повторный вход
	Err error
}

// Options настройки сессии
type Options struct {
	// OnEvent получает события в порядке изменений; вызывается вне блокировки
	OnEvent      func(Event)
	HistoryLimit int
}

// Session одна активная переписка. Единственный писатель своего состояния:
// все изменения последовательности сообщений проходят под s.mu.
type Session struct {
	transport Transport
	threads   *ThreadRegistry
	cache     storage.ChatCacheStorage
	metrics   *metrics.Metrics
	logger    *slog.Logger
	onEvent   func(Event)
	newID     func() string

	threadID string
	messages []models.Message

	historyLimit int
	// streaming индекс бот-сообщения, которое сейчас дописывается, или -1
	streaming int
	// loading идет загрузка истории или сброс треда
	loading bool

	mu     sync.Mutex
	emitMu sync.Mutex
}

// NewSession создает сессию с новым тредом. Чтобы продолжить прошлый
// тред, вызовите Open.
func NewSession(transport Transport, threads *ThreadRegistry, cache storage.ChatCacheStorage, m *metrics.Metrics, logger *slog.Logger, opts Options) *Session {
	limit := opts.HistoryLimit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	s := &Session{
		transport:    transport,
		threads:      threads,
		cache:        cache,
		metrics:      m,
		logger:       logger,
		onEvent:      opts.OnEvent,
		newID:        uuid.NewString,
		historyLimit: limit,
		streaming:    -1,
	}
	s.threadID = s.newID()
	s.messages = greeting(GreetingText)
	return s
}

// ThreadID returns the active thread id.
func (s *Session) ThreadID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.threadID
}

// Messages returns a copy of the message sequence.
func (s *Session) Messages() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.CloneMessages(s.messages)
}

// Streaming returns the index of the in-flight bot message.
func (s *Session) Streaming() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streaming, s.streaming >= 0
}

// Threads returns the registry the session refreshes after each exchange.
func (s *Session) Threads() *ThreadRegistry {
	return s.threads
}

// Open resumes the thread remembered in the local store (or keeps the fresh
// one), refreshes the thread list and loads history.
func (s *Session) Open(ctx context.Context) (*History, error) {
	threadID, err := s.cache.GetActiveThread(ctx)
	if err != nil {
		s.logger.Warn("failed to read active thread", "error", err)
	}
	if threadID == "" || validation.ValidateThreadID(threadID) != nil {
		threadID = s.ThreadID()
	}

	s.emit(Event{Kind: EventThreadsUpdated, Threads: s.threads.List(ctx)})
	return s.LoadHistory(ctx, threadID, Page{})
}

// Send appends the user message and an empty bot message, then streams the
// reply into the bot message in the background. While an exchange is in
// flight further calls fail with api.ErrBusy. ctx bounds the whole stream.
func (s *Session) Send(ctx context.Context, text string) (*Exchange, error) {
	trimmed, err := validation.ValidateMessage(text)
	if err != nil {
		return nil, &api.ValidationError{Field: "message", Reason: err.Error(), Err: err}
	}

	s.mu.Lock()
	if s.busyLocked() {
		s.mu.Unlock()
		return nil, api.ErrBusy
	}

	userMsg := models.Message{Sender: models.SenderUser, Text: trimmed}
	s.messages = append(s.messages, userMsg)
	userIdx := len(s.messages) - 1

	botMsg := models.Message{Sender: models.SenderBot}
	s.messages = append(s.messages, botMsg)
	s.streaming = len(s.messages) - 1

	ex := &Exchange{
		ThreadID: s.threadID,
		Index:    s.streaming,
		done:     make(chan struct{}),
	}
	s.mu.Unlock()

	s.emit(Event{Kind: EventMessageAppended, ThreadID: ex.ThreadID, Index: userIdx, Message: userMsg})
	s.emit(Event{Kind: EventMessageAppended, ThreadID: ex.ThreadID, Index: ex.Index, Message: botMsg})

	s.logger.Debug("sending message", "thread_id", ex.ThreadID)
	go s.stream(ctx, ex, trimmed)

	return ex, nil
}

// stream читает ответ и дописывает его в слот ex.Index
func (s *Session) stream(ctx context.Context, ex *Exchange, text string) {
	body, err := s.transport.OpenStream(ctx, "/chat/send", pkgapi.SendRequest{Message: text, ThreadID: ex.ThreadID})
	if err != nil {
		s.finish(ctx, ex, err)
		return
	}
	defer func() {
		_ = body.Close()
	}()

	var asm Assembler
	buf := make([]byte, readBufferSize)
	for {
		n, rerr := body.Read(buf)
		if n > 0 {
			s.metrics.ObserveChunk(n)
			s.apply(ex, asm.Write(buf[:n]))
		}
		if rerr == nil {
			continue
		}

		if asm.Pending() {
			s.apply(ex, asm.Flush())
		}
		if errors.Is(rerr, io.EOF) {
			s.finish(ctx, ex, nil)
		} else {
			s.finish(ctx, ex, &api.NetworkError{Op: "POST /chat/send (stream)", Err: rerr})
		}
		return
	}
}

// apply заменяет текст бот-сообщения накопленным текстом
func (s *Session) apply(ex *Exchange, text string) {
	s.mu.Lock()
	if s.messages[ex.Index].Text == text {
		s.mu.Unlock()
		return
	}
	s.messages[ex.Index].Text = text
	msg := s.messages[ex.Index]
	s.mu.Unlock()

	s.emit(Event{Kind: EventMessageUpdated, ThreadID: ex.ThreadID, Index: ex.Index, Message: msg})
}

// finish освобождает слот, сохраняет снапшот и, при успехе, обновляет
// список тредов. Сессия свободна, когда закрыт ex.Done().
func (s *Session) finish(ctx context.Context, ex *Exchange, streamErr error) {
	s.mu.Lock()
	final := s.messages[ex.Index]
	index := ex.Index
	if streamErr != nil && final.Text == "" {
		// пустой пузырь бота не оставляем
		s.messages = s.messages[:ex.Index]
		index = -1
	}
	s.streaming = -1
	// до конца финализации новые Send получают ErrBusy, чтобы события не перемешались
	s.loading = true
	snap := &models.Snapshot{ThreadID: ex.ThreadID, Messages: models.CloneMessages(s.messages)}
	s.mu.Unlock()

	s.saveSnapshot(context.WithoutCancel(ctx), snap)

	switch {
	case streamErr == nil:
		s.metrics.ObserveExchange("completed")
		s.logger.Info("reply received", "thread_id", ex.ThreadID, "length", len(final.Text))
		s.emit(Event{Kind: EventStreamFinished, ThreadID: ex.ThreadID, Index: index, Message: final})
		// ответ мог создать тред или поменять его заголовок
		s.emit(Event{Kind: EventThreadsUpdated, Threads: s.threads.List(ctx)})
	case final.Text != "":
		s.metrics.ObserveExchange("partial")
		s.logger.Warn("stream interrupted, partial reply kept", "thread_id", ex.ThreadID, "error", streamErr)
		s.emit(Event{Kind: EventStreamFailed, ThreadID: ex.ThreadID, Index: index, Message: final, Err: streamErr})
	default:
		s.metrics.ObserveExchange("failed")
		s.logger.Warn("send failed", "thread_id", ex.ThreadID, "error", streamErr)
		s.emit(Event{Kind: EventStreamFailed, ThreadID: ex.ThreadID, Index: index, Err: streamErr})
	}

	s.end()
	ex.complete(final.Text, streamErr)
}

// LoadHistory fetches a page of history for threadID and makes it the active
// thread. On any failure it falls back to the local snapshot of the same
// thread, or to a single greeting; the returned error is then nil,
// History.Cached is true and History.Err keeps the cause.
func (s *Session) LoadHistory(ctx context.Context, threadID string, page Page) (*History, error) {
	if err := validation.ValidateThreadID(threadID); err != nil {
		return nil, &api.ValidationError{Field: "thread_id", Reason: err.Error(), Err: err}
	}
	if page.Limit <= 0 {
		page.Limit = s.historyLimit
	}
	if page.Offset < 0 {
		page.Offset = 0
	}

	if err := s.begin(); err != nil {
		return nil, err
	}
	defer s.end()

	hist := &History{ThreadID: threadID}

	msgs, err := s.fetchHistory(ctx, threadID, page)
	if err != nil {
		s.logger.Warn("failed to load history, using local fallback", "thread_id", threadID, "error", err)
		hist.Messages = s.fallback(ctx, threadID)
		hist.Cached = true
		hist.Err = err
	} else {
		s.metrics.ObserveHistory("server")
		s.saveSnapshot(ctx, &models.Snapshot{ThreadID: threadID, Messages: msgs})
		hist.Messages = msgs
		if len(msgs) == 0 {
			hist.Messages = greeting(GreetingText)
		}
	}

	s.mu.Lock()
	s.threadID = threadID
	s.messages = models.CloneMessages(hist.Messages)
	s.mu.Unlock()

	s.emit(Event{Kind: EventMessagesReplaced, ThreadID: threadID, Messages: models.CloneMessages(hist.Messages)})
	return hist, nil
}

// NewThread forgets the local snapshot and starts a thread with a fresh id.
// The server creates it on the first Send.
func (s *Session) NewThread(ctx context.Context) (string, error) {
	if err := s.begin(); err != nil {
		return "", err
	}
	defer s.end()

	if err := s.cache.DeleteSnapshot(ctx); err != nil {
		s.logger.Warn("failed to delete chat snapshot", "error", err)
	}
	if err := s.cache.DeleteActiveThread(ctx); err != nil {
		s.logger.Warn("failed to delete active thread", "error", err)
	}

	s.mu.Lock()
	prev := s.threadID
	id := s.newID()
	for id == prev {
		id = s.newID()
	}
	s.threadID = id
	s.messages = greeting(NewChatText)
	msgs := models.CloneMessages(s.messages)
	s.mu.Unlock()

	s.logger.Info("new thread started", "thread_id", id)
	s.emit(Event{Kind: EventMessagesReplaced, ThreadID: id, Messages: msgs})
	return id, nil
}

func (s *Session) fetchHistory(ctx context.Context, threadID string, page Page) ([]models.Message, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(page.Limit))
	query.Set("offset", strconv.Itoa(page.Offset))

	var resp pkgapi.HistoryResponse
	path := "/chat/history/" + url.PathEscape(threadID)
	if err := s.transport.DoJSON(ctx, http.MethodGet, path, query, nil, &resp); err != nil {
		return nil, err
	}
	if err := resp.Validate(); err != nil {
		return nil, &api.ValidationError{Field: "history response", Reason: err.Error(), Err: err}
	}
	return []models.Message(resp), nil
}

// fallback снапшот того же треда, иначе приветствие
func (s *Session) fallback(ctx context.Context, threadID string) []models.Message {
	snap, err := s.cache.GetSnapshot(ctx)
	switch {
	case err == nil && snap.ThreadID == threadID && len(snap.Messages) > 0:
		s.metrics.ObserveHistory("snapshot")
		return models.CloneMessages(snap.Messages)
	case err != nil && !errors.Is(err, storage.ErrSnapshotNotFound):
		s.logger.Warn("failed to read chat snapshot", "error", err)
	}
	s.metrics.ObserveHistory("greeting")
	return greeting(GreetingText)
}

func (s *Session) saveSnapshot(ctx context.Context, snap *models.Snapshot) {
	if err := s.cache.SaveSnapshot(ctx, snap); err != nil {
		s.logger.Warn("failed to save chat snapshot", "thread_id", snap.ThreadID, "error", err)
	}
	if err := s.cache.SaveActiveThread(ctx, snap.ThreadID); err != nil {
		s.logger.Warn("failed to save active thread", "thread_id", snap.ThreadID, "error", err)
	}
}

// begin помечает сессию занятой для операций, заменяющих всю последовательность
func (s *Session) begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busyLocked() {
		return api.ErrBusy
	}
	s.loading = true
	return nil
}

func (s *Session) end() {
	s.mu.Lock()
	s.loading = false
	s.mu.Unlock()
}

func (s *Session) busyLocked() bool {
	return s.streaming >= 0 || s.loading
}

// emit доставляет события по одному, в порядке вызова
func (s *Session) emit(ev Event) {
	if s.onEvent == nil {
		return
	}
	s.emitMu.Lock()
	defer s.emitMu.Unlock()
	s.onEvent(ev)
}

func greeting(text string) []models.Message {
	return []models.Message{{Sender: models.SenderBot, Text: text}}
}

// Exchange один обмен сообщениями, запущенный Send
type Exchange struct {
	err      error
	done     chan struct{}
	ThreadID string
	text     string
	// Index позиция бот-сообщения в последовательности
	Index int
}

// Done is closed when the stream has ended and the session is idle again.
func (e *Exchange) Done() <-chan struct{} {
	return e.done
}

// Wait blocks until the exchange ends and returns the final bot text and the
// stream error, if any. Partial text is returned together with the error.
func (e *Exchange) Wait() (string, error) {
	<-e.done
	return e.text, e.err
}

func (e *Exchange) complete(text string, err error) {
	e.text = text
	if err != nil {
		e.err = fmt.Errorf("exchange in thread %s: %w", e.ThreadID, err)
	}
	close(e.done)
}
