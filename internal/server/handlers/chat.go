package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/iudanet/chatdesk/internal/models"
	"github.com/iudanet/chatdesk/internal/server/storage"
	"github.com/iudanet/chatdesk/internal/validation"
	"github.com/iudanet/chatdesk/pkg/api"
)

const (
	defaultHistoryLimit = 50

	// NoKnowledgeBaseReply ответ, пока база знаний не собрана
	NoKnowledgeBaseReply = "Knowledge base not built yet. Please upload a document first."
)

// KnowledgeBase сообщает состояние сборки базы знаний
type KnowledgeBase interface {
	Status() models.JobStatus
}

// ChatHandler обрабатывает /chat запросы.
// Вместо генерации ответа сервер стримит эхо вопроса по словам.
type ChatHandler struct {
	responder
	chatStorage storage.ChatStorage
	kb          KnowledgeBase
	streamDelay time.Duration
}

// NewChatHandler создает новый handler для чата
func NewChatHandler(logger *slog.Logger, chatStorage storage.ChatStorage, kb KnowledgeBase, streamDelay time.Duration) *ChatHandler {
	return &ChatHandler{
		responder:   responder{logger: logger},
		chatStorage: chatStorage,
		kb:          kb,
		streamDelay: streamDelay,
	}
}

// Send обрабатывает POST /chat/send.
// Тело ответа - сырые текстовые чанки без фрейминга, каждый сбрасывается сразу.
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	text, err := validation.ValidateMessage(req.Message)
	if err != nil {
		h.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := validation.ValidateThreadID(req.ThreadID); err != nil {
		h.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.chatStorage.AppendMessage(ctx, req.ThreadID, models.Message{Sender: models.SenderUser, Text: text}); err != nil {
		h.logger.ErrorContext(ctx, "failed to save user message", slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)

	sent := h.stream(ctx, w, splitReply(h.reply(text)))

	// ответ сохраняется даже если клиент отключился посреди стрима
	bot := models.Message{Sender: models.SenderBot, Text: sent}
	if err := h.chatStorage.AppendMessage(context.WithoutCancel(ctx), req.ThreadID, bot); err != nil {
		h.logger.ErrorContext(ctx, "failed to save bot message", slog.Any("error", err))
		return
	}
	h.logger.DebugContext(ctx, "reply streamed",
		slog.String("thread_id", req.ThreadID),
		slog.Int("bytes", len(sent)))
}

// stream пишет чанки с паузой streamDelay и возвращает реально отправленный текст
func (h *ChatHandler) stream(ctx context.Context, w http.ResponseWriter, chunks []string) string {
	rc := http.NewResponseController(w)
	var sent strings.Builder

	for i, chunk := range chunks {
		if i > 0 && h.streamDelay > 0 {
			select {
			case <-ctx.Done():
				return sent.String()
			case <-time.After(h.streamDelay):
			}
		}
		if _, err := w.Write([]byte(chunk)); err != nil {
			h.logger.WarnContext(ctx, "stream interrupted", slog.Any("error", err))
			return sent.String()
		}
		sent.WriteString(chunk)
		if err := rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
			h.logger.WarnContext(ctx, "failed to flush chunk", slog.Any("error", err))
			return sent.String()
		}
	}
	return sent.String()
}

func (h *ChatHandler) reply(question string) string {
	if h.kb == nil || h.kb.Status().State != models.JobReady {
		return NoKnowledgeBaseReply
	}
	return "You asked: " + question
}

// splitReply режет ответ по словам, пробелы остаются в конце чанков
func splitReply(reply string) []string {
	return strings.SplitAfter(reply, " ")
}

// History обрабатывает GET /chat/history/{threadId}?limit&offset
func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	threadID := r.PathValue("threadId")
	if err := validation.ValidateThreadID(threadID); err != nil {
		h.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	limit, err := queryInt(r, "limit", defaultHistoryLimit)
	if err != nil || limit <= 0 {
		h.sendError(w, "limit must be an integer greater than 0", http.StatusBadRequest)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil || offset < 0 {
		h.sendError(w, "offset must be a non-negative integer", http.StatusBadRequest)
		return
	}

	messages, err := h.chatStorage.GetHistory(ctx, threadID, limit, offset)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to get history", slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.sendJSON(w, api.HistoryResponse(messages), http.StatusOK)
}

// Threads обрабатывает GET /chat/threads
func (h *ChatHandler) Threads(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	threads, err := h.chatStorage.ListThreads(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list threads", slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.sendJSON(w, api.ThreadsResponse(threads), http.StatusOK)
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}
