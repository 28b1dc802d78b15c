package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/chatdesk/internal/models"
	"github.com/iudanet/chatdesk/pkg/api"
)

type fakeKB struct {
	state models.JobState
}

func (f fakeKB) Status() models.JobStatus {
	return models.JobStatus{State: f.state}
}

// cancelWriter отменяет контекст запроса после первой записи
type cancelWriter struct {
	http.ResponseWriter
	cancel context.CancelFunc
}

func (w *cancelWriter) Write(p []byte) (int, error) {
	n, err := w.ResponseWriter.Write(p)
	w.cancel()
	return n, err
}

func (w *cancelWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func send(t *testing.T, h *ChatHandler, threadID, message string) *httptest.ResponseRecorder {
	t.Helper()

	rec := httptest.NewRecorder()
	h.Send(rec, jsonRequest(t, http.MethodPost, "/chat/send", api.SendRequest{Message: message, ThreadID: threadID}))
	return rec
}

func history(t *testing.T, h *ChatHandler, threadID, query string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/chat/history/"+threadID+query, nil)
	req.SetPathValue("threadId", threadID)
	rec := httptest.NewRecorder()
	h.History(rec, req)
	return rec
}

func TestChatHandler_SendStreamsReply(t *testing.T) {
	tests := []struct {
		name  string
		state models.JobState
		want  string
	}{
		{name: "knowledge base ready", state: models.JobReady, want: "You asked: hello there"},
		{name: "knowledge base missing", state: models.JobIdle, want: NoKnowledgeBaseReply},
		{name: "build in progress", state: models.JobProcessing, want: NoKnowledgeBaseReply},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := setupTestStorage(t)
			h := NewChatHandler(setupTestLogger(), s, fakeKB{state: tt.state}, 0)

			rec := send(t, h, "t1", "  hello there ")

			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
			assert.Equal(t, tt.want, rec.Body.String())
			assert.True(t, rec.Flushed)

			msgs, err := s.GetHistory(context.Background(), "t1", 10, 0)
			require.NoError(t, err)
			assert.Equal(t, []models.Message{
				{Sender: models.SenderUser, Text: "hello there"},
				{Sender: models.SenderBot, Text: tt.want},
			}, msgs)
		})
	}
}

func TestChatHandler_SendValidation(t *testing.T) {
	s := setupTestStorage(t)
	h := NewChatHandler(setupTestLogger(), s, fakeKB{state: models.JobReady}, 0)

	tests := []struct {
		name     string
		threadID string
		message  string
	}{
		{name: "empty message", threadID: "t1", message: "   "},
		{name: "empty thread", threadID: "", message: "hi"},
		{name: "thread with slash", threadID: "a/b", message: "hi"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := send(t, h, tt.threadID, tt.message)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		})
	}

	threads, err := s.ListThreads(context.Background())
	require.NoError(t, err)
	assert.Empty(t, threads)
}

func TestChatHandler_SendClientGone(t *testing.T) {
	s := setupTestStorage(t)
	h := NewChatHandler(setupTestLogger(), s, fakeKB{state: models.JobReady}, 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := jsonRequest(t, http.MethodPost, "/chat/send", api.SendRequest{Message: "ping pong", ThreadID: "t1"}).WithContext(ctx)
	rec := httptest.NewRecorder()
	h.Send(&cancelWriter{ResponseWriter: rec, cancel: cancel}, req)

	assert.Equal(t, "You ", rec.Body.String())

	// отправленная часть ответа сохранена
	msgs, err := s.GetHistory(context.Background(), "t1", 10, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "You ", msgs[1].Text)
}

func TestChatHandler_History(t *testing.T) {
	s := setupTestStorage(t)
	h := NewChatHandler(setupTestLogger(), s, fakeKB{state: models.JobReady}, 0)

	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusOK, send(t, h, "t1", fmt.Sprintf("q%d", i)).Code)
	}

	t.Run("default page", func(t *testing.T) {
		rec := history(t, h, "t1", "")
		require.Equal(t, http.StatusOK, rec.Code)
		msgs := decodeJSON[api.HistoryResponse](t, rec)
		require.Len(t, msgs, 6)
		assert.Equal(t, "q0", msgs[0].Text)
		assert.Equal(t, models.SenderBot, msgs[5].Sender)
	})

	t.Run("limit and offset", func(t *testing.T) {
		rec := history(t, h, "t1", "?limit=2&offset=2")
		require.Equal(t, http.StatusOK, rec.Code)
		msgs := decodeJSON[api.HistoryResponse](t, rec)
		require.Len(t, msgs, 2)
		assert.Equal(t, "q1", msgs[0].Text)
	})

	t.Run("unknown thread is empty", func(t *testing.T) {
		rec := history(t, h, "nope", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, "[]", rec.Body.String())
	})

	for _, q := range []string{"?limit=0", "?limit=-1", "?limit=x", "?offset=-1"} {
		t.Run("rejects "+q, func(t *testing.T) {
			assert.Equal(t, http.StatusBadRequest, history(t, h, "t1", q).Code)
		})
	}
}

func TestChatHandler_Threads(t *testing.T) {
	s := setupTestStorage(t)
	h := NewChatHandler(setupTestLogger(), s, nil, 0)

	rec := httptest.NewRecorder()
	h.Threads(rec, httptest.NewRequest(http.MethodGet, "/chat/threads", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	send(t, h, "old", "first")
	send(t, h, "new", "second")

	rec = httptest.NewRecorder()
	h.Threads(rec, httptest.NewRequest(http.MethodGet, "/chat/threads", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	threads := decodeJSON[api.ThreadsResponse](t, rec)
	require.Len(t, threads, 2)
	assert.Equal(t, "new", threads[0].ID)
	// заголовок - последнее сообщение треда
	assert.Equal(t, NoKnowledgeBaseReply, threads[0].Title)
}
