package chat

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/iudanet/chatdesk/internal/client/api"
	"github.com/iudanet/chatdesk/internal/models"
)

func TestThreadRegistry_List(t *testing.T) {
	tr := &fakeTransport{threads: []models.Thread{
		{ID: "t2", Title: "Latest"},
		{ID: "t1", Title: "Older"},
		{ID: "t2", Title: "Duplicate"},
	}}
	reg := NewThreadRegistry(tr, nil, setupTestLogger())

	got := reg.List(context.Background())
	assert.Equal(t, []models.Thread{{ID: "t2", Title: "Latest"}, {ID: "t1", Title: "Older"}}, got)

	th, ok := reg.Lookup("t1")
	assert.True(t, ok)
	assert.Equal(t, "Older", th.Title)

	_, ok = reg.Lookup("nope")
	assert.False(t, ok)
}

func TestThreadRegistry_FailureKeepsPrevious(t *testing.T) {
	tr := &fakeTransport{threads: []models.Thread{{ID: "t1", Title: "Hello"}}}
	reg := NewThreadRegistry(tr, nil, setupTestLogger())
	ctx := context.Background()

	first := reg.List(ctx)
	assert.Len(t, first, 1)

	tests := []struct {
		name  string
		setup func()
	}{
		{name: "network error", setup: func() {
			tr.setThreadsErr(&api.NetworkError{Op: "GET /chat/threads", Err: errors.New("connection refused")})
		}},
		{name: "server error", setup: func() {
			tr.setThreadsErr(&api.ServerError{Status: 500})
		}},
		{name: "auth expired", setup: func() {
			tr.setThreadsErr(api.ErrAuthExpired)
		}},
		{name: "malformed payload", setup: func() {
			tr.setThreadsErr(nil)
			tr.setThreads([]models.Thread{{ID: "", Title: "no id"}})
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup()
			assert.Equal(t, first, reg.List(ctx))
			assert.Equal(t, first, reg.Threads())
		})
	}
}

func TestThreadRegistry_ThreadsIsCopy(t *testing.T) {
	tr := &fakeTransport{threads: []models.Thread{{ID: "t1", Title: "Hello"}}}
	reg := NewThreadRegistry(tr, nil, setupTestLogger())
	reg.List(context.Background())

	got := reg.Threads()
	got[0].Title = "changed"
	assert.Equal(t, "Hello", reg.Threads()[0].Title)
}
