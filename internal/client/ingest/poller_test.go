package ingest

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/chatdesk/internal/client/api"
	"github.com/iudanet/chatdesk/internal/models"
	pkgapi "github.com/iudanet/chatdesk/pkg/api"
)

// setupTestLogger creates a logger for testing
func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func f64(v float64) *float64 { return &v }

// fakeTransport отдает статусы по сценарию; последний повторяется
type fakeTransport struct {
	errs        map[int]error
	cancelErr   error
	statuses    []pkgapi.JobStatusResponse
	statusCalls int
	cancelCalls int
	mu          sync.Mutex
}

func (f *fakeTransport) DoJSON(ctx context.Context, method, path string, query url.Values, in, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case method == http.MethodGet && path == statusPath:
		idx := f.statusCalls
		f.statusCalls++
		if err, ok := f.errs[idx]; ok {
			return err
		}
		if idx >= len(f.statuses) {
			idx = len(f.statuses) - 1
		}
		*out.(*pkgapi.JobStatusResponse) = f.statuses[idx]
		return nil
	case method == http.MethodPost && path == cancelPath:
		f.cancelCalls++
		return f.cancelErr
	}
	return &api.ServerError{Status: http.StatusNotFound}
}

func (f *fakeTransport) Execute(ctx context.Context, req api.Request) (*api.Response, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeTransport) calls() (status, cancel int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statusCalls, f.cancelCalls
}

// recorder собирает статусы из OnUpdate
type recorder struct {
	got []models.JobStatus
	mu  sync.Mutex
}

func (r *recorder) record(st models.JobStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, st)
}

func (r *recorder) statuses() []models.JobStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.JobStatus(nil), r.got...)
}

func newTestPoller(tr Transport, rec *recorder) *Poller {
	return NewPoller(tr, nil, setupTestLogger(), PollerOptions{
		OnUpdate: rec.record,
		Interval: 5 * time.Millisecond,
	})
}

func waitDone(t *testing.T, p *Poller) {
	t.Helper()
	select {
	case <-p.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("poll loop did not stop")
	}
}

func processing(progress float64) pkgapi.JobStatusResponse {
	return pkgapi.JobStatusResponse{Status: "processing", Progress: f64(progress)}
}

func TestPoller_StopsAfterReady(t *testing.T) {
	tr := &fakeTransport{statuses: []pkgapi.JobStatusResponse{
		processing(10),
		processing(55),
		{Status: "ready", Progress: f64(100), TimeTaken: f64(3)},
		processing(70), // не должен быть запрошен
	}}
	rec := &recorder{}
	p := newTestPoller(tr, rec)

	p.StartPolling(context.Background(), 0)
	waitDone(t, p)

	var progress []int
	for _, st := range rec.statuses() {
		if st.State == models.JobProcessing {
			progress = append(progress, st.Progress)
		}
	}
	assert.Equal(t, []int{10, 55}, progress)

	final := p.Status()
	assert.Equal(t, models.JobReady, final.State)
	require.NotNil(t, final.TimeTaken)
	assert.Equal(t, 3*time.Second, *final.TimeTaken)

	// после ready больше никаких запросов
	time.Sleep(30 * time.Millisecond)
	status, _ := tr.calls()
	assert.Equal(t, 3, status)
	assert.False(t, p.Polling())
}

func TestPoller_ProgressRegressionAccepted(t *testing.T) {
	tr := &fakeTransport{statuses: []pkgapi.JobStatusResponse{
		processing(40),
		processing(20),
		{Status: "ready", Progress: f64(100)},
	}}
	rec := &recorder{}
	p := newTestPoller(tr, rec)

	p.StartPolling(context.Background(), 0)
	waitDone(t, p)

	got := rec.statuses()
	require.Len(t, got, 3)
	assert.Equal(t, 40, got[0].Progress)
	assert.Equal(t, 20, got[1].Progress)
}

func TestPoller_CancelIsImmediate(t *testing.T) {
	tr := &fakeTransport{statuses: []pkgapi.JobStatusResponse{processing(30)}}
	rec := &recorder{}
	p := newTestPoller(tr, rec)

	p.StartPolling(context.Background(), 0)
	require.Eventually(t, func() bool {
		return p.Status().State == models.JobProcessing
	}, time.Second, time.Millisecond)

	require.NoError(t, p.Cancel(context.Background()))

	st := p.Status()
	assert.Equal(t, models.JobCancelled, st.State)
	assert.Equal(t, 0, st.Progress)
	waitDone(t, p)

	// ни один поздний ответ не перезаписывает cancelled
	before, cancels := tr.calls()
	time.Sleep(30 * time.Millisecond)
	after, _ := tr.calls()
	assert.Equal(t, before, after)
	assert.Equal(t, 1, cancels)
	assert.Equal(t, models.JobCancelled, p.Status().State)

	all := rec.statuses()
	assert.Equal(t, models.JobCancelled, all[len(all)-1].State)
}

func TestPoller_CancelRequestFails(t *testing.T) {
	tr := &fakeTransport{
		statuses:  []pkgapi.JobStatusResponse{processing(30)},
		cancelErr: &api.NetworkError{Op: "POST " + cancelPath, Err: errors.New("connection refused")},
	}
	p := newTestPoller(tr, &recorder{})

	err := p.Cancel(context.Background())
	require.Error(t, err)
	var netErr *api.NetworkError
	assert.ErrorAs(t, err, &netErr)

	// локальный статус все равно cancelled
	assert.Equal(t, models.JobCancelled, p.Status().State)
}

func TestPoller_RestartCancelsPreviousLoop(t *testing.T) {
	tr := &fakeTransport{statuses: []pkgapi.JobStatusResponse{processing(5)}}
	p := newTestPoller(tr, &recorder{})

	p.StartPolling(context.Background(), time.Hour)
	first := p.Done()

	p.StartPolling(context.Background(), 5*time.Millisecond)
	select {
	case <-first:
	case <-time.After(time.Second):
		t.Fatal("previous loop still running")
	}
	assert.True(t, p.Polling())

	p.Close()
	assert.False(t, p.Polling())
}

func TestPoller_IdleStopsUnlessSubmitted(t *testing.T) {
	t.Run("idle stops loop", func(t *testing.T) {
		tr := &fakeTransport{statuses: []pkgapi.JobStatusResponse{
			{Status: "idle", Progress: f64(0)},
			processing(10),
		}}
		p := newTestPoller(tr, &recorder{})

		p.StartPolling(context.Background(), 0)
		waitDone(t, p)

		status, _ := tr.calls()
		assert.Equal(t, 1, status)
		assert.Equal(t, models.JobIdle, p.Status().State)
	})

	t.Run("submitted waits for processing", func(t *testing.T) {
		tr := &fakeTransport{statuses: []pkgapi.JobStatusResponse{
			{Status: "idle", Progress: f64(0)},
			{Status: "idle", Progress: f64(0)},
			processing(20),
			{Status: "ready", Progress: f64(100), TimeTaken: f64(1.5)},
		}}
		rec := &recorder{}
		p := newTestPoller(tr, rec)

		p.MarkSubmitted()
		p.StartPolling(context.Background(), 0)
		waitDone(t, p)

		status, _ := tr.calls()
		assert.Equal(t, 4, status)
		assert.Equal(t, models.JobReady, p.Status().State)
		assert.Equal(t, models.JobIdle, rec.statuses()[0].State)
	})

	t.Run("grace expires", func(t *testing.T) {
		tr := &fakeTransport{statuses: []pkgapi.JobStatusResponse{{Status: "idle"}}}
		p := NewPoller(tr, nil, setupTestLogger(), PollerOptions{
			Interval:   5 * time.Millisecond,
			StartGrace: 20 * time.Millisecond,
		})

		p.MarkSubmitted()
		p.StartPolling(context.Background(), 0)
		waitDone(t, p)
		assert.Equal(t, models.JobIdle, p.Status().State)
	})
}

func TestPoller_TransientErrorKeepsPolling(t *testing.T) {
	tr := &fakeTransport{
		statuses: []pkgapi.JobStatusResponse{
			processing(10),
			processing(10),
			{Status: "ready", Progress: f64(100)},
		},
		errs: map[int]error{1: &api.NetworkError{Op: "GET " + statusPath, Err: errors.New("timeout")}},
	}
	p := newTestPoller(tr, &recorder{})

	p.StartPolling(context.Background(), 0)
	waitDone(t, p)

	assert.Equal(t, models.JobReady, p.Status().State)
}

func TestPoller_AuthExpiredStopsPolling(t *testing.T) {
	tr := &fakeTransport{
		statuses: []pkgapi.JobStatusResponse{processing(10)},
		errs:     map[int]error{1: api.ErrAuthExpired},
	}
	p := newTestPoller(tr, &recorder{})

	p.StartPolling(context.Background(), 0)
	waitDone(t, p)

	status, _ := tr.calls()
	assert.Equal(t, 2, status)
	assert.Equal(t, models.JobProcessing, p.Status().State)
}

func TestPoller_FetchOnce(t *testing.T) {
	t.Run("adopts server truth", func(t *testing.T) {
		tr := &fakeTransport{statuses: []pkgapi.JobStatusResponse{processing(42)}}
		rec := &recorder{}
		p := newTestPoller(tr, rec)

		st, err := p.FetchOnce(context.Background())
		require.NoError(t, err)
		assert.Equal(t, models.JobProcessing, st.State)
		assert.Equal(t, 42, st.Progress)
		assert.Equal(t, st, p.Status())
		assert.Len(t, rec.statuses(), 1)
		assert.False(t, p.Polling())
	})

	t.Run("error state is terminal", func(t *testing.T) {
		tr := &fakeTransport{statuses: []pkgapi.JobStatusResponse{{Status: "error", Progress: f64(0)}}}
		p := newTestPoller(tr, &recorder{})

		st, err := p.FetchOnce(context.Background())
		require.NoError(t, err)
		assert.Equal(t, models.JobFailed, st.State)
		assert.True(t, st.State.Terminal())
	})

	t.Run("malformed payload", func(t *testing.T) {
		tr := &fakeTransport{statuses: []pkgapi.JobStatusResponse{{Status: "exploding"}}}
		p := newTestPoller(tr, &recorder{})

		_, err := p.FetchOnce(context.Background())
		var valErr *api.ValidationError
		require.ErrorAs(t, err, &valErr)
		assert.Equal(t, models.JobIdle, p.Status().State)
	})
}
