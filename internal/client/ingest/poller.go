package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/iudanet/chatdesk/internal/client/api"
	"github.com/iudanet/chatdesk/internal/client/metrics"
	"github.com/iudanet/chatdesk/internal/models"
	pkgapi "github.com/iudanet/chatdesk/pkg/api"
)

const (
	// DefaultInterval период опроса статуса
	DefaultInterval = time.Second
	// DefaultStartGrace сколько ждем перехода idle -> processing после загрузки
	DefaultStartGrace = 30 * time.Second

	statusPath = "/file/vector-status"
	cancelPath = "/file/vector-cancel"
)

// Transport is the subset of api.Executor used by this package.
type Transport interface {
	DoJSON(ctx context.Context, method, path string, query url.Values, in, out any) error
	Execute(ctx context.Context, req api.Request) (*api.Response, error)
}

// PollerOptions настраивает Poller
type PollerOptions struct {
	// OnUpdate receives every status the poller adopts, in order. It must not
	// call back into the Poller.
	OnUpdate   func(models.JobStatus)
	Interval   time.Duration
	StartGrace time.Duration
}

// Poller наблюдает за задачей сборки базы знаний.
// Одновременно активен максимум один цикл опроса; каждый цикл владеет своим
// context.CancelFunc, и результаты устаревшего цикла отбрасываются по поколению.
type Poller struct {
	transport Transport
	metrics   *metrics.Metrics
	logger    *slog.Logger
	onUpdate  func(models.JobStatus)
	now       func() time.Time

	stop     context.CancelFunc
	done     chan struct{}
	status   models.JobStatus
	awaiting time.Time // момент MarkSubmitted, zero если не ждем старта

	interval   time.Duration
	startGrace time.Duration
	gen        uint64

	mu     sync.Mutex
	emitMu sync.Mutex
}

// NewPoller creates a poller in the idle state. m may be nil.
func NewPoller(transport Transport, m *metrics.Metrics, logger *slog.Logger, opts PollerOptions) *Poller {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.StartGrace <= 0 {
		opts.StartGrace = DefaultStartGrace
	}
	done := make(chan struct{})
	close(done)
	return &Poller{
		transport:  transport,
		metrics:    m,
		logger:     logger,
		onUpdate:   opts.OnUpdate,
		now:        time.Now,
		done:       done,
		status:     models.JobStatus{State: models.JobIdle},
		interval:   opts.Interval,
		startGrace: opts.StartGrace,
	}
}

// Status returns the last adopted status.
func (p *Poller) Status() models.JobStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// Polling reports whether a poll loop is running.
func (p *Poller) Polling() bool {
	select {
	case <-p.Done():
		return false
	default:
		return true
	}
}

// Done returns a channel closed when the current poll loop exits.
func (p *Poller) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

// FetchOnce reads the server status once and adopts it. Used at startup to
// resynchronize: the client never assumes idle just because it started.
func (p *Poller) FetchOnce(ctx context.Context) (models.JobStatus, error) {
	p.mu.Lock()
	gen := p.gen
	p.mu.Unlock()

	st, err := p.fetch(ctx)
	if err != nil {
		return models.JobStatus{}, err
	}
	p.adopt(gen, st)
	return st, nil
}

// StartPolling cancels any running loop and starts a new one. The loop
// fetches immediately, then every interval while the job is processing.
// interval <= 0 uses the configured default.
func (p *Poller) StartPolling(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = p.interval
	}

	p.mu.Lock()
	p.stopLocked()
	loopCtx, cancel := context.WithCancel(ctx)
	p.gen++
	gen := p.gen
	done := make(chan struct{})
	p.stop = cancel
	p.done = done
	p.mu.Unlock()

	p.logger.Debug("job status polling started", "interval", interval)
	go p.loop(loopCtx, gen, interval, done)
}

// MarkSubmitted resets the local status to idle after a new upload; the next
// loop tolerates idle until the job reports processing or the grace ends.
func (p *Poller) MarkSubmitted() {
	st := models.JobStatus{State: models.JobIdle}

	p.emitMu.Lock()
	defer p.emitMu.Unlock()

	p.mu.Lock()
	p.status = st
	p.awaiting = p.now()
	p.mu.Unlock()

	p.notify(st)
}

// Cancel stops polling, sets the local status to cancelled with progress 0
// and then asks the server to cancel the job. The local status does not wait
// for the server.
func (p *Poller) Cancel(ctx context.Context) error {
	st := models.JobStatus{State: models.JobCancelled}

	p.emitMu.Lock()
	p.mu.Lock()
	p.stopLocked()
	p.status = st
	p.awaiting = time.Time{}
	p.mu.Unlock()
	p.notify(st)
	p.emitMu.Unlock()

	if err := p.transport.DoJSON(ctx, http.MethodPost, cancelPath, nil, nil, nil); err != nil {
		p.logger.Warn("job cancel request failed", "error", err)
		return fmt.Errorf("failed to cancel job: %w", err)
	}
	p.logger.Info("job cancel requested")
	return nil
}

// Stop cancels the running loop without waiting for it.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

// Close stops polling and waits for the loop to exit. Must not be called
// from OnUpdate.
func (p *Poller) Close() {
	p.mu.Lock()
	p.stopLocked()
	done := p.done
	p.mu.Unlock()
	<-done
}

// stopLocked отменяет текущий цикл и инвалидирует его поколение
func (p *Poller) stopLocked() {
	if p.stop != nil {
		p.stop()
		p.stop = nil
	}
	p.gen++
}

func (p *Poller) loop(ctx context.Context, gen uint64, interval time.Duration, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if !p.tick(ctx, gen) {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// tick выполняет один опрос; false - цикл должен завершиться
func (p *Poller) tick(ctx context.Context, gen uint64) bool {
	st, err := p.fetch(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		if errors.Is(err, api.ErrAuthExpired) {
			p.logger.Warn("job status polling stopped: not signed in", "error", err)
			return false
		}
		// временная ошибка, пробуем на следующем тике
		p.logger.Warn("job status fetch failed", "error", err)
		return true
	}

	if !p.adopt(gen, st) {
		return false
	}

	switch {
	case st.State == models.JobProcessing:
		return true
	case st.State == models.JobIdle && p.awaitingStart():
		return true
	}
	p.logger.Info("job status polling stopped", "status", st.State, "progress", st.Progress)
	return false
}

// adopt применяет статус, если поколение еще актуально
func (p *Poller) adopt(gen uint64, st models.JobStatus) bool {
	p.emitMu.Lock()
	defer p.emitMu.Unlock()

	p.mu.Lock()
	if gen != p.gen {
		p.mu.Unlock()
		return false
	}
	p.status = st
	if st.State != models.JobIdle {
		p.awaiting = time.Time{}
	}
	p.mu.Unlock()

	p.notify(st)
	return true
}

func (p *Poller) awaitingStart() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.awaiting.IsZero() {
		return false
	}
	if p.now().Sub(p.awaiting) > p.startGrace {
		p.awaiting = time.Time{}
		return false
	}
	return true
}

func (p *Poller) fetch(ctx context.Context) (models.JobStatus, error) {
	var resp pkgapi.JobStatusResponse
	err := p.transport.DoJSON(ctx, http.MethodGet, statusPath, nil, nil, &resp)
	if err == nil {
		var st models.JobStatus
		st, err = resp.ToModel()
		if err != nil {
			err = &api.ValidationError{Field: "status", Reason: "malformed job status", Err: err}
		} else {
			p.metrics.ObservePoll(nil)
			p.logger.Debug("job status", "status", st.State, "progress", st.Progress)
			return st, nil
		}
	}
	p.metrics.ObservePoll(err)
	return models.JobStatus{}, err
}

func (p *Poller) notify(st models.JobStatus) {
	if p.onUpdate != nil {
		p.onUpdate(st)
	}
}
