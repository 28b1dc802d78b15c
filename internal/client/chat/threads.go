package chat

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/iudanet/chatdesk/internal/client/metrics"
	"github.com/iudanet/chatdesk/internal/models"
	pkgapi "github.com/iudanet/chatdesk/pkg/api"
)

// ThreadRegistry владеет списком тредов. Ошибки загрузки не выходят
// наружу: остается предыдущий список.
type ThreadRegistry struct {
	transport Transport
	metrics   *metrics.Metrics
	logger    *slog.Logger
	threads   []models.Thread
	mu        sync.RWMutex
}

// NewThreadRegistry creates an empty registry. m may be nil.
func NewThreadRegistry(transport Transport, m *metrics.Metrics, logger *slog.Logger) *ThreadRegistry {
	return &ThreadRegistry{
		transport: transport,
		metrics:   m,
		logger:    logger,
	}
}

// List fetches the thread list. On any failure it logs and returns the
// previous list unchanged.
func (r *ThreadRegistry) List(ctx context.Context) []models.Thread {
	threads, err := r.fetch(ctx)
	if err != nil {
		r.logger.Warn("failed to load threads, keeping previous list", "error", err)
		r.metrics.ObserveStaleThreads()
		return r.Threads()
	}

	r.mu.Lock()
	r.threads = threads
	r.mu.Unlock()

	r.logger.Debug("threads loaded", "count", len(threads))
	return r.Threads()
}

// Threads returns a copy of the current list in server order.
func (r *ThreadRegistry) Threads() []models.Thread {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Thread, len(r.threads))
	copy(out, r.threads)
	return out
}

// Lookup finds a thread by id in the current list.
func (r *ThreadRegistry) Lookup(id string) (models.Thread, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, t := range r.threads {
		if t.ID == id {
			return t, true
		}
	}
	return models.Thread{}, false
}

func (r *ThreadRegistry) fetch(ctx context.Context) ([]models.Thread, error) {
	var resp pkgapi.ThreadsResponse
	if err := r.transport.DoJSON(ctx, http.MethodGet, "/chat/threads", nil, nil, &resp); err != nil {
		return nil, err
	}
	if err := resp.Validate(); err != nil {
		return nil, fmt.Errorf("invalid threads payload: %w", err)
	}

	// порядок сервера (по свежести), дубликаты по id отбрасываем
	seen := make(map[string]struct{}, len(resp))
	threads := make([]models.Thread, 0, len(resp))
	for _, t := range resp {
		if _, ok := seen[t.ID]; ok {
			continue
		}
		seen[t.ID] = struct{}{}
		threads = append(threads, t)
	}
	return threads, nil
}
