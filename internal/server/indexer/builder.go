// Package indexer имитирует сборку базы знаний из загруженного документа.
package indexer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/iudanet/chatdesk/internal/models"
)

// BatchSize количество чанков, обрабатываемых за один шаг
const BatchSize = 8

// Builder ведет единственную задачу сборки.
// Новый Start отменяет текущую задачу; статус последней задачи доступен через Status.
type Builder struct {
	logger     *slog.Logger
	now        func() time.Time
	cancel     context.CancelFunc
	done       chan struct{}
	status     models.JobStatus
	batchDelay time.Duration
	gen        uint64
	mu         sync.Mutex
}

// NewBuilder создает builder в состоянии idle.
// batchDelay - имитация времени обработки одного батча.
func NewBuilder(batchDelay time.Duration, logger *slog.Logger) *Builder {
	done := make(chan struct{})
	close(done)
	return &Builder{
		logger:     logger,
		now:        time.Now,
		done:       done,
		status:     models.JobStatus{State: models.JobIdle},
		batchDelay: batchDelay,
	}
}

// Status returns a snapshot of the current job.
func (b *Builder) Status() models.JobStatus {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.status
}

// Start begins indexing path, replacing any running job.
func (b *Builder) Start(path string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.stopLocked()
	b.gen++
	ctx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel
	b.done = make(chan struct{})
	b.status = models.JobStatus{State: models.JobProcessing}

	go b.run(ctx, b.gen, path, b.batchDelay, b.done)
}

// Cancel stops a running job; the status becomes cancelled with progress 0.
// It reports false when nothing was processing.
func (b *Builder) Cancel() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.status.State != models.JobProcessing {
		return false
	}
	b.stopLocked()
	b.gen++
	b.status = models.JobStatus{State: models.JobCancelled}
	b.logger.Info("index build cancelled")
	return true
}

// Close cancels the running job and waits for its goroutine.
func (b *Builder) Close() {
	b.mu.Lock()
	b.stopLocked()
	b.gen++
	done := b.done
	b.mu.Unlock()
	<-done
}

// Wait blocks until the current job goroutine exits.
func (b *Builder) Wait() {
	b.mu.Lock()
	done := b.done
	b.mu.Unlock()
	<-done
}

func (b *Builder) stopLocked() {
	if b.cancel != nil {
		b.cancel()
		b.cancel = nil
	}
}

func (b *Builder) run(ctx context.Context, gen uint64, path string, delay time.Duration, done chan struct{}) {
	defer close(done)

	start := b.now()
	logger := b.logger.With("path", path)
	logger.Info("index build started")

	chunks, err := readChunks(path)
	if err != nil {
		logger.Warn("index build failed", "error", err)
		b.set(gen, models.JobStatus{State: models.JobFailed})
		return
	}

	total := len(chunks)
	for i := 0; i < total; i += BatchSize {
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}

		processed := min(i+BatchSize, total)
		if !b.set(gen, models.JobStatus{State: models.JobProcessing, Progress: processed * 100 / total}) {
			return
		}
		logger.Debug("batch indexed", "processed", processed, "total", total)
	}

	took := b.now().Sub(start)
	if b.set(gen, models.JobStatus{State: models.JobReady, Progress: 100, TimeTaken: &took}) {
		logger.Info("index build finished", "chunks", total, "took", took)
	}
}

// set применяет статус, если задача не была заменена или отменена
func (b *Builder) set(gen uint64, st models.JobStatus) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.gen != gen {
		return false
	}
	b.status = st
	return true
}
