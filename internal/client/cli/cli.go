package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/iudanet/chatdesk/internal/client/api"
	"github.com/iudanet/chatdesk/internal/client/auth"
	"github.com/iudanet/chatdesk/internal/client/chat"
	"github.com/iudanet/chatdesk/internal/client/contact"
	"github.com/iudanet/chatdesk/internal/client/ingest"
	"github.com/iudanet/chatdesk/internal/client/iocli"
	"github.com/iudanet/chatdesk/internal/client/metrics"
	"github.com/iudanet/chatdesk/internal/client/storage"
)

// Deps зависимости CLI; собираются в cmd/client
type Deps struct {
	IO           iocli.IO
	Store        *auth.CredentialStore
	Auth         *auth.Service
	Executor     *api.Executor
	Cache        storage.ChatCacheStorage
	Metrics      *metrics.Metrics
	Logger       *slog.Logger
	PollInterval time.Duration
	HistoryLimit int
}

// Cli слой представления: команды вызывают ядро и рисуют его события
type Cli struct {
	io       iocli.IO
	store    *auth.CredentialStore
	auth     *auth.Service
	threads  *chat.ThreadRegistry
	session  *chat.Session
	poller   *ingest.Poller
	uploader *ingest.Uploader
	contacts *contact.Service
	logger   *slog.Logger

	pollInterval time.Duration
	historyLimit int

	// printed сколько байт текущего ответа бота уже выведено
	printed int
	mu      sync.Mutex
}

// New wires the client components around a single executor.
func New(d Deps) *Cli {
	c := &Cli{
		io:           d.IO,
		store:        d.Store,
		auth:         d.Auth,
		logger:       d.Logger,
		pollInterval: d.PollInterval,
		historyLimit: d.HistoryLimit,
	}

	c.threads = chat.NewThreadRegistry(d.Executor, d.Metrics, d.Logger)
	c.session = chat.NewSession(d.Executor, c.threads, d.Cache, d.Metrics, d.Logger, chat.Options{
		OnEvent:      c.onChatEvent,
		HistoryLimit: d.HistoryLimit,
	})
	c.poller = ingest.NewPoller(d.Executor, d.Metrics, d.Logger, ingest.PollerOptions{
		OnUpdate: c.onJobUpdate,
		Interval: d.PollInterval,
	})
	c.uploader = ingest.NewUploader(d.Executor, c.poller, d.Logger)
	c.contacts = contact.NewService(d.Executor, d.Logger)
	return c
}

// Close stops background work (the poll loop).
func (c *Cli) Close() {
	c.poller.Close()
}

// requireAuth проверяет, что есть сохраненная сессия
func (c *Cli) requireAuth() error {
	if _, ok := c.store.Identity(); !ok {
		return fmt.Errorf("%w. Please run 'chatdesk login' first", auth.ErrNotSignedIn)
	}
	return nil
}

// handleAuthExpired разлогинивает локально, если сессию восстановить нельзя
func (c *Cli) handleAuthExpired(ctx context.Context, err error) error {
	if clearErr := c.store.Clear(context.WithoutCancel(ctx)); clearErr != nil {
		c.logger.Error("failed to clear credentials", "error", clearErr)
	}
	return fmt.Errorf("%w. Please run 'chatdesk login' again", err)
}

// PrintUsage writes the command overview.
func PrintUsage(w io.Writer) {
	_, _ = fmt.Fprint(w, `ChatDesk Client

Usage:
  chatdesk [OPTIONS] COMMAND [ARGS]

Options:
  --version                Show version information
  --server URL             Server URL (default: http://localhost:8000, env CHATDESK_SERVER)
  --db PATH                Path to local database (default: chatdesk-client.db, env CHATDESK_DB)
  --log-level LEVEL        debug, info, warn, error (env CHATDESK_LOG_LEVEL)
  --timeout DURATION       Timeout for non-streaming requests (env CHATDESK_HTTP_TIMEOUT)
  --poll-interval DURATION Knowledge base status poll interval (env CHATDESK_POLL_INTERVAL)
  --history-limit N        Messages per history page (env CHATDESK_HISTORY_LIMIT)
  --metrics-addr ADDR      Serve Prometheus metrics while the command runs (env CHATDESK_METRICS_ADDR)

  CHATDESK_PASSPHRASE      Encrypt stored tokens with this passphrase
  Settings are also read from .env (or the file named by CHATDESK_ENV_FILE).

Commands:
  login [email]            Sign in
  logout                   Sign out and delete the local session
  status                   Show authentication status
  chat [message]           Chat in the active thread (interactive without a message)
  threads                  List conversation threads
  history <thread-id>      Show a thread and make it active (--limit N --offset N)
  new                      Start a new thread
  upload <file> [--watch]  Upload a document to the knowledge base (.pdf .txt .docx)
  kb-status                Show knowledge base build status
  kb-watch                 Follow the build until it finishes
  kb-cancel                Cancel the running build
  contacts [count|add]     List, count or create contact requests

Interactive chat commands:
  /new  /threads  /open <thread-id>  /quit
`)
}
