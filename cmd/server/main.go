package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/iudanet/chatdesk/internal/config"
	"github.com/iudanet/chatdesk/internal/server/handlers"
	"github.com/iudanet/chatdesk/internal/server/indexer"
	"github.com/iudanet/chatdesk/internal/server/middleware"
	"github.com/iudanet/chatdesk/internal/server/storage/sqlite"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

const (
	shutdownTimeout = 10 * time.Second
	cleanupInterval = time.Hour
	// 5 попыток входа в минуту с одного адреса
	loginRate   = 5
	loginWindow = time.Minute
)

func main() {
	os.Exit(run())
}

func run() int {
	env, err := config.LoadEnv("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	cfg, err := config.ParseServer(os.Args[1:], env, os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	// Show version and exit if requested
	if cfg.ShowVersion {
		printVersion()
		return 0
	}

	logger, err := config.NewLogger(os.Stderr, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, cfg, logger); err != nil {
		logger.Error("server stopped with error", "error", err)
		return 1
	}
	return 0
}

func serve(ctx context.Context, cfg *config.Server, logger *slog.Logger) error {
	db, err := sqlite.New(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	if cfg.AdminEmail != "" {
		created, err := handlers.EnsureAdmin(ctx, db, cfg.AdminEmail, cfg.AdminPassword)
		if err != nil {
			return err
		}
		if created {
			logger.Info("admin account created", "email", cfg.AdminEmail)
		}
	}

	builder := indexer.NewBuilder(cfg.BatchDelay, logger)
	defer builder.Close()

	loginLimiter := middleware.NewRateLimiter(loginRate, loginWindow, logger)
	defer loginLimiter.Stop()

	jwtConfig := handlers.JWTConfig{
		Secret:          []byte(cfg.JWTSecret),
		AccessTokenTTL:  cfg.AccessTTL,
		RefreshTokenTTL: cfg.RefreshTTL,
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newRouter(logger, db, builder, loginLimiter, jwtConfig, cfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("server started", "addr", cfg.Addr, "version", Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	// Периодически удаляем истекшие refresh токены
	g.Go(func() error {
		ticker := time.NewTicker(cleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				n, err := db.DeleteExpiredTokens(gctx)
				if err != nil {
					logger.Warn("failed to delete expired tokens", "error", err)
					continue
				}
				if n > 0 {
					logger.Info("expired refresh tokens removed", "count", n)
				}
			}
		}
	})

	return g.Wait()
}

// newRouter собирает маршруты; /chat, /file и /contact требуют access token
func newRouter(
	logger *slog.Logger,
	db *sqlite.Storage,
	builder *indexer.Builder,
	loginLimiter *middleware.RateLimiter,
	jwtConfig handlers.JWTConfig,
	cfg *config.Server,
) http.Handler {
	authHandler := handlers.NewAuthHandler(logger, db, db, jwtConfig)
	chatHandler := handlers.NewChatHandler(logger, db, builder, cfg.StreamDelay)
	fileHandler := handlers.NewFileHandler(logger, db, builder, cfg.UploadDir)
	contactHandler := handlers.NewContactHandler(logger, db)
	healthHandler := handlers.NewHealthHandler(logger, db, Version)

	requireAuth := middleware.AuthMiddleware(logger, jwtConfig)
	limitLogin := middleware.RateLimitMiddleware(loginLimiter, logger)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", healthHandler.Health)

	mux.Handle("POST /admin/login", limitLogin(http.HandlerFunc(authHandler.Login)))
	mux.HandleFunc("POST /admin/refresh", authHandler.Refresh)
	mux.HandleFunc("POST /admin/logout/{adminId}", authHandler.Logout)

	mux.Handle("POST /chat/send", requireAuth(http.HandlerFunc(chatHandler.Send)))
	mux.Handle("GET /chat/history/{threadId}", requireAuth(http.HandlerFunc(chatHandler.History)))
	mux.Handle("GET /chat/threads", requireAuth(http.HandlerFunc(chatHandler.Threads)))

	mux.Handle("POST /file/upload", requireAuth(http.HandlerFunc(fileHandler.Upload)))
	mux.Handle("GET /file/vector-status", requireAuth(http.HandlerFunc(fileHandler.VectorStatus)))
	mux.Handle("POST /file/vector-cancel", requireAuth(http.HandlerFunc(fileHandler.VectorCancel)))

	mux.Handle("GET /contact/{$}", requireAuth(http.HandlerFunc(contactHandler.List)))
	mux.Handle("GET /contact/count", requireAuth(http.HandlerFunc(contactHandler.Count)))
	mux.Handle("POST /contact/create-contact", requireAuth(http.HandlerFunc(contactHandler.Create)))

	var h http.Handler = mux
	h = middleware.LoggingWithSkip(logger, []string{"/health"})(h)
	h = middleware.RecoveryMiddleware(logger)(h)
	return h
}

func printVersion() {
	fmt.Printf("ChatDesk Server\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
