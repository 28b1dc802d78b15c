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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iudanet/chatdesk/internal/client/api"
	"github.com/iudanet/chatdesk/internal/client/auth"
	"github.com/iudanet/chatdesk/internal/client/cli"
	"github.com/iudanet/chatdesk/internal/client/iocli"
	"github.com/iudanet/chatdesk/internal/client/metrics"
	"github.com/iudanet/chatdesk/internal/client/storage/boltdb"
	"github.com/iudanet/chatdesk/internal/config"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
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

	cfg, args, err := config.ParseClient(os.Args[1:], env, os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		cli.PrintUsage(os.Stdout)
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

	if len(args) == 0 {
		cli.PrintUsage(os.Stderr)
		return 1
	}
	command := args[0]

	logger, err := config.NewLogger(os.Stderr, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	// Ctrl+C прерывает чат и опрос статуса
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Открываем BoltDB storage
	boltStorage, err := boltdb.New(ctx, cfg.DBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open database: %v\n", err)
		return 1
	}
	defer func() {
		if err := boltStorage.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	sealer, err := auth.OpenSealer(ctx, boltStorage, cfg.Passphrase)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	store := auth.NewCredentialStore(boltStorage, sealer, logger)
	if _, err := store.Load(ctx); err != nil && command != "logout" {
		// logout удаляет сессию и без расшифровки
		if errors.Is(err, auth.ErrSealedCredentials) {
			fmt.Fprintln(os.Stderr, "Error: stored session is encrypted, set CHATDESK_PASSPHRASE or run 'chatdesk logout'")
			return 1
		}
		fmt.Fprintf(os.Stderr, "Error: failed to load session: %v\n", err)
		return 1
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	if cfg.MetricsAddr != "" {
		srv := serveMetrics(cfg.MetricsAddr, reg, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("failed to stop metrics server", "error", err)
			}
		}()
	}

	// Создаем API клиент
	apiClient := api.NewClient(cfg.ServerURL, cfg.HTTPTimeout)
	refresher := auth.NewRefresher(apiClient, store, m, logger)
	executor := api.NewExecutor(apiClient, store, refresher, m, logger)

	c := cli.New(cli.Deps{
		IO:           iocli.NewStdio(),
		Store:        store,
		Auth:         auth.NewService(apiClient, store, logger),
		Executor:     executor,
		Cache:        boltStorage,
		Metrics:      m,
		Logger:       logger,
		PollInterval: cfg.PollInterval,
		HistoryLimit: cfg.HistoryLimit,
	})
	defer c.Close()

	// Выполняем команду
	if err := c.Run(ctx, command, args[1:]); err != nil {
		if errors.Is(err, cli.ErrUnknownCommand) {
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
			cli.PrintUsage(os.Stderr)
			return 1
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// serveMetrics отдает /metrics, пока работает команда
func serveMetrics(addr string, reg *prometheus.Registry, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("metrics server started", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()
	return srv
}

func printVersion() {
	fmt.Printf("ChatDesk Client\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
