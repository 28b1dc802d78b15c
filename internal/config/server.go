package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"time"
)

// Server настройки dev-сервера
type Server struct {
	Addr          string
	DBPath        string
	JWTSecret     string
	UploadDir     string
	AdminEmail    string
	AdminPassword string
	LogLevel      string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	StreamDelay   time.Duration
	BatchDelay    time.Duration
	ShowVersion   bool
}

// ParseServer resolves dev server settings.
func ParseServer(args []string, env *Env, output io.Writer) (*Server, error) {
	accessTTL, err := env.duration("CHATDESK_ACCESS_TTL", 15*time.Minute)
	if err != nil {
		return nil, err
	}
	refreshTTL, err := env.duration("CHATDESK_REFRESH_TTL", 30*24*time.Hour)
	if err != nil {
		return nil, err
	}
	delay, err := env.duration("CHATDESK_STREAM_DELAY", 50*time.Millisecond)
	if err != nil {
		return nil, err
	}
	batchDelay, err := env.duration("CHATDESK_BATCH_DELAY", 200*time.Millisecond)
	if err != nil {
		return nil, err
	}

	cfg := &Server{
		JWTSecret:     env.str("CHATDESK_JWT_SECRET", ""),
		AdminPassword: env.str("CHATDESK_ADMIN_PASSWORD", ""),
	}

	fs := flag.NewFlagSet("chatdesk-server", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	fs.StringVar(&cfg.Addr, "addr", env.str("CHATDESK_SERVER_ADDR", ":8000"), "Listen address")
	fs.StringVar(&cfg.DBPath, "db", env.str("CHATDESK_SERVER_DB", "chatdesk-server.db"), "Path to sqlite database")
	fs.StringVar(&cfg.UploadDir, "upload-dir", env.str("CHATDESK_UPLOAD_DIR", "uploads"), "Directory for uploaded documents")
	fs.StringVar(&cfg.AdminEmail, "admin-email", env.str("CHATDESK_ADMIN_EMAIL", ""), "Seed admin email")
	fs.StringVar(&cfg.LogLevel, "log-level", env.str("CHATDESK_LOG_LEVEL", "info"), "Log level: debug, info, warn, error")
	fs.DurationVar(&cfg.AccessTTL, "access-ttl", accessTTL, "Access token lifetime")
	fs.DurationVar(&cfg.RefreshTTL, "refresh-ttl", refreshTTL, "Refresh token lifetime")
	fs.DurationVar(&cfg.StreamDelay, "stream-delay", delay, "Delay between streamed chunks")
	fs.DurationVar(&cfg.BatchDelay, "batch-delay", batchDelay, "Simulated indexing time per batch of chunks")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if cfg.ShowVersion {
		return cfg, nil
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required settings.
func (s *Server) Validate() error {
	if s.JWTSecret == "" {
		return errors.New("CHATDESK_JWT_SECRET is required")
	}
	if len(s.JWTSecret) < 16 {
		return errors.New("CHATDESK_JWT_SECRET must be at least 16 bytes")
	}
	if s.Addr == "" || s.DBPath == "" || s.UploadDir == "" {
		return errors.New("addr, db and upload-dir cannot be empty")
	}
	if s.AccessTTL <= 0 || s.RefreshTTL <= 0 {
		return fmt.Errorf("token lifetimes must be positive (access %s, refresh %s)", s.AccessTTL, s.RefreshTTL)
	}
	if s.AccessTTL >= s.RefreshTTL {
		return errors.New("access token lifetime must be shorter than refresh token lifetime")
	}
	if s.StreamDelay < 0 || s.BatchDelay < 0 {
		return fmt.Errorf("delays cannot be negative (stream %s, batch %s)", s.StreamDelay, s.BatchDelay)
	}
	if (s.AdminEmail == "") != (s.AdminPassword == "") {
		return errors.New("admin email and password must be set together")
	}
	if _, err := ParseLevel(s.LogLevel); err != nil {
		return err
	}
	return nil
}
