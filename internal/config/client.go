package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"net/url"
	"time"
)

// Client настройки CLI-клиента
type Client struct {
	ServerURL    string
	DBPath       string
	Passphrase   string // не имеет флага, только окружение
	LogLevel     string
	MetricsAddr  string
	PollInterval time.Duration
	HTTPTimeout  time.Duration
	HistoryLimit int
	ShowVersion  bool
}

// ParseClient resolves client settings. args excludes the program name; the
// returned slice holds the remaining positional arguments (the command).
func ParseClient(args []string, env *Env, output io.Writer) (*Client, []string, error) {
	poll, err := env.duration("CHATDESK_POLL_INTERVAL", time.Second)
	if err != nil {
		return nil, nil, err
	}
	timeout, err := env.duration("CHATDESK_HTTP_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, nil, err
	}
	limit, err := env.integer("CHATDESK_HISTORY_LIMIT", 50)
	if err != nil {
		return nil, nil, err
	}

	cfg := &Client{Passphrase: env.str("CHATDESK_PASSPHRASE", "")}

	// значения из окружения становятся умолчаниями флагов
	fs := flag.NewFlagSet("chatdesk", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	fs.StringVar(&cfg.ServerURL, "server", env.str("CHATDESK_SERVER", "http://localhost:8000"), "Server URL")
	fs.StringVar(&cfg.DBPath, "db", env.str("CHATDESK_DB", "chatdesk-client.db"), "Path to local database")
	fs.StringVar(&cfg.LogLevel, "log-level", env.str("CHATDESK_LOG_LEVEL", "warn"), "Log level: debug, info, warn, error")
	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", env.str("CHATDESK_METRICS_ADDR", ""), "Serve Prometheus metrics on this address")
	fs.DurationVar(&cfg.PollInterval, "poll-interval", poll, "Knowledge base status poll interval")
	fs.DurationVar(&cfg.HTTPTimeout, "timeout", timeout, "Timeout for non-streaming requests")
	fs.IntVar(&cfg.HistoryLimit, "history-limit", limit, "Messages per history page")

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, fs.Args(), nil
}

// Validate checks values that flag parsing cannot.
func (c *Client) Validate() error {
	u, err := url.Parse(c.ServerURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid server URL %q", c.ServerURL)
	}
	if c.DBPath == "" {
		return errors.New("database path cannot be empty")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", c.PollInterval)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("http timeout must be positive, got %s", c.HTTPTimeout)
	}
	if c.HistoryLimit <= 0 {
		return fmt.Errorf("history limit must be positive, got %d", c.HistoryLimit)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}
