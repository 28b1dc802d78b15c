// Package config собирает настройки клиента и dev-сервера.
// Приоритет: флаги, затем переменные окружения, затем .env, затем значения по умолчанию.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultEnvFile файл, который читается, если CHATDESK_ENV_FILE не задан
const DefaultEnvFile = ".env"

// Env источник переменных: окружение процесса поверх содержимого .env
type Env struct {
	lookup func(string) (string, bool)
	file   map[string]string
}

// LoadEnv reads path with godotenv without touching the process environment.
// A missing file is not an error. An empty path uses CHATDESK_ENV_FILE or .env.
func LoadEnv(path string) (*Env, error) {
	if path == "" {
		path = DefaultEnvFile
		if p, ok := os.LookupEnv("CHATDESK_ENV_FILE"); ok && p != "" {
			path = p
		}
	}

	vars, err := godotenv.Read(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		vars = map[string]string{}
	}
	return &Env{lookup: os.LookupEnv, file: vars}, nil
}

// Get returns the value of key from the environment, then from the file.
func (e *Env) Get(key string) (string, bool) {
	if e == nil {
		return os.LookupEnv(key)
	}
	if v, ok := e.lookup(key); ok {
		return v, true
	}
	v, ok := e.file[key]
	return v, ok
}

func (e *Env) str(key, def string) string {
	if v, ok := e.Get(key); ok && v != "" {
		return v
	}
	return def
}

func (e *Env) duration(key string, def time.Duration) (time.Duration, error) {
	v, ok := e.Get(key)
	if !ok || v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func (e *Env) integer(key string, def int) (int, error) {
	v, ok := e.Get(key)
	if !ok || v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

// ParseLevel accepts debug, info, warn and error in any case.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}

// NewLogger builds the text logger both binaries use.
func NewLogger(w io.Writer, level string) (*slog.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}
