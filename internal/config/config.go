// Package config loads runtime settings from the environment.
//
// A .env file in the working directory is read first when it exists;
// variables already set in the process environment win over it.
//
//	PORT        HTTP port                         (default 8080)
//	DB_PATH     SQLite database file              (default data/yamdb.db)
//	JWT_SECRET  HMAC key for access tokens        (required, 16+ characters)
//	TOKEN_TTL   access token lifetime             (default 24h)
//	LOG_LEVEL   debug | info | warn | error       (default info)
//	LOG_FORMAT  text | json                       (default text)
//	DATA_DIR    CSV directory used by loadcsv     (default static/data)
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

const minSecretLength = 16

type Config struct {
	Port      int
	DBPath    string
	JWTSecret string
	TokenTTL  time.Duration
	LogLevel  slog.Level
	LogFormat string
	DataDir   string
}

// Load reads .env (if present) and then the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("config: reading .env: %w", err)
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from lookup, which has the signature of
// os.LookupEnv. Secrets are checked by the commands that need them.
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	get := func(key, def string) string {
		if v, ok := lookup(key); ok && v != "" {
			return v
		}
		return def
	}

	cfg := Config{
		DBPath:    get("DB_PATH", "data/yamdb.db"),
		JWTSecret: get("JWT_SECRET", ""),
		LogFormat: strings.ToLower(get("LOG_FORMAT", "text")),
		DataDir:   get("DATA_DIR", "static/data"),
	}

	port, err := strconv.Atoi(get("PORT", "8080"))
	if err != nil || port <= 0 || port > 65535 {
		return Config{}, fmt.Errorf("config: invalid PORT %q", get("PORT", ""))
	}
	cfg.Port = port

	ttl, err := time.ParseDuration(get("TOKEN_TTL", "24h"))
	if err != nil || ttl <= 0 {
		return Config{}, fmt.Errorf("config: invalid TOKEN_TTL %q", get("TOKEN_TTL", ""))
	}
	cfg.TokenTTL = ttl

	if err := cfg.LogLevel.UnmarshalText([]byte(get("LOG_LEVEL", "info"))); err != nil {
		return Config{}, fmt.Errorf("config: invalid LOG_LEVEL: %w", err)
	}

	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return Config{}, fmt.Errorf("config: LOG_FORMAT must be text or json, got %q", cfg.LogFormat)
	}

	return cfg, nil
}

// RequireSecret reports a missing or short JWT_SECRET. Only commands that
// sign or verify tokens call it.
func (c Config) RequireSecret() error {
	if len(c.JWTSecret) < minSecretLength {
		return fmt.Errorf("config: JWT_SECRET must be at least %d characters", minSecretLength)
	}
	return nil
}

// NewLogger builds the process logger described by c.
func (c Config) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
