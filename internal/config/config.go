// Package config loads the convo CLI configuration from the environment.
//
// A .env file in the working directory is loaded first when present; real
// environment variables win over it. Cobra flags override both.
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
)

// Config holds all configuration for the convo CLI.
type Config struct {
	Addr       string
	ScriptsDir string

	Store       string
	SessionsDir string
	RedisURL    string
	SessionTTL  time.Duration

	// IdleTimeout ends dialogs not updated for this long. Zero disables expiry.
	IdleTimeout time.Duration

	// EncryptionKey is the decoded AES-256 key; nil disables encryption.
	EncryptionKey []byte
	// MaskPatterns are regular expressions; variables whose key matches are
	// masked before they reach the store.
	MaskPatterns []string

	LogLevel        string
	LogFormat       string
	RetainCompleted bool
}

// Load reads the optional files (".env" when none are given), then the
// CONVO_* environment variables.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg := &Config{
		Addr:        getEnv("CONVO_ADDR", ":8080"),
		ScriptsDir:  getEnv("CONVO_SCRIPTS_DIR", "scripts"),
		Store:       strings.ToLower(getEnv("CONVO_STORE", StoreFile)),
		SessionsDir: getEnv("CONVO_SESSIONS_DIR", ".convo/sessions"),
		RedisURL:    getEnv("CONVO_REDIS_URL", "redis://localhost:6379/0"),
		LogLevel:    getEnv("CONVO_LOG_LEVEL", "info"),
		LogFormat:   getEnv("CONVO_LOG_FORMAT", "text"),
	}

	var errs []error
	cfg.SessionTTL, errs = getDuration("CONVO_SESSION_TTL", 0, errs)
	cfg.IdleTimeout, errs = getDuration("CONVO_IDLE_TIMEOUT", 0, errs)

	if v := os.Getenv("CONVO_RETAIN_COMPLETED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("CONVO_RETAIN_COMPLETED: %w", err))
		}
		cfg.RetainCompleted = b
	}

	if v := os.Getenv("CONVO_ENCRYPTION_KEY"); v != "" {
		key, err := base64.StdEncoding.DecodeString(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("CONVO_ENCRYPTION_KEY: %w", err))
		}
		cfg.EncryptionKey = key
	}

	if v := os.Getenv("CONVO_MASK_PATTERNS"); v != "" {
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				cfg.MaskPatterns = append(cfg.MaskPatterns, p)
			}
		}
	}

	errs = append(errs, cfg.Validate())
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that flags may have changed after Load.
func (c *Config) Validate() error {
	switch c.Store {
	case StoreMemory, StoreFile, StoreRedis:
	default:
		return fmt.Errorf("unknown store %q (want memory, file or redis)", c.Store)
	}
	if c.EncryptionKey != nil && len(c.EncryptionKey) != 32 {
		return fmt.Errorf("encryption key must decode to 32 bytes, got %d", len(c.EncryptionKey))
	}
	if c.IdleTimeout < 0 || c.SessionTTL < 0 {
		return errors.New("durations must not be negative")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration, errs []error) (time.Duration, []error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, errs
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback, append(errs, fmt.Errorf("%s: %w", key, err))
	}
	return d, errs
}
