package config_test

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/convo/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var keys = []string{
	"CONVO_ADDR", "CONVO_SCRIPTS_DIR", "CONVO_STORE", "CONVO_SESSIONS_DIR",
	"CONVO_REDIS_URL", "CONVO_SESSION_TTL", "CONVO_IDLE_TIMEOUT",
	"CONVO_ENCRYPTION_KEY", "CONVO_MASK_PATTERNS", "CONVO_LOG_LEVEL",
	"CONVO_LOG_FORMAT", "CONVO_RETAIN_COMPLETED",
}

// clearEnv isolates a test from the developer's environment. t.Setenv
// restores the previous values on cleanup.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "scripts", cfg.ScriptsDir)
	assert.Equal(t, config.StoreFile, cfg.Store)
	assert.Equal(t, ".convo/sessions", cfg.SessionsDir)
	assert.Zero(t, cfg.IdleTimeout)
	assert.Nil(t, cfg.EncryptionKey)
	assert.False(t, cfg.RetainCompleted)
}

func TestLoad_Environment(t *testing.T) {
	clearEnv(t)
	key := base64.StdEncoding.EncodeToString([]byte(strings.Repeat("k", 32)))
	t.Setenv("CONVO_STORE", "Redis")
	t.Setenv("CONVO_SESSION_TTL", "24h")
	t.Setenv("CONVO_IDLE_TIMEOUT", "15m")
	t.Setenv("CONVO_ENCRYPTION_KEY", key)
	t.Setenv("CONVO_MASK_PATTERNS", "password, ^card_ ,")
	t.Setenv("CONVO_RETAIN_COMPLETED", "true")

	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, config.StoreRedis, cfg.Store)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 15*time.Minute, cfg.IdleTimeout)
	assert.Len(t, cfg.EncryptionKey, 32)
	assert.Equal(t, []string{"password", "^card_"}, cfg.MaskPatterns)
	assert.True(t, cfg.RetainCompleted)
}

func TestLoad_DotEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("CONVO_ADDR=:9090\nCONVO_STORE=memory\n"), 0o600))
	t.Setenv("CONVO_STORE", "file")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, config.StoreFile, cfg.Store, "environment wins over .env")
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"CONVO_STORE", "postgres"},
		{"CONVO_IDLE_TIMEOUT", "soon"},
		{"CONVO_IDLE_TIMEOUT", "-1m"},
		{"CONVO_ENCRYPTION_KEY", "not base64!"},
		{"CONVO_ENCRYPTION_KEY", base64.StdEncoding.EncodeToString([]byte("short"))},
		{"CONVO_RETAIN_COMPLETED", "maybe"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := config.Load(filepath.Join(t.TempDir(), "missing.env"))
			assert.Error(t, err)
		})
	}
}
