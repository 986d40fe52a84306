package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	u := cfg.Endpoints().WebsocketURL()
	assert.Equal(t, "ws://localhost:8081/ws", u.String())
}

func TestLoad_FileOverridesOnlyDefinedKeys(t *testing.T) {
	path := writeFile(t, "talespin.toml", `
host = "talespin.live"
secure = true
keep_alive = "20s"
outbox_limit = 64

[reconnect]
policy = "backoff"
initial_delay = "250ms"
max_attempts = 5
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "talespin.live", cfg.Host)
	assert.True(t, cfg.Secure)
	assert.Equal(t, 20*time.Second, cfg.KeepAlive)
	assert.Equal(t, 64, cfg.OutboxLimit)
	assert.Equal(t, PolicyBackoff, cfg.Reconnect.Policy)
	assert.Equal(t, 250*time.Millisecond, cfg.Reconnect.InitialDelay)
	assert.Equal(t, 5, cfg.Reconnect.MaxAttempts)

	// untouched keys keep their defaults
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 10*time.Second, cfg.LobbyTimeout)
	assert.Equal(t, Default().Reconnect.MaxDelay, cfg.Reconnect.MaxDelay)
	assert.Len(t, cfg.SessionOptions(), 3)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, "talespin.toml", `host = "from-file"`)
	t.Setenv(EnvHost, "from-env:9000")
	t.Setenv(EnvLogLevel, "debug")
	t.Setenv(EnvReopenInterval, "1m")
	t.Setenv(EnvMaxAttempts, "3")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env:9000", cfg.Host)
	assert.Equal(t, time.Minute, cfg.ReopenInterval)
	assert.Equal(t, 3, cfg.Reconnect.MaxAttempts)

	lvl, err := cfg.ZapLevel()
	require.NoError(t, err)
	assert.Equal(t, zapcore.DebugLevel, lvl)
}

func TestLoad_Rejects(t *testing.T) {
	t.Run("bad duration", func(t *testing.T) {
		path := writeFile(t, "bad.toml", `keep_alive = "soon"`)
		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("unknown policy", func(t *testing.T) {
		t.Setenv(EnvReconnectPolicy, "never")
		_, err := Load("")
		assert.True(t, errors.Is(err, ErrInvalid), "got %v", err)
	})

	t.Run("bad level", func(t *testing.T) {
		t.Setenv(EnvLogLevel, "loud")
		_, err := Load("")
		assert.True(t, errors.Is(err, ErrInvalid), "got %v", err)
	})

	t.Run("bad bool", func(t *testing.T) {
		t.Setenv(EnvSecure, "sometimes")
		_, err := Load("")
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
		assert.Error(t, err)
	})
}

func TestLoadDotEnv(t *testing.T) {
	path := writeFile(t, ".env", "TALESPIN_HOST=dotenv.local:8081\nTALESPIN_OUTBOX_LIMIT=7\n")
	t.Setenv(EnvHost, "")
	t.Setenv(EnvOutboxLimit, "")
	// t.Setenv restores the previous values; unset them so godotenv may fill them in
	require.NoError(t, os.Unsetenv(EnvHost))
	require.NoError(t, os.Unsetenv(EnvOutboxLimit))

	require.NoError(t, LoadDotEnv(path))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "dotenv.local:8081", cfg.Host)
	assert.Equal(t, 7, cfg.OutboxLimit)
}

func TestStrategy(t *testing.T) {
	cfg := Default()
	delay, retry := cfg.Strategy().Next(0)
	assert.Zero(t, delay)
	assert.True(t, retry)

	cfg.Reconnect.Policy = PolicyBackoff
	cfg.Reconnect.MaxAttempts = 1
	s := cfg.Strategy()
	_, retry = s.Next(0)
	assert.True(t, retry)
	_, retry = s.Next(0)
	assert.False(t, retry)
}
