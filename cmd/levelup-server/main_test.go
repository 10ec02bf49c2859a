// ABOUTME: Tests for levelup-server config generation and log output
// ABOUTME: A generated config file must load and validate unchanged

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/issambenlahbib/levelupmy-life/internal/config"
)

func TestRenderConfig_Loads(t *testing.T) {
	secret, err := generateSecret()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(secret), config.MinJWTSecretLength)

	dir := t.TempDir()
	path := filepath.Join(dir, "server.yaml")
	content := renderConfig(configValues{
		HTTPAddr:  "localhost:9090",
		DBPath:    filepath.Join(dir, "levelup.db"),
		JWTSecret: secret,
		Debounce:  "2s",
		OpTimeout: "20s",
		LogLevel:  "debug",
		LogFormat: "json",
	})
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "localhost:9090", cfg.Server.HTTPAddr)
	assert.Equal(t, secret, cfg.Auth.JWTSecret)
	assert.Equal(t, 2*time.Second, cfg.Sync.DebounceWindow)
	assert.Equal(t, 20*time.Second, cfg.Sync.OpTimeout)
	assert.Equal(t, 30*time.Minute, cfg.Sync.IdleTimeout)
	assert.Equal(t, 720*time.Hour, cfg.Auth.SessionTTL)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestSetupLogger_Text(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	logger := setupLogger(config.LoggingConfig{Level: "warn", Format: "text"}, &buf)

	logger.Info("hidden")
	logger.With("component", "server").WithGroup("req").Warn("slow request", "ms", 1200)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "WRN slow request")
	assert.Contains(t, out, "component=server")
	assert.Contains(t, out, "req.ms=1200")
}

func TestSetupLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := setupLogger(config.LoggingConfig{Level: "info", Format: "json"}, &buf)

	logger.Debug("hidden")
	logger.Info("ready", "port", 8080)

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"ready"`)
	assert.Contains(t, buf.String(), `"port":8080`)
}

func TestYes(t *testing.T) {
	assert.True(t, yes("Y"))
	assert.True(t, yes("yes"))
	assert.False(t, yes("no"))
	assert.False(t, yes(""))
}
