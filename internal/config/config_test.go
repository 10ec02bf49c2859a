// ABOUTME: Tests for configuration loading and parsing
// ABOUTME: Covers YAML and TOML loading, env var expansion, defaults, and duration parsing

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	configPath := writeConfig(t, "config.yaml", `
server:
  http_addr: "0.0.0.0:8080"

database:
  path: "./test.db"

auth:
  jwt_secret: "`+testSecret+`"
  session_ttl: "24h"
  min_password_length: 8

sync:
  debounce_window: "500ms"
  op_timeout: "20s"
  idle_timeout: "10m"

logging:
  level: "debug"
  format: "json"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.HTTPAddr != "0.0.0.0:8080" {
		t.Errorf("Server.HTTPAddr = %q, want %q", cfg.Server.HTTPAddr, "0.0.0.0:8080")
	}
	if cfg.Database.Path != "./test.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "./test.db")
	}
	if cfg.Auth.SessionTTL != 24*time.Hour {
		t.Errorf("Auth.SessionTTL = %v, want 24h", cfg.Auth.SessionTTL)
	}
	if cfg.Auth.ResetTokenTTL != DefaultResetTokenTTL {
		t.Errorf("Auth.ResetTokenTTL = %v, want default %v", cfg.Auth.ResetTokenTTL, DefaultResetTokenTTL)
	}
	if cfg.Auth.MinPasswordLength != 8 {
		t.Errorf("Auth.MinPasswordLength = %d, want 8", cfg.Auth.MinPasswordLength)
	}
	if cfg.Sync.DebounceWindow != 500*time.Millisecond {
		t.Errorf("Sync.DebounceWindow = %v, want 500ms", cfg.Sync.DebounceWindow)
	}
	if cfg.Sync.OpTimeout != 20*time.Second {
		t.Errorf("Sync.OpTimeout = %v, want 20s", cfg.Sync.OpTimeout)
	}
	if cfg.Sync.IdleTimeout != 10*time.Minute {
		t.Errorf("Sync.IdleTimeout = %v, want 10m", cfg.Sync.IdleTimeout)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v, want debug/json", cfg.Logging)
	}
}

func TestLoad_Defaults(t *testing.T) {
	configPath := writeConfig(t, "config.yaml", `
server:
  http_addr: ":8080"
database:
  path: "./test.db"
auth:
  jwt_secret: "`+testSecret+`"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Sync.DebounceWindow != DefaultDebounceWindow {
		t.Errorf("Sync.DebounceWindow = %v, want %v", cfg.Sync.DebounceWindow, DefaultDebounceWindow)
	}
	if cfg.Sync.OpTimeout != DefaultOpTimeout {
		t.Errorf("Sync.OpTimeout = %v, want %v", cfg.Sync.OpTimeout, DefaultOpTimeout)
	}
	if cfg.Sync.IdleTimeout != DefaultIdleTimeout {
		t.Errorf("Sync.IdleTimeout = %v, want %v", cfg.Sync.IdleTimeout, DefaultIdleTimeout)
	}
	if cfg.Auth.MinPasswordLength != DefaultMinPasswordLength {
		t.Errorf("Auth.MinPasswordLength = %d, want %d", cfg.Auth.MinPasswordLength, DefaultMinPasswordLength)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "text" {
		t.Errorf("Logging = %+v, want info/text", cfg.Logging)
	}
}

func TestLoad_TOML(t *testing.T) {
	configPath := writeConfig(t, "config.toml", `
[server]
http_addr = "127.0.0.1:9090"

[database]
path = "levelup.db"

[auth]
jwt_secret = "`+testSecret+`"

[sync]
debounce_window = "2s"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.HTTPAddr != "127.0.0.1:9090" {
		t.Errorf("Server.HTTPAddr = %q, want %q", cfg.Server.HTTPAddr, "127.0.0.1:9090")
	}
	if cfg.Sync.DebounceWindow != 2*time.Second {
		t.Errorf("Sync.DebounceWindow = %v, want 2s", cfg.Sync.DebounceWindow)
	}
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("TEST_LEVELUP_SECRET", testSecret)
	t.Setenv("TEST_LEVELUP_ADDR", "localhost:7000")

	configPath := writeConfig(t, "config.yaml", `
server:
  http_addr: "${TEST_LEVELUP_ADDR}"
database:
  path: "./test.db"
auth:
  jwt_secret: "${TEST_LEVELUP_SECRET}"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.HTTPAddr != "localhost:7000" {
		t.Errorf("Server.HTTPAddr = %q, want %q", cfg.Server.HTTPAddr, "localhost:7000")
	}
	if cfg.Auth.JWTSecret != testSecret {
		t.Errorf("Auth.JWTSecret not expanded")
	}
}

func TestLoad_DatabasePathOverride(t *testing.T) {
	t.Setenv("LEVELUP_DB_PATH", "/tmp/override.db")

	configPath := writeConfig(t, "config.yaml", `
server:
  http_addr: ":8080"
database:
  path: "./test.db"
auth:
  jwt_secret: "`+testSecret+`"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Database.Path != "/tmp/override.db" {
		t.Errorf("Database.Path = %q, want override", cfg.Database.Path)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := writeConfig(t, "config.yaml", "server:\n  http_addr: [unclosed\n")

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	configPath := writeConfig(t, "config.yaml", `
server:
  http_addr: ":8080"
database:
  path: "./test.db"
auth:
  jwt_secret: "`+testSecret+`"
sync:
  debounce_window: "soon"
`)

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("Load() expected error for invalid duration, got nil")
	}
	if !strings.Contains(err.Error(), "debounce_window") {
		t.Errorf("error %q should name the field", err)
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Server:   ServerConfig{HTTPAddr: ":8080"},
			Database: DatabaseConfig{Path: "x.db"},
			Auth:     AuthConfig{JWTSecret: testSecret, MinPasswordLength: 6},
			Sync:     SyncConfig{DebounceWindow: time.Second, OpTimeout: 15 * time.Second},
			Logging:  LoggingConfig{Level: "info", Format: "text"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing http addr", func(c *Config) { c.Server.HTTPAddr = "" }, "server.http_addr"},
		{"missing db path", func(c *Config) { c.Database.Path = "" }, "database.path"},
		{"short secret", func(c *Config) { c.Auth.JWTSecret = "short" }, "jwt_secret"},
		{"tiny op timeout", func(c *Config) { c.Sync.OpTimeout = time.Millisecond }, "op_timeout"},
		{"negative debounce", func(c *Config) { c.Sync.DebounceWindow = -time.Second }, "debounce_window"},
		{"bad level", func(c *Config) { c.Logging.Level = "trace" }, "logging.level"},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("TEST_EXPAND_A", "alpha")

	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"${TEST_EXPAND_A}", "alpha"},
		{"pre-${TEST_EXPAND_A}-post", "pre-alpha-post"},
		{"${TEST_EXPAND_UNSET_VAR}", ""},
	}

	for _, tt := range tests {
		if got := expandEnvVars(tt.in); got != tt.want {
			t.Errorf("expandEnvVars(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDefaultPath(t *testing.T) {
	t.Setenv("LEVELUP_CONFIG", "/etc/levelup.yaml")
	if got := DefaultPath(); got != "/etc/levelup.yaml" {
		t.Errorf("DefaultPath() = %q, want env value", got)
	}

	t.Setenv("LEVELUP_CONFIG", "")
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	if got := DefaultPath(); got != filepath.Join("/xdg", "levelup", "server.yaml") {
		t.Errorf("DefaultPath() = %q, want xdg path", got)
	}
}
