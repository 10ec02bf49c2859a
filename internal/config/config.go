// ABOUTME: Configuration loading and parsing for levelup-server
// ABOUTME: Supports YAML or TOML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Defaults applied when a field is left empty.
const (
	DefaultDebounceWindow    = time.Second
	DefaultOpTimeout         = 15 * time.Second
	DefaultIdleTimeout       = 30 * time.Minute
	DefaultSessionTTL        = 30 * 24 * time.Hour
	DefaultResetTokenTTL     = time.Hour
	DefaultMinPasswordLength = 6

	// MinJWTSecretLength is the minimum accepted HS256 secret size in bytes.
	MinJWTSecretLength = 32
)

// Config represents the complete levelup-server configuration
type Config struct {
	Server   ServerConfig   `yaml:"server" toml:"server"`
	Database DatabaseConfig `yaml:"database" toml:"database"`
	Auth     AuthConfig     `yaml:"auth" toml:"auth"`
	Sync     SyncConfig     `yaml:"sync" toml:"sync"`
	Logging  LoggingConfig  `yaml:"logging" toml:"logging"`
}

// ServerConfig holds server address configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr" toml:"http_addr"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path string `yaml:"path" toml:"path"`
}

// AuthConfig holds identity provider configuration
type AuthConfig struct {
	JWTSecret         string        `yaml:"jwt_secret" toml:"jwt_secret"`
	MinPasswordLength int           `yaml:"min_password_length" toml:"min_password_length"`
	SessionTTL        time.Duration `yaml:"-" toml:"-"`
	ResetTokenTTL     time.Duration `yaml:"-" toml:"-"`

	// Raw string values for unmarshaling
	SessionTTLRaw    string `yaml:"session_ttl" toml:"session_ttl"`
	ResetTokenTTLRaw string `yaml:"reset_token_ttl" toml:"reset_token_ttl"`
}

// SyncConfig holds document synchronization timing
type SyncConfig struct {
	DebounceWindow time.Duration `yaml:"-" toml:"-"`
	OpTimeout      time.Duration `yaml:"-" toml:"-"`
	IdleTimeout    time.Duration `yaml:"-" toml:"-"`

	DebounceWindowRaw string `yaml:"debounce_window" toml:"debounce_window"`
	OpTimeoutRaw      string `yaml:"op_timeout" toml:"op_timeout"`
	IdleTimeoutRaw    string `yaml:"idle_timeout" toml:"idle_timeout"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Files ending in .toml are decoded as TOML, everything else as YAML.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expandedData := expandEnvVars(string(data))

	var cfg Config
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(expandedData, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else {
		if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	applyOverrides(&cfg)
	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// DefaultPath resolves the config file location: LEVELUP_CONFIG, then
// $XDG_CONFIG_HOME/levelup/server.yaml, then ~/.config/levelup/server.yaml.
func DefaultPath() string {
	if p := os.Getenv("LEVELUP_CONFIG"); p != "" {
		return p
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "levelup", "server.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "server.yaml"
	}
	return filepath.Join(home, ".config", "levelup", "server.yaml")
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

func applyOverrides(cfg *Config) {
	if p := os.Getenv("LEVELUP_DB_PATH"); p != "" {
		cfg.Database.Path = p
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Sync.DebounceWindow == 0 {
		cfg.Sync.DebounceWindow = DefaultDebounceWindow
	}
	if cfg.Sync.OpTimeout == 0 {
		cfg.Sync.OpTimeout = DefaultOpTimeout
	}
	if cfg.Sync.IdleTimeout == 0 {
		cfg.Sync.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Auth.SessionTTL == 0 {
		cfg.Auth.SessionTTL = DefaultSessionTTL
	}
	if cfg.Auth.ResetTokenTTL == 0 {
		cfg.Auth.ResetTokenTTL = DefaultResetTokenTTL
	}
	if cfg.Auth.MinPasswordLength == 0 {
		cfg.Auth.MinPasswordLength = DefaultMinPasswordLength
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if len(c.Auth.JWTSecret) < MinJWTSecretLength {
		return fmt.Errorf("auth.jwt_secret must be at least %d bytes", MinJWTSecretLength)
	}

	if c.Auth.MinPasswordLength < 1 {
		return fmt.Errorf("auth.min_password_length must be positive")
	}

	if c.Sync.DebounceWindow < 0 {
		return fmt.Errorf("sync.debounce_window must not be negative")
	}

	if c.Sync.OpTimeout < time.Second {
		return fmt.Errorf("sync.op_timeout must be at least 1s, got %s", c.Sync.OpTimeout)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error, got %q", c.Logging.Level)
	}

	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	fields := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"sync.debounce_window", cfg.Sync.DebounceWindowRaw, &cfg.Sync.DebounceWindow},
		{"sync.op_timeout", cfg.Sync.OpTimeoutRaw, &cfg.Sync.OpTimeout},
		{"sync.idle_timeout", cfg.Sync.IdleTimeoutRaw, &cfg.Sync.IdleTimeout},
		{"auth.session_ttl", cfg.Auth.SessionTTLRaw, &cfg.Auth.SessionTTL},
		{"auth.reset_token_ttl", cfg.Auth.ResetTokenTTLRaw, &cfg.Auth.ResetTokenTTL},
	}

	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		d, err := time.ParseDuration(f.raw)
		if err != nil {
			return fmt.Errorf("parsing %s %q: %w", f.name, f.raw, err)
		}
		*f.dst = d
	}

	return nil
}
