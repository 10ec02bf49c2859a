// ABOUTME: Client CLI configuration: server URL and the signed-in session
// ABOUTME: Stored as YAML at ~/.config/levelup/client.yaml with owner-only permissions

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultServer is used until a server URL is configured.
const DefaultServer = "http://localhost:8080"

// ClientConfig is the persisted CLI state.
type ClientConfig struct {
	Server string `yaml:"server"`
	Token  string `yaml:"token,omitempty"`
	UserID string `yaml:"uid,omitempty"`
	Email  string `yaml:"email,omitempty"`
}

// SignedIn reports whether a session token is stored.
func (c ClientConfig) SignedIn() bool {
	return c.Token != "" && c.UserID != ""
}

// defaultClientConfigPath returns the client config location.
// Priority: LEVELUP_CLIENT_CONFIG > XDG_CONFIG_HOME/levelup/client.yaml > ~/.config/levelup/client.yaml
func defaultClientConfigPath() string {
	if p := os.Getenv("LEVELUP_CLIENT_CONFIG"); p != "" {
		return p
	}
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "client.yaml"
		}
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "levelup", "client.yaml")
}

// loadClientConfig reads path. A missing file yields the defaults.
func loadClientConfig(path string) (ClientConfig, error) {
	cfg := ClientConfig{Server: DefaultServer}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("reading client config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing client config %s: %w", path, err)
	}
	if cfg.Server == "" {
		cfg.Server = DefaultServer
	}
	return cfg, nil
}

func saveClientConfig(path string, cfg ClientConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding client config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing client config: %w", err)
	}
	return nil
}
