// Package config handles configuration loading for levelup-server.
//
// # Overview
//
// Configuration is loaded from YAML (or TOML, by .toml extension) files with
// environment variable expansion, defaults, and validation.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from LEVELUP_CONFIG environment variable
//  2. $XDG_CONFIG_HOME/levelup/server.yaml
//  3. ~/.config/levelup/server.yaml
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	auth:
//	  jwt_secret: "${LEVELUP_JWT_SECRET}"
//
// Unset variables expand to the empty string. LEVELUP_DB_PATH overrides
// database.path after parsing.
//
// # Configuration Sections
//
//	server:
//	  http_addr: "0.0.0.0:8080"
//
//	database:
//	  path: "/var/lib/levelup/levelup.db"
//
//	auth:
//	  jwt_secret: "${LEVELUP_JWT_SECRET}"  # at least 32 bytes
//	  session_ttl: "720h"
//	  reset_token_ttl: "1h"
//	  min_password_length: 6
//
//	sync:
//	  debounce_window: "1s"   # quiet period before a feature document is written
//	  op_timeout: "15s"       # bound on a single remote read or write
//	  idle_timeout: "30m"     # unused workspaces are flushed and closed
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
// # Usage
//
//	cfg, err := config.Load(config.DefaultPath())
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
